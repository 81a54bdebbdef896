package bloomy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/louisbranch/bloomy/internal/services/social/account"
	"github.com/louisbranch/bloomy/internal/services/social/profile"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSignupCommand(rt *runtime) *cobra.Command {
	var email, username, displayName, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := rt.password(password)
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Account.Signup(ctx, email, secret, username, displayName)
				if err != nil {
					return err
				}
				return rt.printSession(session)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "public username")
	cmd.Flags().StringVar(&displayName, "display-name", "", "name shown to friends")
	cmd.Flags().StringVar(&password, "password", "", "password (read from the terminal when empty)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := rt.password(password)
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session, err := a.Account.Login(ctx, email, secret)
				if err != nil {
					return err
				}
				return rt.printSession(session)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from the terminal when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the friend lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Account.Logout(ctx)
				return rt.emit(map[string]bool{"signedIn": false}, func(w io.Writer) {
					fmt.Fprintln(w, "signed out")
				})
			})
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	var displayName, bio string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show or edit the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				user, ok := a.Account.CurrentUser()
				if !ok {
					return errors.New("not signed in")
				}
				var patch profile.Patch
				if cmd.Flags().Changed("display-name") {
					patch.DisplayName = &displayName
				}
				if cmd.Flags().Changed("bio") {
					patch.Bio = &bio
				}
				if patch != (profile.Patch{}) {
					updated, err := a.Account.UpdateProfile(ctx, patch)
					if err != nil {
						return err
					}
					user = updated
				}
				return rt.printUser(user)
			})
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "set the display name")
	cmd.Flags().StringVar(&bio, "bio", "", "set the bio")
	return cmd
}

// password returns flag, or reads one from the terminal without echo. Piped
// input is read as a single line.
func (rt *runtime) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if file, ok := rt.streams.In.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(rt.streams.Err, "Password: ")
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(rt.streams.Err)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(rt.streams.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (rt *runtime) printSession(session account.Session) error {
	return rt.emit(session, func(w io.Writer) {
		fmt.Fprintf(w, "signed in as @%s\n", session.User.Username)
		if session.Token != "" {
			fmt.Fprintf(w, "token\t%s\n", session.Token)
		}
	})
}

func (rt *runtime) printUser(user storage.User) error {
	return rt.emit(user, func(w io.Writer) {
		fmt.Fprintf(w, "username\t@%s\n", user.Username)
		fmt.Fprintf(w, "name\t%s\n", user.DisplayName)
		fmt.Fprintf(w, "email\t%s\n", user.Email)
		fmt.Fprintf(w, "bio\t%s\n", orDash(user.Bio))
		fmt.Fprintf(w, "joined\t%s\n", user.JoinedAt.Format("2006-01-02"))
	})
}

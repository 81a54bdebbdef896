package bloomy

import (
	"context"
	"fmt"
	"io"

	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/louisbranch/bloomy/internal/services/social/friends"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"github.com/spf13/cobra"
)

func newFriendsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage friends and friend requests",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accepted friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				return rt.printFriends(a.Friends.Friends())
			})
		},
	}

	requests := &cobra.Command{
		Use:   "requests",
		Short: "List pending requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				return rt.printFriends(a.Friends.Requests())
			})
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find people by username or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				users, err := a.Friends.Search(ctx, args[0])
				if err != nil {
					return err
				}
				return rt.emit(orEmpty(users), func(w io.Writer) { writeUsers(w, users) })
			})
		},
	}

	request := &cobra.Command{
		Use:   "request <username>",
		Short: "Send a friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sent, err := a.Friends.Send(ctx, args[0])
				if err != nil {
					return err
				}
				return rt.printFriends([]friends.Friend{sent})
			})
		},
	}

	accept := &cobra.Command{
		Use:   "accept <request-id>",
		Short: "Accept a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				friend, err := a.Friends.Accept(ctx, args[0])
				if err != nil {
					return err
				}
				return rt.printFriends([]friends.Friend{friend})
			})
		},
	}

	reject := &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Drop a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Friends.Reject(ctx, args[0])
				return rt.emit(map[string]string{"rejected": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "rejected %s\n", args[0])
				})
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <friend-id>",
		Short: "Remove a friend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Friends.Remove(ctx, args[0])
				return rt.emit(map[string]string{"removed": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "removed %s\n", args[0])
				})
			})
		},
	}

	cmd.AddCommand(list, requests, search, request, accept, reject, remove)
	return cmd
}

func (rt *runtime) printFriends(list []friends.Friend) error {
	return rt.emit(orEmpty(list), func(w io.Writer) {
		for _, f := range list {
			fmt.Fprintf(w, "%s\t@%s\t%s\t%s\n", f.ID, f.User.Username, f.User.DisplayName, f.Status)
		}
	})
}

func writeUsers(w io.Writer, users []storage.User) {
	for _, user := range users {
		status := "offline"
		if user.IsOnline {
			status = "online"
		}
		fmt.Fprintf(w, "@%s\t%s\t%s\n", user.Username, user.DisplayName, status)
	}
}

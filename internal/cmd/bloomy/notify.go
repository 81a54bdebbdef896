package bloomy

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/louisbranch/bloomy/internal/services/notifications/permission"
	"github.com/louisbranch/bloomy/internal/services/notifications/render"
	"github.com/spf13/cobra"
)

type notifyStatus struct {
	permission.Snapshot
	PromptPending bool `json:"promptPending"`
}

type notifyResult struct {
	Notification domain.Notification `json:"notification"`
	Shown        bool                `json:"shown"`
}

func newNotifyCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification permission, previews and the inbox",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the notification permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := notifyStatus{Snapshot: a.Gate.Snapshot(), PromptPending: a.Prompt.Eligible(ctx)}
				return rt.emit(out, func(w io.Writer) {
					fmt.Fprintf(w, "permission\t%s\n", out.State)
					fmt.Fprintf(w, "supported\t%t\n", out.Supported)
					fmt.Fprintf(w, "prompt pending\t%t\n", out.PromptPending)
				})
			})
		},
	}

	request := &cobra.Command{
		Use:   "request",
		Short: "Ask for notification permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Gate.Supported() {
					return errors.New("notifications are not supported here")
				}
				state, err := a.Gate.Request(ctx)
				if err != nil {
					return err
				}
				return rt.emit(a.Gate.Snapshot(), func(w io.Writer) {
					fmt.Fprintf(w, "permission\t%s\n", state)
				})
			})
		},
	}

	var params render.Params
	preview := &cobra.Command{
		Use:   "preview <kind>",
		Short: "Render a notification without showing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				n := a.Preview(kind, params)
				return rt.emit(n, func(w io.Writer) { writeNotification(w, n) })
			})
		},
	}

	send := &cobra.Command{
		Use:   "send <kind>",
		Short: "Render a notification and show it when permitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, shown := a.Notify(ctx, kind, params)
				return rt.emit(notifyResult{Notification: n, Shown: shown}, func(w io.Writer) {
					writeNotification(w, n)
					fmt.Fprintf(w, "shown\t%t\n", shown)
				})
			})
		},
	}
	for _, c := range []*cobra.Command{preview, send} {
		c.Flags().StringVar(&params.FriendName, "friend", "", "friend name for friend-activity")
		c.Flags().StringVar(&params.Activity, "activity", "", "activity text for friend-activity")
		c.Flags().StringVar(&params.Achievement, "achievement", "", "achievement text")
	}

	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "List the reminder slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(_ context.Context, a *app.App) error {
				slots := a.Scheduler.Slots()
				return rt.emit(orEmpty(slots), func(w io.Writer) {
					for _, slot := range slots {
						fmt.Fprintf(w, "%s\t%02d:%02d\t%s\n", slot.Name, slot.Hour, slot.Minute, slot.Kind)
					}
				})
			})
		},
	}

	var pageSize int
	var pageToken string
	inbox := &cobra.Command{
		Use:   "inbox",
		Short: "List shown notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.Inbox.List(ctx, domain.ListInboxInput{
					Profile:   a.Config.Profile,
					PageSize:  pageSize,
					PageToken: pageToken,
				})
				if err != nil {
					return err
				}
				return rt.emit(page, func(w io.Writer) {
					for _, item := range page.Items {
						read := "unread"
						if item.ReadAt != nil {
							read = "read"
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.ID, item.CreatedAt.In(rt.location()).Format("2006-01-02 15:04"), read, item.Title)
					}
					fmt.Fprintf(w, "unread\t%d\n", page.Unread)
					if page.NextPageToken != "" {
						fmt.Fprintf(w, "next page\t%s\n", page.NextPageToken)
					}
				})
			})
		},
	}
	inbox.Flags().IntVar(&pageSize, "page-size", 0, "items per page")
	inbox.Flags().StringVar(&pageToken, "page-token", "", "token from the previous page")

	read := &cobra.Command{
		Use:   "read <item-id>",
		Short: "Mark an inbox item read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				item, err := a.Inbox.MarkRead(ctx, a.Config.Profile, args[0])
				if err != nil {
					return err
				}
				return rt.emit(item, func(w io.Writer) {
					fmt.Fprintf(w, "read %s\n", item.ID)
				})
			})
		},
	}

	cmd.AddCommand(status, request, preview, send, schedule, inbox, read)
	return cmd
}

func writeNotification(w io.Writer, n domain.Notification) {
	fmt.Fprintf(w, "kind\t%s\n", n.Kind)
	fmt.Fprintf(w, "title\t%s\n", n.Title)
	fmt.Fprintf(w, "body\t%s\n", n.Body)
	for _, action := range n.Actions {
		fmt.Fprintf(w, "action\t%s\t%s\n", action.ID, domain.RouteForAction(action.ID))
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/cli/style"
	"pulse/internal/domain"
	"pulse/internal/notifications"
)

var unreadOnly bool

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd, notificationsReadAllCmd,
		notificationsDeleteCmd, notificationsClearCmd, notificationsTestCmd)
	notificationsListCmd.Flags().BoolVarP(&unreadOnly, "unread", "u", false, "Only show unread notifications")
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif", "inbox"},
	Short:   "Manage the local notification inbox",
}

// withInbox opens the local store and hands the inbox to fn.
func withInbox(fn func(inbox *notifications.Service) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(notifications.NewService(a.store, a.metrics))
}

func typeDot(t domain.NotificationType) string {
	switch t {
	case domain.NotificationIncident:
		return style.DotUnhealthy
	case domain.NotificationDegradation:
		return style.DotWarning
	case domain.NotificationRecovery:
		return style.DotHealthy
	default:
		return style.DotDim
	}
}

var notificationsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notifications, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			w := cmd.OutOrStdout()
			list := inbox.List()

			fmt.Fprintln(w, style.Banner.Render("inbox")+
				style.Subtitle.Render(fmt.Sprintf("  %d unread of %d", inbox.UnreadCount(), len(list))))
			fmt.Fprintln(w)

			now := time.Now()
			for _, n := range list {
				if unreadOnly && n.IsRead {
					continue
				}
				title := n.Title
				if !n.IsRead {
					title = style.Bold.Render(title)
				}
				fmt.Fprintf(w, "  %s %s  %s\n", typeDot(n.Type), title,
					style.DimText.Render(domain.FormatDuration(now.Sub(n.Timestamp))+" ago  "+n.ID))
				if n.Body != "" {
					fmt.Fprintln(w, "    "+n.Body)
				}
			}
			return nil
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			found, err := inbox.MarkAsRead(args[0])
			if !found {
				return fmt.Errorf("notification %s not found", args[0])
			}
			return err
		})
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			return inbox.MarkAllAsRead()
		})
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete one notification",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			found, err := inbox.Delete(args[0])
			if !found {
				return fmt.Errorf("notification %s not found", args[0])
			}
			return err
		})
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every notification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			return inbox.ClearAll()
		})
	},
}

var notificationsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Add a sample notification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInbox(func(inbox *notifications.Service) error {
			n, err := inbox.AddTest()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", typeDot(n.Type), n.Title)
			return nil
		})
	},
}

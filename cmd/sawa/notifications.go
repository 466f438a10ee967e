package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/internal/notify"
	"github.com/sawa-platform/sawa/pkg/domain"
)

func newNotificationsCmd() *cobra.Command {
	var unreadOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runNotificationsList(ctx, a, unreadOnly)
		}),
	}
	list.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: protected(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runNotificationRead(ctx, a, id)
		}),
	}

	var interval time.Duration
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print new notifications as they arrive",
		Long:  "Poll for notifications until interrupted. Exits with an error if the session ends.",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			if interval <= 0 {
				interval = a.cfg.PollInterval
			}
			return runNotificationsWatch(ctx, a, interval)
		}),
	}
	watch.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default: SAWA_POLL_INTERVAL)")

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "In-app notifications",
		Args:  cobra.NoArgs,
		RunE:  list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(list, read, watch)
	return cmd
}

func runNotificationsList(ctx context.Context, a *app, unreadOnly bool) error {
	l, err := fetch.Do(ctx, a.session, a.api.ListNotifications)
	if err != nil {
		return err
	}
	items := l.Items
	if unreadOnly {
		items = items[:0:0]
		for _, n := range l.Items {
			if n.Unread() {
				items = append(items, n)
			}
		}
	}
	if a.json {
		return a.printJSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No notifications.") //nolint:errcheck
		return nil
	}
	for _, n := range items {
		printNotification(a, n)
	}
	fmt.Fprintf(a.out, "\n%d unread\n", domain.CountUnread(l.Items)) //nolint:errcheck
	return nil
}

func printNotification(a *app, n domain.Notification) {
	mark := " "
	if n.Unread() {
		mark = "●"
	}
	fmt.Fprintf(a.out, "%s #%-5d %-10s %s\n", mark, n.ID, ago(n.CreatedAt), n.Text()) //nolint:errcheck
}

func runNotificationRead(ctx context.Context, a *app, id int64) error {
	err := fetch.Exec(ctx, a.session, func(ctx context.Context) error {
		return a.api.MarkNotificationRead(ctx, id)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Notification #%d marked as read.\n", id) //nolint:errcheck
	return nil
}

func runNotificationsWatch(ctx context.Context, a *app, interval time.Duration) error {
	w := notify.NewWatcher(a.session, a.api.ListNotifications, interval, a.logger)
	w.OnNew = func(ns []domain.Notification) {
		if a.json {
			for _, n := range ns {
				a.printJSON(n) //nolint:errcheck
			}
			return
		}
		for _, n := range ns {
			printNotification(a, n)
		}
	}
	return w.Run(ctx)
}

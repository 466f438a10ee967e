package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/domain"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func oneOf(v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid value %q (want one of: %s)", v, strings.Join(allowed[1:], ", "))
}

// -- dashboard --

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE:  protected(func(ctx context.Context, a *app, _ []string) error { return runDashboard(ctx, a) }),
	}
}

func runDashboard(ctx context.Context, a *app) error {
	d, err := fetch.Do(ctx, a.session, a.api.GetDashboard)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(d)
	}
	fmt.Fprintf(a.out, "Requests:      %d\n", d.Stats.Requests)     //nolint:errcheck
	fmt.Fprintf(a.out, "Applications:  %d\n", d.Stats.Applications) //nolint:errcheck
	fmt.Fprintf(a.out, "Messages:      %d\n", d.Stats.Messages)     //nolint:errcheck
	fmt.Fprintf(a.out, "Reviews:       %d\n", d.Stats.Reviews)      //nolint:errcheck
	return nil
}

// -- requests --

func newRequestsCmd() *cobra.Command {
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List service requests",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runRequestsList(ctx, a, status)
		}),
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status (open, assigned, completed, cancelled)")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your service requests",
		Args:  cobra.ExactArgs(1),
		RunE: protected(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				confirmed := false
				prompt := huh.NewConfirm().Title(fmt.Sprintf("Delete request #%d?", id)).Value(&confirmed)
				if err := huh.NewForm(huh.NewGroup(prompt)).RunWithContext(ctx); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}
			return runRequestsDelete(ctx, a, id)
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	var in domain.ApplicationInput
	apply := &cobra.Command{
		Use:   "apply <id>",
		Short: "Apply to a service request (providers)",
		Args:  cobra.ExactArgs(1),
		RunE: protected(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in.Request = id
			if strings.TrimSpace(in.Pitch) == "" {
				pitch := huh.NewText().Title("Pitch").Value(&in.Pitch).Validate(notEmpty("pitch"))
				if err := huh.NewForm(huh.NewGroup(pitch)).RunWithContext(ctx); err != nil {
					return err
				}
			}
			return runRequestsApply(ctx, a, in)
		}),
	}
	af := apply.Flags()
	af.StringVar(&in.Pitch, "pitch", "", "Why you are the right provider")
	af.StringVar(&in.Comments, "comments", "", "Additional comments")
	af.BoolVar(&in.AvailableOnPreferredDate, "available", true, "Available on the preferred date")
	af.StringVar(&in.SuggestedDate, "suggested-date", "", "Alternative date (YYYY-MM-DD)")
	af.StringVar(&in.PriceAdjustmentEUR, "price-adjustment", "", "Price adjustment in EUR")

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Service requests",
		Args:  cobra.NoArgs,
		RunE:  list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(list, newRequestsCreateCmd(), del, apply)
	return cmd
}

func runRequestsList(ctx context.Context, a *app, status string) error {
	if err := oneOf(status, domain.RequestStatuses); err != nil {
		return err
	}
	l, err := fetch.Do(ctx, a.session, func(ctx context.Context) (domain.List[domain.ServiceRequest], error) {
		return a.api.ListServiceRequests(ctx, status)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(l.Items)
	}
	if len(l.Items) == 0 {
		fmt.Fprintln(a.out, "No service requests.") //nolint:errcheck
		return nil
	}
	for _, r := range l.Items {
		fmt.Fprintf(a.out, "#%-5d %-10s %-36s %-16s %s\n", r.ID, r.Status, r.Title, r.MachineType, ago(r.CreatedAt)) //nolint:errcheck
	}
	return nil
}

func runRequestsDelete(ctx context.Context, a *app, id int64) error {
	err := fetch.Exec(ctx, a.session, func(ctx context.Context) error {
		return a.api.DeleteServiceRequest(ctx, id)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Request #%d deleted.\n", id) //nolint:errcheck
	return nil
}

func runRequestsApply(ctx context.Context, a *app, in domain.ApplicationInput) error {
	created, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.Application, error) {
		return a.api.CreateApplication(ctx, in)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(created)
	}
	fmt.Fprintf(a.out, "Application #%d sent for request #%d.\n", created.ID, in.Request) //nolint:errcheck
	return nil
}

// -- applications --

func newApplicationsCmd() *cobra.Command {
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runApplicationsList(ctx, a, status)
		}),
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status (pending, accepted, rejected)")

	decide := func(accept bool) *cobra.Command {
		use, short := "reject <id>", "Reject a pending application"
		if accept {
			use, short = "accept <id>", "Accept a pending application"
		}
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: protected(func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return runApplicationDecide(ctx, a, id, accept)
			}),
		}
	}

	cmd := &cobra.Command{
		Use:   "applications",
		Short: "Applications to service requests",
		Args:  cobra.NoArgs,
		RunE:  list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(list, decide(true), decide(false))
	return cmd
}

func runApplicationsList(ctx context.Context, a *app, status string) error {
	if err := oneOf(status, domain.ApplicationStatuses); err != nil {
		return err
	}
	l, err := fetch.Do(ctx, a.session, func(ctx context.Context) (domain.List[domain.Application], error) {
		return a.api.ListApplications(ctx, status)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(l.Items)
	}
	if len(l.Items) == 0 {
		fmt.Fprintln(a.out, "No applications.") //nolint:errcheck
		return nil
	}
	for _, ap := range l.Items {
		title := ap.RequestTitle
		if title == "" {
			title = fmt.Sprintf("request #%d", ap.Request)
		}
		fmt.Fprintf(a.out, "#%-5d %-9s %-36s %-20s %s\n", ap.ID, ap.Status, title, ap.ProviderName, ago(ap.CreatedAt)) //nolint:errcheck
	}
	return nil
}

func runApplicationDecide(ctx context.Context, a *app, id int64, accept bool) error {
	verb, call := "rejected", a.api.RejectApplication
	if accept {
		verb, call = "accepted", a.api.AcceptApplication
	}
	if err := fetch.Exec(ctx, a.session, func(ctx context.Context) error { return call(ctx, id) }); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Application #%d %s.\n", id, verb) //nolint:errcheck
	return nil
}

// -- messages --

func newMessagesCmd() *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE:  protected(func(ctx context.Context, a *app, _ []string) error { return runConversations(ctx, a) }),
	}
	show := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: protected(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runThread(ctx, a, id)
		}),
	}
	send := &cobra.Command{
		Use:   "send <thread-id> <message...>",
		Short: "Send a message to a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: protected(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runSend(ctx, a, id, strings.Join(args[1:], " "))
		}),
	}
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Chat threads",
		Args:  cobra.NoArgs,
		RunE:  list.RunE,
	}
	cmd.AddCommand(list, show, send)
	return cmd
}

func runConversations(ctx context.Context, a *app) error {
	l, err := fetch.Do(ctx, a.session, a.api.ListConversations)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(l.Items)
	}
	if len(l.Items) == 0 {
		fmt.Fprintln(a.out, "No conversations.") //nolint:errcheck
		return nil
	}
	for _, c := range l.Items {
		with := "-"
		if c.OtherParticipant != nil {
			with = c.OtherParticipant.DisplayName()
		}
		preview := ""
		if c.LastMessage != nil {
			preview = strings.Join(strings.Fields(c.LastMessage.Content), " ")
		}
		fmt.Fprintf(a.out, "#%-5d %-20s %3d unread  %s\n", c.ID, with, c.UnreadCount, preview) //nolint:errcheck
	}
	return nil
}

func runThread(ctx context.Context, a *app, id int64) error {
	l, err := fetch.Do(ctx, a.session, func(ctx context.Context) (domain.List[domain.ChatMessage], error) {
		return a.api.ListThreadMessages(ctx, id)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(l.Items)
	}
	var me int64
	if u := a.session.User(); u != nil {
		me = u.ID
	}
	for _, m := range l.Items {
		who := "them"
		if m.FromUser == me {
			who = "you"
		}
		fmt.Fprintf(a.out, "%s  %-4s  %s\n", m.CreatedAt.Local().Format("Jan 02 15:04"), who, m.Content) //nolint:errcheck
	}
	return nil
}

func runSend(ctx context.Context, a *app, id int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("message is empty")
	}
	m, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.ChatMessage, error) {
		return a.api.SendThreadMessage(ctx, id, content)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(m)
	}
	fmt.Fprintln(a.out, "Sent.") //nolint:errcheck
	return nil
}

// -- reviews --

var reviewKinds = []string{"", domain.ReviewsGiven, domain.ReviewsReceived}

func newReviewsCmd() *cobra.Command {
	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List reviews",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runReviewsList(ctx, a, kind)
		}),
	}
	list.Flags().StringVar(&kind, "type", "", "given or received")

	var in domain.ReviewInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Review the other party of a completed job",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			return runReviewCreate(ctx, a, in)
		}),
	}
	cf := create.Flags()
	cf.Int64Var(&in.Request, "request", 0, "Service request id")
	cf.Int64Var(&in.Reviewee, "reviewee", 0, "User id of the reviewed party")
	cf.IntVar(&in.RatingOverall, "rating", 0, "Overall rating, 1 to 5")
	cf.StringVar(&in.Comment, "comment", "", "Comment")
	for _, f := range []string{"request", "reviewee", "rating"} {
		create.MarkFlagRequired(f) //nolint:errcheck
	}

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Reviews",
		Args:  cobra.NoArgs,
		RunE:  list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(list, create)
	return cmd
}

func runReviewsList(ctx context.Context, a *app, kind string) error {
	if err := oneOf(kind, reviewKinds); err != nil {
		return err
	}
	l, err := fetch.Do(ctx, a.session, func(ctx context.Context) (domain.List[domain.Review], error) {
		return a.api.ListReviews(ctx, kind)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(l.Items)
	}
	if len(l.Items) == 0 {
		fmt.Fprintln(a.out, "No reviews.") //nolint:errcheck
		return nil
	}
	for _, r := range l.Items {
		stars := strings.Repeat("★", r.RatingOverall) + strings.Repeat("☆", max(5-r.RatingOverall, 0))
		fmt.Fprintf(a.out, "%s  %s → %s  %s\n", stars, r.ReviewerName, r.RevieweeName, r.Comment) //nolint:errcheck
	}
	return nil
}

func runReviewCreate(ctx context.Context, a *app, in domain.ReviewInput) error {
	if !domain.ValidRating(in.RatingOverall) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	r, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.Review, error) {
		return a.api.CreateReview(ctx, in)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(r)
	}
	fmt.Fprintf(a.out, "Review #%d posted.\n", r.ID) //nolint:errcheck
	return nil
}

// -- settings --

func newSettingsCmd() *cobra.Command {
	var edit bool
	var pf profileFlags
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Long: `Show your account and your buyer or provider profile.

With --edit, the profile fields given as flags are updated. Without any field
flags the current values are offered in a form.`,
		Args: cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			if !edit {
				return runProfile(ctx, a)
			}
			return runProfileEdit(ctx, a, pf)
		}),
	}
	profileCmd.Flags().BoolVar(&edit, "edit", false, "Edit your buyer or provider profile")
	pf.register(profileCmd)

	password := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			var oldPw, newPw, confirm string
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(&oldPw).Validate(notEmpty("current password")),
				huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&newPw).Validate(notEmpty("new password")),
				huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).Value(&confirm),
			))
			if err := form.RunWithContext(ctx); err != nil {
				return err
			}
			return runChangePassword(ctx, a, oldPw, newPw, confirm)
		}),
	}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Account settings",
		Args:  cobra.NoArgs,
		RunE:  profileCmd.RunE,
	}
	cmd.Flags().AddFlagSet(profileCmd.Flags())
	cmd.AddCommand(profileCmd, password)
	return cmd
}

func runChangePassword(ctx context.Context, a *app, oldPw, newPw, confirm string) error {
	if newPw != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if len([]rune(newPw)) < 6 {
		return fmt.Errorf("new password must be at least 6 characters")
	}
	err := fetch.Exec(ctx, a.session, func(ctx context.Context) error {
		return a.api.ChangePassword(ctx, oldPw, newPw)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed.") //nolint:errcheck
	return nil
}

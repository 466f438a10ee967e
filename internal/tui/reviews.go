package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// reviewFilters is the cycle order for the reviews list ("" = all).
var reviewFilters = []string{"", domain.ReviewsGiven, domain.ReviewsReceived}

type reviewsLoadedMsg struct {
	kind  string
	items []domain.Review
	err   error
}

type reviewCreatedMsg struct {
	err error
}

// reviewFields backs the new review form.
type reviewFields struct {
	request  string
	reviewee string
	rating   int
	comment  string
}

func (f reviewFields) input() domain.ReviewInput {
	req, _ := strconv.ParseInt(strings.TrimSpace(f.request), 10, 64)
	rev, _ := strconv.ParseInt(strings.TrimSpace(f.reviewee), 10, 64)
	return domain.ReviewInput{
		Request:       req,
		Reviewee:      rev,
		RatingOverall: f.rating,
		Comment:       strings.TrimSpace(f.comment),
	}
}

type reviewsModel struct {
	client  *client.Client
	session Session
	items   []domain.Review
	cursor  int
	filter  string
	err     string
	status  string
	loading bool
	width   int
	height  int

	draft *reviewFields
	form  *huh.Form
}

func newReviewsModel(c *client.Client, s Session) reviewsModel {
	return reviewsModel{client: c, session: s, loading: true}
}

func (m reviewsModel) Init() tea.Cmd {
	return m.loadReviews()
}

func (m reviewsModel) editing() bool {
	return m.form != nil
}

func (m reviewsModel) loadReviews() tea.Cmd {
	c := m.client
	kind := m.filter
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.Review], error) {
			return c.ListReviews(ctx, kind)
		},
		func(l domain.List[domain.Review], err error) tea.Msg {
			return reviewsLoadedMsg{kind: kind, items: l.Items, err: err}
		})
}

func (m reviewsModel) createReview() tea.Cmd {
	c := m.client
	in := m.draft.input()
	return act(m.session,
		func(ctx context.Context) error {
			_, err := c.CreateReview(ctx, in)
			return err
		},
		func(err error) tea.Msg { return reviewCreatedMsg{err: err} })
}

func positiveID(s string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a numeric id")
	}
	return nil
}

func newReviewForm(f *reviewFields) *huh.Form {
	ratings := make([]huh.Option[int], 0, 5)
	for r := 5; r >= 1; r-- {
		ratings = append(ratings, huh.NewOption(strings.Repeat("★", r), r))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Request ID").Value(&f.request).Validate(positiveID),
			huh.NewInput().Title("Reviewee user ID").Value(&f.reviewee).Validate(positiveID),
			huh.NewSelect[int]().Title("Overall rating").Options(ratings...).Value(&f.rating),
			huh.NewText().Title("Comment").Value(&f.comment),
		).Title("Leave a review").
			Description("Reviews can be left once a job is completed."),
	).WithTheme(formTheme()).WithShowHelp(false)
}

func (m reviewsModel) Update(msg tea.Msg) (reviewsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case reviewsLoadedMsg:
		if msg.kind != m.filter {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.items = msg.items
		m.cursor = moveCursor(m.cursor, 0, len(m.items))
		return m, nil

	case reviewCreatedMsg:
		if msg.err != nil {
			m.status = "review failed: " + errText(msg.err)
			for _, line := range fieldErrorLines(client.FieldErrors(msg.err)) {
				m.status += "; " + line
			}
			return m, nil
		}
		m.status = "review posted"
		m.loading = true
		return m, m.loadReviews()
	}

	if m.form != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.form = nil
			m.status = ""
			return m, nil
		}
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		if m.form.State == huh.StateCompleted {
			m.form = nil
			m.status = "posting review..."
			return m, m.createReview()
		}
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "j", "down":
		m.cursor = moveCursor(m.cursor, 1, len(m.items))
	case "k", "up":
		m.cursor = moveCursor(m.cursor, -1, len(m.items))
	case "f":
		m.filter = nextFilter(reviewFilters, m.filter)
		m.cursor = 0
		m.loading = true
		return m, m.loadReviews()
	case "r":
		m.loading = true
		return m, m.loadReviews()
	case "n":
		m.draft = &reviewFields{rating: 5}
		m.form = newReviewForm(m.draft)
		m.status = ""
		return m, m.form.Init()
	}
	return m, nil
}

func (m reviewsModel) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Reviews") + "  " +
		metaStyle.Render("showing: ") + accentStyle.Render(filterLabel(m.filter)) + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.form != nil {
		b.WriteString(m.form.View())
		return b.String()
	}
	if m.loading && len(m.items) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.items) == 0 {
		b.WriteString("\n " + dimStyle.Render("no reviews yet") + "\n")
	}

	for i, r := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
		}
		who := r.ReviewerName + " → " + r.RevieweeName
		fmt.Fprintf(&b, " %s%s  %s  %s\n",
			cursor,
			ratingStars(r.RatingOverall),
			normalStyle.Render(who),
			metaStyle.Render(formatTime(r.CreatedAt)),
		)
		if r.Comment != "" {
			b.WriteString("      " + dimStyle.Render(truncStr(oneLine(r.Comment), max(m.width-8, 20))) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n " + dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m reviewsModel) helpKeys() string {
	if m.form != nil {
		return helpEntry("enter", "next") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("f", "filter") + "  " + helpEntry("n", "new review") + "  " + helpEntry("r", "reload") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

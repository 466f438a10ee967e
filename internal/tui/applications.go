package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// -- messages --

type applicationsLoadedMsg struct {
	status string
	items  []domain.Application
	err    error
}

type applicationActionMsg struct {
	verb string // "accepted" or "rejected"
	id   int64
	err  error
}

// -- model --

type applicationsModel struct {
	client   *client.Client
	session  Session
	items    []domain.Application
	cursor   int
	filter   string
	expanded bool
	err      string
	status   string
	loading  bool
	busy     bool
	role     string
	width    int
	height   int
}

func newApplicationsModel(c *client.Client, s Session) applicationsModel {
	return applicationsModel{client: c, session: s, loading: true}
}

func (m applicationsModel) Init() tea.Cmd {
	return m.loadApplications()
}

func (m applicationsModel) loadApplications() tea.Cmd {
	c := m.client
	status := m.filter
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.Application], error) {
			return c.ListApplications(ctx, status)
		},
		func(l domain.List[domain.Application], err error) tea.Msg {
			return applicationsLoadedMsg{status: status, items: l.Items, err: err}
		})
}

func (m applicationsModel) decide(id int64, accept bool) tea.Cmd {
	c := m.client
	verb, call := "rejected", c.RejectApplication
	if accept {
		verb, call = "accepted", c.AcceptApplication
	}
	return act(m.session,
		func(ctx context.Context) error { return call(ctx, id) },
		func(err error) tea.Msg { return applicationActionMsg{verb: verb, id: id, err: err} })
}

func (m applicationsModel) Update(msg tea.Msg) (applicationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case meLoadedMsg:
		if msg.me != nil {
			m.role = msg.me.Role
		}

	case applicationsLoadedMsg:
		if msg.status != m.filter {
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

	case applicationActionMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "failed: " + errText(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("application #%d %s", msg.id, msg.verb)
		m.loading = true
		return m, m.loadApplications()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m applicationsModel) handleKey(msg tea.KeyMsg) (applicationsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.cursor = moveCursor(m.cursor, 1, len(m.items))
	case "k", "up":
		m.cursor = moveCursor(m.cursor, -1, len(m.items))
	case "enter":
		m.expanded = !m.expanded
	case "f":
		m.filter = nextFilter(domain.ApplicationStatuses, m.filter)
		m.cursor = 0
		m.loading = true
		return m, m.loadApplications()
	case "r":
		m.loading = true
		return m, m.loadApplications()
	case "a", "x":
		if m.role != domain.RoleBuyer || m.busy || m.cursor >= len(m.items) {
			return m, nil
		}
		app := m.items[m.cursor]
		if app.Status != domain.ApplicationPending {
			m.status = "application is already " + app.Status
			return m, nil
		}
		m.busy = true
		return m, m.decide(app.ID, msg.String() == "a")
	}
	return m, nil
}

func (m applicationsModel) View() string {
	var b strings.Builder
	title := "Applications"
	if m.role == domain.RoleProvider {
		title = "My Applications"
	}
	b.WriteString(" " + titleStyle.Render(title) + "  " +
		metaStyle.Render("status: ") + accentStyle.Render(filterLabel(m.filter)) + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.loading && len(m.items) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.items) == 0 {
		b.WriteString("\n " + dimStyle.Render("no applications "+filterSuffix(m.filter)) + "\n")
	}

	for i, a := range m.items {
		cursor := "  "
		title := normalStyle.Render(truncStr(applicationTitle(a), 36))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			title = selectedStyle.Render(truncStr(applicationTitle(a), 36))
		}
		who := a.ProviderName
		if m.role == domain.RoleProvider {
			who = ""
		}
		fmt.Fprintf(&b, " %s%s  %s  %s  %s\n",
			cursor,
			title,
			StatusStyle(a.Status).Render(a.Status),
			dimStyle.Render(who),
			metaStyle.Render(formatTime(a.CreatedAt)),
		)
		if i == m.cursor && m.expanded {
			b.WriteString(applicationDetail(a))
		}
	}

	if m.status != "" {
		b.WriteString("\n " + dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func applicationTitle(a domain.Application) string {
	if a.RequestTitle != "" {
		return a.RequestTitle
	}
	return fmt.Sprintf("request #%d", a.Request)
}

func applicationDetail(a domain.Application) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "      %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", label)), normalStyle.Render(value))
	}
	row("pitch", oneLine(a.Pitch))
	if a.AvailableOnPreferredDate {
		row("date", "available on preferred date")
	} else {
		row("date", a.SuggestedDate)
	}
	if a.PriceAdjustmentEUR != "" {
		row("price adj", "€"+a.PriceAdjustmentEUR)
	}
	row("comments", oneLine(a.Comments))
	if a.ChatThread != nil {
		row("chat", fmt.Sprintf("thread #%d", *a.ChatThread))
	}
	return b.String()
}

func (m applicationsModel) helpKeys() string {
	keys := []string{helpEntry("j/k", "nav"), helpEntry("enter", "details"), helpEntry("f", "filter")}
	if m.role == domain.RoleBuyer {
		keys = append(keys, helpEntry("a", "accept"), helpEntry("x", "reject"))
	}
	keys = append(keys, helpEntry("r", "reload"), helpEntry("h", "help"), helpEntry("q", "quit"))
	return strings.Join(keys, "  ")
}

package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

type dashboardLoadedMsg struct {
	dash *domain.Dashboard
	err  error
}

type dashboardModel struct {
	client  *client.Client
	session Session
	dash    *domain.Dashboard
	me      *domain.User
	err     string
	loading bool
	width   int
	height  int
}

func newDashboardModel(c *client.Client, s Session) dashboardModel {
	return dashboardModel{client: c, session: s, loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	c := m.client
	return load(m.session,
		func(ctx context.Context) (*domain.Dashboard, error) { return c.GetDashboard(ctx) },
		func(d *domain.Dashboard, err error) tea.Msg { return dashboardLoadedMsg{dash: d, err: err} })
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case meLoadedMsg:
		m.me = msg.me

	case dashboardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.dash = msg.dash

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

type statCard struct {
	label string
	value int
}

// cards labels the dashboard counters for the viewer's role.
func (m dashboardModel) cards() []statCard {
	s := m.dash.Stats
	if m.me != nil && m.me.IsProvider() {
		return []statCard{
			{"Applications sent", s.Applications},
			{"Jobs", s.Requests},
			{"Messages", s.Messages},
			{"Reviews received", s.Reviews},
		}
	}
	return []statCard{
		{"Service requests", s.Requests},
		{"Applications received", s.Applications},
		{"Messages", s.Messages},
		{"Reviews", s.Reviews},
	}
}

func (m dashboardModel) View() string {
	var b strings.Builder
	greeting := "Dashboard"
	if m.me != nil {
		greeting = "Welcome back, " + m.me.DisplayName()
	}
	b.WriteString(" " + titleStyle.Render(greeting) + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.loading && m.dash == nil {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if m.dash == nil {
		return b.String()
	}

	b.WriteByte('\n')
	for _, c := range m.cards() {
		fmt.Fprintf(&b, "   %s  %s\n",
			accentStyle.Render(fmt.Sprintf("%5d", c.value)),
			normalStyle.Render(c.label))
	}

	b.WriteString("\n " + titleStyle.Render("Recent activity") + "\n")
	if len(m.dash.RecentActivity) == 0 {
		b.WriteString(" " + dimStyle.Render("nothing yet") + "\n")
	}
	for _, a := range m.dash.RecentActivity {
		b.WriteString("   " + dimStyle.Render(truncStr(activityLine(a), max(m.width-6, 20))) + "\n")
	}

	if m.me != nil && m.me.IsBuyer() {
		b.WriteString("\n " + metaStyle.Render("post a new request from the requests tab · press n there") + "\n")
	}
	return b.String()
}

// activityLine renders a free-form activity entry.
func activityLine(a map[string]any) string {
	for _, k := range []string{"message", "description", "title"} {
		if s, ok := a[k].(string); ok && s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, " ")
}

func (m dashboardModel) helpKeys() string {
	return helpEntry("1-7", "tabs") + "  " + helpEntry("r", "reload") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

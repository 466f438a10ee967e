package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/internal/notify"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// Bell messages carry the generation they were issued under. mount and
// unmount bump it, so ticks and results from an earlier session are dropped.

type bellTickMsg struct {
	gen int
}

type bellLoadedMsg struct {
	gen        int
	items      []domain.Notification
	err        error
	reschedule bool
}

type bellMarkedMsg struct {
	gen int
	id  int64
	err error
}

// bellModel polls notifications while the protected pages are mounted and
// doubles as the notifications tab.
type bellModel struct {
	client   *client.Client
	session  Session
	interval time.Duration
	gen      int
	mounted  bool

	items   []domain.Notification
	unread  int
	cursor  int
	err     string
	loading bool
	width   int
	height  int
}

func newBellModel(c *client.Client, s Session, interval time.Duration) bellModel {
	if interval <= 0 {
		interval = notify.DefaultInterval
	}
	return bellModel{client: c, session: s, interval: interval}
}

// mount starts a fresh polling chain.
func (m bellModel) mount() (bellModel, tea.Cmd) {
	m.gen++
	m.mounted = true
	m.items = nil
	m.unread = 0
	m.cursor = 0
	m.err = ""
	m.loading = true
	return m, m.fetch(true)
}

// unmount stops polling and forgets the last result.
func (m bellModel) unmount() bellModel {
	m.gen++
	m.mounted = false
	m.items = nil
	m.unread = 0
	m.cursor = 0
	m.err = ""
	m.loading = false
	return m
}

// refresh loads once without touching the polling chain.
func (m bellModel) refresh() tea.Cmd {
	if !m.mounted {
		return nil
	}
	return m.fetch(false)
}

func (m bellModel) fetch(reschedule bool) tea.Cmd {
	c := m.client
	gen := m.gen
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.Notification], error) {
			return c.ListNotifications(ctx)
		},
		func(l domain.List[domain.Notification], err error) tea.Msg {
			return bellLoadedMsg{gen: gen, items: l.Items, err: err, reschedule: reschedule}
		})
}

func (m bellModel) schedule() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return bellTickMsg{gen: gen} })
}

func (m bellModel) markRead(id int64) tea.Cmd {
	c := m.client
	gen := m.gen
	return act(m.session,
		func(ctx context.Context) error { return c.MarkNotificationRead(ctx, id) },
		func(err error) tea.Msg { return bellMarkedMsg{gen: gen, id: id, err: err} })
}

func (m bellModel) Update(msg tea.Msg) (bellModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case bellTickMsg:
		if msg.gen != m.gen || !m.mounted {
			return m, nil
		}
		return m, m.fetch(true)

	case bellLoadedMsg:
		if msg.gen != m.gen || !m.mounted {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
		} else {
			m.err = ""
			m.items = msg.items
			m.unread = domain.CountUnread(msg.items)
			m.cursor = moveCursor(m.cursor, 0, len(m.items))
		}
		if msg.reschedule {
			return m, m.schedule()
		}

	case bellMarkedMsg:
		if msg.gen != m.gen || !m.mounted {
			return m, nil
		}
		if msg.err != nil {
			m.err = "mark read failed: " + errText(msg.err)
			return m, nil
		}
		return m, m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.cursor = moveCursor(m.cursor, 1, len(m.items))
		case "k", "up":
			m.cursor = moveCursor(m.cursor, -1, len(m.items))
		case "enter", "m":
			if m.cursor < len(m.items) && m.items[m.cursor].Unread() {
				return m, m.markRead(m.items[m.cursor].ID)
			}
		case "r":
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m bellModel) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Notifications"))
	if m.unread > 0 {
		b.WriteString("  " + bellDotStyle.Render(fmt.Sprintf("● %d unread", m.unread)))
	}
	b.WriteString("\n" + separator(m.width) + "\n")

	if m.loading && len(m.items) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
	}
	if len(m.items) == 0 && m.err == "" {
		b.WriteString("\n " + dimStyle.Render("no notifications") + "\n")
		return b.String()
	}

	for i, n := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
		}
		dot := "  "
		text := dimStyle.Render(n.Text())
		if n.Unread() {
			dot = bellDotStyle.Render("●") + " "
			text = normalStyle.Render(n.Text())
		}
		if i == m.cursor {
			text = selectedStyle.Render(n.Text())
		}
		fmt.Fprintf(&b, " %s%s%s  %s\n", cursor, dot, text, metaStyle.Render(formatTime(n.CreatedAt)))
	}
	return b.String()
}

func (m bellModel) helpKeys() string {
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "mark read") + "  " + helpEntry("r", "reload") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

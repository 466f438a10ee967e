package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// messagesState distinguishes between the conversation list and an open thread.
type messagesState int

const (
	messagesListState messagesState = iota
	messagesThreadState
)

// threadPollInterval is how often the open thread polls for new messages.
const threadPollInterval = 5 * time.Second

// -- messages --

type conversationsLoadedMsg struct {
	items []domain.Conversation
	err   error
}

type threadLoadedMsg struct {
	threadID int64
	gen      int
	messages []domain.ChatMessage
	err      error
	poll     bool // reschedule the poll tick
}

type messageSentMsg struct {
	threadID int64
	err      error
}

type threadPollTickMsg struct {
	threadID int64
	gen      int
}

// -- model --

type messagesModel struct {
	client  *client.Client
	session Session
	state   messagesState
	convos  []domain.Conversation
	cursor  int
	err     string
	loading bool
	width   int
	height  int
	myID    int64

	// open thread
	gen          int
	threadID     int64
	threadWith   string
	messages     []domain.ChatMessage
	input        string
	inputFocused bool
	sending      bool
	status       string
}

func newMessagesModel(c *client.Client, s Session) messagesModel {
	return messagesModel{client: c, session: s, loading: true}
}

func (m messagesModel) Init() tea.Cmd {
	return m.loadConversations()
}

func (m messagesModel) editing() bool {
	return m.state == messagesThreadState && m.inputFocused
}

func (m messagesModel) loadConversations() tea.Cmd {
	c := m.client
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.Conversation], error) {
			return c.ListConversations(ctx)
		},
		func(l domain.List[domain.Conversation], err error) tea.Msg {
			return conversationsLoadedMsg{items: l.Items, err: err}
		})
}

func (m messagesModel) loadThread(poll bool) tea.Cmd {
	c := m.client
	id, gen := m.threadID, m.gen
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.ChatMessage], error) {
			return c.ListThreadMessages(ctx, id)
		},
		func(l domain.List[domain.ChatMessage], err error) tea.Msg {
			return threadLoadedMsg{threadID: id, gen: gen, messages: l.Items, err: err, poll: poll}
		})
}

func (m messagesModel) send(body string) tea.Cmd {
	c := m.client
	id := m.threadID
	return act(m.session,
		func(ctx context.Context) error {
			_, err := c.SendThreadMessage(ctx, id, body)
			return err
		},
		func(err error) tea.Msg { return messageSentMsg{threadID: id, err: err} })
}

func (m messagesModel) pollCmd() tea.Cmd {
	id, gen := m.threadID, m.gen
	return tea.Tick(threadPollInterval, func(time.Time) tea.Msg {
		return threadPollTickMsg{threadID: id, gen: gen}
	})
}

func (m messagesModel) open(c domain.Conversation) (messagesModel, tea.Cmd) {
	m.gen++
	m.state = messagesThreadState
	m.threadID = c.ID
	m.threadWith = participantName(c)
	m.messages = nil
	m.input = ""
	m.inputFocused = true
	m.status = ""
	return m, m.loadThread(true)
}

func (m messagesModel) close() (messagesModel, tea.Cmd) {
	m.gen++
	m.state = messagesListState
	m.threadID = 0
	m.messages = nil
	m.input = ""
	m.inputFocused = false
	m.status = ""
	return m, m.loadConversations()
}

func (m messagesModel) Update(msg tea.Msg) (messagesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case meLoadedMsg:
		if msg.me != nil {
			m.myID = msg.me.ID
		}

	case conversationsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.convos = msg.items
		m.cursor = moveCursor(m.cursor, 0, len(m.convos))

	case threadLoadedMsg:
		if msg.gen != m.gen || m.state != messagesThreadState {
			return m, nil
		}
		if msg.err != nil {
			m.status = "error loading messages: " + errText(msg.err)
		} else {
			m.messages = msg.messages
			if strings.HasPrefix(m.status, "error loading") {
				m.status = ""
			}
		}
		if msg.poll {
			return m, m.pollCmd()
		}

	case threadPollTickMsg:
		if msg.gen == m.gen && m.state == messagesThreadState {
			return m, m.loadThread(true)
		}

	case messageSentMsg:
		m.sending = false
		if msg.threadID != m.threadID {
			return m, nil
		}
		if msg.err != nil {
			m.status = "send failed: " + errText(msg.err)
			return m, nil
		}
		m.status = ""
		return m, m.loadThread(false)

	case tea.KeyMsg:
		switch m.state {
		case messagesListState:
			return m.updateList(msg)
		case messagesThreadState:
			return m.updateThread(msg)
		}
	}
	return m, nil
}

func (m messagesModel) updateList(msg tea.KeyMsg) (messagesModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.cursor = moveCursor(m.cursor, 1, len(m.convos))
	case "k", "up":
		m.cursor = moveCursor(m.cursor, -1, len(m.convos))
	case "enter":
		if m.cursor < len(m.convos) {
			return m.open(m.convos[m.cursor])
		}
	case "r":
		m.loading = true
		return m, m.loadConversations()
	}
	return m, nil
}

func (m messagesModel) updateThread(msg tea.KeyMsg) (messagesModel, tea.Cmd) {
	if m.inputFocused {
		switch msg.String() {
		case "esc":
			m.inputFocused = false
		case "enter":
			body := strings.TrimSpace(m.input)
			if body == "" || m.sending {
				return m, nil
			}
			m.input = ""
			m.sending = true
			return m, m.send(body)
		default:
			m.input = editInput(m.input, msg)
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m.close()
	case "enter", "i":
		m.inputFocused = true
	case "r":
		return m, m.loadThread(false)
	}
	return m, nil
}

func participantName(c domain.Conversation) string {
	if c.OtherParticipant == nil {
		return fmt.Sprintf("thread #%d", c.ID)
	}
	return c.OtherParticipant.DisplayName()
}

func (m messagesModel) View() string {
	if m.state == messagesThreadState {
		return m.viewThread()
	}
	return m.viewList()
}

func (m messagesModel) viewList() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Messages") + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.loading && len(m.convos) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.convos) == 0 {
		b.WriteString("\n " + dimStyle.Render("no conversations yet · threads open when an application is accepted") + "\n")
		return b.String()
	}

	for i, c := range m.convos {
		cursor := "  "
		name := normalStyle.Render(participantName(c))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			name = selectedStyle.Render(participantName(c))
		}
		preview, when := "no messages", ""
		if c.LastMessage != nil {
			preview = truncStr(oneLine(c.LastMessage.Content), 40)
			when = formatTime(c.LastMessage.CreatedAt)
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = "  " + bellDotStyle.Render(fmt.Sprintf("● %d", c.UnreadCount))
		}
		fmt.Fprintf(&b, " %s%s  %s  %s%s\n", cursor, name, dimStyle.Render(preview), metaStyle.Render(when), unread)
	}
	return b.String()
}

func (m messagesModel) viewThread() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Thread with ") + chatOtherNameStyle.Render(m.threadWith) + "\n")
	b.WriteString(separator(m.width) + "\n")

	chrome := 4 // header + sep + input + status
	viewportHeight := max(m.height-chrome, 2)

	if len(m.messages) == 0 {
		padLines(viewportHeight-1, &b)
		b.WriteString(" " + dimStyle.Render("no messages yet") + "\n")
	} else {
		var lines []string
		for _, msg := range m.messages {
			lines = append(lines, strings.Split(m.renderMessage(msg), "\n")...)
		}
		start := max(len(lines)-viewportHeight, 0)
		visible := lines[start:]
		padLines(viewportHeight-len(visible), &b)
		for _, line := range visible {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(m.renderInput() + "\n")
	if m.status != "" {
		b.WriteString(" " + errorStyle.Render(m.status))
	}
	return b.String()
}

func (m messagesModel) renderMessage(msg domain.ChatMessage) string {
	timePart := metaStyle.Render(fmt.Sprintf("%8s", formatChatTime(msg.CreatedAt)))
	sep := chatSepStyle.Render(" · ")

	isSelf := msg.FromUser == m.myID
	namePart := chatOtherNameStyle.Render(truncStr(m.threadWith, 12))
	bodyStyle := chatTextStyle
	if isSelf {
		namePart = chatSelfNameStyle.Render("you")
		bodyStyle = chatSelfTextStyle
	}

	bodyWidth := max(m.width-26, 20)
	lines := strings.Split(lipgloss.NewStyle().Width(bodyWidth).Render(msg.Content), "\n")

	out := " " + timePart + "  " + namePart + sep + bodyStyle.Render(lines[0])
	indent := strings.Repeat(" ", 15)
	for _, line := range lines[1:] {
		out += "\n" + indent + bodyStyle.Render(line)
	}
	return out
}

func (m messagesModel) renderInput() string {
	const timeIndent = "          "
	prefix := timeIndent + chatSelfNameStyle.Render("you") + chatSepStyle.Render(" · ")
	if !m.inputFocused {
		if m.input == "" {
			return prefix + inputPlaceholderStyle.Render("press enter to type...")
		}
		return prefix + dimStyle.Render(m.input)
	}
	return prefix + chatSelfTextStyle.Render(m.input) + accentStyle.Render("█")
}

func (m messagesModel) helpKeys() string {
	if m.state == messagesThreadState {
		if m.inputFocused {
			return helpEntry("enter", "send") + "  " + helpEntry("esc", "nav")
		}
		return helpEntry("enter", "type") + "  " + helpEntry("r", "reload") + "  " + helpEntry("esc", "back")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("r", "reload") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

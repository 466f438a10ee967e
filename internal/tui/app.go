package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sawa-platform/sawa/internal/browser"
	"github.com/sawa-platform/sawa/internal/guard"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

type view int

const (
	viewDashboard view = iota
	viewRequests
	viewApplications
	viewMessages
	viewReviews
	viewNotifications
	viewSettings
)

// screen is what is shown while there is no session.
type screen int

const (
	screenLogin screen = iota
	screenRegister
)

// meLoadedMsg tells the pages who is logged in.
type meLoadedMsg struct {
	me *domain.User
}

// Options configures the TUI.
type Options struct {
	Session      Session
	Client       *client.Client
	PollInterval time.Duration
	Version      string
}

// App is the root Bubbletea model. It renders the protected pages only while
// the session is authenticated, a spinner while it is being restored and the
// login or register form otherwise.
type App struct {
	session Session
	client  *client.Client
	version string
	status  domain.AuthStatus
	screen  screen
	spinner spinner.Model

	login    loginModel
	register registerModel

	view         view
	dashboard    dashboardModel
	requests     requestsModel
	applications applicationsModel
	messages     messagesModel
	reviews      reviewsModel
	bell         bellModel
	settings     settingsModel

	meID       int64 // user the pages were mounted for
	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return App{
		session:      opts.Session,
		client:       opts.Client,
		version:      opts.Version,
		status:       domain.StatusInitializing,
		spinner:      sp,
		login:        newLoginModel(opts.Session, ""),
		register:     newRegisterModel(opts.Session),
		dashboard:    newDashboardModel(opts.Client, opts.Session),
		requests:     newRequestsModel(opts.Client, opts.Session),
		applications: newApplicationsModel(opts.Client, opts.Session),
		messages:     newMessagesModel(opts.Client, opts.Session),
		reviews:      newReviewsModel(opts.Client, opts.Session),
		bell:         newBellModel(opts.Client, opts.Session, opts.PollInterval),
		settings:     newSettingsModel(opts.Client, opts.Session),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, shimmerTickCmd(), restoreCmd(a.session))
}

func restoreCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		err := s.Restore()
		return AuthChangedMsg{Status: s.Status(), Err: err}
	}
}

// applyStatus mounts or unmounts the protected pages for a new status, and
// remounts them when a different user's session was adopted.
func (a App) applyStatus(msg AuthChangedMsg) (App, tea.Cmd) {
	prev := a.status
	var me *domain.User
	if a.session != nil && msg.Status == domain.StatusAuthenticated {
		me = a.session.User()
	}
	if msg.Status == prev && (prev != domain.StatusAuthenticated || sameUser(me, a.meID)) {
		return a, nil
	}
	a.status = msg.Status

	switch guard.Decide(msg.Status) {
	case guard.ShowProtected:
		a.meID = 0
		if me != nil {
			a.meID = me.ID
		}
		a.view = viewDashboard
		a.helpOpen = false
		a.dashboard = newDashboardModel(a.client, a.session)
		a.requests = newRequestsModel(a.client, a.session)
		a.applications = newApplicationsModel(a.client, a.session)
		a.messages = newMessagesModel(a.client, a.session)
		a.reviews = newReviewsModel(a.client, a.session)
		a.settings = newSettingsModel(a.client, a.session)
		a = a.propagate(meLoadedMsg{me: me})
		var bellCmd tea.Cmd
		a.bell, bellCmd = a.bell.mount()
		return a, tea.Batch(a.dashboard.Init(), bellCmd)

	case guard.RedirectLogin:
		a.meID = 0
		a.bell = a.bell.unmount()
		a.helpOpen = false
		if prev == domain.StatusAuthenticated || a.screen == screenLogin {
			a.screen = screenLogin
			a.login = newLoginModel(a.session, "")
			if prev == domain.StatusAuthenticated {
				a.login.notice = "You have been logged out."
			}
		}
		if msg.Err != nil {
			a.login.err = "Could not read the saved session: " + msg.Err.Error()
		}
		if a.screen == screenRegister {
			return a, a.register.Init()
		}
		return a, a.login.Init()
	}
	return a, nil
}

func sameUser(me *domain.User, id int64) bool {
	if me == nil {
		return id == 0
	}
	return me.ID == id
}

// propagate hands a message to every page.
func (a App) propagate(msg tea.Msg) App {
	a.dashboard, _ = a.dashboard.Update(msg)
	a.requests, _ = a.requests.Update(msg)
	a.applications, _ = a.applications.Update(msg)
	a.messages, _ = a.messages.Update(msg)
	a.reviews, _ = a.reviews.Update(msg)
	a.settings, _ = a.settings.Update(msg)
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + help(1) = 4 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		a = a.propagate(bodyMsg)
		a.bell, _ = a.bell.Update(bodyMsg)
		a.login, _ = a.login.Update(msg)
		a.register, _ = a.register.Update(msg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case spinner.TickMsg:
		if a.status != domain.StatusInitializing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case AuthChangedMsg:
		return a.applyStatus(msg)

	case switchScreenMsg:
		a.screen = msg.to
		if msg.to == screenRegister {
			a.register = newRegisterModel(a.session)
			return a, a.register.Init()
		}
		a.login = newLoginModel(a.session, msg.username)
		a.login.notice = msg.notice
		return a, a.login.Init()

	case bellTickMsg, bellLoadedMsg, bellMarkedMsg:
		var cmd tea.Cmd
		a.bell, cmd = a.bell.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	switch guard.Decide(a.status) {
	case guard.ShowLoading:
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "q" {
			return a, tea.Quit
		}
		return a, nil
	case guard.RedirectLogin:
		var cmd tea.Cmd
		if a.screen == screenRegister {
			a.register, cmd = a.register.Update(msg)
		} else {
			a.login, cmd = a.login.Update(msg)
		}
		return a, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		if m, cmd, handled := a.handleGlobalKey(k); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewRequests:
		a.requests, cmd = a.requests.Update(msg)
	case viewApplications:
		a.applications, cmd = a.applications.Update(msg)
	case viewMessages:
		a.messages, cmd = a.messages.Update(msg)
	case viewReviews:
		a.reviews, cmd = a.reviews.Update(msg)
	case viewNotifications:
		a.bell, cmd = a.bell.Update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.Update(msg)
	}

	// Page results arrive after the user may have switched tabs.
	if _, ok := msg.(tea.KeyMsg); !ok {
		a, cmd = a.routeResult(msg, cmd)
	}
	return a, cmd
}

// routeResult delivers a load result to the page that asked for it when that
// page is not the current one.
func (a App) routeResult(msg tea.Msg, cmd tea.Cmd) (App, tea.Cmd) {
	var extra tea.Cmd
	switch msg.(type) {
	case dashboardLoadedMsg:
		if a.view != viewDashboard {
			a.dashboard, extra = a.dashboard.Update(msg)
		}
	case requestsLoadedMsg, requestActionMsg:
		if a.view != viewRequests {
			a.requests, extra = a.requests.Update(msg)
		}
	case applicationsLoadedMsg, applicationActionMsg:
		if a.view != viewApplications {
			a.applications, extra = a.applications.Update(msg)
		}
	case conversationsLoadedMsg, threadLoadedMsg, messageSentMsg, threadPollTickMsg:
		if a.view != viewMessages {
			a.messages, extra = a.messages.Update(msg)
		}
	case reviewsLoadedMsg, reviewCreatedMsg:
		if a.view != viewReviews {
			a.reviews, extra = a.reviews.Update(msg)
		}
	case profileLoadedMsg, passwordChangedMsg, browserOpenedMsg:
		if a.view != viewSettings {
			a.settings, extra = a.settings.Update(msg)
		}
	}
	return a, tea.Batch(cmd, extra)
}

func (a App) handleGlobalKey(msg tea.KeyMsg) (App, tea.Cmd, bool) {
	if a.helpOpen {
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit, true
		case "j", "down":
			a.helpCursor = moveCursor(a.helpCursor, 1, len(helpItems))
		case "k", "up":
			a.helpCursor = moveCursor(a.helpCursor, -1, len(helpItems))
		case "enter":
			browser.OpenPage(helpItems[a.helpCursor].page) //nolint:errcheck // best-effort browser open
		}
		return a, nil, true
	}

	if a.isEditing() {
		return a, nil, false
	}

	tabs := map[string]view{
		"1": viewDashboard, "2": viewRequests, "3": viewApplications, "4": viewMessages,
		"5": viewReviews, "6": viewNotifications, "7": viewSettings,
	}
	if v, ok := tabs[msg.String()]; ok {
		if a.view == v {
			return a, nil, true
		}
		a.view = v
		return a, a.initView(v), true
	}

	switch msg.String() {
	case "h":
		a.helpOpen = true
		a.helpCursor = 0
		return a, nil, true
	case "q":
		return a, tea.Quit, true
	}
	return a, nil, false
}

func (a App) initView(v view) tea.Cmd {
	switch v {
	case viewDashboard:
		return a.dashboard.Init()
	case viewRequests:
		return a.requests.Init()
	case viewApplications:
		return a.applications.Init()
	case viewMessages:
		return a.messages.Init()
	case viewReviews:
		return a.reviews.Init()
	case viewNotifications:
		return a.bell.refresh()
	case viewSettings:
		return a.settings.Init()
	}
	return nil
}

func (a App) isEditing() bool {
	switch a.view {
	case viewRequests:
		return a.requests.editing()
	case viewMessages:
		return a.messages.editing()
	case viewReviews:
		return a.reviews.editing()
	case viewSettings:
		return a.settings.editing()
	}
	return false
}

func (a App) View() string {
	switch guard.Decide(a.status) {
	case guard.ShowLoading:
		return a.centered(renderShimmerLogo(a.frame)) + "\n\n" +
			a.centered(a.spinner.View()+" "+dimStyle.Render("restoring session..."))
	case guard.RedirectLogin:
		header := a.centered(renderShimmerLogo(a.frame)) + "\n"
		if a.screen == screenRegister {
			return header + "\n" + a.register.View()
		}
		return header + "\n" + a.login.View()
	}

	header := a.centered(renderShimmerLogo(a.frame)) + "\n" + a.centered(a.statsLine())

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Dashboard", viewDashboard},
		{"2", "Requests", viewRequests},
		{"3", "Applications", viewApplications},
		{"4", "Messages", viewMessages},
		{"5", "Reviews", viewReviews},
		{"6", "Notifications", viewNotifications},
		{"7", "Settings", viewSettings},
	}
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewNotifications && a.bell.unread > 0 {
			label += " " + bellDotStyle.Render("●") + dimStyle.Render(fmt.Sprintf("%d", a.bell.unread))
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, help string
	switch a.view {
	case viewDashboard:
		body, help = a.dashboard.View(), a.dashboard.helpKeys()
	case viewRequests:
		body, help = a.requests.View(), a.requests.helpKeys()
	case viewApplications:
		body, help = a.applications.View(), a.applications.helpKeys()
	case viewMessages:
		body, help = a.messages.View(), a.messages.helpKeys()
	case viewReviews:
		body, help = a.reviews.View(), a.reviews.helpKeys()
	case viewNotifications:
		body, help = a.bell.View(), a.bell.helpKeys()
	case viewSettings:
		body, help = a.settings.View(), a.settings.helpKeys()
	}
	if a.helpOpen {
		body = helpView(a.helpCursor, a.version)
		help = helpBar("j/k", "nav", "enter", "open in browser", "esc", "close")
	}

	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabBar.String(), body, help)
}

func (a App) statsLine() string {
	if a.session == nil {
		return ""
	}
	me := a.session.User()
	if me == nil {
		return ""
	}
	parts := []string{selectedStyle.Render(me.DisplayName()), dimStyle.Render(me.Role)}
	if me.AverageRating != nil {
		parts = append(parts, goldStyle.Render(fmt.Sprintf("★ %.1f", *me.AverageRating))+metaStyle.Render(fmt.Sprintf(" (%d)", me.ReviewCount)))
	}
	if a.bell.unread > 0 {
		parts = append(parts, bellDotStyle.Render(fmt.Sprintf("● %d unread", a.bell.unread)))
	}
	return strings.Join(parts, metaStyle.Render(" · "))
}

func (a App) centered(s string) string {
	pad := max((a.width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// -- messages --

type loginResultMsg struct {
	err error
}

type registerResultMsg struct {
	username string
	err      error
}

// switchScreenMsg moves between the login and register screens.
type switchScreenMsg struct {
	to       screen
	username string
	notice   string
}

func switchScreen(to screen, username, notice string) tea.Cmd {
	return func() tea.Msg { return switchScreenMsg{to: to, username: username, notice: notice} }
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// -- login --

// loginFields is heap-allocated so the huh form's value pointers survive
// model copies.
type loginFields struct {
	username string
	password string
}

type loginModel struct {
	session    Session
	fields     *loginFields
	form       *huh.Form
	err        string
	notice     string
	submitting bool
	width      int
}

func newLoginModel(s Session, username string) loginModel {
	f := &loginFields{username: username}
	return loginModel{session: s, fields: f, form: newLoginForm(f)}
}

func newLoginForm(f *loginFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&f.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(required("password")),
		).Title("Log in").
			Description("Press ctrl+r to create an account instead."),
	).WithTheme(formTheme()).WithShowHelp(false)
}

func (m loginModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m loginModel) submit() tea.Cmd {
	s := m.session
	username, password := strings.TrimSpace(m.fields.username), m.fields.password
	return func() tea.Msg {
		return loginResultMsg{err: s.Login(context.Background(), username, password)}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = loginErrText(msg.err)
			m.fields.password = ""
			m.form = newLoginForm(m.fields)
			return m, m.form.Init()
		}
		m.err = ""
		s := m.session
		return m, func() tea.Msg { return AuthChangedMsg{Status: s.Status()} }

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		if msg.String() == "ctrl+r" {
			return m, switchScreen(screenRegister, "", "")
		}
	}

	if m.submitting {
		return m, nil
	}
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.submitting = true
		m.err = ""
		m.notice = ""
		return m, m.submit()
	}
	return m, cmd
}

func loginErrText(err error) string {
	if client.IsNetwork(err) {
		return "Network error. Check your connection and try again."
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

func (m loginModel) View() string {
	var b strings.Builder
	if m.notice != "" {
		b.WriteString(" " + okStyle.Render(m.notice) + "\n\n")
	}
	b.WriteString(m.form.View())
	b.WriteString("\n")
	if m.submitting {
		b.WriteString("\n " + dimStyle.Render("logging in...") + "\n")
	}
	if m.err != "" {
		b.WriteString("\n " + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + helpBar("enter", "next", "ctrl+r", "register", "ctrl+c", "quit"))
	return b.String()
}

// -- register --

type registerFields struct {
	username  string
	email     string
	password  string
	role      string
	firstName string
	lastName  string
	phone     string
}

func (f registerFields) registration() domain.Registration {
	return domain.Registration{
		Username:  strings.TrimSpace(f.username),
		Email:     strings.TrimSpace(f.email),
		Password:  f.password,
		Role:      f.role,
		Phone:     strings.TrimSpace(f.phone),
		FirstName: strings.TrimSpace(f.firstName),
		LastName:  strings.TrimSpace(f.lastName),
	}
}

type registerModel struct {
	session     Session
	fields      *registerFields
	form        *huh.Form
	err         string
	fieldErrors map[string][]string
	submitting  bool
}

func newRegisterModel(s Session) registerModel {
	f := &registerFields{role: domain.RoleBuyer}
	return registerModel{session: s, fields: f, form: newRegisterForm(f)}
}

func newRegisterForm(f *registerFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("I want to").
				Options(
					huh.NewOption("Post service requests (buyer)", domain.RoleBuyer),
					huh.NewOption("Offer services (provider)", domain.RoleProvider),
				).
				Value(&f.role),
			huh.NewInput().Title("Username").Value(&f.username).Validate(required("username")),
			huh.NewInput().Title("Email").Value(&f.email).Validate(validEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(minLength(minPasswordLen)),
		).Title("Create an account").
			Description("Press ctrl+r to go back to login."),
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&f.firstName),
			huh.NewInput().Title("Last name").Value(&f.lastName),
			huh.NewInput().Title("Phone").Value(&f.phone),
		).Title("About you").
			Description("Optional. Onboarding continues on the web."),
	).WithTheme(formTheme()).WithShowHelp(false)
}

func validEmail(s string) error {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return errors.New("enter a valid email address")
	}
	return nil
}

func (m registerModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m registerModel) submit() tea.Cmd {
	s := m.session
	reg := m.fields.registration()
	return func() tea.Msg {
		return registerResultMsg{username: reg.Username, err: s.Register(context.Background(), reg)}
	}
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case registerResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = errText(msg.err)
			m.fieldErrors = client.FieldErrors(msg.err)
			if len(m.fieldErrors) > 0 {
				m.err = "Please fix the following:"
			}
			m.fields.password = ""
			m.form = newRegisterForm(m.fields)
			return m, m.form.Init()
		}
		return m, switchScreen(screenLogin, msg.username, "Account created. You can log in now.")

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		if msg.String() == "ctrl+r" {
			return m, switchScreen(screenLogin, "", "")
		}
	}

	if m.submitting {
		return m, nil
	}
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.submitting = true
		m.err = ""
		m.fieldErrors = nil
		return m, m.submit()
	}
	return m, cmd
}

func (m registerModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.View())
	b.WriteString("\n")
	if m.submitting {
		b.WriteString("\n " + dimStyle.Render("creating account...") + "\n")
	}
	if m.err != "" {
		b.WriteString("\n " + errorStyle.Render(m.err) + "\n")
	}
	for _, line := range fieldErrorLines(m.fieldErrors) {
		b.WriteString("   " + errorStyle.Render(line) + "\n")
	}
	b.WriteString("\n" + helpBar("enter", "next", "ctrl+r", "login", "ctrl+c", "quit"))
	return b.String()
}

// fieldErrorLines renders validation errors as "field: message" lines in
// field order.
func fieldErrorLines(fields map[string][]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines []string
	for _, k := range keys {
		for _, msg := range fields[k] {
			lines = append(lines, strings.ReplaceAll(k, "_", " ")+": "+msg)
		}
	}
	return lines
}

// minPasswordLen matches the backend's registration rule.
const minPasswordLen = 6

func minLength(n int) func(string) error {
	return func(s string) error {
		if len([]rune(s)) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

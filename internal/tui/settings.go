package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sawa-platform/sawa/internal/browser"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

type profileLoadedMsg struct {
	user *domain.User
	err  error
}

type passwordChangedMsg struct {
	err error
}

type browserOpenedMsg struct {
	url string
	err error
}

type roleProfileLoadedMsg struct {
	profile *domain.RoleProfile
	err     error
}

type roleProfileSavedMsg struct {
	profile *domain.RoleProfile
	err     error
}

// profileFields backs the role profile form.
type profileFields struct {
	firstName    string
	lastName     string
	email        string
	phone        string
	bio          string
	location     string
	skills       string // comma separated
	experience   string
	hourlyRate   string
	availability string
}

func newProfileFields(p *domain.RoleProfile) *profileFields {
	f := &profileFields{availability: domain.Availabilities[0]}
	if p == nil {
		return f
	}
	f.firstName = p.User.FirstName
	f.lastName = p.User.LastName
	f.email = p.User.Email
	f.phone = p.Phone
	f.bio = p.Bio
	f.location = p.Location
	f.skills = strings.Join(p.Skills, ", ")
	f.experience = p.Experience
	f.hourlyRate = string(p.HourlyRate)
	if p.Availability != "" {
		f.availability = p.Availability
	}
	return f
}

func (f *profileFields) profile() domain.RoleProfile {
	skills := []string{}
	for _, s := range strings.Split(f.skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return domain.RoleProfile{
		User: domain.ProfileUser{
			FirstName: strings.TrimSpace(f.firstName),
			LastName:  strings.TrimSpace(f.lastName),
			Email:     strings.TrimSpace(f.email),
		},
		Phone:        strings.TrimSpace(f.phone),
		Bio:          strings.TrimSpace(f.bio),
		Location:     strings.TrimSpace(f.location),
		Skills:       skills,
		Experience:   strings.TrimSpace(f.experience),
		HourlyRate:   domain.Amount(strings.TrimSpace(f.hourlyRate)),
		Availability: f.availability,
	}
}

type passwordFields struct {
	old     string
	new     string
	confirm string
}

type settingsModel struct {
	client  *client.Client
	session Session
	profile *domain.User
	role    string
	details *domain.RoleProfile
	roleErr string
	err     string
	status  string
	loading bool
	width   int
	height  int

	pw   *passwordFields
	edit *profileFields
	form *huh.Form
}

func newSettingsModel(c *client.Client, s Session) settingsModel {
	return settingsModel{client: c, session: s, loading: true}
}

func (m settingsModel) Init() tea.Cmd {
	c := m.client
	account := load(m.session,
		func(ctx context.Context) (*domain.User, error) { return c.GetProfile(ctx) },
		func(u *domain.User, err error) tea.Msg { return profileLoadedMsg{user: u, err: err} })
	if m.role == "" {
		return account
	}
	role := m.role
	details := load(m.session,
		func(ctx context.Context) (*domain.RoleProfile, error) { return c.GetRoleProfile(ctx, role) },
		func(p *domain.RoleProfile, err error) tea.Msg { return roleProfileLoadedMsg{profile: p, err: err} })
	return tea.Batch(account, details)
}

func (m settingsModel) saveProfile() tea.Cmd {
	c := m.client
	role, p := m.role, m.edit.profile()
	return load(m.session,
		func(ctx context.Context) (*domain.RoleProfile, error) { return c.UpdateRoleProfile(ctx, role, p) },
		func(saved *domain.RoleProfile, err error) tea.Msg { return roleProfileSavedMsg{profile: saved, err: err} })
}

func (m settingsModel) editing() bool {
	return m.form != nil
}

func (m settingsModel) changePassword() tea.Cmd {
	c := m.client
	oldPw, newPw := m.pw.old, m.pw.new
	return act(m.session,
		func(ctx context.Context) error { return c.ChangePassword(ctx, oldPw, newPw) },
		func(err error) tea.Msg { return passwordChangedMsg{err: err} })
}

func logoutCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		s.Logout() //nolint:errcheck // in-memory state is cleared regardless
		return AuthChangedMsg{Status: s.Status()}
	}
}

func openPageCmd(page string) tea.Cmd {
	return func() tea.Msg {
		url, err := browser.OpenPage(page)
		return browserOpenedMsg{url: url, err: err}
	}
}

func newPasswordForm(f *passwordFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&f.old).
				Validate(required("current password")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&f.new).
				Validate(minLength(minPasswordLen)),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&f.confirm).
				Validate(func(s string) error {
					if s != f.new {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		).Title("Change password"),
	).WithTheme(formTheme()).WithShowHelp(false)
}

func newProfileForm(f *profileFields, role string) *huh.Form {
	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&f.firstName),
			huh.NewInput().Title("Last name").Value(&f.lastName),
			huh.NewInput().Title("Email").Value(&f.email).Validate(validEmail),
			huh.NewInput().Title("Phone").Value(&f.phone),
			huh.NewInput().Title("Location").Value(&f.location),
			huh.NewText().Title("Bio").Value(&f.bio),
		).Title("Profile"),
	}
	if role == domain.RoleProvider {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Skills").Placeholder("comma separated").Value(&f.skills),
			huh.NewInput().Title("Experience").Value(&f.experience),
			huh.NewInput().Title("Hourly rate (EUR)").Value(&f.hourlyRate),
			huh.NewSelect[string]().
				Title("Availability").
				Options(stringOptions(domain.Availabilities)...).
				Value(&f.availability),
		).Title("Provider details"))
	}
	return huh.NewForm(groups...).WithTheme(formTheme()).WithShowHelp(false)
}

func (m settingsModel) Update(msg tea.Msg) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case meLoadedMsg:
		if m.profile == nil {
			m.profile = msg.me
		}
		if msg.me != nil {
			m.role = msg.me.Role
		}
		return m, nil

	case roleProfileLoadedMsg:
		if msg.err != nil {
			m.roleErr = errText(msg.err)
			return m, nil
		}
		m.roleErr = ""
		m.details = msg.profile
		return m, nil

	case roleProfileSavedMsg:
		if msg.err != nil {
			m.status = "profile update failed: " + errText(msg.err)
			if lines := fieldErrorLines(client.FieldErrors(msg.err)); len(lines) > 0 {
				m.status += " (" + strings.Join(lines, "; ") + ")"
			}
			return m, nil
		}
		m.edit = nil
		if msg.profile != nil {
			m.details = msg.profile
		}
		m.status = "profile updated"
		return m, nil

	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.profile = msg.user
		return m, nil

	case passwordChangedMsg:
		if msg.err != nil {
			m.status = "password change failed: " + errText(msg.err)
			if lines := fieldErrorLines(client.FieldErrors(msg.err)); len(lines) > 0 {
				m.status += " (" + strings.Join(lines, "; ") + ")"
			}
			return m, nil
		}
		m.status = "password changed"
		return m, nil

	case browserOpenedMsg:
		if msg.err != nil {
			m.status = "could not open browser: " + msg.err.Error()
		} else {
			m.status = "opened " + msg.url
		}
		return m, nil
	}

	if m.form != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.form = nil
			m.pw = nil
			m.edit = nil
			return m, nil
		}
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		if m.form.State == huh.StateCompleted {
			m.form = nil
			if m.edit != nil {
				m.status = "saving profile..."
				return m, m.saveProfile()
			}
			m.status = "changing password..."
			return m, m.changePassword()
		}
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "e":
		if m.role == "" {
			return m, nil
		}
		m.pw = nil
		m.edit = newProfileFields(m.details)
		m.form = newProfileForm(m.edit, m.role)
		m.status = ""
		return m, m.form.Init()
	case "p":
		m.edit = nil
		m.pw = &passwordFields{}
		m.form = newPasswordForm(m.pw)
		m.status = ""
		return m, m.form.Init()
	case "o":
		if m.profile != nil && m.profile.Role != "" {
			return m, openPageCmd("onboarding-" + m.profile.Role)
		}
	case "w":
		return m, openPageCmd("settings")
	case "l":
		return m, logoutCmd(m.session)
	case "r":
		m.loading = true
		return m, m.Init()
	}
	return m, nil
}

func (m settingsModel) View() string {
	var b strings.Builder
	b.WriteString(" " + titleStyle.Render("Settings") + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.form != nil {
		b.WriteString(m.form.View())
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
	}
	if m.profile == nil {
		if m.loading {
			b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		}
		return b.String()
	}

	u := m.profile
	row := func(label, value string) {
		if value == "" {
			value = metaStyle.Render("-")
		} else {
			value = normalStyle.Render(value)
		}
		fmt.Fprintf(&b, "   %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", label)), value)
	}
	b.WriteByte('\n')
	row("name", u.DisplayName())
	row("username", u.Username)
	row("email", u.Email)
	row("role", u.Role)
	row("phone", u.Phone)
	row("locale", u.Locale)
	if u.AverageRating != nil {
		row("rating", fmt.Sprintf("%.1f (%d reviews)", *u.AverageRating, u.ReviewCount))
	}
	if u.DateJoined != nil {
		row("joined", u.DateJoined.Format("2 Jan 2006"))
	}

	if d := m.details; d != nil {
		b.WriteString("\n " + titleStyle.Render(roleTitle(m.role)) + "\n")
		row("location", d.Location)
		row("bio", oneLine(d.Bio))
		if m.role == domain.RoleProvider {
			row("skills", strings.Join(d.Skills, ", "))
			row("experience", d.Experience)
			if d.HourlyRate != "" {
				row("rate", "€"+string(d.HourlyRate)+"/h")
			}
			row("available", d.Availability)
		}
	} else if m.roleErr != "" {
		b.WriteString("\n " + dimStyle.Render("profile details unavailable: "+m.roleErr) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n " + dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m settingsModel) helpKeys() string {
	if m.form != nil {
		return helpEntry("enter", "next") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("e", "edit profile") + "  " + helpEntry("p", "password") + "  " + helpEntry("o", "onboarding") + "  " + helpEntry("w", "web settings") + "  " + helpEntry("l", "log out") + "  " + helpEntry("r", "reload") + "  " + helpEntry("q", "quit")
}

func roleTitle(role string) string {
	if role == domain.RoleBuyer {
		return "Buyer profile"
	}
	return "Provider profile"
}

package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// fakeSession is a Session whose status the test drives directly.
type fakeSession struct {
	status  domain.AuthStatus
	user    *domain.User
	logouts int
}

func (f *fakeSession) Status() domain.AuthStatus { return f.status }

func (f *fakeSession) RefreshToken() string { return "" }

func (f *fakeSession) AccessExpired(time.Time) bool { return false }

func (f *fakeSession) Refresh(context.Context) error { return errors.New("no refresh token") }

func (f *fakeSession) Reconcile() (bool, error) { return false, nil }

func (f *fakeSession) Logout() error {
	f.logouts++
	f.status = domain.StatusUnauthenticated
	return nil
}

func (f *fakeSession) User() *domain.User { return f.user }

func (f *fakeSession) Restore() error { return nil }

func (f *fakeSession) Login(context.Context, string, string) error { return nil }

func (f *fakeSession) Register(context.Context, any) error { return nil }

func buyer() *domain.User {
	return &domain.User{ID: 7, Username: "ada", FirstName: "Ada", Role: domain.RoleBuyer}
}

func newTestApp(s *fakeSession) App {
	a := NewApp(Options{Session: s, PollInterval: time.Minute})
	a.width = 100
	a.height = 30
	return a
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loggedIn returns an app that has just mounted the protected pages.
func loggedIn(t *testing.T) (App, *fakeSession) {
	t.Helper()
	s := &fakeSession{status: domain.StatusAuthenticated, user: buyer()}
	a, _ := update(t, newTestApp(s), AuthChangedMsg{Status: domain.StatusAuthenticated})
	return a, s
}

func TestApp_StartsLoading(t *testing.T) {
	a := newTestApp(&fakeSession{})
	if a.status != domain.StatusInitializing {
		t.Fatalf("status = %v, want initializing", a.status)
	}
	if !strings.Contains(a.View(), "restoring session") {
		t.Error("loading view should say the session is being restored")
	}
}

func TestApp_KeysIgnoredWhileLoading(t *testing.T) {
	a := newTestApp(&fakeSession{})
	a, cmd := update(t, a, key("2"))
	if a.view != viewDashboard {
		t.Errorf("view = %d, want dashboard", a.view)
	}
	if cmd != nil {
		t.Error("tab key while loading should not start a load")
	}
}

func TestApp_RedirectsToLogin(t *testing.T) {
	s := &fakeSession{status: domain.StatusUnauthenticated}
	a, cmd := update(t, newTestApp(s), AuthChangedMsg{Status: domain.StatusUnauthenticated})
	if a.screen != screenLogin {
		t.Errorf("screen = %d, want login", a.screen)
	}
	if a.bell.mounted {
		t.Error("bell must not poll without a session")
	}
	if a.login.notice != "" {
		t.Errorf("fresh start should have no logout notice, got %q", a.login.notice)
	}
	if cmd == nil {
		t.Error("expected the login form init command")
	}
}

func TestApp_RestoreErrorShownOnLogin(t *testing.T) {
	s := &fakeSession{status: domain.StatusUnauthenticated}
	a, _ := update(t, newTestApp(s), AuthChangedMsg{Status: domain.StatusUnauthenticated, Err: errors.New("disk on fire")})
	if !strings.Contains(a.login.err, "disk on fire") {
		t.Errorf("login.err = %q, want the restore error", a.login.err)
	}
}

func TestApp_MountsProtectedPages(t *testing.T) {
	s := &fakeSession{status: domain.StatusAuthenticated, user: buyer()}
	a, cmd := update(t, newTestApp(s), AuthChangedMsg{Status: domain.StatusAuthenticated})
	if cmd == nil {
		t.Fatal("expected dashboard and bell loads")
	}
	if !a.bell.mounted {
		t.Error("bell should be mounted")
	}
	if a.view != viewDashboard {
		t.Errorf("view = %d, want dashboard", a.view)
	}
	if a.dashboard.me == nil || a.dashboard.me.Username != "ada" {
		t.Error("dashboard should know the logged-in user")
	}
	if a.requests.role != domain.RoleBuyer {
		t.Errorf("requests.role = %q, want buyer", a.requests.role)
	}
	if !strings.Contains(a.View(), "Welcome back, Ada") {
		t.Error("dashboard view should greet the user")
	}
}

func TestApp_SameStatusIsNoop(t *testing.T) {
	a, _ := loggedIn(t)
	gen := a.bell.gen
	a, cmd := update(t, a, AuthChangedMsg{Status: domain.StatusAuthenticated})
	if cmd != nil {
		t.Error("repeated status should not reload")
	}
	if a.bell.gen != gen {
		t.Error("repeated status should not restart the bell")
	}
}

func TestApp_AdoptedSessionForOtherUserRemounts(t *testing.T) {
	a, s := loggedIn(t)
	a.view = viewReviews
	gen := a.bell.gen
	s.user = &domain.User{ID: 9, Username: "bo", FirstName: "Bo", Role: domain.RoleProvider}

	a, cmd := update(t, a, AuthChangedMsg{Status: domain.StatusAuthenticated})
	if cmd == nil {
		t.Fatal("a new user should reload the pages")
	}
	if a.meID != 9 {
		t.Errorf("meID = %d, want 9", a.meID)
	}
	if a.dashboard.me == nil || a.dashboard.me.ID != 9 {
		t.Errorf("dashboard user = %+v, want bo", a.dashboard.me)
	}
	if a.view != viewDashboard {
		t.Errorf("view = %d, want dashboard", a.view)
	}
	if a.bell.gen == gen {
		t.Error("bell should restart for the new user")
	}
}

func TestApp_ForcedLogoutShowsNotice(t *testing.T) {
	a, s := loggedIn(t)
	a.bell.unread = 3
	s.status = domain.StatusUnauthenticated

	a, _ = update(t, a, AuthChangedMsg{Status: domain.StatusUnauthenticated})
	if a.screen != screenLogin {
		t.Errorf("screen = %d, want login", a.screen)
	}
	if a.login.notice != "You have been logged out." {
		t.Errorf("notice = %q", a.login.notice)
	}
	if a.bell.mounted || a.bell.unread != 0 {
		t.Error("bell should be unmounted and cleared")
	}
}

func TestApp_LoadEndingSessionRedirects(t *testing.T) {
	s := &fakeSession{status: domain.StatusUnauthenticated}
	cmd := load(s,
		func(context.Context) (int, error) {
			t.Fatal("call must not run without a session")
			return 0, nil
		},
		func(int, error) tea.Msg { return nil })
	msg, ok := cmd().(AuthChangedMsg)
	if !ok {
		t.Fatalf("load returned %T, want AuthChangedMsg", cmd())
	}
	if msg.Status != domain.StatusUnauthenticated {
		t.Errorf("status = %v", msg.Status)
	}
}

func TestApp_TabSwitching(t *testing.T) {
	tests := []struct {
		key  string
		want view
	}{
		{"1", viewDashboard},
		{"2", viewRequests},
		{"3", viewApplications},
		{"4", viewMessages},
		{"5", viewReviews},
		{"6", viewNotifications},
		{"7", viewSettings},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a, _ := loggedIn(t)
			a, _ = update(t, a, key(tc.key))
			if a.view != tc.want {
				t.Errorf("after key %q: view = %d, want %d", tc.key, a.view, tc.want)
			}
		})
	}
}

func TestApp_EditingSwallowsTabKeys(t *testing.T) {
	a, _ := loggedIn(t)
	a, _ = update(t, a, key("4"))
	a.messages.state = messagesThreadState
	a.messages.inputFocused = true

	a, _ = update(t, a, key("2"))
	if a.view != viewMessages {
		t.Errorf("view = %d, want messages while typing", a.view)
	}
	if a.messages.input != "2" {
		t.Errorf("input = %q, want %q", a.messages.input, "2")
	}
}

func TestApp_RoutesResultToBackgroundPage(t *testing.T) {
	a, _ := loggedIn(t)
	items := []domain.ServiceRequest{{ID: 1, Title: "Lathe", Status: domain.RequestOpen}}
	a, _ = update(t, a, requestsLoadedMsg{items: items})
	if a.view != viewDashboard {
		t.Fatalf("view changed to %d", a.view)
	}
	if len(a.requests.items) != 1 {
		t.Error("requests page should receive its result while hidden")
	}
}

func TestApp_HelpOverlay(t *testing.T) {
	a, _ := loggedIn(t)
	a, _ = update(t, a, key("h"))
	if !a.helpOpen {
		t.Fatal("expected help overlay")
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.helpOpen {
		t.Error("esc should close help")
	}
}

func TestApp_GlobalQuitOnQ(t *testing.T) {
	a, _ := loggedIn(t)
	_, cmd := update(t, a, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q'")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestApp_SettingsLogout(t *testing.T) {
	a, s := loggedIn(t)
	a, _ = update(t, a, key("7"))
	_, cmd := update(t, a, key("l"))
	if cmd == nil {
		t.Fatal("expected logout command")
	}
	msg, ok := cmd().(AuthChangedMsg)
	if !ok || msg.Status != domain.StatusUnauthenticated {
		t.Fatalf("logout produced %#v", msg)
	}
	if s.logouts != 1 {
		t.Errorf("logouts = %d, want 1", s.logouts)
	}
}

func TestErrText(t *testing.T) {
	pe := &fetch.PageError{Message: "Not found"}
	if got := errText(pe); got != "Not found" {
		t.Errorf("errText(PageError) = %q", got)
	}
	if got := errText(nil); got != "" {
		t.Errorf("errText(nil) = %q", got)
	}
}

package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// Session is what the TUI needs from the session manager.
type Session interface {
	fetch.Session
	User() *domain.User
	Restore() error
	Login(ctx context.Context, identifier, secret string) error
	Register(ctx context.Context, fields any) error
}

// AuthChangedMsg reports a session status transition. It is sent by the
// restore and login commands, by page loads that ended the session, and by
// the session observer installed in Run.
type AuthChangedMsg struct {
	Status domain.AuthStatus
	Err    error
}

// load runs call through fetch.Do and wraps the result with wrap. When the
// session had to be ended it reports AuthChangedMsg instead, so the root
// model drops to the login screen.
func load[T any](s Session, call func(context.Context) (T, error), wrap func(T, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, err := fetch.Do(context.Background(), s, call)
		if fetch.IsLoginRequired(err) {
			return AuthChangedMsg{Status: s.Status()}
		}
		return wrap(v, err)
	}
}

// act is load for calls without a payload.
func act(s Session, call func(context.Context) error, wrap func(error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		err := fetch.Exec(context.Background(), s, call)
		if fetch.IsLoginRequired(err) {
			return AuthChangedMsg{Status: s.Status()}
		}
		return wrap(err)
	}
}

// errText renders an error for display.
func errText(err error) string {
	if err == nil {
		return ""
	}
	var pe *fetch.PageError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return client.UserMessage(err)
}

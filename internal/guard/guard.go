// Package guard decides what a protected view may show for a given session
// status.
package guard

import (
	"errors"

	"github.com/sawa-platform/sawa/pkg/domain"
)

// ErrNotAuthenticated is returned by Require when there is no session.
var ErrNotAuthenticated = errors.New("not logged in; run `sawa login` first")

// Decision is what a protected view renders.
type Decision int

const (
	// ShowLoading renders a placeholder while the session is being restored.
	ShowLoading Decision = iota
	ShowProtected
	RedirectLogin
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "loading"
	case ShowProtected:
		return "protected"
	case RedirectLogin:
		return "redirect-login"
	default:
		return "unknown"
	}
}

// Decide maps a session status to a Decision. It never redirects while the
// session is still initializing.
func Decide(status domain.AuthStatus) Decision {
	switch status {
	case domain.StatusInitializing:
		return ShowLoading
	case domain.StatusAuthenticated:
		return ShowProtected
	default:
		return RedirectLogin
	}
}

// Require is Decide for one-shot commands, where the session has already
// been restored.
func Require(status domain.AuthStatus) error {
	if Decide(status) == ShowProtected {
		return nil
	}
	return ErrNotAuthenticated
}

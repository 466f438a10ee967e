// Package fetch runs page-level API calls against the session: it refreshes
// stale tokens, retries once after a 401 when a newer token is available and
// forces a logout when none is.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sawa-platform/sawa/internal/guard"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// ErrLoginRequired means the session was ended and the user must log in again.
var ErrLoginRequired = errors.New("session expired, please log in again")

// Session is the part of *session.Manager the fetchers use.
type Session interface {
	Status() domain.AuthStatus
	RefreshToken() string
	AccessExpired(now time.Time) bool
	Refresh(ctx context.Context) error
	Reconcile() (bool, error)
	Logout() error
}

// PageError is a failed page load or action that leaves the session intact.
type PageError struct {
	Message string
	Kind    client.ErrorKind
	Err     error
}

func (e *PageError) Error() string { return e.Message }

func (e *PageError) Unwrap() error { return e.Err }

func newPageError(err error) *PageError {
	return &PageError{Message: client.UserMessage(err), Kind: client.Kind(err), Err: err}
}

// now is swapped in tests.
var now = time.Now

// Do runs call on behalf of a protected page and returns its payload.
func Do[T any](ctx context.Context, s Session, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := guard.Require(s.Status()); err != nil {
		return zero, ErrLoginRequired
	}

	if s.RefreshToken() != "" && s.AccessExpired(now()) {
		if err := s.Refresh(ctx); err != nil {
			if !isAuthFailure(err) {
				return zero, newPageError(err)
			}
			return zero, forceLogout(s, err)
		}
	}

	v, err := call(ctx)
	if err == nil {
		return v, nil
	}
	if !client.IsStatus(err, http.StatusUnauthorized) {
		return zero, newPageError(err)
	}

	// Another process may already hold a newer session.
	if changed, rerr := s.Reconcile(); rerr == nil && changed {
		v, err = call(ctx)
		if err == nil {
			return v, nil
		}
		if !client.IsStatus(err, http.StatusUnauthorized) {
			return zero, newPageError(err)
		}
	}

	if s.RefreshToken() != "" {
		rerr := s.Refresh(ctx)
		if rerr == nil {
			v, err = call(ctx)
			if err == nil {
				return v, nil
			}
			if !client.IsStatus(err, http.StatusUnauthorized) {
				return zero, newPageError(err)
			}
		} else if !isAuthFailure(rerr) {
			return zero, newPageError(rerr)
		}
	}

	return zero, forceLogout(s, err)
}

// Exec is Do for calls without a payload, such as mutations.
func Exec(ctx context.Context, s Session, call func(context.Context) error) error {
	_, err := Do(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

// IsLoginRequired reports whether err ended the session.
func IsLoginRequired(err error) bool {
	return errors.Is(err, ErrLoginRequired)
}

// isAuthFailure reports whether a refresh failed because the server refused
// the refresh token, as opposed to a transport or server fault.
func isAuthFailure(err error) bool {
	k := client.Kind(err)
	return k == client.KindAuth || k == client.KindValidation
}

func forceLogout(s Session, cause error) error {
	slog.Info("forcing logout", "cause", client.UserMessage(cause))
	if err := s.Logout(); err != nil {
		slog.Warn("logout after 401 failed", "error", err)
	}
	return ErrLoginRequired
}

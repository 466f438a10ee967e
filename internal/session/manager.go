package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

var (
	// ErrMalformedState means the persisted user record could not be decoded.
	ErrMalformedState = errors.New("malformed session state")
	// ErrIncompleteLogin means a 2xx login or refresh body lacked a required field.
	ErrIncompleteLogin = errors.New("incomplete token response")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken means the session has no refresh token to trade in.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// Authenticator performs the unauthenticated auth calls. *client.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Register(ctx context.Context, fields any) error
	RefreshToken(ctx context.Context, refresh string) (*client.RefreshResponse, error)
}

// Manager owns the client session: the in-memory state and its persisted
// copy. It is the only writer of either. All methods are safe for concurrent
// use.
type Manager struct {
	store  Store
	auth   Authenticator
	logger *slog.Logger

	mu      sync.RWMutex
	status  domain.AuthStatus
	user    *domain.User
	access  string
	refresh string

	// refreshing collapses concurrent refreshes of the same refresh token.
	refreshing singleflight.Group

	obsMu     sync.Mutex
	observers []func(domain.AuthStatus)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for session transitions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager in the Initializing state. Call Restore before
// rendering anything that depends on the session.
func NewManager(store Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		auth:   auth,
		logger: slog.Default(),
		status: domain.StatusInitializing,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// persisted is one read of the three storage slots.
type persisted struct {
	access  string
	refresh string
	user    *domain.User
}

func (p persisted) valid() bool {
	return p.access != "" && p.user != nil
}

// identified reports whether u names an account. A decoded JSON null or an
// empty object does not.
func identified(u *domain.User) bool {
	return u != nil && (u.ID != 0 || u.Username != "")
}

// load reads the slots. A missing slot is not an error; an undecodable user
// record is ErrMalformedState.
func (m *Manager) load() (persisted, error) {
	var p persisted
	access, _, err := m.store.Get(KeyAccessToken)
	if err != nil {
		return p, err
	}
	refresh, _, err := m.store.Get(KeyRefreshToken)
	if err != nil {
		return p, err
	}
	raw, ok, err := m.store.Get(KeyUserData)
	if err != nil {
		return p, err
	}
	p.access = access
	p.refresh = refresh
	if !ok || raw == "" {
		return p, nil
	}
	var u *domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if !identified(u) {
		return p, fmt.Errorf("%w: user record has no id or username", ErrMalformedState)
	}
	p.user = u
	return p, nil
}

// Restore reconciles memory with storage. It never writes storage and is
// safe to call repeatedly.
func (m *Manager) Restore() error {
	m.mu.Lock()
	p, err := m.load()
	switch {
	case errors.Is(err, ErrMalformedState):
		m.logger.Warn("session: discarding malformed user record", "error", err)
		m.clearLocked()
		err = nil
	case err != nil:
		m.logger.Error("session: read storage", "error", err)
		m.clearLocked()
		err = fmt.Errorf("session.Restore: %w", err)
	case p.valid():
		m.adoptLocked(p)
	default:
		m.clearLocked()
	}
	changed := m.setStatusLocked(m.statusForLocked())
	status := m.status
	m.mu.Unlock()

	m.logger.Info("session restored", "status", status.String())
	if changed {
		m.notify(status)
	}
	return err
}

// Login exchanges credentials for a session. On any failure the previous
// state, in memory and in storage, is left as it was.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	pair, err := m.auth.Login(ctx, identifier, secret)
	if err != nil {
		m.logger.Info("login failed", "username", identifier, "kind", client.Kind(err).String())
		return fmt.Errorf("session.Login: %w", err)
	}
	if pair == nil || pair.Access == "" || !identified(pair.User) {
		return fmt.Errorf("session.Login: %w", ErrIncompleteLogin)
	}
	userJSON, err := json.Marshal(pair.User)
	if err != nil {
		return fmt.Errorf("session.Login: encode user: %w", err)
	}

	m.mu.Lock()
	if err := m.persistLocked(pair.Access, pair.Refresh, string(userJSON)); err != nil {
		m.rollbackLocked()
		m.mu.Unlock()
		return fmt.Errorf("session.Login: %w", err)
	}
	m.adoptLocked(persisted{access: pair.Access, refresh: pair.Refresh, user: pair.User})
	changed := m.setStatusLocked(domain.StatusAuthenticated)
	m.mu.Unlock()

	m.logger.Info("logged in", "user_id", pair.User.ID, "username", pair.User.Username, "role", pair.User.Role)
	if changed {
		m.notify(domain.StatusAuthenticated)
	}
	return nil
}

// Register creates an account. It does not log in or touch the session.
func (m *Manager) Register(ctx context.Context, fields any) error {
	if err := m.auth.Register(ctx, fields); err != nil {
		m.logger.Info("registration failed", "kind", client.Kind(err).String())
		return fmt.Errorf("session.Register: %w", err)
	}
	m.logger.Info("account registered")
	return nil
}

// Logout removes the persisted session and clears memory. It is idempotent.
// Memory is cleared even when a slot could not be deleted; the storage error
// is returned.
func (m *Manager) Logout() error {
	m.mu.Lock()
	var errs []error
	for _, k := range Keys {
		if err := m.store.Delete(k); err != nil {
			errs = append(errs, err)
		}
	}
	m.clearLocked()
	changed := m.setStatusLocked(domain.StatusUnauthenticated)
	m.mu.Unlock()

	if changed {
		m.logger.Info("logged out")
		m.notify(domain.StatusUnauthenticated)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	return nil
}

// Refresh trades the refresh token for a new access token and persists it.
// Concurrent calls holding the same refresh token share one request.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	status, refresh := m.status, m.refresh
	m.mu.RUnlock()

	if status != domain.StatusAuthenticated {
		return fmt.Errorf("session.Refresh: %w", ErrNotAuthenticated)
	}
	if refresh == "" {
		return fmt.Errorf("session.Refresh: %w", ErrNoRefreshToken)
	}

	_, err, shared := m.refreshing.Do(refresh, func() (any, error) {
		return nil, m.refreshWith(ctx, refresh)
	})
	if err != nil {
		return fmt.Errorf("session.Refresh: %w", err)
	}
	if shared {
		m.logger.Debug("joined in-flight token refresh")
	}
	return nil
}

func (m *Manager) refreshWith(ctx context.Context, refresh string) error {
	resp, err := m.auth.RefreshToken(ctx, refresh)
	if err != nil {
		if client.IsStatus(err, http.StatusUnauthorized) && m.rotatedSince(refresh) {
			// A refresh that finished after we read the token already
			// replaced it; the rejection is for the old one.
			m.logger.Debug("refresh token already rotated")
			return nil
		}
		m.logger.Info("token refresh failed", "kind", client.Kind(err).String())
		return err
	}
	if resp == nil || resp.Access == "" {
		return ErrIncompleteLogin
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.StatusAuthenticated {
		// logged out while the request was in flight
		return ErrNotAuthenticated
	}
	if err := m.store.Set(KeyAccessToken, resp.Access); err != nil {
		return err
	}
	if resp.Refresh != "" {
		if err := m.store.Set(KeyRefreshToken, resp.Refresh); err != nil {
			return err
		}
		m.refresh = resp.Refresh
	}
	m.access = resp.Access
	m.logger.Debug("access token refreshed", "rotated", resp.Refresh != "")
	return nil
}

// rotatedSince reports whether the session is still live under a refresh
// token other than old.
func (m *Manager) rotatedSince(old string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status == domain.StatusAuthenticated && m.refresh != "" && m.refresh != old
}

// Reconcile re-reads storage and adopts a valid session another process
// persisted there if its access token differs from the one in memory. It
// reports whether the in-memory session changed. Observers are notified when
// the status or the user changed. An invalid or malformed persisted record is
// ignored.
func (m *Manager) Reconcile() (bool, error) {
	m.mu.Lock()
	p, err := m.load()
	if err != nil && !errors.Is(err, ErrMalformedState) {
		m.mu.Unlock()
		return false, fmt.Errorf("session.Reconcile: %w", err)
	}
	if err != nil || !p.valid() || p.access == m.access {
		m.mu.Unlock()
		return false, nil
	}
	switched := m.user == nil || m.user.ID != p.user.ID
	m.adoptLocked(p)
	changed := m.setStatusLocked(domain.StatusAuthenticated) || switched
	m.mu.Unlock()

	m.logger.Info("adopted session from storage", "user_id", p.user.ID)
	if changed {
		m.notify(domain.StatusAuthenticated)
	}
	return true, nil
}

// Status returns the current authentication status.
func (m *Manager) Status() domain.AuthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// AccessToken returns the current access token, or "".
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

// RefreshToken returns the current refresh token, or "".
func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

// TokenExpiry returns the access token's expiry, if it carries one.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	return TokenExpiry(m.AccessToken())
}

// AccessExpired reports whether the access token's exp claim is before now.
// Tokens without a readable expiry are never considered expired.
func (m *Manager) AccessExpired(now time.Time) bool {
	exp, ok := m.TokenExpiry()
	return ok && !now.Before(exp)
}

// Subscribe registers fn to be called after every status transition. fn runs
// on the goroutine that caused the transition and must not block.
func (m *Manager) Subscribe(fn func(domain.AuthStatus)) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) notify(status domain.AuthStatus) {
	m.obsMu.Lock()
	fns := append([]func(domain.AuthStatus){}, m.observers...)
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(status)
	}
}

func (m *Manager) persistLocked(access, refresh, userJSON string) error {
	if err := m.store.Set(KeyAccessToken, access); err != nil {
		return err
	}
	if refresh != "" {
		if err := m.store.Set(KeyRefreshToken, refresh); err != nil {
			return err
		}
	} else if err := m.store.Delete(KeyRefreshToken); err != nil {
		return err
	}
	return m.store.Set(KeyUserData, userJSON)
}

// rollbackLocked writes the in-memory session back over a partially
// persisted one.
func (m *Manager) rollbackLocked() {
	if m.status != domain.StatusAuthenticated || m.user == nil {
		for _, k := range Keys {
			m.store.Delete(k) //nolint:errcheck // best-effort
		}
		return
	}
	userJSON, err := json.Marshal(m.user)
	if err != nil {
		return
	}
	if err := m.persistLocked(m.access, m.refresh, string(userJSON)); err != nil {
		m.logger.Error("session: rollback failed", "error", err)
	}
}

func (m *Manager) adoptLocked(p persisted) {
	m.access = p.access
	m.refresh = p.refresh
	m.user = p.user
}

func (m *Manager) clearLocked() {
	m.access = ""
	m.refresh = ""
	m.user = nil
}

func (m *Manager) statusForLocked() domain.AuthStatus {
	if m.access != "" && m.user != nil {
		return domain.StatusAuthenticated
	}
	return domain.StatusUnauthenticated
}

// setStatusLocked reports whether the status changed.
func (m *Manager) setStatusLocked(s domain.AuthStatus) bool {
	if m.status == s {
		return false
	}
	m.status = s
	return true
}

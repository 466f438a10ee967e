package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sawa-platform/sawa/pkg/api"
	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const userJSON = `{"id":7,"username":"ana","email":"ana@example.com","role":"buyer"}`

func newTestManager(t *testing.T, store Store, handler http.HandlerFunc) *Manager {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	auth := client.New(api.Endpoints{Base: srv.URL}, nil, client.WithLogger(quietLogger))
	return NewManager(store, auth, WithLogger(quietLogger))
}

func seed(t *testing.T, s Store, access, refresh, user string) {
	t.Helper()
	for k, v := range map[string]string{KeyAccessToken: access, KeyRefreshToken: refresh, KeyUserData: user} {
		if v == "" {
			continue
		}
		if err := s.Set(k, v); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

func loginHandler(t *testing.T, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login/" || r.Method != http.MethodPost {
			t.Errorf("got %s %s, want POST /api/auth/login/", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer header")
		}
		var req client.LoginRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		if req.Username != "ana" || req.Password != "pw" {
			t.Errorf("login body = %+v", req)
		}
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	}
}

func TestNewManager_Initializing(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	if m.Status() != domain.StatusInitializing {
		t.Errorf("status = %v, want initializing", m.Status())
	}
}

func TestRestore_Empty(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), nil)
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Status())
	}
	if m.User() != nil || m.AccessToken() != "" {
		t.Error("expected empty session")
	}
}

func TestRestore_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "acc", "ref", userJSON)
	m := newTestManager(t, store, nil)

	for i := 0; i < 2; i++ {
		if err := m.Restore(); err != nil {
			t.Fatalf("Restore #%d: %v", i, err)
		}
		if m.Status() != domain.StatusAuthenticated {
			t.Fatalf("Restore #%d: status = %v", i, m.Status())
		}
		if u := m.User(); u == nil || u.ID != 7 || u.Username != "ana" {
			t.Fatalf("Restore #%d: user = %+v", i, u)
		}
		if m.AccessToken() != "acc" || m.RefreshToken() != "ref" {
			t.Fatalf("Restore #%d: tokens = %q/%q", i, m.AccessToken(), m.RefreshToken())
		}
	}
}

func TestRestore_PartialRecord(t *testing.T) {
	tests := []struct {
		name          string
		access, user string
	}{
		{"token only", "acc", ""},
		{"user only", "", userJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			seed(t, store, tt.access, "", tt.user)
			m := newTestManager(t, store, nil)
			if err := m.Restore(); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if m.Status() != domain.StatusUnauthenticated {
				t.Errorf("status = %v, want unauthenticated", m.Status())
			}
		})
	}
}

func TestRestore_MalformedUser(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "acc", "", "not json{")
	m := newTestManager(t, store, nil)

	if err := m.Restore(); err != nil {
		t.Fatalf("Restore should not fail on malformed data: %v", err)
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Status())
	}
	// Restore never writes storage.
	if v, ok, _ := store.Get(KeyUserData); !ok || v != "not json{" {
		t.Errorf("userData slot changed: %q, %v", v, ok)
	}
}

func TestRestore_NullUser(t *testing.T) {
	tests := []struct {
		name string
		user string
	}{
		{"null", "null"},
		{"empty object", "{}"},
		{"no identity", `{"email":"ana@example.com","role":"buyer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			seed(t, store, "tok", "", tt.user)
			m := newTestManager(t, store, nil)

			if err := m.Restore(); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if m.Status() != domain.StatusUnauthenticated {
				t.Errorf("status = %v, want unauthenticated", m.Status())
			}
			if m.User() != nil {
				t.Errorf("user = %+v, want nil", m.User())
			}
		})
	}
}

type brokenStore struct{ err error }

func (b brokenStore) Get(string) (string, bool, error) { return "", false, b.err }
func (b brokenStore) Set(string, string) error { return b.err }
func (b brokenStore) Delete(string) error { return b.err }

func TestRestore_StorageFailure(t *testing.T) {
	boom := errors.New("disk gone")
	m := newTestManager(t, brokenStore{err: boom}, nil)

	err := m.Restore()
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Status())
	}
}

func TestLoginThenFreshRestore(t *testing.T) {
	store := NewMemoryStore()
	body := `{"access":"acc-1","refresh":"ref-1","user":` + userJSON + `}`
	m := newTestManager(t, store, loginHandler(t, http.StatusOK, body))
	if err := m.Restore(); err != nil {
		t.Fatal(err)
	}

	if err := m.Login(t.Context(), "ana", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.Status() != domain.StatusAuthenticated {
		t.Fatalf("status = %v", m.Status())
	}

	fresh := NewManager(store, nil, WithLogger(quietLogger))
	if err := fresh.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fresh.Status() != domain.StatusAuthenticated {
		t.Fatalf("fresh status = %v", fresh.Status())
	}
	if fresh.AccessToken() != "acc-1" || fresh.RefreshToken() != "ref-1" {
		t.Errorf("tokens = %q/%q", fresh.AccessToken(), fresh.RefreshToken())
	}
	if u := fresh.User(); u == nil || *u != *m.User() {
		t.Errorf("user = %+v, want %+v", u, m.User())
	}
}

func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"invalid credentials 400", http.StatusBadRequest, `{"error":"Invalid credentials"}`, "Invalid credentials"},
		{"invalid credentials 401", http.StatusUnauthorized, `{"error":"Invalid credentials"}`, "Invalid credentials"},
		{"detail", http.StatusForbidden, `{"detail":"Account disabled"}`, "Account disabled"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty", http.StatusInternalServerError, "", "Status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			m := newTestManager(t, store, loginHandler(t, tt.status, tt.body))
			if err := m.Restore(); err != nil {
				t.Fatal(err)
			}

			err := m.Login(t.Context(), "ana", "pw")
			var httpErr *client.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("err = %v, want *client.HTTPError", err)
			}
			if httpErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", httpErr.Message, tt.wantMsg)
			}
			if m.Status() != domain.StatusUnauthenticated {
				t.Errorf("status = %v", m.Status())
			}
			for _, k := range Keys {
				if _, ok, _ := store.Get(k); ok {
					t.Errorf("slot %s was written", k)
				}
			}
		})
	}
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "old", "old-ref", userJSON)
	m := newTestManager(t, store, loginHandler(t, http.StatusBadRequest, `{"error":"Invalid credentials"}`))
	if err := m.Restore(); err != nil {
		t.Fatal(err)
	}

	if err := m.Login(t.Context(), "ana", "pw"); err == nil {
		t.Fatal("expected error")
	}
	if m.Status() != domain.StatusAuthenticated || m.AccessToken() != "old" {
		t.Errorf("session changed: %v %q", m.Status(), m.AccessToken())
	}
	if v, _, _ := store.Get(KeyAccessToken); v != "old" {
		t.Errorf("stored token = %q", v)
	}
}

func TestLogin_IncompleteBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no access", `{"refresh":"r","user":` + userJSON + `}`},
		{"no user", `{"access":"a","refresh":"r"}`},
		{"null user", `{"access":"a","refresh":"r","user":null}`},
		{"empty user", `{"access":"a","refresh":"r","user":{}}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			m := newTestManager(t, store, loginHandler(t, http.StatusOK, tt.body))
			m.Restore() //nolint:errcheck

			err := m.Login(t.Context(), "ana", "pw")
			if !errors.Is(err, ErrIncompleteLogin) {
				t.Fatalf("err = %v, want ErrIncompleteLogin", err)
			}
			if _, ok, _ := store.Get(KeyAccessToken); ok {
				t.Error("access token persisted")
			}
		})
	}
}

func TestLogin_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	auth := client.New(api.Endpoints{Base: srv.URL}, nil, client.WithLogger(quietLogger))
	m := NewManager(NewMemoryStore(), auth, WithLogger(quietLogger))
	m.Restore() //nolint:errcheck

	err := m.Login(t.Context(), "ana", "pw")
	if !client.IsNetwork(err) {
		t.Fatalf("err = %v, want network error", err)
	}
	if client.UserMessage(err) != "Network error" {
		t.Errorf("UserMessage = %q", client.UserMessage(err))
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v", m.Status())
	}
}

type flakyStore struct {
	*MemoryStore
	failOn string
}

func (f flakyStore) Set(key, value string) error {
	if key == f.failOn {
		return errors.New("write failed")
	}
	return f.MemoryStore.Set(key, value)
}

func TestLogin_StorageFailureRollsBack(t *testing.T) {
	store := flakyStore{MemoryStore: NewMemoryStore(), failOn: KeyUserData}
	body := `{"access":"acc-1","refresh":"ref-1","user":` + userJSON + `}`
	m := newTestManager(t, store, loginHandler(t, http.StatusOK, body))
	m.Restore() //nolint:errcheck

	if err := m.Login(t.Context(), "ana", "pw"); err == nil {
		t.Fatal("expected error")
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v", m.Status())
	}
	for _, k := range Keys {
		if _, ok, _ := store.Get(k); ok {
			t.Errorf("slot %s left behind", k)
		}
	}
}

func TestRegister_DoesNotChangeState(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"username":["A user with that username already exists."],"password":"Too short"}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck

	err := m.Register(t.Context(), domain.Registration{Username: "ana", Password: "x", Role: domain.RoleBuyer})
	if err == nil {
		t.Fatal("expected error")
	}
	fields := client.FieldErrors(err)
	if len(fields["username"]) != 1 || fields["password"][0] != "Too short" {
		t.Errorf("fields = %v", fields)
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("status = %v", m.Status())
	}
}

func TestRegister_Success(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":9}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck
	if err := m.Register(t.Context(), domain.Registration{Username: "bo"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if m.Status() != domain.StatusUnauthenticated {
		t.Errorf("register must not log in, status = %v", m.Status())
	}
}

func TestLogout_ClearsAndIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "acc", "ref", userJSON)
	m := newTestManager(t, store, nil)
	m.Restore() //nolint:errcheck

	for i := 0; i < 2; i++ {
		if err := m.Logout(); err != nil {
			t.Fatalf("Logout #%d: %v", i, err)
		}
		if m.Status() != domain.StatusUnauthenticated || m.User() != nil || m.AccessToken() != "" || m.RefreshToken() != "" {
			t.Fatalf("Logout #%d left state behind", i)
		}
		for _, k := range Keys {
			if _, ok, _ := store.Get(k); ok {
				t.Fatalf("slot %s still present", k)
			}
		}
	}
}

func TestRefresh(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "old", "ref-1", userJSON)
	m := newTestManager(t, store, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/token/refresh/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		if body["refresh"] != "ref-1" {
			t.Errorf("refresh = %q", body["refresh"])
		}
		io.WriteString(w, `{"access":"new","refresh":"ref-2"}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck

	if err := m.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if m.AccessToken() != "new" || m.RefreshToken() != "ref-2" {
		t.Errorf("tokens = %q/%q", m.AccessToken(), m.RefreshToken())
	}
	if v, _, _ := store.Get(KeyAccessToken); v != "new" {
		t.Errorf("stored access = %q", v)
	}
	if v, _, _ := store.Get(KeyRefreshToken); v != "ref-2" {
		t.Errorf("stored refresh = %q", v)
	}
}

func TestRefresh_Preconditions(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), nil)
	m.Restore() //nolint:errcheck
	if err := m.Refresh(t.Context()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}

	store := NewMemoryStore()
	seed(t, store, "acc", "", userJSON)
	m = newTestManager(t, store, nil)
	m.Restore() //nolint:errcheck
	if err := m.Refresh(t.Context()); !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("err = %v, want ErrNoRefreshToken", err)
	}
}

func TestRefresh_Rejected(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "old", "ref-1", userJSON)
	m := newTestManager(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Token is invalid or expired"}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck

	err := m.Refresh(t.Context())
	if !client.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v, want 401", err)
	}
	if m.AccessToken() != "old" {
		t.Errorf("access token changed to %q", m.AccessToken())
	}
}

func TestRefresh_RotatedByEarlierRefresh(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "old", "ref-1", userJSON)
	var mu sync.Mutex
	current := "ref-1"
	m := newTestManager(t, store, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		mu.Lock()
		defer mu.Unlock()
		if body["refresh"] != current {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Token is blacklisted"}`) //nolint:errcheck
			return
		}
		current = "ref-2"
		io.WriteString(w, `{"access":"new","refresh":"ref-2"}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck

	if err := m.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// A caller that read ref-1 before the rotation is refused by the server
	// but the session is already renewed.
	if err := m.refreshWith(t.Context(), "ref-1"); err != nil {
		t.Fatalf("refreshWith(stale) = %v, want nil", err)
	}
	if m.AccessToken() != "new" || m.RefreshToken() != "ref-2" {
		t.Errorf("tokens = %q/%q", m.AccessToken(), m.RefreshToken())
	}
}

func TestRefresh_ConcurrentCallersShareRequest(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "old", "ref-1", userJSON)
	release := make(chan struct{})
	var mu sync.Mutex
	requests := 0
	m := newTestManager(t, store, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		<-release
		io.WriteString(w, `{"access":"new","refresh":"ref-2"}`) //nolint:errcheck
	})
	m.Restore() //nolint:errcheck

	const callers = 4
	errs := make(chan error, callers)
	for range callers {
		go func() { errs <- m.Refresh(t.Context()) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	for range callers {
		if err := <-errs; err != nil {
			t.Errorf("Refresh: %v", err)
		}
	}
	if m.RefreshToken() != "ref-2" {
		t.Errorf("refresh = %q", m.RefreshToken())
	}
	mu.Lock()
	defer mu.Unlock()
	// Callers that arrive after the shared request completed start their own
	// with ref-2, so only an upper bound holds.
	if requests < 1 || requests > callers {
		t.Errorf("refresh requests = %d", requests)
	}
}

func TestReconcile(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "acc-1", "ref-1", userJSON)
	m := newTestManager(t, store, nil)
	m.Restore() //nolint:errcheck

	var notified []domain.AuthStatus
	m.Subscribe(func(s domain.AuthStatus) { notified = append(notified, s) })

	changed, err := m.Reconcile()
	if err != nil || changed {
		t.Fatalf("Reconcile on unchanged storage = %v, %v", changed, err)
	}

	// another process logs in as a different user
	seed(t, store, "acc-2", "ref-2", `{"id":8,"username":"bo","role":"provider"}`)
	changed, err = m.Reconcile()
	if err != nil || !changed {
		t.Fatalf("Reconcile = %v, %v, want true", changed, err)
	}
	if m.AccessToken() != "acc-2" || m.User().Username != "bo" {
		t.Errorf("adopted %q %+v", m.AccessToken(), m.User())
	}
	if len(notified) != 1 || notified[0] != domain.StatusAuthenticated {
		t.Errorf("observers saw %v, want one authenticated for the new user", notified)
	}

	// another process logs out: nothing valid to adopt
	store.Delete(KeyAccessToken) //nolint:errcheck
	changed, err = m.Reconcile()
	if err != nil || changed {
		t.Errorf("Reconcile after external logout = %v, %v", changed, err)
	}
}

func TestSubscribe(t *testing.T) {
	store := NewMemoryStore()
	body := `{"access":"a","refresh":"r","user":` + userJSON + `}`
	m := newTestManager(t, store, loginHandler(t, http.StatusOK, body))

	var mu sync.Mutex
	var got []domain.AuthStatus
	m.Subscribe(func(s domain.AuthStatus) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	m.Restore() //nolint:errcheck
	m.Restore() //nolint:errcheck
	if err := m.Login(t.Context(), "ana", "pw"); err != nil {
		t.Fatal(err)
	}
	m.Logout() //nolint:errcheck
	m.Logout() //nolint:errcheck

	want := []domain.AuthStatus{domain.StatusUnauthenticated, domain.StatusAuthenticated, domain.StatusUnauthenticated}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp), Subject: "7"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, %v, want %v", got, ok, exp)
	}

	for _, opaque := range []string{"", "acc", "a.b.c"} {
		if _, ok := TokenExpiry(opaque); ok {
			t.Errorf("TokenExpiry(%q) ok = true", opaque)
		}
	}
}

func TestAccessExpired(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, signedToken(t, time.Now().Add(-time.Minute)), "ref", userJSON)
	m := newTestManager(t, store, nil)
	m.Restore() //nolint:errcheck

	if !m.AccessExpired(time.Now()) {
		t.Error("expected expired token")
	}
	if m.AccessExpired(time.Now().Add(-time.Hour)) {
		t.Error("token reported expired an hour before exp")
	}
	if !strings.Contains(m.AccessToken(), ".") {
		t.Error("expected a JWT access token")
	}
}

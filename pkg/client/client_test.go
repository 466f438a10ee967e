package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sawa-platform/sawa/pkg/api"
	"github.com/sawa-platform/sawa/pkg/domain"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func newTestClient(srv *httptest.Server, token string) *Client {
	return New(api.Endpoints{Base: srv.URL}, staticToken(token))
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login/" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("login sent Authorization %q, want none", got)
		}
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Username != "imtiaz01" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"access":  "acc",
			"refresh": "ref",
			"user":    map[string]any{"id": 7, "username": "imtiaz01", "role": "buyer"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv, "stale-token")
	pair, err := c.Login(context.Background(), "imtiaz01", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if pair.Access != "acc" || pair.Refresh != "ref" {
		t.Errorf("tokens = %q/%q, want acc/ref", pair.Access, pair.Refresh)
	}
	if pair.User == nil || pair.User.ID != 7 || !pair.User.IsBuyer() {
		t.Errorf("user = %+v, want id 7 buyer", pair.User)
	}

	_, err = c.Login(context.Background(), "imtiaz01", "wrong")
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	if got := UserMessage(err); got != "Invalid credentials" {
		t.Errorf("UserMessage() = %q, want %q", got, "Invalid credentials")
	}
}

func TestBearerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Authentication credentials were not provided."}) //nolint:errcheck
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		json.NewEncoder(w).Encode(domain.Dashboard{Stats: domain.DashboardCounts{Requests: 3}}) //nolint:errcheck
	}))
	defer srv.Close()

	d, err := newTestClient(srv, "test-token").GetDashboard(context.Background())
	if err != nil {
		t.Fatalf("GetDashboard() error: %v", err)
	}
	if d.Stats.Requests != 3 {
		t.Errorf("Stats.Requests = %d, want 3", d.Stats.Requests)
	}

	_, err = newTestClient(srv, "").GetDashboard(context.Background())
	if Kind(err) != KindAuth {
		t.Fatalf("Kind() = %v, want auth (err=%v)", Kind(err), err)
	}
	if got := UserMessage(err); got != "Authentication credentials were not provided." {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestTokenReadPerRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	tok := &mutableToken{v: "one"}
	c := New(api.Endpoints{Base: srv.URL}, tok)
	if _, err := c.ListNotifications(context.Background()); err != nil {
		t.Fatal(err)
	}
	tok.v = "two"
	if _, err := c.ListNotifications(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "Bearer one" || seen[1] != "Bearer two" {
		t.Errorf("Authorization headers = %v", seen)
	}
}

type mutableToken struct{ v string }

func (m *mutableToken) AccessToken() string { return m.v }

func TestListEnvelopeShapes(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantPaginated bool
	}{
		{"bare", `[{"id":1,"title":"Pump overhaul","status":"open"}]`, false},
		{"paginated", `{"count":1,"next":null,"results":[{"id":1,"title":"Pump overhaul","status":"open"}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/service-requests/" {
					http.NotFound(w, r)
					return
				}
				if got := r.URL.Query().Get("status"); got != "open" {
					t.Errorf("status filter = %q, want open", got)
				}
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			list, err := newTestClient(srv, "tok").ListServiceRequests(context.Background(), "open")
			if err != nil {
				t.Fatalf("ListServiceRequests() error: %v", err)
			}
			if list.Paginated != tt.wantPaginated {
				t.Errorf("Paginated = %v, want %v", list.Paginated, tt.wantPaginated)
			}
			if list.Len() != 1 || list.Items[0].Title != "Pump overhaul" {
				t.Errorf("Items = %+v", list.Items)
			}
		})
	}
}

func TestMutatingPaths(t *testing.T) {
	type call struct{ method, path string }
	var got []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, call{r.Method, r.URL.Path})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(srv, "tok")
	ctx := context.Background()
	if err := c.AcceptApplication(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if err := c.RejectApplication(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteServiceRequest(ctx, 6); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkNotificationRead(ctx, 7); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodPost, "/api/applications/4/accept/"},
		{http.MethodPost, "/api/applications/5/reject/"},
		{http.MethodDelete, "/api/service-requests/6/"},
		{http.MethodPut, "/api/notifications/7/read/"},
	}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantKind    ErrorKind
		wantFields  int
	}{
		{"error field", 400, `{"error":"Invalid credentials"}`, "Invalid credentials", KindValidation, 0},
		{"detail field", 403, `{"detail":"Not allowed"}`, "Not allowed", KindValidation, 0},
		{"validation object", 400, `{"username":["A user with that username already exists."],"email":"Enter a valid email address."}`,
			`{"username":["A user with that username already exists."],"email":"Enter a valid email address."}`, KindValidation, 2},
		{"json string", 400, `"Invalid"`, "Invalid", KindValidation, 0},
		{"html 500", 500, "<h1>Server Error (500)</h1>", "<h1>Server Error (500)</h1>", KindServer, 0},
		{"empty 502", 502, "", "Status 502", KindServer, 0},
		{"whitespace 503", 503, "  \n", "Status 503", KindServer, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			err := newTestClient(srv, "tok").Register(context.Background(), domain.Registration{Username: "x"})
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *HTTPError, got %T: %v", err, err)
			}
			if httpErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", httpErr.Message, tt.wantMessage)
			}
			if Kind(err) != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", Kind(err), tt.wantKind)
			}
			if len(FieldErrors(err)) != tt.wantFields {
				t.Errorf("FieldErrors() = %v, want %d fields", FieldErrors(err), tt.wantFields)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(api.Endpoints{Base: base}, nil)
	_, err := c.Login(context.Background(), "a", "b")
	if !IsNetwork(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if Kind(err) != KindNetwork {
		t.Errorf("Kind() = %v, want network", Kind(err))
	}
	if got := UserMessage(err); got != "Network error" {
		t.Errorf("UserMessage() = %q, want %q", got, "Network error")
	}
}

func TestDeadlineIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(api.Endpoints{Base: srv.URL}, staticToken("tok"), WithTimeout(50*time.Millisecond))
	_, err := c.ListNotifications(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("expected NetworkError on deadline, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestDoRequest_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv, "tok").ListReviews(ctx, domain.ReviewsGiven)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !strings.Contains(err.Error(), "network error") {
		t.Errorf("error = %q, want network error", err)
	}
}

func TestSendThreadMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/threads/9/messages/" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.ChatMessage{ID: 1, Content: body["content"]}) //nolint:errcheck
	}))
	defer srv.Close()

	msg, err := newTestClient(srv, "tok").SendThreadMessage(context.Background(), 9, "on site at 9")
	if err != nil {
		t.Fatalf("SendThreadMessage() error: %v", err)
	}
	if msg.Content != "on site at 9" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestCreateServiceRequest(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/service-requests/" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":12,"title":"Press","status":"open"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	created, err := newTestClient(srv, "tok").CreateServiceRequest(context.Background(), domain.ServiceRequestInput{
		Title:        "Press",
		ServiceTypes: []string{"Repair"},
		BudgetEUR:    1200.5,
	})
	if err != nil {
		t.Fatalf("CreateServiceRequest: %v", err)
	}
	if created.ID != 12 {
		t.Errorf("created = %+v", created)
	}
	if body["status"] != "open" {
		t.Errorf("status = %v, want open", body["status"])
	}
	if body["budget_eur"] != 1200.5 {
		t.Errorf("budget_eur = %v", body["budget_eur"])
	}
	for _, k := range []string{"technician_requirements", "safety_requirements", "alternative_dates"} {
		if list, ok := body[k].([]any); !ok || len(list) != 0 {
			t.Errorf("%s = %#v, want []", k, body[k])
		}
	}
}

func TestRoleProfile(t *testing.T) {
	type call struct{ method, path string }
	var got []call
	var patched domain.RoleProfile
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, call{r.Method, r.URL.Path})
		if r.Method == http.MethodPatch {
			json.NewDecoder(r.Body).Decode(&patched) //nolint:errcheck
			json.NewEncoder(w).Encode(patched)       //nolint:errcheck
			return
		}
		w.Write([]byte(`{"user":{"first_name":"Bo","email":"bo@example.com"},"location":"Graz","skills":["CNC"],"hourly_rate":45.5,"availability":"weekends"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(srv, "tok")
	ctx := context.Background()
	p, err := c.GetRoleProfile(ctx, domain.RoleProvider)
	if err != nil {
		t.Fatalf("GetRoleProfile: %v", err)
	}
	if p.User.FirstName != "Bo" || p.HourlyRate != "45.5" || len(p.Skills) != 1 {
		t.Errorf("profile = %+v", p)
	}

	p.Bio = "Hydraulics specialist"
	saved, err := c.UpdateRoleProfile(ctx, domain.RoleProvider, *p)
	if err != nil {
		t.Fatalf("UpdateRoleProfile: %v", err)
	}
	if saved.Bio != "Hydraulics specialist" || patched.HourlyRate != "45.5" {
		t.Errorf("saved = %+v, patched = %+v", saved, patched)
	}
	if _, err := c.GetRoleProfile(ctx, domain.RoleBuyer); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodGet, "/api/providers/profile/"},
		{http.MethodPatch, "/api/providers/profile/"},
		{http.MethodGet, "/api/buyers/profile/"},
	}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, got[i], want[i])
		}
	}
}

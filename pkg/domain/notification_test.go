package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNotificationText(t *testing.T) {
	p := NotificationPayload{RequestTitle: "Press brake repair", ProviderName: "Acme Service"}
	tests := []struct {
		typ  string
		want string
	}{
		{NotifNewApplication, `New application received for "Press brake repair" from Acme Service`},
		{NotifApplicationAccepted, `Your application for "Press brake repair" has been accepted`},
		{NotifApplicationRejected, `Your application for "Press brake repair" has been rejected`},
		{"something_else", "New notification"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			n := Notification{Type: tt.typ, Payload: p}
			if got := n.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountUnread(t *testing.T) {
	now := time.Now()
	ns := []Notification{{ID: 1}, {ID: 2, ReadAt: &now}, {ID: 3}}
	if got := CountUnread(ns); got != 2 {
		t.Errorf("CountUnread() = %d, want 2", got)
	}
	if got := CountUnread(nil); got != 0 {
		t.Errorf("CountUnread(nil) = %d, want 0", got)
	}
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		u    User
		want string
	}{
		{User{Username: "imtiaz01", FirstName: "Imtiaz", LastName: "Khan"}, "Imtiaz Khan"},
		{User{Username: "imtiaz01", FirstName: "Imtiaz"}, "Imtiaz"},
		{User{Username: "imtiaz01"}, "imtiaz01"},
	}
	for _, tt := range tests {
		if got := tt.u.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestAuthStatusString(t *testing.T) {
	for s, want := range map[AuthStatus]string{
		StatusInitializing:    "initializing",
		StatusUnauthenticated: "unauthenticated",
		StatusAuthenticated:   "authenticated",
		AuthStatus(9):         "unknown",
	} {
		if got := s.String(); !strings.EqualFold(got, want) {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

func TestValidRating(t *testing.T) {
	for r, want := range map[int]bool{0: false, 1: true, 5: true, 6: false} {
		if got := ValidRating(r); got != want {
			t.Errorf("ValidRating(%d) = %v, want %v", r, got, want)
		}
	}
}

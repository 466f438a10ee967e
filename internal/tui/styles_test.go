package tui

import (
	"strings"
	"testing"

	"github.com/sawa-platform/sawa/pkg/domain"
)

func TestStatusStyleRendersText(t *testing.T) {
	statuses := []string{
		domain.RequestOpen, domain.RequestAssigned, domain.RequestCompleted, domain.RequestCancelled,
		domain.ApplicationPending, domain.ApplicationAccepted, domain.ApplicationRejected,
		"something-new",
	}
	for _, s := range statuses {
		t.Run(s, func(t *testing.T) {
			if got := StatusStyle(s).Render(s); !strings.Contains(got, s) {
				t.Errorf("StatusStyle(%q).Render = %q, want to contain %q", s, got, s)
			}
		})
	}
}

func TestRatingStars(t *testing.T) {
	tests := []struct {
		in         int
		full, none int
	}{
		{0, 0, 5},
		{3, 3, 2},
		{5, 5, 0},
		{9, 5, 0},
		{-2, 0, 5},
	}
	for _, tc := range tests {
		got := ratingStars(tc.in)
		if n := strings.Count(got, "★"); n != tc.full {
			t.Errorf("ratingStars(%d) has %d full stars, want %d", tc.in, n, tc.full)
		}
		if n := strings.Count(got, "☆"); n != tc.none {
			t.Errorf("ratingStars(%d) has %d empty stars, want %d", tc.in, n, tc.none)
		}
	}
}

func TestHelpBarPairs(t *testing.T) {
	got := helpBar("q", "quit", "h", "help", "dangling")
	for _, want := range []string{"quit", "help"} {
		if !strings.Contains(got, want) {
			t.Errorf("helpBar missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "dangling") {
		t.Error("odd trailing argument should be ignored")
	}
}

func TestShimmerLogoAllFrames(t *testing.T) {
	for frame := 0; frame < 64; frame++ {
		if got := renderShimmerLogo(frame); got == "" {
			t.Fatalf("frame %d rendered empty", frame)
		}
	}
}

func TestFormThemeNotNil(t *testing.T) {
	if formTheme() == nil {
		t.Fatal("formTheme returned nil")
	}
}

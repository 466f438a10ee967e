package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sawa-platform/sawa/pkg/domain"
)

// Shimmer animation for the SAWA logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "S A W A" as a slow wave of light moving from
// deep teal (#134e4a) to bright cyan (#22d3ee).
func renderShimmerLogo(frame int) string {
	const text = "SAWA"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)
		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(19 + b*(34-19))
		g := clampByte(78 + b*(211-78))
		bl := clampByte(74 + b*(238-74))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22d3ee"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#34d474"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0")).
			Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Chat styles
	chatSelfNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatOtherNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#22d3ee")).
				Bold(true)

	chatSelfTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c0c4d0"))

	chatTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	chatSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	bellDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b")).
			Bold(true)

	// Status colors for requests and applications
	statusColors = map[string]lipgloss.Color{
		domain.RequestOpen:         lipgloss.Color("#22d3ee"),
		domain.RequestAssigned:     lipgloss.Color("#f0944a"),
		domain.RequestCompleted:    lipgloss.Color("#34d474"),
		domain.RequestCancelled:    lipgloss.Color("#606878"),
		domain.ApplicationPending:  lipgloss.Color("#d4a844"),
		domain.ApplicationAccepted: lipgloss.Color("#34d474"),
		domain.ApplicationRejected: lipgloss.Color("#b45555"),
	}
)

// StatusStyle returns a style colored for a request or application status.
func StatusStyle(status string) lipgloss.Style {
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// ratingStars renders an overall rating as filled and empty stars.
func ratingStars(r int) string {
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return goldStyle.Render(strings.Repeat("★", r)) + metaStyle.Render(strings.Repeat("☆", 5-r))
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries given as key, label pairs.
func helpBar(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpEntry(pairs[i], pairs[i+1]))
	}
	return " " + strings.Join(parts, "  ")
}

// formTheme is the huh theme shared by every form.
func formTheme() *huh.Theme {
	t := huh.ThemeBase()

	cyan := lipgloss.Color("#22d3ee")
	gray := lipgloss.Color("#8890a0")
	light := lipgloss.Color("#e4e4ec")
	red := lipgloss.Color("#e06060")

	t.Group.Title = lipgloss.NewStyle().
		Foreground(cyan).
		Bold(true).
		MarginBottom(1)
	t.Group.Description = lipgloss.NewStyle().
		Foreground(gray).
		MarginBottom(1)

	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(cyan)
	t.Focused.Title = lipgloss.NewStyle().
		Foreground(cyan).
		Bold(true)
	t.Focused.Description = lipgloss.NewStyle().
		Foreground(gray)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().
		Foreground(red).
		SetString(" *")
	t.Focused.ErrorMessage = lipgloss.NewStyle().
		Foreground(red)
	t.Focused.SelectSelector = lipgloss.NewStyle().
		Foreground(cyan).
		SetString("> ")
	t.Focused.SelectedOption = lipgloss.NewStyle().
		Foreground(cyan).
		Bold(true)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().
		Foreground(cyan)
	t.Focused.TextInput.Text = lipgloss.NewStyle().
		Foreground(light)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().
		Foreground(gray)

	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(gray)

	return t
}

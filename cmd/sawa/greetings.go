package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var tips = [...]string{
	"Buyers post service requests. Providers apply with a pitch.",
	"Accepting an application opens a chat thread with the provider.",
	"`sawa notifications watch` prints new applications as they arrive.",
	"Onboarding documents are uploaded on the web: `sawa open onboarding-buyer`.",
	"Use --profile to keep a buyer and a provider account side by side.",
	"Reviews can be left once a job is completed.",
	"`sawa requests --status open` shows only requests still taking applications.",
	"Every command takes --json for scripting.",
}

// printWelcome is shown when a command needs a session and there is none.
func printWelcome(w io.Writer) {
	tip := tips[rand.IntN(len(tips))]

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#22d3ee")).
		Bold(true).
		Render("S A W A")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(tip)

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("To sign in: sawa login · New here? sawa register")

	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n\n", title, quote, hint) //nolint:errcheck
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// helpItem is a selectable web page in the help overlay.
type helpItem struct {
	label string
	desc  string
	page  string // browser.Pages key
}

// Pages that only exist on the web (uploads, onboarding) are listed here.
var helpItems = []helpItem{
	{"Buyer onboarding", "company profile and documents", "onboarding-buyer"},
	{"Provider onboarding", "skills, certificates and uploads", "onboarding-provider"},
	{"New service request", "with photos and attachments", "new-request"},
	{"Dashboard", "open the web dashboard", "dashboard"},
}

// helpView renders the help overlay with a cursor over the web links.
func helpView(cursor int, version string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#22d3ee")).
		Bold(true).
		Render("S A W A")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	selStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22d3ee"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	keys := []struct{ key, desc string }{
		{"1-7", "switch page"},
		{"j/k", "move"},
		{"f", "cycle status filter"},
		{"r", "reload"},
		{"h", "toggle this help"},
		{"q", "quit"},
	}
	commands := []struct{ cmd, desc string }{
		{"sawa login", "log in from the shell"},
		{"sawa logout", "clear the saved session"},
		{"sawa notifications watch", "print new notifications as they arrive"},
		{"sawa open <page>", "open a web-only page"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", title, metaStyle.Render(version))

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", k.key)), descStyle.Render(k.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Web pages (enter to open)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-26s", item.label))
		prefix := "    "
		if i == cursor {
			label = selStyle.Render(fmt.Sprintf("%-26s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(item.desc))
	}
	return b.String()
}

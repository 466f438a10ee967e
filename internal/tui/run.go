package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sawa-platform/sawa/pkg/domain"
)

// observable sessions report status changes made outside the TUI's own
// commands, such as a logout forced by the notification poller.
type observable interface {
	Subscribe(fn func(domain.AuthStatus))
}

// Run starts the TUI and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	if o, ok := opts.Session.(observable); ok {
		o.Subscribe(func(s domain.AuthStatus) {
			go p.Send(AuthChangedMsg{Status: s})
		})
	}
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui.Run: %w", err)
	}
	return nil
}

package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"devdeck/store"
)

// Run starts the TUI on s and blocks until the user quits. Hydration is
// started here when the caller has not done it yet.
func Run(ctx context.Context, s *store.Store, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, s, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	// Mutations only ever run inside commands, so Send never blocks the
	// event loop on itself.
	unsubscribe := s.Subscribe(func(store.Event) { p.Send(storeChangedMsg{}) })
	defer unsubscribe()

	go s.Hydrate(ctx)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

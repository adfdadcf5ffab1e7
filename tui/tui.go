// Package tui is the interactive chat client. It drives the assistant
// in-process; every turn runs as a tea.Cmd so the UI never blocks.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/equipoapa2-hub/autopic/assistant"
	"github.com/equipoapa2-hub/autopic/schema"
)

// Assistant is what the chat view talks to.
type Assistant interface {
	HandleMessage(ctx context.Context, message, sessionID string) (*assistant.TurnResult, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Options configures the client.
type Options struct {
	SessionID string
	// Provider labels the header, e.g. "OpenAI (gpt-4o-mini)".
	Provider string
	// Database labels the header, e.g. "postgres autopic@localhost".
	Database string
	Schema   *schema.Descriptor
	// Verify compares the descriptor with the live database. Nil hides the action.
	Verify func(ctx context.Context) (string, error)
}

// Start runs the client until the user quits or ctx is done.
func Start(ctx context.Context, a Assistant, opts Options) error {
	app := NewApp(ctx, a, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Package session implements the Session Context Store: bounded, per-session
// conversation transcripts used to ground assistant prompts.
//
// A transcript is an ordered list of units. Each Append adds exactly one
// unit (which may itself span several text lines, e.g. a user message and
// its answer) and the store keeps at most MaxLines units, evicting the
// oldest first. Get joins the units with newlines.
package session

import (
	"context"
	"errors"
	"strings"
)

// DefaultMaxLines is the number of transcript units retained per session.
const DefaultMaxLines = 20

// ErrConflict is returned by shared backends when an append keeps losing
// optimistic-concurrency races.
var ErrConflict = errors.New("session: too many concurrent updates")

// Store is the only way components read or write conversation context.
// Operations on different sessions never observe each other.
type Store interface {
	// Get returns the joined transcript, or "" when the session is unknown.
	Get(ctx context.Context, sessionID string) (string, error)

	// Append adds one unit, evicting the oldest units beyond the cap.
	Append(ctx context.Context, sessionID, line string) error

	// Clear drops all state for the session. Clearing an unknown session is a no-op.
	Clear(ctx context.Context, sessionID string) error
}

// appendBounded appends line and keeps only the newest max units. The
// returned slice never aliases a prefix that was dropped.
func appendBounded(lines []string, line string, max int) []string {
	lines = append(lines, line)
	if max > 0 && len(lines) > max {
		kept := make([]string, max)
		copy(kept, lines[len(lines)-max:])
		return kept
	}
	return lines
}

func join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Package ai defines the language-model oracle used by the assistant and its
// backends.
//
// Design decisions:
//   - Provider is a single-shot completion: one system prompt, one user
//     prompt, a token budget and a temperature. Conversation history is
//     folded into the user prompt by the caller, so every backend sees the
//     same contract.
//   - All methods accept context for cancellation and deadlines.
//   - Backends classify failures as TransientError or FatalError; callers
//     treat both as oracle failures but may retry the former.
//   - The placeholder provider answers without a network so the app runs
//     with no credentials.
package ai

import (
	"context"
)

// CompletionRequest is one call to the oracle.
type CompletionRequest struct {
	// Op names the calling stage ("classify", "synthesize", ...) for logs and metrics.
	Op          string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Provider is the interface all AI backends must implement.
type Provider interface {
	// Complete returns the model's reply text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name returns the provider name for display.
	Name() string
}

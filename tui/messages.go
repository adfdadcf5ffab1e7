// messages.go defines Bubble Tea messages used for async communication.
package tui

import "github.com/equipoapa2-hub/autopic/assistant"

// TurnResultMsg is sent when a chat turn completes.
type TurnResultMsg struct {
	Result *assistant.TurnResult
	Err    error
}

// ClearedMsg is sent when the session context has been cleared.
type ClearedMsg struct {
	Err error
}

// VerifyResultMsg carries the schema drift report.
type VerifyResultMsg struct {
	Report string
	Err    error
}

// StatusMsg is a transient status message for the status bar.
type StatusMsg string

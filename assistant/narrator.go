package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/equipoapa2-hub/autopic/ai"
	"github.com/equipoapa2-hub/autopic/session"
)

// Narrator explains query results in natural language.
type Narrator struct {
	gate  *oracleGate
	store session.Store
	// rowLimit caps rows embedded in the prompt; zero means all.
	rowLimit int
}

// Narrate renders the answer and records it in the transcript.
func (n *Narrator) Narrate(ctx context.Context, message string, rows []map[string]any, sessionID string) (string, error) {
	history, err := n.store.Get(ctx, sessionID)
	if err != nil {
		return "", newError(KindSession, "narrate", err)
	}

	rowsText, err := n.formatRows(rows)
	if err != nil {
		return "", newError(KindExecution, "narrate", err)
	}

	reply, err := n.gate.complete(ctx, ai.CompletionRequest{
		Op:          "narrate",
		System:      systemPromptNarrate,
		User:        narratePrompt(message, rowsText, history),
		MaxTokens:   narrateMaxTokens,
		Temperature: narrateTemperature,
	})
	if err != nil {
		return "", newError(KindOracle, "narrate", err)
	}

	answer := strings.TrimSpace(reply)
	if err := n.store.Append(ctx, sessionID, answerUnit(answer)); err != nil {
		return "", newError(KindSession, "narrate", err)
	}
	return answer, nil
}

// formatRows renders rows as indented JSON, truncated to the row limit.
func (n *Narrator) formatRows(rows []map[string]any) (string, error) {
	shown := rows
	if shown == nil {
		shown = []map[string]any{}
	}
	if n.rowLimit > 0 && len(shown) > n.rowLimit {
		shown = shown[:n.rowLimit]
	}

	data, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	if len(shown) < len(rows) {
		return fmt.Sprintf("%s\n(Se muestran %d de %d filas.)", data, len(shown), len(rows)), nil
	}
	return string(data), nil
}

package assistant

import (
	"context"
	"strings"

	"github.com/equipoapa2-hub/autopic/ai"
	"github.com/equipoapa2-hub/autopic/session"
)

// Responder answers conversational messages without the database.
type Responder struct {
	gate  *oracleGate
	store session.Store
}

// Respond returns the answer and records the exchange in the transcript.
func (r *Responder) Respond(ctx context.Context, message, sessionID string) (string, error) {
	history, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return "", newError(KindSession, "respond", err)
	}

	reply, err := r.gate.complete(ctx, ai.CompletionRequest{
		Op:          "respond",
		System:      systemPromptRespond,
		User:        respondPrompt(history, message),
		MaxTokens:   respondMaxTokens,
		Temperature: respondTemperature,
	})
	if err != nil {
		return "", newError(KindOracle, "respond", err)
	}

	answer := strings.TrimSpace(reply)
	if err := r.store.Append(ctx, sessionID, directUnit(message, answer)); err != nil {
		return "", newError(KindSession, "respond", err)
	}
	return answer, nil
}

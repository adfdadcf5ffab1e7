package assistant

import (
	"context"
	"strings"

	"github.com/equipoapa2-hub/autopic/ai"
	"github.com/equipoapa2-hub/autopic/schema"
	"github.com/equipoapa2-hub/autopic/session"
)

// Synthesizer turns a data question into one read-only query.
type Synthesizer struct {
	gate   *oracleGate
	store  session.Store
	schema *schema.Descriptor
}

// Synthesize returns the validated query and records it in the transcript.
// Nothing is recorded when validation fails.
func (s *Synthesizer) Synthesize(ctx context.Context, message, sessionID string) (string, error) {
	history, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", newError(KindSession, "synthesize", err)
	}

	reply, err := s.gate.complete(ctx, ai.CompletionRequest{
		Op:          "synthesize",
		System:      systemPromptSynthesize,
		User:        synthesizePrompt(s.schema.String(), history, message),
		MaxTokens:   synthesizeMaxTokens,
		Temperature: synthesizeTemperature,
	})
	if err != nil {
		return "", newError(KindOracle, "synthesize", err)
	}

	query := stripCodeFence(strings.TrimSpace(reply))
	if err := CheckReadOnly(query); err != nil {
		return "", newError(KindSynthesis, "synthesize", err)
	}

	if err := s.store.Append(ctx, sessionID, queryUnit(message, query)); err != nil {
		return "", newError(KindSession, "synthesize", err)
	}
	return query, nil
}

// stripCodeFence unwraps a reply of the form ```sql\n...\n```.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := s[3 : len(s)-3]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if tag := body[:nl]; !strings.ContainsAny(tag, " \t") && !strings.EqualFold(tag, "select") {
			// Drop the language tag line.
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

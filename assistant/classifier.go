package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/equipoapa2-hub/autopic/ai"
	"github.com/equipoapa2-hub/autopic/schema"
	"github.com/equipoapa2-hub/autopic/session"
)

// Intent is the classifier's decision for one message.
type Intent int

const (
	// IntentConversation is answered without touching the database.
	IntentConversation Intent = iota
	// IntentData needs a query against the fleet database.
	IntentData
)

func (i Intent) String() string {
	if i == IntentData {
		return "data"
	}
	return "conversation"
}

// parseIntent accepts only the affirmative token, ignoring case and
// surrounding whitespace.
func parseIntent(reply string) Intent {
	if strings.ToUpper(strings.TrimSpace(reply)) == affirmative {
		return IntentData
	}
	return IntentConversation
}

// Classifier decides whether a message needs the database. It fails closed:
// any oracle failure yields IntentConversation.
type Classifier struct {
	gate    *oracleGate
	store   session.Store
	schema  *schema.Descriptor
	logger  *slog.Logger
	metrics *Metrics
}

// Classify never returns an error; failures degrade to IntentConversation.
func (c *Classifier) Classify(ctx context.Context, message, sessionID string) Intent {
	history, err := c.store.Get(ctx, sessionID)
	if err != nil {
		c.logger.WarnContext(ctx, "Classifier could not read session context", "session_id", sessionID, "error", err)
		history = ""
	}

	reply, err := c.gate.complete(ctx, ai.CompletionRequest{
		Op:          "classify",
		System:      systemPromptClassify,
		User:        classifyPrompt(c.schema.String(), history, message),
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemperature,
	})
	if err != nil {
		c.metrics.observeFailClosed()
		c.logger.WarnContext(ctx, "Classifier failed closed", "session_id", sessionID, "error", err)
		return IntentConversation
	}
	return parseIntent(reply)
}

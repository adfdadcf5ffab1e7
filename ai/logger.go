package ai

import (
	"context"
	"log/slog"
	"time"
)

// Logged decorates a Provider so every request and response is recorded.
// Prompts and replies are logged at DEBUG; sizes and timings at INFO.
type Logged struct {
	next   Provider
	logger *slog.Logger
}

var _ Provider = (*Logged)(nil)

// WithLogging wraps p. A nil logger uses slog.Default().
func WithLogging(p Provider, logger *slog.Logger) *Logged {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logged{next: p, logger: logger.With("component", "ai", "provider", p.Name())}
}

func (l *Logged) Name() string {
	return l.next.Name()
}

func (l *Logged) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	l.logger.DebugContext(ctx, "AI request",
		"op", req.Op,
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
		"system", req.System,
		"user", req.User,
	)

	start := time.Now()
	reply, err := l.next.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.WarnContext(ctx, "AI request failed",
			"op", req.Op,
			"duration", elapsed,
			"transient", IsTransient(err),
			"error", err,
		)
		return "", err
	}

	l.logger.InfoContext(ctx, "AI response",
		"op", req.Op,
		"duration", elapsed,
		"prompt_chars", len(req.System)+len(req.User),
		"reply_chars", len(reply),
	)
	l.logger.DebugContext(ctx, "AI response body", "op", req.Op, "reply", reply)
	return reply, nil
}

// Package assistant answers fleet questions in natural language.
//
// A turn is classified first. Conversational messages go to the Responder;
// data questions go Synthesizer -> Executor -> Narrator. Every stage reads
// and writes the session transcript through session.Store only.
//
// Design decisions:
//   - The classifier fails closed to the conversational path. Every other
//     failure surfaces as an *Error carrying a Kind; a data question is
//     never silently answered without data.
//   - Turns on one session are serialised with session.TurnLocks; turns on
//     different sessions share nothing but the oracle slots.
//   - Queries are validated lexically before execution and executors run
//     them read-only.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/equipoapa2-hub/autopic/schema"
	"github.com/equipoapa2-hub/autopic/session"
)

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// Executor runs one read-only query and returns its rows keyed by column.
type Executor interface {
	Execute(ctx context.Context, query string) ([]map[string]any, error)
}

// Config wires an Assistant. Oracle, Executor and Store are required.
type Config struct {
	Oracle   Oracle
	Executor Executor
	Store    session.Store
	Schema   *schema.Descriptor // nil means schema.Fleet()
	Logger   *slog.Logger
	Metrics  *Metrics

	OracleTimeout            time.Duration
	QueryTimeout             time.Duration
	MaxConcurrentOracleCalls int
	NarratorRowLimit         int
	// QueryRetries re-runs a failed query up to this many extra times.
	QueryRetries int
}

// TurnResult is the outcome of one handled message.
type TurnResult struct {
	ID           string
	UsedDatabase bool
	AnswerText   string
	// Query and Rows are set only when UsedDatabase is true.
	Query string
	Rows  []map[string]any
}

// Assistant is the orchestrator. It is safe for concurrent use.
type Assistant struct {
	classifier  *Classifier
	synthesizer *Synthesizer
	narrator    *Narrator
	responder   *Responder

	executor     Executor
	store        session.Store
	locks        *session.TurnLocks
	logger       *slog.Logger
	metrics      *Metrics
	queryTimeout time.Duration
	queryRetries int
}

// New builds an Assistant from cfg.
func New(cfg Config) (*Assistant, error) {
	switch {
	case cfg.Oracle == nil:
		return nil, errors.New("assistant: oracle is required")
	case cfg.Executor == nil:
		return nil, errors.New("assistant: executor is required")
	case cfg.Store == nil:
		return nil, errors.New("assistant: session store is required")
	}
	if cfg.Schema == nil {
		cfg.Schema = schema.Fleet()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "assistant")

	gate := newOracleGate(cfg.Oracle, cfg.MaxConcurrentOracleCalls, cfg.OracleTimeout, cfg.Metrics)
	return &Assistant{
		classifier:   &Classifier{gate: gate, store: cfg.Store, schema: cfg.Schema, logger: logger, metrics: cfg.Metrics},
		synthesizer:  &Synthesizer{gate: gate, store: cfg.Store, schema: cfg.Schema},
		narrator:     &Narrator{gate: gate, store: cfg.Store, rowLimit: cfg.NarratorRowLimit},
		responder:    &Responder{gate: gate, store: cfg.Store},
		executor:     cfg.Executor,
		store:        cfg.Store,
		locks:        session.NewTurnLocks(),
		logger:       logger,
		metrics:      cfg.Metrics,
		queryTimeout: cfg.QueryTimeout,
		queryRetries: max(cfg.QueryRetries, 0),
	}, nil
}

// HandleMessage runs one turn for the session.
func (a *Assistant) HandleMessage(ctx context.Context, message, sessionID string) (*TurnResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	res := &TurnResult{ID: uuid.NewString()}
	logger := a.logger.With("turn_id", res.ID, "session_id", sessionID)
	start := time.Now()

	route, err := a.handle(ctx, res, strings.TrimSpace(message), sessionID)
	a.metrics.observeTurn(route, err)
	if err != nil {
		logger.WarnContext(ctx, "Turn failed",
			"route", route, "kind", KindOf(err), "duration", time.Since(start), "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "Turn completed",
		"route", route, "rows", len(res.Rows), "duration", time.Since(start))
	return res, nil
}

func (a *Assistant) handle(ctx context.Context, res *TurnResult, message, sessionID string) (route string, err error) {
	if message == "" {
		return "rejected", newError(KindValidation, "validate", ErrEmptyMessage)
	}

	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return "rejected", newError(KindSession, "lock", err)
	}
	defer unlock()

	if a.classifier.Classify(ctx, message, sessionID) == IntentConversation {
		res.AnswerText, err = a.responder.Respond(ctx, message, sessionID)
		return "direct", err
	}

	res.UsedDatabase = true
	if res.Query, err = a.synthesizer.Synthesize(ctx, message, sessionID); err != nil {
		return "database", err
	}
	if res.Rows, err = a.execute(ctx, res.Query); err != nil {
		return "database", err
	}
	res.AnswerText, err = a.narrator.Narrate(ctx, message, res.Rows, sessionID)
	return "database", err
}

// execute runs the query with its own timeout, retrying up to queryRetries
// times. SELECTs are idempotent, so retries are safe.
func (a *Assistant) execute(ctx context.Context, query string) ([]map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt <= a.queryRetries; attempt++ {
		if attempt > 0 {
			a.logger.WarnContext(ctx, "Retrying query", "attempt", attempt, "error", lastErr)
		}
		rows, err := a.executeOnce(ctx, query)
		if err == nil {
			if rows == nil {
				rows = []map[string]any{}
			}
			return rows, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, newError(KindExecution, "execute", lastErr)
}

func (a *Assistant) executeOnce(ctx context.Context, query string) ([]map[string]any, error) {
	if a.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.queryTimeout)
		defer cancel()
	}
	start := time.Now()
	rows, err := a.executor.Execute(ctx, query)
	if err == nil {
		a.metrics.observeQuery(time.Since(start), len(rows))
	}
	return rows, err
}

// ClearSession forgets the session's transcript. It waits for an in-flight
// turn on the same session and is idempotent.
func (a *Assistant) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return newError(KindSession, "clear", err)
	}
	defer unlock()

	if err := a.store.Clear(ctx, sessionID); err != nil {
		return newError(KindSession, "clear", err)
	}
	a.logger.InfoContext(ctx, "Session cleared", "session_id", sessionID)
	return nil
}

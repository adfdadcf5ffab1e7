package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/equipoapa2-hub/autopic/ai"
)

// scriptedOracle answers each stage with its own function.
type scriptedOracle struct {
	mu       sync.Mutex
	handlers map[string]func(ctx context.Context, req ai.CompletionRequest) (string, error)
	calls    []ai.CompletionRequest
}

func newScriptedOracle() *scriptedOracle {
	return &scriptedOracle{handlers: make(map[string]func(context.Context, ai.CompletionRequest) (string, error))}
}

// reply makes stage op always answer text.
func (o *scriptedOracle) reply(op, text string) *scriptedOracle {
	return o.on(op, func(context.Context, ai.CompletionRequest) (string, error) { return text, nil })
}

// fail makes stage op always return err.
func (o *scriptedOracle) fail(op string, err error) *scriptedOracle {
	return o.on(op, func(context.Context, ai.CompletionRequest) (string, error) { return "", err })
}

func (o *scriptedOracle) on(op string, fn func(context.Context, ai.CompletionRequest) (string, error)) *scriptedOracle {
	o.handlers[op] = fn
	return o
}

func (o *scriptedOracle) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	o.mu.Lock()
	o.calls = append(o.calls, req)
	fn, ok := o.handlers[req.Op]
	o.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unexpected oracle call %q", req.Op)
	}
	return fn(ctx, req)
}

// ops lists the stages called, in order.
func (o *scriptedOracle) ops() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	for i, c := range o.calls {
		out[i] = c.Op
	}
	return out
}

// last returns the most recent request for op.
func (o *scriptedOracle) last(op string) (ai.CompletionRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.calls) - 1; i >= 0; i-- {
		if o.calls[i].Op == op {
			return o.calls[i], true
		}
	}
	return ai.CompletionRequest{}, false
}

// fakeExecutor returns queued results in order, then the last one forever.
type fakeExecutor struct {
	mu      sync.Mutex
	results []execResult
	queries []string
}

type execResult struct {
	rows []map[string]any
	err  error
}

func (e *fakeExecutor) Execute(_ context.Context, query string) ([]map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, query)
	if len(e.results) == 0 {
		return nil, errors.New("no result scripted")
	}
	r := e.results[0]
	if len(e.results) > 1 {
		e.results = e.results[1:]
	}
	return r.rows, r.err
}

func (e *fakeExecutor) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (string, error) { return "", s.err }
func (s failingStore) Append(context.Context, string, string) error { return s.err }
func (s failingStore) Clear(context.Context, string) error          { return s.err }

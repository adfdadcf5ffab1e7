package assistant

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/equipoapa2-hub/autopic/ai"
)

// Oracle is the language model as the assistant sees it. ai.Provider
// satisfies it.
type Oracle interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

// oracleGate bounds concurrent oracle calls and applies the per-call timeout.
type oracleGate struct {
	oracle  Oracle
	slots   *semaphore.Weighted // nil means unbounded
	timeout time.Duration
	metrics *Metrics
}

func newOracleGate(oracle Oracle, maxConcurrent int, timeout time.Duration, metrics *Metrics) *oracleGate {
	g := &oracleGate{oracle: oracle, timeout: timeout, metrics: metrics}
	if maxConcurrent > 0 {
		g.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return g
}

// complete runs one call. Waiting for a slot counts against the timeout.
func (g *oracleGate) complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.slots != nil {
		if err := g.slots.Acquire(ctx, 1); err != nil {
			g.metrics.observeOracle(req.Op, 0, err)
			return "", fmt.Errorf("waiting for oracle slot: %w", err)
		}
		defer g.slots.Release(1)
	}

	start := time.Now()
	reply, err := g.oracle.Complete(ctx, req)
	g.metrics.observeOracle(req.Op, time.Since(start), err)
	return reply, err
}

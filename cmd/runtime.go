package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/equipoapa2-hub/autopic/ai"
	"github.com/equipoapa2-hub/autopic/assistant"
	"github.com/equipoapa2-hub/autopic/config"
	"github.com/equipoapa2-hub/autopic/db"
	"github.com/equipoapa2-hub/autopic/schema"
	"github.com/equipoapa2-hub/autopic/session"
)

// executor is what the assistant runs queries on; both database backends
// also introspect their live schema.
type executor interface {
	assistant.Executor
	db.Introspector
}

// runtime is the assembled application shared by every command.
type runtime struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	provider  ai.Provider
	executor  executor
	store     session.Store
	memory    *session.MemoryStore // nil unless the memory backend is used
	registry  *prometheus.Registry
	assistant *assistant.Assistant
	dbLabel   string

	closers []func()
}

// newRuntime wires provider, executor, session store, metrics and
// assistant from cfg. Close must be called on success.
func newRuntime(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (%s):\n%w", config.DisplayPath(), err)
	}

	rt := &runtime{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return nil, err
	}
	rt.provider = provider

	if err := rt.openExecutor(ctx); err != nil {
		return nil, err
	}
	if err := rt.openStore(ctx); err != nil {
		return nil, err
	}

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := assistant.NewMetrics(rt.registry)
	if rt.memory != nil {
		assistant.RegisterSessionGauge(rt.registry, rt.memory.Len)
	}

	a, err := assistant.New(assistant.Config{
		Oracle:                   ai.WithLogging(provider, logger),
		Executor:                 rt.executor,
		Store:                    rt.store,
		Schema:                   schema.Fleet(),
		Logger:                   logger,
		Metrics:                  metrics,
		OracleTimeout:            cfg.Assistant.OracleTimeout(),
		QueryTimeout:             cfg.Assistant.QueryTimeout(),
		MaxConcurrentOracleCalls: cfg.Assistant.MaxConcurrentOracleCalls,
		NarratorRowLimit:         cfg.Assistant.NarratorRowLimit,
		QueryRetries:             cfg.Assistant.QueryRetries,
	})
	if err != nil {
		return nil, err
	}
	rt.assistant = a

	logger.Info("Assistant ready",
		"provider", provider.Name(),
		"database", rt.dbLabel,
		"sessions", cfg.Session.Backend)
	ok = true
	return rt, nil
}

func (rt *runtime) openExecutor(ctx context.Context) error {
	dbCfg := rt.cfg.Database
	switch dbCfg.Driver {
	case config.DriverSQLite:
		s, err := db.OpenSQLite(ctx, dbCfg.SQLitePath)
		if err != nil {
			return err
		}
		rt.executor = s
		rt.dbLabel = "sqlite " + dbCfg.SQLitePath
		rt.closers = append(rt.closers, func() { s.Close() })
	default:
		d, err := db.Connect(ctx, dbCfg, rt.logger)
		if err != nil {
			return err
		}
		rt.executor = d
		rt.dbLabel = fmt.Sprintf("postgres %s@%s:%d/%s", dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.Database)
		rt.closers = append(rt.closers, d.Close)
	}
	return nil
}

func (rt *runtime) openStore(ctx context.Context) error {
	sc := rt.cfg.Session
	switch sc.Backend {
	case config.SessionNATS:
		nc, err := nats.Connect(sc.NATSURL, nats.Name("autopic"))
		if err != nil {
			return fmt.Errorf("nats connect %s: %w", sc.NATSURL, err)
		}
		rt.closers = append(rt.closers, nc.Close)

		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("jetstream: %w", err)
		}
		kv, err := session.NewKVStore(ctx, js, session.KVConfig{
			Bucket:   sc.Bucket,
			TTL:      sc.IdleTTL(),
			MaxLines: rt.cfg.Assistant.ContextLines,
		})
		if err != nil {
			return err
		}
		rt.store = kv
	default:
		rt.memory = session.NewMemoryStore(session.MemoryOptions{
			MaxLines:    rt.cfg.Assistant.ContextLines,
			MaxSessions: sc.MaxSessions,
			IdleTTL:     sc.IdleTTL(),
		})
		rt.store = rt.memory
	}
	return nil
}

// runJanitor evicts idle in-memory sessions until ctx is done.
func (rt *runtime) runJanitor(ctx context.Context) {
	if rt.memory == nil {
		return
	}
	go rt.memory.Run(ctx, rt.cfg.Session.SweepInterval(), rt.logger)
}

// drift compares the descriptor with the live database.
func (rt *runtime) drift(ctx context.Context) (*db.Drift, error) {
	return db.VerifyDescriptor(ctx, rt.executor, schema.Fleet())
}

// verifySchema renders the drift report for the TUI.
func (rt *runtime) verifySchema(ctx context.Context) (string, error) {
	d, err := rt.drift(ctx)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// errSchemaDrift is returned by `schema --verify` when the database differs.
var errSchemaDrift = errors.New("schema drift detected")

// newDatabaseRuntime opens only the executor, for commands that never
// reach the assistant.
func newDatabaseRuntime(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (%s):\n%w", config.DisplayPath(), err)
	}
	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.openExecutor(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

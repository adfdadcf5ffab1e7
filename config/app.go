package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionNATS   = "nats"
)

// AppConfig is the top-level config file structure (~/.autopic/config.json).
type AppConfig struct {
	AI        AIConfig        `json:"ai"`
	Database  DatabaseConfig  `json:"database"`
	Assistant AssistantConfig `json:"assistant"`
	Server    ServerConfig    `json:"server"`
	Session   SessionConfig   `json:"session"`
}

// AssistantConfig tunes the question-answering pipeline.
type AssistantConfig struct {
	ContextLines             int `json:"context_lines"`
	OracleTimeoutSeconds     int `json:"oracle_timeout_seconds"`
	QueryTimeoutSeconds      int `json:"query_timeout_seconds"`
	MaxConcurrentOracleCalls int `json:"max_concurrent_oracle_calls"`
	NarratorRowLimit         int `json:"narrator_row_limit"`
	QueryRetries             int `json:"query_retries"`
}

// OracleTimeout is the per-call deadline for the language model.
func (c AssistantConfig) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSeconds) * time.Second
}

// QueryTimeout is the per-query deadline for the database.
func (c AssistantConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// TurnTimeout bounds the work of one turn: three oracle calls plus the
// query and its retries. Time spent waiting behind another turn of the same
// session is not included; the client's own deadline bounds that.
func (c AssistantConfig) TurnTimeout() time.Duration {
	return 3*c.OracleTimeout() + time.Duration(1+max(c.QueryRetries, 0))*c.QueryTimeout()
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           string   `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// SessionConfig selects and tunes the conversation context backend.
type SessionConfig struct {
	Backend              string `json:"backend"` // "memory" or "nats"
	NATSURL              string `json:"nats_url,omitempty"`
	Bucket               string `json:"bucket,omitempty"`
	MaxSessions          int    `json:"max_sessions"`
	IdleTTLSeconds       int    `json:"idle_ttl_seconds"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
}

// IdleTTL is how long an untouched session survives; zero means forever.
func (c SessionConfig) IdleTTL() time.Duration {
	return time.Duration(c.IdleTTLSeconds) * time.Second
}

// SweepInterval is how often idle sessions are evicted.
func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		AI: DefaultAIConfig(),
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "autopic",
			SSLMode:  "require",
			SSH:      SSHConfig{Port: 22},
		},
		Assistant: AssistantConfig{
			ContextLines:             20,
			OracleTimeoutSeconds:     30,
			QueryTimeoutSeconds:      15,
			MaxConcurrentOracleCalls: 8,
			NarratorRowLimit:         50,
		},
		Server: ServerConfig{
			Port:           "3000",
			AllowedOrigins: []string{"*"},
		},
		Session: SessionConfig{
			Backend:              SessionMemory,
			Bucket:               "autopic_sessions",
			MaxSessions:          10000,
			SweepIntervalSeconds: 60,
		},
	}
}

// Path returns the config file location: $AUTOPIC_CONFIG or ~/.autopic/config.json.
func Path() (string, error) {
	if p := os.Getenv("AUTOPIC_CONFIG"); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".autopic", "config.json"), nil
}

// DisplayPath is Path for messages; it never fails.
func DisplayPath() string {
	if p, err := Path(); err == nil {
		return p
	}
	return "~/.autopic/config.json"
}

// LoadAppConfig reads the config file (defaults if not found) and applies
// environment overrides.
func LoadAppConfig() (*AppConfig, error) {
	cfg := DefaultAppConfig()

	path, err := Path()
	if err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveAppConfig writes the config file with owner-only permissions.
func SaveAppConfig(cfg *AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnv lets environment variables override file config.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("AI_PROVIDER", &cfg.AI.Provider)
	str("OPENAI_API_KEY", &cfg.AI.OpenAI.APIKey)
	str("GROQ_API_KEY", &cfg.AI.Groq.APIKey)
	str("ANTHROPIC_API_KEY", &cfg.AI.Anthropic.APIKey)
	str("GEMINI_API_KEY", &cfg.AI.Gemini.APIKey)
	str("OLLAMA_HOST", &cfg.AI.Ollama.Host)

	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_HOST", &cfg.Database.Host)
	if err := num("DB_PORT", &cfg.Database.Port); err != nil {
		return err
	}
	str("DB_USER", &cfg.Database.User)
	str("DB_PASS", &cfg.Database.Password)
	str("DB_NAME", &cfg.Database.Database)
	str("DB_SSLMODE", &cfg.Database.SSLMode)
	str("SQLITE_PATH", &cfg.Database.SQLitePath)

	str("PORT", &cfg.Server.Port)

	str("SESSION_BACKEND", &cfg.Session.Backend)
	str("NATS_URL", &cfg.Session.NATSURL)
	return nil
}

// Validate rejects settings the app cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database: host and database are required for postgres"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("database: invalid port %d", c.Database.Port))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("database: sqlite_path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q", c.Database.Driver))
	}

	a := c.Assistant
	if a.ContextLines <= 0 {
		errs = append(errs, errors.New("assistant: context_lines must be positive"))
	}
	if a.OracleTimeoutSeconds < 0 || a.QueryTimeoutSeconds < 0 {
		errs = append(errs, errors.New("assistant: timeouts must not be negative"))
	}
	if a.MaxConcurrentOracleCalls < 0 || a.NarratorRowLimit < 0 || a.QueryRetries < 0 {
		errs = append(errs, errors.New("assistant: limits must not be negative"))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server: port is required"))
	}

	switch c.Session.Backend {
	case SessionMemory:
	case SessionNATS:
		if c.Session.NATSURL == "" {
			errs = append(errs, errors.New("session: nats_url is required for the nats backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("session: unknown backend %q", c.Session.Backend))
	}
	if c.Session.MaxSessions < 0 || c.Session.IdleTTLSeconds < 0 || c.Session.SweepIntervalSeconds < 0 {
		errs = append(errs, errors.New("session: limits must not be negative"))
	}

	return errors.Join(errs...)
}

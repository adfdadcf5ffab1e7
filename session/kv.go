package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVConfig configures a KVStore.
type KVConfig struct {
	Bucket string
	// TTL expires sessions that were not written for this long. Zero keeps them forever.
	TTL      time.Duration
	MaxLines int
	// MaxAttempts bounds optimistic-concurrency retries per Append.
	MaxAttempts int
}

// KVStore keeps transcripts in a JetStream key-value bucket so several
// server instances can share sessions. Appends are revision-checked.
type KVStore struct {
	kv          jetstream.KeyValue
	maxLines    int
	maxAttempts int
}

var _ Store = (*KVStore)(nil)

// NewKVStore creates (or updates) the bucket and returns a store on it.
func NewKVStore(ctx context.Context, js jetstream.JetStream, cfg KVConfig) (*KVStore, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = "autopic_sessions"
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "AutoPic assistant conversation context",
		TTL:         cfg.TTL,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create session bucket %s: %w", cfg.Bucket, err)
	}
	return newKVStore(kv, cfg), nil
}

func newKVStore(kv jetstream.KeyValue, cfg KVConfig) *KVStore {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = DefaultMaxLines
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &KVStore{kv: kv, maxLines: cfg.MaxLines, maxAttempts: cfg.MaxAttempts}
}

// Get returns the transcript stored for the session.
func (s *KVStore) Get(ctx context.Context, sessionID string) (string, error) {
	entry, err := s.kv.Get(ctx, kvKey(sessionID))
	if isMissing(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	lines, err := decodeLines(entry.Value())
	if err != nil {
		return "", err
	}
	return join(lines), nil
}

// Append adds one unit with a compare-and-set on the entry revision.
func (s *KVStore) Append(ctx context.Context, sessionID, line string) error {
	key := kvKey(sessionID)
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		entry, err := s.kv.Get(ctx, key)
		switch {
		case isMissing(err):
			data, err := encodeLines([]string{line})
			if err != nil {
				return err
			}
			if _, err := s.kv.Create(ctx, key, data); err != nil {
				if errors.Is(err, jetstream.ErrKeyExists) {
					continue
				}
				return fmt.Errorf("create session: %w", err)
			}
			return nil

		case err != nil:
			return fmt.Errorf("get session: %w", err)
		}

		lines, err := decodeLines(entry.Value())
		if err != nil {
			return err
		}
		data, err := encodeLines(appendBounded(lines, line, s.maxLines))
		if err != nil {
			return err
		}
		if _, err := s.kv.Update(ctx, key, data, entry.Revision()); err != nil {
			if isRevisionConflict(err) {
				continue
			}
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	}
	return ErrConflict
}

// Clear deletes the session key. Missing keys are not an error.
func (s *KVStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, kvKey(sessionID)); err != nil && !isMissing(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// kvKey maps an arbitrary session id onto the KV key alphabet.
func kvKey(sessionID string) string {
	return "session_" + base64.RawURLEncoding.EncodeToString([]byte(sessionID))
}

func encodeLines(lines []string) ([]byte, error) {
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

func decodeLines(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return lines, nil
}

func isMissing(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

func isRevisionConflict(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

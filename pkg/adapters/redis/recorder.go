package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Recorder implements ports.Recorder using Redis.
// Records are stored as JSON strings and indexed in a sorted set scored by end time.
type Recorder struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Ensure Recorder implements ports.Recorder
var _ ports.Recorder = (*Recorder)(nil)

type Option func(*Recorder)

// WithTTL sets the expiration for records.
func WithTTL(ttl time.Duration) Option {
	return func(r *Recorder) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix for records.
func WithPrefix(prefix string) Option {
	return func(r *Recorder) {
		r.prefix = prefix
	}
}

// New creates a Redis recorder connected to address.
func New(address, password string, db int, opts ...Option) *Recorder {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis recorder from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Recorder {
	r := &Recorder{
		client: client,
		prefix: "voiceflow:record:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *Recorder) indexKey() string {
	return r.prefix + "index"
}

// Save persists the record.
func (r *Recorder) Save(ctx context.Context, record *domain.SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ended := record.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(record.SessionID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{
		Score:  float64(ended.UnixNano()),
		Member: record.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a record.
func (r *Recorder) Load(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rec domain.SessionRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record.
func (r *Recorder) Delete(ctx context.Context, sessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(sessionID))
	pipe.ZRem(ctx, r.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns recorded sessions, most recent first.
// Index entries whose record expired are pruned lazily.
func (r *Recorder) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if r.ttl == 0 || len(ids) == 0 {
		return ids, nil
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check record: %w", err)
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired records: %w", err)
		}
	}
	return live, nil
}

// Close closes the redis client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

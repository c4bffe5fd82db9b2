// Package exports tracks asynchronously rendered reports in Redis.
package exports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
)

// Status is the lifecycle state of an export.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// DefaultTTL bounds how long an export and its status survive.
const DefaultTTL = 15 * time.Minute

const keyPrefix = "exports:"

// ErrNotFound is returned for unknown or expired exports.
var ErrNotFound = fmt.Errorf("exports: not found: %w", httpx.ErrNotFound)

// Export is the stored state of one export.
type Export struct {
	ID       string
	Status   Status
	Filename string
	Data     []byte
	Reason   string
}

// Store keeps export artefacts under exports:<id> with a TTL.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore constructs a Store. A non-positive ttl falls back to DefaultTTL.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func dataKey(id string) string   { return keyPrefix + id }
func statusKey(id string) string { return keyPrefix + id + ":status" }
func metaKey(id string) string   { return keyPrefix + id + ":meta" }

// Create registers a new pending export and returns its id.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, statusKey(id), string(StatusPending), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("exports: create %s: %w", id, err)
	}
	return id, nil
}

// Complete stores the rendered artefact and marks the export ready.
func (s *Store) Complete(ctx context.Context, id, filename string, data []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey(id), data, s.ttl)
		pipe.Set(ctx, metaKey(id), filename, s.ttl)
		pipe.Set(ctx, statusKey(id), string(StatusReady), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("exports: complete %s: %w", id, err)
	}
	return nil
}

// Fail marks the export failed and records the reason.
func (s *Store) Fail(ctx context.Context, id, reason string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, metaKey(id), reason, s.ttl)
		pipe.Set(ctx, statusKey(id), string(StatusFailed), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("exports: fail %s: %w", id, err)
	}
	return nil
}

// Get loads the export. The artefact is only read once the export is ready.
func (s *Store) Get(ctx context.Context, id string) (Export, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Export{}, ErrNotFound
	}
	status, err := s.client.Get(ctx, statusKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Export{}, ErrNotFound
	}
	if err != nil {
		return Export{}, fmt.Errorf("exports: status %s: %w", id, err)
	}

	exp := Export{ID: id, Status: Status(status)}
	switch exp.Status {
	case StatusReady:
		vals, err := s.client.MGet(ctx, dataKey(id), metaKey(id)).Result()
		if err != nil {
			return Export{}, fmt.Errorf("exports: load %s: %w", id, err)
		}
		data, ok := vals[0].(string)
		if !ok {
			return Export{}, ErrNotFound
		}
		exp.Data = []byte(data)
		exp.Filename, _ = vals[1].(string)
	case StatusFailed:
		exp.Reason, _ = s.client.Get(ctx, metaKey(id)).Result()
	}
	return exp, nil
}

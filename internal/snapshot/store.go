package snapshot

import (
	"context"
	"errors"
	"time"
)

// Store is the durable home of serialized snapshots. Implementations are
// plain key/value and never interpret the payload; that stays in Service.
// The ttl passed to Put is storage hygiene only — snapshot expiry is decided
// by Service on load.
type Store interface {
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("snapshot not found")

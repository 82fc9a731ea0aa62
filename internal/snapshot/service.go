package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studio-lm/booooks/internal/domain"
)

const (
	// TTL is the maximum age of a persisted snapshot. Older snapshots are
	// discarded when loaded, never proactively: a snapshot is only
	// re-validated against its age when a new session hydrates from it.
	TTL = 24 * time.Hour

	// storeTTL is what backends get for self-cleaning. Twice the snapshot
	// TTL so storage never drops a snapshot the lazy check would still
	// accept.
	storeTTL = 2 * TTL

	keyPrefix = "cart:v1:"
)

// ErrNoSnapshot means there is nothing to hydrate from: nothing stored,
// or whatever was stored had expired or was unreadable. Callers treat all
// three the same way.
var ErrNoSnapshot = errors.New("no snapshot")

// Service is the persistence layer for cart state. It is best-effort and
// advisory only: every failure is typed and reported, none may interrupt the
// live cart.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// State is the sanitized result of a load.
type State struct {
	Lines    map[string]int
	Shipping *float64
}

// Save writes the current cart lines and shipping fee under the visitor's
// key, stamped with the save time.
func (s *Service) Save(ctx context.Context, key string, lines map[string]int, shipping *float64) error {
	snap := domain.Snapshot{
		Cart:     lines,
		Shipping: shipping,
		SavedAt:  s.now().UnixMilli(),
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.store.Put(ctx, storageKey(key), payload, storeTTL); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads the visitor's snapshot. A snapshot older than TTL is deleted
// and reported as ErrNoSnapshot, exactly like an absent one. Malformed
// payloads from older schema versions degrade: non-numeric quantities and
// shipping values are coerced to 0 / none instead of failing the load.
// Load never mutates a valid stored snapshot, so repeated loads agree.
func (s *Service) Load(ctx context.Context, key string) (*State, error) {
	payload, err := s.store.Get(ctx, storageKey(key))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		// Not an object at all. Same outward result as nothing stored.
		return nil, ErrNoSnapshot
	}

	savedAtRaw, _ := coerceNumber(decodeAny(raw["savedAt"]))
	savedAt := int64(savedAtRaw)
	if s.now().UnixMilli()-savedAt > TTL.Milliseconds() {
		if err := s.store.Delete(ctx, storageKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn("deleting stale snapshot failed", zap.Error(err))
		}
		return nil, ErrNoSnapshot
	}

	state := &State{Lines: make(map[string]int)}

	var rawCart map[string]any
	if err := json.Unmarshal(raw["cart"], &rawCart); err == nil {
		for id, v := range rawCart {
			f, _ := coerceNumber(v)
			qty := int(f)
			if qty < 0 {
				qty = 0
			}
			state.Lines[id] = qty
		}
	}

	// A shipping value that does not read as a number is treated as absent,
	// not as fee 0: a zero fee is a real option (free pickup) and must never
	// be selected by garbage.
	if v, ok := raw["shipping"]; ok {
		if decoded := decodeAny(v); decoded != nil {
			if fee, numeric := coerceNumber(decoded); numeric {
				state.Shipping = &fee
			}
		}
	}

	return state, nil
}

// Clear deletes the stored snapshot. Safe to call when nothing is stored.
func (s *Service) Clear(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, storageKey(key)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func storageKey(key string) string {
	return keyPrefix + key
}

func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// coerceNumber mirrors loose numeric reads: numbers pass through, numeric
// strings parse, booleans count as 0/1. Anything else reads as zero with
// ok=false so callers can distinguish "zero" from "not a number".
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

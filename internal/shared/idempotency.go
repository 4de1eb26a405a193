package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qarzbook/qarzbook/internal/store"
)

// IdempotencyHeader carries the client supplied key on POST requests.
const IdempotencyHeader = "Idempotency-Key"

// ErrIdempotencyKeyInvalid indicates an empty or oversized key.
var ErrIdempotencyKeyInvalid = errors.New("idempotency key must be 1-128 characters")

type idempotencyRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// IdempotencyStore remembers which resource a client key produced so a retried
// request returns the original resource instead of creating a second one.
type IdempotencyStore struct {
	mu    sync.Mutex
	store store.Store
	clock func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(s store.Store) *IdempotencyStore {
	return &IdempotencyStore{store: s, clock: time.Now}
}

func idempotencyKey(module, key string) string {
	return "idempotency:" + module + ":" + key
}

// Do runs create once per (module, key). A repeated key returns the recorded ID
// with replayed set. When create fails nothing is recorded, so the client may
// retry with the same key.
func (s *IdempotencyStore) Do(ctx context.Context, module, key string, create func() (string, error)) (id string, replayed bool, err error) {
	if key == "" || len(key) > 128 {
		return "", false, ErrIdempotencyKeyInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec idempotencyRecord
	err = s.store.Get(ctx, idempotencyKey(module, key), &rec)
	switch {
	case err == nil:
		return rec.ID, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", false, fmt.Errorf("idempotency: lookup %s: %w", key, err)
	}

	id, err = create()
	if err != nil {
		return "", false, err
	}
	rec = idempotencyRecord{ID: id, CreatedAt: s.clock().UTC()}
	if err := s.store.Set(ctx, idempotencyKey(module, key), rec); err != nil {
		return id, false, fmt.Errorf("idempotency: record %s: %w", key, err)
	}
	return id, false, nil
}

// Delete forgets a key.
func (s *IdempotencyStore) Delete(ctx context.Context, module, key string) error {
	if key == "" {
		return ErrIdempotencyKeyInvalid
	}
	return s.store.Delete(ctx, idempotencyKey(module, key))
}

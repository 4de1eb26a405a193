// Package store persists JSON values under string keys. Every logical collection
// is one document; callers load it whole and filter in memory.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the key holds no value.
	ErrNotFound = errors.New("store: not found")
	// ErrCorrupt indicates the stored bytes could not be decoded.
	ErrCorrupt = errors.New("store: corrupt value")
)

// Store is a dumb JSON blob store with no query capability.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Load reads key into a T. Only a missing key yields fallback. Corrupt data and
// backend failures are returned so that callers which write the document back
// never mistake an unreachable store for an empty one.
func Load[T any](ctx context.Context, s Store, key string, fallback T) (T, error) {
	var value T
	err := s.Get(ctx, key, &value)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, ErrNotFound):
		return fallback, nil
	default:
		return fallback, err
	}
}

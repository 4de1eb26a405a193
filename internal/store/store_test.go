package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type failingStore struct {
	*MemoryStore
}

func (f *failingStore) Get(ctx context.Context, key string, dest any) error {
	return errors.New("backend offline")
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"redis":  redisStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var missing record
			require.ErrorIs(t, s.Get(ctx, "debts", &missing), ErrNotFound)

			require.NoError(t, s.Set(ctx, "debts", record{Name: "a", Count: 1}))
			require.NoError(t, s.Set(ctx, "debts", record{Name: "b", Count: 2}))

			var got record
			require.NoError(t, s.Get(ctx, "debts", &got))
			require.Equal(t, record{Name: "b", Count: 2}, got)

			require.NoError(t, s.Delete(ctx, "debts"))
			require.ErrorIs(t, s.Get(ctx, "debts", &got), ErrNotFound)
		})
	}
}

func TestLoadFallsBackWhenMissing(t *testing.T) {
	s := NewMemoryStore()
	got, err := Load(context.Background(), s, "payments", []record{{Name: "default"}})
	require.NoError(t, err)
	require.Equal(t, []record{{Name: "default"}}, got)
}

func TestLoadReturnsBackendFailure(t *testing.T) {
	s := &failingStore{MemoryStore: NewMemoryStore()}
	_, err := Load(context.Background(), s, "payments", record{Name: "fallback"})
	require.EqualError(t, err, "backend offline")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestLoadSurfacesCorruption(t *testing.T) {
	s := NewMemoryStore()
	s.Put("debts", []byte(`{"name": 12`))

	_, err := Load(context.Background(), s, "debts", record{})
	require.ErrorIs(t, err, ErrCorrupt)

	// The corrupt document stays in place for inspection.
	var raw record
	require.ErrorIs(t, s.Get(context.Background(), "debts", &raw), ErrCorrupt)
}

func TestLoadRejectsWrongShape(t *testing.T) {
	s := NewMemoryStore()
	s.Put("debts", []byte(`{"not":"an array"}`))

	_, err := Load(context.Background(), s, "debts", []record{})
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.Set(context.Background(), "ledger:state", record{Name: "x"}))
	require.True(t, mr.Exists("test:ledger:state"))
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "exports/2025-01-01", record{Name: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "exports%2F2025-01-01.json", entries[0].Name())
	_, err = os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	require.ErrorIs(t, s.Set(ctx, "k", record{}), context.Canceled)
}

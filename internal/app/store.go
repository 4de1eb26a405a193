package app

import (
	"context"
	"fmt"

	"github.com/qarzbook/qarzbook/internal/platform/cache"
	"github.com/qarzbook/qarzbook/internal/platform/db"
	"github.com/qarzbook/qarzbook/internal/store"
)

// OpenStore connects the backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		return store.NewMemoryStore(), nil
	case DriverFile:
		fs, err := store.OpenFileStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("app: open file store: %w", err)
		}
		return fs, nil
	case DriverRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("app: open redis store: %w", err)
		}
		return store.NewRedisStore(client, cfg.StorePrefix), nil
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, fmt.Errorf("app: open postgres store: %w", err)
		}
		ps, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: open postgres store: %w", err)
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/observability"
	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/risk"
	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/internal/store"
)

const testModeEnv = "QARZBOOK_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether binaries should skip runtime side effects such as
// binding ports or connecting to Redis.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// Runtime bundles the long-lived services shared by the API and the CLI.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Locale  language.Tag
	Store   store.Store
	Ledger  *ledger.Ledger
	Reports *reports.Service
	Risk    *risk.Service
	Metrics *observability.Metrics
}

// RuntimeOptions overrides pieces of the runtime, mostly for tests.
type RuntimeOptions struct {
	Store   store.Store
	Metrics *observability.Metrics
	Clock   func() time.Time
}

// Bootstrap opens the store, loads the ledger and builds the report and risk
// services. Corrupt ledger data aborts the start.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	scoring, err := LoadScoring(cfg.ScoringPath)
	if err != nil {
		return nil, err
	}

	s := opts.Store
	if s == nil {
		s, err = OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	var observer ledger.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics.LedgerObserver()
	}
	l, err := ledger.Open(ctx, s, ledger.Options{
		Key:      cfg.LedgerKey,
		Logger:   logger.With(slog.String("component", "ledger")),
		Observer: observer,
		Clock:    opts.Clock,
	})
	if err != nil {
		_ = s.Close()
		if errors.Is(err, store.ErrCorrupt) {
			logger.Error("ledger data is corrupt, refusing to start",
				slog.String("key", cfg.LedgerKey),
				slog.String("detail", shared.UserSafeMessage(shared.ParseLocale(cfg.DefaultLocale), err)),
				slog.Any("error", err))
		}
		return nil, fmt.Errorf("app: open ledger: %w", err)
	}

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Locale:  shared.ParseLocale(cfg.DefaultLocale),
		Store:   s,
		Ledger:  l,
		Reports: reports.NewService(l, scoring.Reports, l.Now),
		Risk:    risk.NewService(l, scoring.Risk, l.Now),
		Metrics: opts.Metrics,
	}, nil
}

// Close releases the store.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

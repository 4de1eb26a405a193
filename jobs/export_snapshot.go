package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/store"
)

// ExportKey returns the store key of the snapshot for day.
func ExportKey(day string) string {
	return "exports:" + day
}

// ExportSnapshotJob files the JSON export bundle in the store once a day.
type ExportSnapshotJob struct {
	Ledger  LedgerSource
	Store   store.Store
	Config  reports.Config
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewExportSnapshotJob initialises the export snapshot handler.
func NewExportSnapshotJob(source LedgerSource, s store.Store, cfg reports.Config, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportSnapshotJob {
	return &ExportSnapshotJob{
		Ledger:  source,
		Store:   s,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle builds and stores the snapshot.
func (j *ExportSnapshotJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Ledger == nil || j.Store == nil {
		return errors.New("export snapshot: handler not configured")
	}
	var payload ExportSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	now := j.now()
	day := payload.Date
	if day == "" {
		day = now.Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		return fmt.Errorf("export snapshot: bad date %q: %w", day, asynq.SkipRetry)
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskExportSnapshot)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskExportSnapshot).With(slog.String("day", day))
	if err := j.Ledger.Reload(ctx); err != nil {
		logger.Error("ledger reload failed", slog.Any("error", err))
		return err
	}
	bundle := reports.BuildBundle(j.Ledger.Snapshot(), now, j.Config)
	if err := j.Store.Set(ctx, ExportKey(day), bundle); err != nil {
		logger.Error("store export failed", slog.Any("error", err))
		return fmt.Errorf("export snapshot: %w", err)
	}
	logger.Info("stored export snapshot",
		slog.String("key", ExportKey(day)),
		slog.Int("debts", bundle.Summary.DebtCount),
		slog.Int("payments", bundle.Summary.PaymentCount),
	)
	return nil
}

func (j *ExportSnapshotJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

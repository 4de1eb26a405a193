package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/internal/reports"
)

// DiscrepancyCheckJob scans stored balances for inconsistencies. Findings are
// logged and counted; the data is never modified.
type DiscrepancyCheckJob struct {
	Ledger  LedgerSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDiscrepancyCheckJob initialises the discrepancy check handler.
func NewDiscrepancyCheckJob(source LedgerSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *DiscrepancyCheckJob {
	return &DiscrepancyCheckJob{Ledger: source, Logger: logger, Metrics: metrics}
}

// Handle runs the check.
func (j *DiscrepancyCheckJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Ledger == nil {
		return errors.New("discrepancy check: handler not configured")
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskDiscrepancyCheck)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskDiscrepancyCheck)
	if err := j.Ledger.Reload(ctx); err != nil {
		logger.Error("ledger reload failed", slog.Any("error", err))
		return err
	}

	findings := reports.CheckBalanceDiscrepancies(j.Ledger.Snapshot())
	for _, f := range findings {
		logger.Warn("ledger discrepancy",
			slog.String("kind", f.Kind),
			slog.String("severity", f.Severity),
			slog.String("customer_id", f.CustomerID),
			slog.String("debt_id", f.DebtID),
			slog.String("payment_id", f.PaymentID),
			slog.String("expected", f.Expected.String()),
			slog.String("actual", f.Actual.String()),
		)
		metrics.AddFindings(f.Kind, f.Severity, 1)
	}
	metrics.SetOpenFindings(TaskDiscrepancyCheck, len(findings))
	logger.Info("completed discrepancy check", slog.Int("findings", len(findings)))
	return nil
}

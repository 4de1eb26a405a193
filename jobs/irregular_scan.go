package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/internal/reports"
)

// FindingIrregularPayment is the findings metric kind of flagged payments.
const FindingIrregularPayment = "irregular_payment"

// IrregularScanJob flags payments far from the mean amount.
type IrregularScanJob struct {
	Ledger  LedgerSource
	Config  reports.IrregularConfig
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewIrregularScanJob initialises the irregular scan handler.
func NewIrregularScanJob(source LedgerSource, cfg reports.IrregularConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *IrregularScanJob {
	return &IrregularScanJob{
		Ledger:  source,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs the scan.
func (j *IrregularScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Ledger == nil {
		return errors.New("irregular scan: handler not configured")
	}
	var payload IrregularScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	cfg := j.Config
	if payload.Sigma > 0 {
		cfg.Sigma = payload.Sigma
	}

	start := j.now()
	tracker := metricsOrDefault(j.Metrics).Track(TaskIrregularScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskIrregularScan).With(slog.Float64("sigma", cfg.Sigma))
	logger.Info("starting irregular payment scan")

	if err := j.Ledger.Reload(ctx); err != nil {
		logger.Error("ledger reload failed", slog.Any("error", err))
		return err
	}
	report := reports.IrregularPaymentReport(j.Ledger.Snapshot(), cfg)
	for _, p := range report.Payments {
		severity := reports.SeverityLow
		if p.Reason != reports.ReasonIrregular {
			severity = reports.SeverityMedium
		}
		logger.Warn("irregular payment detected",
			slog.String("payment_id", p.Payment.ID),
			slog.String("customer_id", p.Payment.CustomerID),
			slog.String("amount", p.Payment.Amount.String()),
			slog.String("deviation", p.Deviation.String()),
			slog.String("reason", p.Reason),
		)
		metricsOrDefault(j.Metrics).AddFindings(FindingIrregularPayment, severity, 1)
	}

	metricsOrDefault(j.Metrics).SetOpenFindings(TaskIrregularScan, len(report.Payments))
	logger.Info("completed irregular payment scan",
		slog.String("mean", report.Mean.String()),
		slog.Float64("std_dev", report.StdDev),
		slog.Int("flagged", len(report.Payments)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *IrregularScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

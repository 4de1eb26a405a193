package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qarzbook/qarzbook/internal/app"
	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.StoreDriver == app.DriverMemory {
		slog.Default().Error("the worker needs a shared store, memory driver is not supported")
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	rt, err := app.Bootstrap(ctx, cfg, logger, app.RuntimeOptions{})
	if err != nil {
		logger.Error("open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close store", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	if cfg.WorkerMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.WorkerMetricsAddr, mux); err != nil {
				logger.Warn("worker metrics endpoint", slog.Any("error", err))
			}
		}()
	}
	reportCfg := rt.Reports.Config()

	irregularJob := jobs.NewIrregularScanJob(rt.Ledger, reportCfg.Irregular, logger, metrics)
	discrepancyJob := jobs.NewDiscrepancyCheckJob(rt.Ledger, logger, metrics)
	exportJob := jobs.NewExportSnapshotJob(rt.Ledger, rt.Store, reportCfg, logger, metrics)

	irregularTask, err := jobs.NewIrregularScanTask(0)
	if err != nil {
		logger.Error("build irregular scan task", slog.Any("error", err))
		os.Exit(1)
	}
	discrepancyTask, err := jobs.NewDiscrepancyCheckTask()
	if err != nil {
		logger.Error("build discrepancy task", slog.Any("error", err))
		os.Exit(1)
	}
	exportTask, err := jobs.NewExportSnapshotTask("")
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIrregularScan, Handler: irregularJob.Handle},
			{Type: jobs.TaskDiscrepancyCheck, Handler: discrepancyJob.Handle},
			{Type: jobs.TaskExportSnapshot, Handler: exportJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: discrepancyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: irregularTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * *", Task: exportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("store", cfg.StoreDriver), slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

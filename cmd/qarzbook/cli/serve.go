package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/qarzbook/qarzbook/internal/app"
	"github.com/qarzbook/qarzbook/internal/observability"
	"github.com/qarzbook/qarzbook/jobs"
)

func newServeCommand() *cobra.Command {
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			return serve(cmd.Context(), withJobs)
		},
	}
	cmd.Flags().BoolVar(&withJobs, "jobs", true, "expose queue health and manual triggers under /api/jobs (needs REDIS_ADDR)")
	return cmd
}

func serve(ctx context.Context, withJobs bool) error {
	rt, err := openRuntime(ctx, observability.NewMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Warn("close store", slog.Any("error", err))
		}
	}()
	cfg, logger := rt.Config, rt.Logger

	var jobsHandler *jobs.Handler
	if withJobs && cfg.RedisAddr != "" {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		client, err := jobs.NewClient(redisOpts)
		if err != nil {
			return err
		}
		defer client.Close()
		jobsHandler = jobs.NewHandler(inspector, client, logger)
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewAPI(rt, jobsHandler),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreDriver),
			slog.Int64("ledger_version", rt.Ledger.Snapshot().Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

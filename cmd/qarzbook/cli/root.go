// Package cli implements the qarzbook command line.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qarzbook/qarzbook/internal/app"
	"github.com/qarzbook/qarzbook/internal/observability"
)

// NewRootCommand assembles the qarzbook command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "qarzbook",
		Short: "Debt and payment ledger for small shops",
		Long: `qarzbook records customer debts and the payments against them, and
derives reports and credit scores from the ledger. Configuration is read from
the environment (STORE_DRIVER, STORE_PATH, REDIS_ADDR, ...).`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newExportCommand(), newSeedCommand(), newJobsCommand())
	return root
}

// openRuntime loads the configuration and opens the ledger. CLI commands log to
// stderr so that stdout carries only command output.
func openRuntime(ctx context.Context, metrics *observability.Metrics) (*app.Runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	if metrics == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return app.Bootstrap(ctx, cfg, logger, app.RuntimeOptions{Metrics: metrics})
}

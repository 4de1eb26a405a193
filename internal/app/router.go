package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/observability"
	"github.com/qarzbook/qarzbook/internal/platform/httpx"
	reportshttp "github.com/qarzbook/qarzbook/internal/reports/http"
	"github.com/qarzbook/qarzbook/internal/risk"
	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Ledger         *ledger.Ledger
	LedgerHandler  *ledger.Handler
	ReportsHandler *reportshttp.Handler
	RiskHandler    *risk.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if params.Ledger != nil {
			state := params.Ledger.Snapshot()
			body["version"] = state.Version
			body["debts"] = len(state.Debts)
			body["payments"] = len(state.Payments)
		}
		httpx.JSON(w, http.StatusOK, body)
	})
	r.Handle("/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.RiskHandler != nil {
			params.RiskHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}

// NewAPI wires the handlers of rt into a router. jobsHandler is optional.
func NewAPI(rt *Runtime, jobsHandler *jobs.Handler) http.Handler {
	return NewRouter(RouterParams{
		Logger:         rt.Logger,
		Config:         rt.Config,
		Ledger:         rt.Ledger,
		LedgerHandler:  ledger.NewHandler(rt.Logger, rt.Ledger, rt.Locale).WithIdempotency(shared.NewIdempotencyStore(rt.Store)),
		ReportsHandler: reportshttp.NewHandler(rt.Logger, rt.Reports, rt.Locale, rt.Config.ExportsPerMinute),
		RiskHandler:    risk.NewHandler(rt.Logger, rt.Risk, rt.Locale),
		JobsHandler:    jobsHandler,
		Metrics:        rt.Metrics,
	})
}

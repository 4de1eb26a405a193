// Package http exposes the reports over JSON.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/platform/httpx"
	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/shared"
)

// Handler wires report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *reports.Service
	locale    language.Tag
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the report handler. exportsPerMinute bounds export
// requests per client address.
func NewHandler(logger *slog.Logger, service *reports.Service, locale language.Tag, exportsPerMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exportsPerMinute <= 0 {
		exportsPerMinute = 10
	}
	limiter := httprate.Limit(exportsPerMinute, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{logger: logger, service: service, locale: locale, rateLimit: limiter}
}

// MountRoutes registers report and search endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/debts", h.searchDebts)
	r.Get("/payments", h.searchPayments)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/high-debt", h.highDebt)
		r.Get("/best-paying", h.bestPaying)
		r.Get("/overdue", h.overdue)
		r.Get("/unpaid", h.unpaid)
		r.Get("/monthly", h.monthly)
		r.Get("/yearly", h.yearly)
		r.Get("/irregular", h.irregular)
		r.Get("/health", h.health)
		r.Get("/discrepancies", h.discrepancies)
		r.With(h.rateLimit).Get("/export", h.export)
	})
}

func (h *Handler) lang(r *http.Request) language.Tag {
	return shared.MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
}

// serve coalesces identical in-flight requests and writes the result as JSON.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, route string, build func() (any, error)) {
	key := cacheKey(route, r.URL.Query(), h.lang(r).String(), h.service.Version())
	result, err, _ := coalesce(r.Context(), key, build)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	detail := shared.UserSafeMessage(h.lang(r), err)
	if reports.IsUnsupportedFormat(err) {
		httpx.RespondError(w, httpx.ErrValidation, detail)
		return
	}
	if errors.Is(err, r.Context().Err()) {
		return
	}
	h.logger.Error("report failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err, detail)
}

func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, errs queryErrors) bool {
	if len(errs) == 0 {
		return false
	}
	httpx.ValidationProblem(w, shared.Translate(h.lang(r), shared.MsgInvalidRequest), errs)
	return true
}

// searchDebts returns the matching debts. With page or perPage set the result is
// wrapped in a page envelope.
func (h *Handler) searchDebts(w http.ResponseWriter, r *http.Request) {
	filter, errs := parseDebtFilter(r.URL.Query())
	page, perPage, paged := parsePage(r.URL.Query(), errs)
	if h.invalid(w, r, errs) {
		return
	}
	h.serve(w, r, "debts", func() (any, error) {
		debts := h.service.SearchDebts(filter)
		if paged {
			return shared.Paginate(debts, page, perPage), nil
		}
		return debts, nil
	})
}

func (h *Handler) searchPayments(w http.ResponseWriter, r *http.Request) {
	filter, errs := parsePaymentFilter(r.URL.Query())
	page, perPage, paged := parsePage(r.URL.Query(), errs)
	if h.invalid(w, r, errs) {
		return
	}
	h.serve(w, r, "payments", func() (any, error) {
		payments := h.service.SearchPayments(filter)
		if paged {
			return shared.Paginate(payments, page, perPage), nil
		}
		return payments, nil
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "summary", func() (any, error) {
		return h.service.Summary(), nil
	})
}

func (h *Handler) highDebt(w http.ResponseWriter, r *http.Request) {
	errs := queryErrors{}
	min := parseDecimal(r.URL.Query(), "min", errs)
	if h.invalid(w, r, errs) {
		return
	}
	threshold := decimal.Zero
	if min != nil {
		threshold = *min
	}
	h.serve(w, r, "high-debt", func() (any, error) {
		return h.service.HighDebtCustomers(threshold), nil
	})
}

func (h *Handler) bestPaying(w http.ResponseWriter, r *http.Request) {
	errs := queryErrors{}
	minPayments := parseInt(r.URL.Query(), "minPayments", 1, errs)
	if h.invalid(w, r, errs) {
		return
	}
	h.serve(w, r, "best-paying", func() (any, error) {
		return h.service.BestPayingCustomers(minPayments), nil
	})
}

func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "overdue", func() (any, error) {
		return h.service.OverdueDebts(), nil
	})
}

func (h *Handler) unpaid(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "unpaid", func() (any, error) {
		return h.service.UnpaidDebts(), nil
	})
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "monthly", func() (any, error) {
		return h.service.MonthlyPayments(), nil
	})
}

func (h *Handler) yearly(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "yearly", func() (any, error) {
		return h.service.YearlyPayments(), nil
	})
}

func (h *Handler) irregular(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "irregular", func() (any, error) {
		return h.service.IrregularPayments(), nil
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	tag := h.lang(r)
	h.serve(w, r, "health", func() (any, error) {
		return h.service.Health().Localize(tag), nil
	})
}

func (h *Handler) discrepancies(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "discrepancies", func() (any, error) {
		return h.service.Discrepancies(), nil
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = reports.FormatJSON
	}
	format, err := reports.ParseFormat(format)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err, _ := coalesce(r.Context(), cacheKey("export", r.URL.Query(), "", h.service.Version()), func() (any, error) {
		return h.service.Export(format)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body := result.([]byte)
	filename := fmt.Sprintf("qarzbook-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", reports.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Metrics collects the Prometheus metrics of the API process.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	debtsCreated      prometheus.Counter
	paymentsRecorded  prometheus.Counter
	paymentRejections *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and ledger collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qarzbook_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qarzbook_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	debts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qarzbook_debts_created_total",
		Help: "Debts recorded in the ledger.",
	})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qarzbook_payments_recorded_total",
		Help: "Payments recorded in the ledger.",
	})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qarzbook_payment_rejections_total",
		Help: "Payments refused by the ledger, by reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, debts, payments, rejections)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		debtsCreated:      debts,
		paymentsRecorded:  payments,
		paymentRejections: rejections,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records a counter and a latency sample per request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// LedgerObserver returns a ledger.Observer feeding the ledger counters.
func (m *Metrics) LedgerObserver() ledger.Observer {
	return ledgerObserver{m: m}
}

type ledgerObserver struct {
	m *Metrics
}

func (o ledgerObserver) DebtCreated(ledger.Debt) {
	if o.m != nil {
		o.m.debtsCreated.Inc()
	}
}

func (o ledgerObserver) PaymentRecorded(ledger.Payment) {
	if o.m != nil {
		o.m.paymentsRecorded.Inc()
	}
}

func (o ledgerObserver) PaymentRejected(reason string) {
	if o.m != nil {
		o.m.paymentRejections.WithLabelValues(reason).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

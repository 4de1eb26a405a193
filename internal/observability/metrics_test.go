package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `qarzbook_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `qarzbook_http_request_duration_seconds_bucket{route="/test"`)
}

func TestLedgerObserverCountsEvents(t *testing.T) {
	metrics := NewMetrics()
	obs := metrics.LedgerObserver()

	obs.DebtCreated(ledger.Debt{})
	obs.DebtCreated(ledger.Debt{})
	obs.PaymentRecorded(ledger.Payment{})
	obs.PaymentRejected(ledger.RejectExceedsBalance)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.debtsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.paymentsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.paymentRejections.WithLabelValues(ledger.RejectExceedsBalance)))
	assert.True(t, strings.Contains(scrape(t, metrics), "qarzbook_payment_rejections_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	metrics.LedgerObserver().DebtCreated(ledger.Debt{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))
}

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/observability"
	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/internal/store"
	"github.com/qarzbook/qarzbook/jobs"
)

func testConfig() *Config {
	return &Config{
		AppEnv:             "test",
		AppRequestTimeout:  5 * time.Second,
		StoreDriver:        DriverMemory,
		LedgerKey:          ledger.DefaultKey,
		DefaultLocale:      "en",
		RateLimitPerMinute: 1000,
		ExportsPerMinute:   5,
	}
}

func newTestAPI(t *testing.T) (http.Handler, *Runtime) {
	t.Helper()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rt, err := Bootstrap(t.Context(), testConfig(), nil, RuntimeOptions{
		Store:   store.NewMemoryStore(),
		Metrics: observability.NewMetrics(),
		Clock:   func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return NewAPI(rt, jobs.NewHandler(nil, nil, nil)), rt
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIRecordsDebtAndReports(t *testing.T) {
	h, rt := newTestAPI(t)

	rec := call(t, h, http.MethodPost, "/api/debts", `{"customerId":"c1","customerName":"Ahmad","amount":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	var debt ledger.Debt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &debt))
	rec = call(t, h, http.MethodPost, "/api/payments", `{"debtId":"`+debt.ID+`","amount":"400"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/reports/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalRemaining string `json:"totalRemaining"`
		PaymentCount   int    `json:"paymentCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "600", summary.TotalRemaining)
	assert.Equal(t, 1, summary.PaymentCount)

	rec = call(t, h, http.MethodGet, "/api/customers/c1/credit-score", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(2), rt.Ledger.Snapshot().Version)
}

func TestHealthzReportsLedgerVersion(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := call(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["version"])
}

func TestMetricsEndpointCountsLedgerEvents(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := call(t, h, http.MethodPost, "/api/debts", `{"customerId":"c1","customerName":"Ahmad","amount":"50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qarzbook_debts_created_total 1")
	assert.Contains(t, rec.Body.String(), "qarzbook_http_requests_total")
}

func TestBootstrapRefusesCorruptLedger(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(ledger.DefaultKey, []byte("{not json"))

	_, err := Bootstrap(t.Context(), testConfig(), nil, RuntimeOptions{Store: s})
	require.ErrorIs(t, err, store.ErrCorrupt)
	assert.Equal(t, shared.MsgStoreCorrupt, shared.UserSafeMessage(shared.LangEnglish, err))
}

func TestJobsRoutesWithoutQueue(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := call(t, h, http.MethodGet, "/api/jobs/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)

	rec = call(t, h, http.MethodPost, "/api/jobs/irregular_scan", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/jobs/reindex", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/platform/httpx"
	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/internal/store"
)

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ctx, store.NewMemoryStore(), ledger.Options{Clock: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	overdue := fixedNow.AddDate(0, 0, -3)
	d1, err := l.AddDebt(ctx, ledger.DebtInput{CustomerID: "c1", CustomerName: "Ahmad", Amount: decimal.NewFromInt(500), Category: "goods", DueDate: &overdue})
	require.NoError(t, err)
	_, err = l.AddDebt(ctx, ledger.DebtInput{CustomerID: "c2", CustomerName: "Sara", Amount: decimal.NewFromInt(900), Category: "loan"})
	require.NoError(t, err)
	_, err = l.AddPayment(ctx, ledger.PaymentInput{DebtID: d1.ID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	svc := reports.NewService(l, reports.DefaultConfig(), func() time.Time { return fixedNow })
	r := chi.NewRouter()
	NewHandler(nil, svc, shared.LangKurdish, 2).MountRoutes(r)
	return r
}

func get(h http.Handler, path, lang string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "/reports/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary reports.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "1400", summary.TotalDebt.String())
	assert.Equal(t, "100", summary.TotalPaid.String())
	assert.Equal(t, 2, summary.CustomerCount)
}

func TestSearchEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "/debts?q=SARA", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var debts []ledger.Debt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &debts))
	require.Len(t, debts, 1)
	assert.Equal(t, "c2", debts[0].CustomerID)

	rec = get(h, "/debts?sortBy=amount&sortOrder=asc&minAmount=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &debts))
	require.Len(t, debts, 2)
	assert.Equal(t, "c1", debts[0].CustomerID)

	rec = get(h, "/payments?customerId=c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []ledger.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	assert.Len(t, payments, 1)

	rec = get(h, "/debts?sortBy=weight&minAmount=abc&status=closed", "en")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "oneof", problem.Fields["sortBy"])
	assert.Equal(t, "decimal", problem.Fields["minAmount"])
	assert.Equal(t, "oneof", problem.Fields["status"])
}

func TestSearchPagination(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "/debts?sortBy=amount&sortOrder=asc&page=2&perPage=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page shared.Page[ledger.Debt]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c2", page.Items[0].CustomerID)
	assert.Equal(t, shared.Pagination{Page: 2, PerPage: 1, Total: 2, TotalPages: 2}, page.Pagination)

	rec = get(h, "/payments?perPage=500", "en")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpointIsLocalized(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "/reports/health", "en")
	require.Equal(t, http.StatusOK, rec.Code)
	var report reports.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, reports.RiskHigh, report.RiskLevel)
	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, shared.MsgRecCollectionLow, report.Recommendations[0].Message)

	rec = get(h, "/reports/health", "ckb")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, shared.Translate(shared.LangKurdish, shared.MsgRecCollectionLow), report.Recommendations[0].Message)
}

func TestOverdueAndHighDebtEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "/reports/overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var debts []ledger.Debt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &debts))
	require.Len(t, debts, 1)
	assert.Equal(t, "c1", debts[0].CustomerID)

	rec = get(h, "/reports/high-debt?min=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []reports.CustomerDebt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "c2", rows[0].CustomerID)

	rec = get(h, "/reports/best-paying?minPayments=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "/reports/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Metric,Value"))

	rec = get(h, "/reports/export?format=pdf", "en")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, shared.MsgUnsupportedFormat, problem.Detail)

	// The limiter allows two exports per minute per address.
	rec = get(h, "/reports/export", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

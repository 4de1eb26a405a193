package jobs

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/reports"
	"github.com/qarzbook/qarzbook/internal/store"
)

var jobNow = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, s store.Store) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(context.Background(), s, ledger.Options{Clock: func() time.Time { return jobNow }})
	require.NoError(t, err)
	return l
}

// offlineStore fails reads while offline is set.
type offlineStore struct {
	*store.MemoryStore
	offline atomic.Bool
}

func (o *offlineStore) Get(ctx context.Context, key string, dest any) error {
	if o.offline.Load() {
		return errors.New("dial tcp: connection refused")
	}
	return o.MemoryStore.Get(ctx, key, dest)
}

func addPayments(t *testing.T, l *ledger.Ledger, amounts ...int64) {
	t.Helper()
	ctx := context.Background()
	for i, a := range amounts {
		d, err := l.AddDebt(ctx, ledger.DebtInput{CustomerID: "c" + string(rune('a'+i)), Amount: decimal.NewFromInt(a)})
		require.NoError(t, err)
		_, err = l.AddPayment(ctx, ledger.PaymentInput{DebtID: d.ID, Amount: decimal.NewFromInt(a)})
		require.NoError(t, err)
	}
}

func findingsText(lines ...string) string {
	header := "# HELP qarzbook_ledger_findings_total Ledger findings reported by background scans, by kind and severity.\n" +
		"# TYPE qarzbook_ledger_findings_total counter\n"
	return header + strings.Join(lines, "\n") + "\n"
}

func TestIrregularScanCountsFindings(t *testing.T) {
	backing := store.NewMemoryStore()
	writer := newLedger(t, backing)
	reader := newLedger(t, backing)
	addPayments(t, writer, 100, 100, 100, 100, 10000)

	reg := prometheus.NewRegistry()
	job := NewIrregularScanJob(reader, reports.DefaultConfig().Irregular, nil, jobmetrics.NewMetrics(reg))
	task, err := NewIrregularScanTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(findingsText(
		`qarzbook_ledger_findings_total{kind="irregular_payment",severity="medium"} 1`,
	)), "qarzbook_ledger_findings_total"))
	assert.Len(t, reader.Snapshot().Payments, 5, "reader reloads before scanning")
}

func TestIrregularScanRejectsBadPayload(t *testing.T) {
	job := NewIrregularScanJob(newLedger(t, store.NewMemoryStore()), reports.DefaultConfig().Irregular, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskIrregularScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var missing *IrregularScanJob
	assert.Error(t, missing.Handle(context.Background(), asynq.NewTask(TaskIrregularScan, nil)))
}

func TestDiscrepancyCheckReadsStoredState(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	l := newLedger(t, backing)

	broken := ledger.State{
		Version: 7,
		Debts: []ledger.Debt{{
			ID: "d1", CustomerID: "c1", Amount: decimal.NewFromInt(100),
			RemainingAmount: decimal.NewFromInt(-10), Status: ledger.StatusActive,
		}},
		Payments: []ledger.Payment{{ID: "p1", DebtID: "d1", CustomerID: "c1", Amount: decimal.NewFromInt(110)}},
	}
	require.NoError(t, backing.Set(ctx, ledger.DefaultKey, broken))

	reg := prometheus.NewRegistry()
	job := NewDiscrepancyCheckJob(l, nil, jobmetrics.NewMetrics(reg))
	task, err := NewDiscrepancyCheckTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(findingsText(
		`qarzbook_ledger_findings_total{kind="negative_balance",severity="high"} 1`,
		`qarzbook_ledger_findings_total{kind="overpayment",severity="high"} 1`,
	)), "qarzbook_ledger_findings_total"))
	assert.Equal(t, int64(7), l.Snapshot().Version)
}

func TestDiscrepancyCheckFailsOnCorruptStore(t *testing.T) {
	backing := store.NewMemoryStore()
	l := newLedger(t, backing)
	backing.Put(ledger.DefaultKey, []byte("not json"))

	reg := prometheus.NewRegistry()
	job := NewDiscrepancyCheckJob(l, nil, jobmetrics.NewMetrics(reg))
	err := job.Handle(context.Background(), asynq.NewTask(TaskDiscrepancyCheck, nil))
	require.ErrorIs(t, err, store.ErrCorrupt)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(
		"# HELP qarzbook_jobs_failures_total Failed job executions.\n"+
			"# TYPE qarzbook_jobs_failures_total counter\n"+
			`qarzbook_jobs_failures_total{job="ledger:discrepancy_check"} 1`+"\n",
	), "qarzbook_jobs_failures_total"))
}

func TestExportSnapshotStoresBundle(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	l := newLedger(t, backing)
	addPayments(t, l, 250, 400)

	job := NewExportSnapshotJob(l, backing, reports.DefaultConfig(), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return jobNow }
	task, err := NewExportSnapshotTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	var bundle reports.Bundle
	require.NoError(t, backing.Get(ctx, ExportKey("2024-06-01"), &bundle))
	assert.Equal(t, 2, bundle.Summary.DebtCount)
	assert.Equal(t, "650", bundle.Summary.TotalPaid.String())
	assert.True(t, bundle.GeneratedAt.Equal(jobNow))

	task, err = NewExportSnapshotTask("01/06/2024")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(ctx, task), asynq.SkipRetry)
}

func TestExportSnapshotFailsWhenStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	backing := &offlineStore{MemoryStore: store.NewMemoryStore()}
	l := newLedger(t, backing)
	addPayments(t, l, 250, 400)
	backing.offline.Store(true)

	job := NewExportSnapshotJob(l, backing, reports.DefaultConfig(), nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return jobNow }
	task, err := NewExportSnapshotTask("")
	require.NoError(t, err)
	require.ErrorContains(t, job.Handle(ctx, task), "connection refused")

	var bundle reports.Bundle
	require.ErrorIs(t, backing.MemoryStore.Get(ctx, ExportKey("2024-06-01"), &bundle), store.ErrNotFound)
	assert.Len(t, l.Snapshot().Debts, 2)
}

func TestNewTaskByName(t *testing.T) {
	for name, want := range map[string]string{
		"irregular_scan":         TaskIrregularScan,
		"discrepancy_check":      TaskDiscrepancyCheck,
		"ledger:export_snapshot": TaskExportSnapshot,
	} {
		task, err := NewTaskByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, task.Type())
	}
	_, err := NewTaskByName("send_email")
	assert.Error(t, err)
}

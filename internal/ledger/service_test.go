package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/internal/store"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type flakyStore struct {
	*store.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (f *flakyStore) Set(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

// unreachableStore fails reads until reachable is set.
type unreachableStore struct {
	*store.MemoryStore
	mu        sync.Mutex
	reachable bool
}

func (u *unreachableStore) Get(ctx context.Context, key string, dest any) error {
	u.mu.Lock()
	ok := u.reachable
	u.mu.Unlock()
	if !ok {
		return errors.New("dial tcp 127.0.0.1:6379: connection refused")
	}
	return u.MemoryStore.Get(ctx, key, dest)
}

type recordingObserver struct {
	mu       sync.Mutex
	debts    int
	payments int
	rejected []string
}

func (o *recordingObserver) DebtCreated(Debt) {
	o.mu.Lock()
	o.debts++
	o.mu.Unlock()
}

func (o *recordingObserver) PaymentRecorded(Payment) {
	o.mu.Lock()
	o.payments++
	o.mu.Unlock()
}

func (o *recordingObserver) PaymentRejected(reason string) {
	o.mu.Lock()
	o.rejected = append(o.rejected, reason)
	o.mu.Unlock()
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func openTestLedger(t *testing.T, s store.Store, obs Observer) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), s, Options{
		Observer: obs,
		Clock:    func() time.Time { return testNow },
		NewID:    sequentialIDs(),
	})
	require.NoError(t, err)
	return l
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr[T any](v T) *T { return &v }

func TestAddDebtDefaultsRemainingAndStatus(t *testing.T) {
	l := openTestLedger(t, store.NewMemoryStore(), nil)

	debt, err := l.AddDebt(context.Background(), DebtInput{
		CustomerID:   "c1",
		CustomerName: "Ahmad",
		Amount:       amount(500000),
		Category:     "goods",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-001", debt.ID)
	assert.True(t, debt.RemainingAmount.Equal(amount(500000)))
	assert.Equal(t, StatusActive, debt.Status)
	assert.Equal(t, "QRZ-000001", debt.ReceiptNumber)
	assert.Equal(t, testNow, debt.CreatedAt)
}

func TestAddDebtNormalizesStatus(t *testing.T) {
	cases := []struct {
		name      string
		remaining *decimal.Decimal
		requested Status
		want      Status
	}{
		{name: "fully paid", remaining: ptr(amount(0)), requested: StatusActive, want: StatusPaid},
		{name: "partial requested", remaining: ptr(amount(40)), requested: StatusPartial, want: StatusPartial},
		{name: "paid requested with balance", remaining: ptr(amount(40)), requested: StatusPaid, want: StatusActive},
		{name: "default", requested: "", want: StatusActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := openTestLedger(t, store.NewMemoryStore(), nil)
			debt, err := l.AddDebt(context.Background(), DebtInput{
				CustomerID:      "c1",
				Amount:          amount(100),
				RemainingAmount: tc.remaining,
				Status:          tc.requested,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, debt.Status)
		})
	}
}

func TestAddDebtBackdatesOnlyIntoThePast(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)

	past, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(10), CreatedAt: ptr(testNow.AddDate(0, -2, 0))})
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, -2, 0), past.CreatedAt)

	future, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(10), CreatedAt: ptr(testNow.AddDate(0, 0, 1))})
	require.NoError(t, err)
	assert.Equal(t, testNow, future.CreatedAt)
}

func TestAddDebtValidation(t *testing.T) {
	cases := []struct {
		name  string
		input DebtInput
		want  error
	}{
		{name: "missing customer", input: DebtInput{CustomerID: "  ", Amount: amount(10)}, want: ErrCustomerRequired},
		{name: "zero amount", input: DebtInput{CustomerID: "c1", Amount: amount(0)}, want: ErrInvalidAmount},
		{name: "negative amount", input: DebtInput{CustomerID: "c1", Amount: amount(-5)}, want: ErrInvalidAmount},
		{name: "negative remaining", input: DebtInput{CustomerID: "c1", Amount: amount(10), RemainingAmount: ptr(amount(-1))}, want: ErrRemainingOutOfRange},
		{name: "remaining above amount", input: DebtInput{CustomerID: "c1", Amount: amount(10), RemainingAmount: ptr(amount(11))}, want: ErrRemainingOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := openTestLedger(t, store.NewMemoryStore(), nil)
			_, err := l.AddDebt(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))
			assert.Empty(t, l.Snapshot().Debts)
		})
	}
}

func TestPaymentScenario(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	l := openTestLedger(t, store.NewMemoryStore(), obs)

	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", CustomerName: "Ahmad", Amount: amount(500000)})
	require.NoError(t, err)

	payment, err := l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(200000)})
	require.NoError(t, err)
	assert.Equal(t, "c1", payment.CustomerID)
	assert.Equal(t, "Ahmad", payment.CustomerName)
	assert.Equal(t, testNow, payment.PaidAt)

	got, err := l.Debt(debt.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(amount(300000)))
	assert.Equal(t, StatusActive, got.Status)

	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(300000)})
	require.NoError(t, err)
	got, err = l.Debt(debt.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.IsZero())
	assert.Equal(t, StatusPaid, got.Status)

	assert.Equal(t, 1, obs.debts)
	assert.Equal(t, 2, obs.payments)
	assert.Equal(t, int64(3), l.Snapshot().Version)
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	l := openTestLedger(t, store.NewMemoryStore(), obs)
	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100)})
	require.NoError(t, err)
	before := l.Snapshot()

	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(150)})
	require.ErrorIs(t, err, ErrPaymentExceedsBalance)
	assert.Equal(t, "payment of 150 exceeds the remaining balance of 100", shared.UserSafeMessage(shared.LangEnglish, err))
	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, []string{RejectExceedsBalance}, obs.rejected)
}

func TestAddPaymentRejectsUnknownDebtAndBadAmount(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100)})
	require.NoError(t, err)

	_, err = l.AddPayment(ctx, PaymentInput{DebtID: "missing", Amount: amount(10)})
	require.ErrorIs(t, err, ErrDebtNotFound)
	assert.False(t, IsValidation(err))

	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(0)})
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, l.Snapshot().Payments)
}

func TestPersistFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backing := &flakyStore{MemoryStore: store.NewMemoryStore()}
	l := openTestLedger(t, backing, nil)
	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100)})
	require.NoError(t, err)
	before := l.Snapshot()

	backing.setFail(true)
	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(40)})
	require.Error(t, err)
	_, err = l.AddDebt(ctx, DebtInput{CustomerID: "c2", Amount: amount(5)})
	require.Error(t, err)
	assert.Equal(t, before, l.Snapshot())

	var persisted State
	require.NoError(t, backing.Get(ctx, DefaultKey, &persisted))
	assert.Equal(t, before.Version, persisted.Version)
	assert.Empty(t, persisted.Payments)

	backing.setFail(false)
	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(40)})
	require.NoError(t, err)
}

func TestOpenRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	l := openTestLedger(t, backing, nil)
	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100)})
	require.NoError(t, err)
	_, err = l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(25)})
	require.NoError(t, err)

	reopened := openTestLedger(t, backing, nil)
	want, got := l.Snapshot(), reopened.Snapshot()
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.ReceiptSeq, got.ReceiptSeq)
	require.Len(t, got.Debts, 1)
	require.Len(t, got.Payments, 1)
	assert.True(t, got.Debts[0].RemainingAmount.Equal(amount(75)))
	assert.Equal(t, want.Payments[0].ID, got.Payments[0].ID)

	next, err := reopened.AddDebt(ctx, DebtInput{CustomerID: "c2", Amount: amount(1)})
	require.NoError(t, err)
	assert.Equal(t, "QRZ-000002", next.ReceiptNumber)
}

func TestOpenFailsWhenStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	l := openTestLedger(t, backing, nil)
	for i := 0; i < 3; i++ {
		_, err := l.AddDebt(ctx, DebtInput{CustomerID: fmt.Sprintf("c%d", i), Amount: amount(100)})
		require.NoError(t, err)
	}

	offline := &unreachableStore{MemoryStore: backing}
	_, err := Open(ctx, offline, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotErrorIs(t, err, store.ErrNotFound)

	var persisted State
	require.NoError(t, backing.Get(ctx, DefaultKey, &persisted))
	assert.Len(t, persisted.Debts, 3)

	offline.mu.Lock()
	offline.reachable = true
	offline.mu.Unlock()
	reopened, err := Open(ctx, offline, Options{})
	require.NoError(t, err)
	_, err = reopened.AddDebt(ctx, DebtInput{CustomerID: "c9", Amount: amount(5)})
	require.NoError(t, err)
	assert.Len(t, openTestLedger(t, backing, nil).Snapshot().Debts, 4)
}

func TestReloadKeepsStateWhenStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	backing := &unreachableStore{MemoryStore: store.NewMemoryStore(), reachable: true}
	l := openTestLedger(t, backing, nil)
	_, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100)})
	require.NoError(t, err)

	backing.mu.Lock()
	backing.reachable = false
	backing.mu.Unlock()
	require.Error(t, l.Reload(ctx))
	assert.Len(t, l.Snapshot().Debts, 1)

	_, err = l.AddDebt(ctx, DebtInput{CustomerID: "c2", Amount: amount(50)})
	require.NoError(t, err)
	var persisted State
	require.NoError(t, backing.MemoryStore.Get(ctx, DefaultKey, &persisted))
	assert.Len(t, persisted.Debts, 2)
}

func TestOpenRefusesCorruptState(t *testing.T) {
	backing := store.NewMemoryStore()
	backing.Put(DefaultKey, []byte(`{"debts": [`))

	_, err := Open(context.Background(), backing, Options{})
	require.ErrorIs(t, err, store.ErrCorrupt)
	assert.Equal(t, shared.MsgStoreCorrupt, shared.UserSafeMessage(shared.LangEnglish, err))

	var raw State
	require.ErrorIs(t, backing.Get(context.Background(), DefaultKey, &raw), store.ErrCorrupt)
}

func TestConcurrentPaymentsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	debt, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(1000)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.AddPayment(ctx, PaymentInput{DebtID: debt.ID, Amount: amount(100)}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrPaymentExceedsBalance)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	got, err := l.Debt(debt.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.IsZero())
	assert.Equal(t, StatusPaid, got.Status)
	assert.Len(t, l.Snapshot().Payments, 10)
}

func TestBalancesAlwaysReconcile(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	amounts := []int64{700, 150, 3000}
	var ids []string
	for i, a := range amounts {
		d, err := l.AddDebt(ctx, DebtInput{CustomerID: fmt.Sprintf("c%d", i%2), Amount: amount(a)})
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	for step := 0; step < 30; step++ {
		_, _ = l.AddPayment(ctx, PaymentInput{DebtID: ids[step%len(ids)], Amount: amount(int64(37 + step*11))})
	}

	snapshot := l.Snapshot()
	paid := make(map[string]decimal.Decimal)
	for _, p := range snapshot.Payments {
		paid[p.DebtID] = paid[p.DebtID].Add(p.Amount)
	}
	for _, d := range snapshot.Debts {
		assert.False(t, d.RemainingAmount.IsNegative())
		assert.True(t, d.Amount.Equal(d.RemainingAmount.Add(paid[d.ID])), "debt %s does not reconcile", d.ID)
		assert.Equal(t, d.RemainingAmount.IsZero(), d.Status == StatusPaid)
	}
}

func TestCustomerTotals(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	d1, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", CustomerName: "Sara", Amount: amount(300)})
	require.NoError(t, err)
	_, err = l.AddDebt(ctx, DebtInput{CustomerID: "c1", CustomerName: "Sara", Amount: amount(200)})
	require.NoError(t, err)
	_, err = l.AddPayment(ctx, PaymentInput{DebtID: d1.ID, Amount: amount(120)})
	require.NoError(t, err)

	c, err := l.Customer("c1")
	require.NoError(t, err)
	assert.Equal(t, "Sara", c.CustomerName)
	assert.True(t, c.TotalDebt.Equal(amount(500)))
	assert.True(t, c.TotalPaid.Equal(amount(120)))
	assert.True(t, c.TotalRemaining.Equal(amount(380)))
	assert.Equal(t, 2, c.DebtCount)
	assert.Equal(t, 1, c.PaymentCount)

	_, err = l.Customer("nobody")
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	_, err := l.AddDebt(ctx, DebtInput{CustomerID: "c1", Amount: amount(100), DueDate: ptr(testNow)})
	require.NoError(t, err)

	snap := l.Snapshot()
	snap.Debts[0].RemainingAmount = amount(1)
	*snap.Debts[0].DueDate = testNow.AddDate(1, 0, 0)

	fresh := l.Snapshot()
	assert.True(t, fresh.Debts[0].RemainingAmount.Equal(amount(100)))
	assert.Equal(t, testNow, *fresh.Debts[0].DueDate)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, store.NewMemoryStore(), nil)
	data := SampleData(testNow)

	require.NoError(t, Seed(ctx, l, data))
	snap := l.Snapshot()
	assert.Len(t, snap.Debts, len(data.Debts))
	assert.Len(t, snap.Payments, len(data.Payments))
	assert.Equal(t, StatusPaid, snap.Debts[1].Status)
	for _, p := range snap.Payments {
		debt, _, ok := snap.FindDebt(p.DebtID)
		require.True(t, ok)
		assert.True(t, debt.CreatedAt.Before(p.PaidAt), "payment %s predates its debt", p.ID)
	}
	assert.True(t, snap.Debts[2].CreatedAt.Equal(testNow.AddDate(0, 0, -90)))

	require.ErrorIs(t, Seed(ctx, l, data), ErrNotEmpty)
}

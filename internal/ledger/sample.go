package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SamplePayment is a payment in the sample dataset, addressed by the index of the
// debt it settles.
type SamplePayment struct {
	DebtIndex int
	Amount    decimal.Decimal
	DaysAgo   int
	Notes     string
}

// SampleDataset is a small ledger used for demos and manual testing.
type SampleDataset struct {
	Debts    []DebtInput
	Payments []SamplePayment
}

// SampleData builds the demo dataset relative to now. Every sample payment falls
// after the creation of its debt.
func SampleData(now time.Time) SampleDataset {
	day := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}
	iqd := decimal.NewFromInt
	return SampleDataset{
		Debts: []DebtInput{
			{CustomerID: "cust-ahmad", CustomerName: "ئەحمەد محەمەد", Amount: iqd(500000), Category: "goods", Description: "کاڵای مانگانە", DueDate: day(-10), CreatedAt: day(-50)},
			{CustomerID: "cust-sara", CustomerName: "سارا عەلی", Amount: iqd(250000), Category: "services", Description: "خزمەتگوزاری", DueDate: day(20), CreatedAt: day(-15)},
			{CustomerID: "cust-karwan", CustomerName: "کاروان حەسەن", Amount: iqd(1200000), Category: "goods", Description: "کەلوپەلی ناوماڵ", DueDate: day(-45), CreatedAt: day(-90)},
			{CustomerID: "cust-ahmad", CustomerName: "ئەحمەد محەمەد", Amount: iqd(150000), Category: "loan", Description: "قەرزی کورتخایەن", DueDate: day(30), CreatedAt: day(-7)},
			{CustomerID: "cust-shilan", CustomerName: "شیلان ئازاد", Amount: iqd(80000), Category: "goods", Description: "پێداویستی", DueDate: day(5), CreatedAt: day(-2)},
		},
		Payments: []SamplePayment{
			{DebtIndex: 0, Amount: iqd(100000), DaysAgo: 40, Notes: "پارەدانی یەکەم"},
			{DebtIndex: 0, Amount: iqd(100000), DaysAgo: 20},
			{DebtIndex: 1, Amount: iqd(250000), DaysAgo: 3, Notes: "تەواو"},
			{DebtIndex: 2, Amount: iqd(200000), DaysAgo: 60},
			{DebtIndex: 3, Amount: iqd(50000), DaysAgo: 1},
		},
	}
}

// Seed loads the sample dataset into an empty ledger.
func Seed(ctx context.Context, l *Ledger, data SampleDataset) error {
	snapshot := l.Snapshot()
	if len(snapshot.Debts) > 0 || len(snapshot.Payments) > 0 {
		return ErrNotEmpty
	}
	now := l.Now()
	ids := make([]string, len(data.Debts))
	for i, in := range data.Debts {
		d, err := l.AddDebt(ctx, in)
		if err != nil {
			return fmt.Errorf("seed debt %d: %w", i, err)
		}
		ids[i] = d.ID
	}
	for i, p := range data.Payments {
		if p.DebtIndex < 0 || p.DebtIndex >= len(ids) {
			return fmt.Errorf("seed payment %d: debt index %d out of range", i, p.DebtIndex)
		}
		paidAt := now.AddDate(0, 0, -p.DaysAgo)
		if _, err := l.AddPayment(ctx, PaymentInput{
			DebtID: ids[p.DebtIndex],
			Amount: p.Amount,
			PaidAt: &paidAt,
			Notes:  p.Notes,
		}); err != nil {
			return fmt.Errorf("seed payment %d: %w", i, err)
		}
	}
	return nil
}

package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Discrepancy kinds.
const (
	KindOverpayment          = "overpayment"
	KindNegativeBalance      = "negative_balance"
	KindBalanceExceedsAmount = "balance_exceeds_amount"
	KindOrphanPayment        = "orphan_payment"
	KindStatusMismatch       = "status_mismatch"
)

// Severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Discrepancy is an inconsistency found in stored data. Normal use of the ledger
// never produces one; they point at hand-edited or damaged state.
type Discrepancy struct {
	Kind       string          `json:"kind"`
	Severity   string          `json:"severity"`
	CustomerID string          `json:"customerId,omitempty"`
	DebtID     string          `json:"debtId,omitempty"`
	PaymentID  string          `json:"paymentId,omitempty"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
}

// CheckBalanceDiscrepancies scans the snapshot for inconsistent balances.
func CheckBalanceDiscrepancies(s ledger.State) []Discrepancy {
	out := make([]Discrepancy, 0)
	debts := s.DebtIndex()

	owed := make(map[string]decimal.Decimal)
	paid := make(map[string]decimal.Decimal)
	for _, d := range s.Debts {
		owed[d.CustomerID] = owed[d.CustomerID].Add(d.Amount)
		if d.RemainingAmount.IsNegative() {
			out = append(out, Discrepancy{
				Kind:       KindNegativeBalance,
				Severity:   SeverityHigh,
				CustomerID: d.CustomerID,
				DebtID:     d.ID,
				Expected:   decimal.Zero,
				Actual:     d.RemainingAmount,
			})
		}
		if d.RemainingAmount.GreaterThan(d.Amount) {
			out = append(out, Discrepancy{
				Kind:       KindBalanceExceedsAmount,
				Severity:   SeverityMedium,
				CustomerID: d.CustomerID,
				DebtID:     d.ID,
				Expected:   d.Amount,
				Actual:     d.RemainingAmount,
			})
		}
		if (d.Status == ledger.StatusPaid) != d.RemainingAmount.IsZero() {
			out = append(out, Discrepancy{
				Kind:       KindStatusMismatch,
				Severity:   SeverityLow,
				CustomerID: d.CustomerID,
				DebtID:     d.ID,
				Expected:   decimal.Zero,
				Actual:     d.RemainingAmount,
			})
		}
	}
	for _, p := range s.Payments {
		if _, ok := debts[p.DebtID]; !ok {
			out = append(out, Discrepancy{
				Kind:       KindOrphanPayment,
				Severity:   SeverityHigh,
				CustomerID: p.CustomerID,
				DebtID:     p.DebtID,
				PaymentID:  p.ID,
				Expected:   decimal.Zero,
				Actual:     p.Amount,
			})
			continue
		}
		paid[p.CustomerID] = paid[p.CustomerID].Add(p.Amount)
	}

	customers := make([]string, 0, len(paid))
	for id := range paid {
		customers = append(customers, id)
	}
	sort.Strings(customers)
	for _, id := range customers {
		if paid[id].GreaterThan(owed[id]) {
			out = append(out, Discrepancy{
				Kind:       KindOverpayment,
				Severity:   SeverityHigh,
				CustomerID: id,
				Expected:   owed[id],
				Actual:     paid[id],
			})
		}
	}
	return out
}

// Package reports derives read-only views over a ledger snapshot. Nothing is
// cached: each call recomputes from the state it is given.
package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Summary holds ledger-wide totals.
type Summary struct {
	TotalDebt      decimal.Decimal `json:"totalDebt"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	DebtCount      int             `json:"debtCount"`
	PaymentCount   int             `json:"paymentCount"`
	CustomerCount  int             `json:"customerCount"`
	ActiveDebts    int             `json:"activeDebts"`
	PaidDebts      int             `json:"paidDebts"`
}

// Summarize totals the snapshot.
func Summarize(s ledger.State) Summary {
	out := Summary{
		TotalDebt:      decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
		DebtCount:      len(s.Debts),
		PaymentCount:   len(s.Payments),
	}
	customers := make(map[string]struct{})
	for _, d := range s.Debts {
		out.TotalDebt = out.TotalDebt.Add(d.Amount)
		out.TotalRemaining = out.TotalRemaining.Add(d.RemainingAmount)
		customers[d.CustomerID] = struct{}{}
		if d.Status == ledger.StatusPaid {
			out.PaidDebts++
		} else {
			out.ActiveDebts++
		}
	}
	for _, p := range s.Payments {
		out.TotalPaid = out.TotalPaid.Add(p.Amount)
	}
	out.CustomerCount = len(customers)
	return out
}

// CustomerDebt is one row of the high debt report.
type CustomerDebt struct {
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	DebtCount      int             `json:"debtCount"`
}

// HighDebtCustomers lists customers owing at least min, largest balance first.
func HighDebtCustomers(s ledger.State, min decimal.Decimal) []CustomerDebt {
	byID := make(map[string]*CustomerDebt)
	for _, d := range s.Debts {
		c, ok := byID[d.CustomerID]
		if !ok {
			c = &CustomerDebt{CustomerID: d.CustomerID, CustomerName: d.CustomerName, TotalRemaining: decimal.Zero}
			byID[d.CustomerID] = c
		}
		c.TotalRemaining = c.TotalRemaining.Add(d.RemainingAmount)
		c.DebtCount++
	}
	out := make([]CustomerDebt, 0, len(byID))
	for _, c := range byID {
		if c.TotalRemaining.GreaterThanOrEqual(min) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].TotalRemaining.Cmp(out[j].TotalRemaining); cmp != 0 {
			return cmp > 0
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// CustomerPayments is one row of the best paying customers report.
type CustomerPayments struct {
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	PaymentCount   int             `json:"paymentCount"`
	AveragePayment decimal.Decimal `json:"averagePayment"`
}

// BestPayingCustomers lists customers with at least minPayments payments, largest
// total paid first.
func BestPayingCustomers(s ledger.State, minPayments int) []CustomerPayments {
	byID := make(map[string]*CustomerPayments)
	for _, p := range s.Payments {
		c, ok := byID[p.CustomerID]
		if !ok {
			c = &CustomerPayments{CustomerID: p.CustomerID, CustomerName: p.CustomerName, TotalPaid: decimal.Zero}
			byID[p.CustomerID] = c
		}
		c.TotalPaid = c.TotalPaid.Add(p.Amount)
		c.PaymentCount++
	}
	out := make([]CustomerPayments, 0, len(byID))
	for _, c := range byID {
		if c.PaymentCount < minPayments {
			continue
		}
		c.AveragePayment = c.TotalPaid.Div(decimal.NewFromInt(int64(c.PaymentCount))).Round(2)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].TotalPaid.Cmp(out[j].TotalPaid); cmp != 0 {
			return cmp > 0
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

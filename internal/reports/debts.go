package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// OverdueDebts returns debts past due with a balance, oldest due date first.
func OverdueDebts(s ledger.State, now time.Time) []ledger.Debt {
	var out []ledger.Debt
	for _, d := range s.Debts {
		if d.IsOverdue(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UnpaidDebts returns debts with a balance in creation order.
func UnpaidDebts(s ledger.State) []ledger.Debt {
	var out []ledger.Debt
	for _, d := range s.Debts {
		if d.HasBalance() {
			out = append(out, d)
		}
	}
	return out
}

// PeriodTotal aggregates payments of one calendar period.
type PeriodTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// MonthlyPaymentReport groups payments by YYYY-MM.
func MonthlyPaymentReport(s ledger.State) []PeriodTotal {
	return groupPayments(s.Payments, "2006-01")
}

// YearlyPaymentReport groups payments by year.
func YearlyPaymentReport(s ledger.State) []PeriodTotal {
	return groupPayments(s.Payments, "2006")
}

func groupPayments(payments []ledger.Payment, layout string) []PeriodTotal {
	byPeriod := make(map[string]*PeriodTotal)
	for _, p := range payments {
		key := p.PaidAt.UTC().Format(layout)
		pt, ok := byPeriod[key]
		if !ok {
			pt = &PeriodTotal{Period: key, Total: decimal.Zero}
			byPeriod[key] = pt
		}
		pt.Total = pt.Total.Add(p.Amount)
		pt.Count++
	}
	out := make([]PeriodTotal, 0, len(byPeriod))
	for _, pt := range byPeriod {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

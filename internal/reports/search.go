package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

// Sort keys accepted by the search functions.
const (
	SortByDate     = "date"
	SortByAmount   = "amount"
	SortByCustomer = "customer"
	SortByCategory = "category"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// DebtFilter narrows SearchDebts. Zero fields match everything.
type DebtFilter struct {
	Query      string
	CustomerID string
	Category   string
	Status     ledger.Status
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortOrder  string
}

// PaymentFilter narrows SearchPayments. Zero fields match everything.
type PaymentFilter struct {
	Query      string
	CustomerID string
	DebtID     string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortOrder  string
}

// SearchDebts filters and orders debts. Equal sort keys fall back to id ascending
// so results are stable across calls.
func SearchDebts(s ledger.State, f DebtFilter) []ledger.Debt {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]ledger.Debt, 0)
	for _, d := range s.Debts {
		if query != "" && !containsAny(query, d.CustomerName, d.CustomerID, d.Description, d.Category, d.Notes, d.ReceiptNumber) {
			continue
		}
		if f.CustomerID != "" && d.CustomerID != f.CustomerID {
			continue
		}
		if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if !inAmountRange(d.Amount, f.MinAmount, f.MaxAmount) || !inTimeRange(d.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, d)
	}

	desc := f.SortOrder != SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch f.SortBy {
		case SortByAmount:
			cmp = a.Amount.Cmp(b.Amount)
		case SortByCustomer:
			cmp = strings.Compare(strings.ToLower(a.CustomerName), strings.ToLower(b.CustomerName))
		case SortByCategory:
			cmp = strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		return ordered(cmp, desc, a.ID, b.ID)
	})
	return out
}

// SearchPayments filters and orders payments. Sorting by category is not
// meaningful for payments and falls back to date.
func SearchPayments(s ledger.State, f PaymentFilter) []ledger.Payment {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]ledger.Payment, 0)
	for _, p := range s.Payments {
		if query != "" && !containsAny(query, p.CustomerName, p.CustomerID, p.Notes, p.ReceivedByName) {
			continue
		}
		if f.CustomerID != "" && p.CustomerID != f.CustomerID {
			continue
		}
		if f.DebtID != "" && p.DebtID != f.DebtID {
			continue
		}
		if !inAmountRange(p.Amount, f.MinAmount, f.MaxAmount) || !inTimeRange(p.PaidAt, f.From, f.To) {
			continue
		}
		out = append(out, p)
	}

	desc := f.SortOrder != SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch f.SortBy {
		case SortByAmount:
			cmp = a.Amount.Cmp(b.Amount)
		case SortByCustomer:
			cmp = strings.Compare(strings.ToLower(a.CustomerName), strings.ToLower(b.CustomerName))
		default:
			cmp = a.PaidAt.Compare(b.PaidAt)
		}
		return ordered(cmp, desc, a.ID, b.ID)
	})
	return out
}

func ordered(cmp int, desc bool, idA, idB string) bool {
	if cmp != 0 {
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return idA < idB
}

func containsAny(query string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func inAmountRange(v decimal.Decimal, min, max *decimal.Decimal) bool {
	if min != nil && v.LessThan(*min) {
		return false
	}
	if max != nil && v.GreaterThan(*max) {
		return false
	}
	return true
}

func inTimeRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

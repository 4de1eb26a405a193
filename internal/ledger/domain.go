package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates debt statuses. Paid holds exactly when nothing remains.
type Status string

const (
	StatusActive  Status = "active"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// Debt is credit extended to one customer.
type Debt struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	CustomerName    string          `json:"customerName"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedByName   string          `json:"createdByName,omitempty"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	ReceiptNumber   string          `json:"receiptNumber,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// PaidAmount is the part of the principal already settled.
func (d Debt) PaidAmount() decimal.Decimal {
	return d.Amount.Sub(d.RemainingAmount)
}

// HasBalance reports whether anything is still owed.
func (d Debt) HasBalance() bool {
	return d.RemainingAmount.IsPositive()
}

// IsOverdue reports whether the due date passed with a balance left.
func (d Debt) IsOverdue(now time.Time) bool {
	return d.DueDate != nil && d.DueDate.Before(now) && d.HasBalance()
}

// Payment reduces the balance of one debt. Customer fields are copied from the
// debt at recording time.
type Payment struct {
	ID             string          `json:"id"`
	DebtID         string          `json:"debtId"`
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	Amount         decimal.Decimal `json:"amount"`
	PaidAt         time.Time       `json:"paidAt"`
	ReceivedBy     string          `json:"receivedBy,omitempty"`
	ReceivedByName string          `json:"receivedByName,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// State is the composite document persisted under the ledger key. Debts and
// payments are written together so they cannot drift apart on a crash.
type State struct {
	Version    int64     `json:"version"`
	ReceiptSeq int64     `json:"receiptSeq"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Debts      []Debt    `json:"debts"`
	Payments   []Payment `json:"payments"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Debts = make([]Debt, len(s.Debts))
	for i, d := range s.Debts {
		if d.DueDate != nil {
			due := *d.DueDate
			d.DueDate = &due
		}
		out.Debts[i] = d
	}
	out.Payments = append([]Payment(nil), s.Payments...)
	if out.Payments == nil {
		out.Payments = []Payment{}
	}
	return out
}

// FindDebt returns the debt with id and its index.
func (s State) FindDebt(id string) (Debt, int, bool) {
	for i, d := range s.Debts {
		if d.ID == id {
			return d, i, true
		}
	}
	return Debt{}, -1, false
}

// DebtIndex maps debt ids to debts.
func (s State) DebtIndex() map[string]Debt {
	index := make(map[string]Debt, len(s.Debts))
	for _, d := range s.Debts {
		index[d.ID] = d
	}
	return index
}

// CustomerDebts returns the debts of one customer in creation order.
func (s State) CustomerDebts(customerID string) []Debt {
	var out []Debt
	for _, d := range s.Debts {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	return out
}

// CustomerPayments returns the payments of one customer ordered by payment time.
func (s State) CustomerPayments(customerID string) []Payment {
	var out []Payment
	for _, p := range s.Payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out
}

// CustomerBalance aggregates one customer's position. Nothing here is stored.
type CustomerBalance struct {
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	TotalDebt      decimal.Decimal `json:"totalDebt"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	DebtCount      int             `json:"debtCount"`
	PaymentCount   int             `json:"paymentCount"`
}

// Customers derives balances for every customer, ordered by customer id.
func (s State) Customers() []CustomerBalance {
	byID := make(map[string]*CustomerBalance)
	get := func(id, name string) *CustomerBalance {
		c, ok := byID[id]
		if !ok {
			c = &CustomerBalance{CustomerID: id, CustomerName: name}
			byID[id] = c
		}
		if c.CustomerName == "" {
			c.CustomerName = name
		}
		return c
	}
	for _, d := range s.Debts {
		c := get(d.CustomerID, d.CustomerName)
		c.TotalDebt = c.TotalDebt.Add(d.Amount)
		c.TotalRemaining = c.TotalRemaining.Add(d.RemainingAmount)
		c.DebtCount++
	}
	for _, p := range s.Payments {
		c := get(p.CustomerID, p.CustomerName)
		c.TotalPaid = c.TotalPaid.Add(p.Amount)
		c.PaymentCount++
	}
	out := make([]CustomerBalance, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// DebtInput carries the fields of a new debt.
type DebtInput struct {
	CustomerID      string           `json:"customerId" validate:"required,max=64"`
	CustomerName    string           `json:"customerName" validate:"required,max=200"`
	Amount          decimal.Decimal  `json:"amount"`
	RemainingAmount *decimal.Decimal `json:"remainingAmount,omitempty"`
	Description     string           `json:"description" validate:"max=500"`
	Category        string           `json:"category" validate:"max=64"`
	Status          Status           `json:"status,omitempty" validate:"omitempty,oneof=active partial paid"`
	DueDate         *time.Time       `json:"dueDate,omitempty"`
	Notes           string           `json:"notes,omitempty" validate:"max=1000"`
	CreatedBy       string           `json:"createdBy,omitempty" validate:"max=64"`
	CreatedByName   string           `json:"createdByName,omitempty" validate:"max=200"`
	// CreatedAt backdates the debt for imports and seeding. Times after now are
	// ignored.
	CreatedAt *time.Time `json:"-"`
}

// PaymentInput carries the fields of a new payment.
type PaymentInput struct {
	DebtID         string          `json:"debtId" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Notes          string          `json:"notes,omitempty" validate:"max=1000"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	ReceivedBy     string          `json:"receivedBy,omitempty" validate:"max=64"`
	ReceivedByName string          `json:"receivedByName,omitempty" validate:"max=200"`
}

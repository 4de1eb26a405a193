package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qarzbook/qarzbook/internal/shared"
	"github.com/qarzbook/qarzbook/internal/store"
)

// DefaultKey is the store key holding the composite ledger state.
const DefaultKey = "ledger:state"

// Rejection reasons reported to observers.
const (
	RejectDebtNotFound   = "debt_not_found"
	RejectInvalidAmount  = "invalid_amount"
	RejectExceedsBalance = "exceeds_balance"
	RejectPersist        = "persist_failed"
)

// Observer receives ledger events. Implementations must not block.
type Observer interface {
	DebtCreated(d Debt)
	PaymentRecorded(p Payment)
	PaymentRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) DebtCreated(Debt)        {}
func (nopObserver) PaymentRecorded(Payment) {}
func (nopObserver) PaymentRejected(string)  {}

// Options configures Open.
type Options struct {
	Key      string
	Logger   *slog.Logger
	Observer Observer
	Clock    func() time.Time
	NewID    func() string
}

// Ledger owns the debt and payment collections. Mutations are serialized and the
// whole state is written in one store call before memory is updated.
type Ledger struct {
	mu       sync.RWMutex
	store    store.Store
	key      string
	state    State
	logger   *slog.Logger
	observer Observer
	clock    func() time.Time
	newID    func() string
}

// Open loads the ledger from s. A missing key yields an empty ledger; corrupt data
// is returned as an error wrapping store.ErrCorrupt.
func Open(ctx context.Context, s store.Store, opts Options) (*Ledger, error) {
	l := &Ledger{
		store:    s,
		key:      opts.Key,
		logger:   opts.Logger,
		observer: opts.Observer,
		clock:    opts.Clock,
		newID:    opts.NewID,
	}
	if l.key == "" {
		l.key = DefaultKey
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.observer == nil {
		l.observer = nopObserver{}
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.newID == nil {
		l.newID = func() string { return uuid.NewString() }
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload replaces the in-memory state with what the store currently holds. A
// missing document is an empty ledger; any other read failure leaves the current
// state in place and is returned, since the next commit would overwrite the
// stored document with whatever is in memory.
func (l *Ledger) Reload(ctx context.Context) error {
	state, err := store.Load(ctx, l.store, l.key, State{})
	if errors.Is(err, store.ErrCorrupt) {
		return domainError(fmt.Errorf("ledger: load %s: %w", l.key, err), shared.MsgStoreCorrupt)
	}
	if err != nil {
		return fmt.Errorf("ledger: load %s: %w", l.key, err)
	}
	state = state.Clone()
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
	return nil
}

// AddDebt validates in and appends a new debt.
func (l *Ledger) AddDebt(ctx context.Context, in DebtInput) (Debt, error) {
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerID == "" {
		return Debt{}, errCustomerRequired
	}
	if !in.Amount.IsPositive() {
		return Debt{}, errInvalidAmount
	}
	remaining := in.Amount
	if in.RemainingAmount != nil {
		remaining = *in.RemainingAmount
	}
	if remaining.IsNegative() || remaining.GreaterThan(in.Amount) {
		return Debt{}, errRemainingRange
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	next.ReceiptSeq++
	now := l.clock()
	debt := Debt{
		ID:              l.newID(),
		CustomerID:      in.CustomerID,
		CustomerName:    in.CustomerName,
		Amount:          in.Amount,
		RemainingAmount: remaining,
		Category:        strings.TrimSpace(in.Category),
		Description:     strings.TrimSpace(in.Description),
		Status:          normalizeStatus(in.Status, remaining),
		CreatedAt:       now,
		CreatedBy:       in.CreatedBy,
		CreatedByName:   in.CreatedByName,
		DueDate:         copyTime(in.DueDate),
		ReceiptNumber:   ReceiptNumber(next.ReceiptSeq),
		Notes:           in.Notes,
	}
	if in.CreatedAt != nil && in.CreatedAt.Before(now) {
		debt.CreatedAt = *in.CreatedAt
	}
	if debt.CustomerName == "" {
		debt.CustomerName = debt.CustomerID
	}
	next.Debts = append(next.Debts, debt)
	if err := l.commit(ctx, next); err != nil {
		return Debt{}, err
	}
	l.observer.DebtCreated(debt)
	l.logger.Info("debt created",
		slog.String("debt_id", debt.ID),
		slog.String("customer_id", debt.CustomerID),
		slog.String("amount", debt.Amount.String()))
	return debt, nil
}

// AddPayment records a payment against an existing debt. On any error the ledger
// is left untouched.
func (l *Ledger) AddPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	if !in.Amount.IsPositive() {
		l.observer.PaymentRejected(RejectInvalidAmount)
		return Payment{}, errInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	debt, idx, ok := l.state.FindDebt(strings.TrimSpace(in.DebtID))
	if !ok {
		l.observer.PaymentRejected(RejectDebtNotFound)
		return Payment{}, errDebtNotFound
	}
	if in.Amount.GreaterThan(debt.RemainingAmount) {
		l.observer.PaymentRejected(RejectExceedsBalance)
		return Payment{}, domainError(ErrPaymentExceedsBalance, shared.MsgPaymentExceeds,
			in.Amount.String(), debt.RemainingAmount.String())
	}

	now := l.clock()
	paidAt := now
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}
	payment := Payment{
		ID:             l.newID(),
		DebtID:         debt.ID,
		CustomerID:     debt.CustomerID,
		CustomerName:   debt.CustomerName,
		Amount:         in.Amount,
		PaidAt:         paidAt,
		ReceivedBy:     in.ReceivedBy,
		ReceivedByName: in.ReceivedByName,
		Notes:          in.Notes,
	}

	next := l.state.Clone()
	updated := next.Debts[idx]
	updated.RemainingAmount = updated.RemainingAmount.Sub(in.Amount)
	if updated.RemainingAmount.IsZero() {
		updated.Status = StatusPaid
	}
	next.Debts[idx] = updated
	next.Payments = append(next.Payments, payment)
	if err := l.commit(ctx, next); err != nil {
		l.observer.PaymentRejected(RejectPersist)
		return Payment{}, err
	}
	l.observer.PaymentRecorded(payment)
	l.logger.Info("payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("debt_id", payment.DebtID),
		slog.String("amount", payment.Amount.String()),
		slog.String("remaining", updated.RemainingAmount.String()))
	return payment, nil
}

// commit persists next and swaps it in. Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, next State) error {
	next.Version = l.state.Version + 1
	next.UpdatedAt = l.clock()
	if err := l.store.Set(ctx, l.key, next); err != nil {
		l.logger.Error("ledger persist failed", slog.String("key", l.key), slog.Any("error", err))
		return fmt.Errorf("ledger: persist: %w", err)
	}
	l.state = next
	return nil
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Version is the version of the committed state.
func (l *Ledger) Version() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Version
}

// Debt returns one debt by id.
func (l *Ledger) Debt(id string) (Debt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, _, ok := l.state.FindDebt(id)
	if !ok {
		return Debt{}, errDebtNotFound
	}
	if d.DueDate != nil {
		due := *d.DueDate
		d.DueDate = &due
	}
	return d, nil
}

// Payment returns one payment by id.
func (l *Ledger) Payment(id string) (Payment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.state.Payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, errPaymentNotFound
}

// Customer returns derived totals for one customer.
func (l *Ledger) Customer(id string) (CustomerBalance, error) {
	snapshot := l.Snapshot()
	for _, c := range snapshot.Customers() {
		if c.CustomerID == id {
			return c, nil
		}
	}
	return CustomerBalance{}, errCustomerNotFound
}

// Now returns the ledger clock reading.
func (l *Ledger) Now() time.Time {
	return l.clock()
}

// ReceiptNumber formats a receipt sequence value.
func ReceiptNumber(seq int64) string {
	return fmt.Sprintf("QRZ-%06d", seq)
}

func normalizeStatus(requested Status, remaining decimal.Decimal) Status {
	switch {
	case remaining.IsZero():
		return StatusPaid
	case requested == StatusPartial:
		return StatusPartial
	default:
		return StatusActive
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

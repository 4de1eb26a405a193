package ledger

import (
	"errors"

	"github.com/qarzbook/qarzbook/internal/shared"
)

var (
	ErrDebtNotFound          = errors.New("ledger: debt not found")
	ErrPaymentNotFound       = errors.New("ledger: payment not found")
	ErrCustomerNotFound      = errors.New("ledger: customer not found")
	ErrCustomerRequired      = errors.New("ledger: customer required")
	ErrInvalidAmount         = errors.New("ledger: amount must be positive")
	ErrRemainingOutOfRange   = errors.New("ledger: remaining amount out of range")
	ErrPaymentExceedsBalance = errors.New("ledger: payment exceeds remaining balance")
	ErrNotEmpty              = errors.New("ledger: ledger already holds data")
)

// Error attaches a user-facing message to one of the sentinel errors above.
type Error struct {
	Err  error
	Key  string
	Args []any
}

func (e *Error) Error() string      { return e.Err.Error() }
func (e *Error) Unwrap() error      { return e.Err }
func (e *Error) MessageKey() string { return e.Key }
func (e *Error) MessageArgs() []any { return e.Args }

func domainError(err error, key string, args ...any) error {
	return &Error{Err: err, Key: key, Args: args}
}

// IsValidation reports whether err rejects caller input rather than signalling a
// missing record or an internal failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrCustomerRequired) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrRemainingOutOfRange) ||
		errors.Is(err, ErrPaymentExceedsBalance)
}

var (
	errDebtNotFound     = domainError(ErrDebtNotFound, shared.MsgDebtNotFound)
	errPaymentNotFound  = domainError(ErrPaymentNotFound, shared.MsgPaymentNotFound)
	errCustomerNotFound = domainError(ErrCustomerNotFound, shared.MsgCustomerNotFound)
	errCustomerRequired = domainError(ErrCustomerRequired, shared.MsgCustomerRequired)
	errInvalidAmount    = domainError(ErrInvalidAmount, shared.MsgInvalidAmount)
	errRemainingRange   = domainError(ErrRemainingOutOfRange, shared.MsgRemainingOutOfRange)
)

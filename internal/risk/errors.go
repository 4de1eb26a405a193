package risk

import (
	"errors"

	"github.com/qarzbook/qarzbook/internal/ledger"
	"github.com/qarzbook/qarzbook/internal/shared"
)

var (
	// ErrCustomerNotFound matches ledger.ErrCustomerNotFound.
	ErrCustomerNotFound = ledger.ErrCustomerNotFound
	// ErrInsufficientHistory means fewer than two payments exist.
	ErrInsufficientHistory = errors.New("risk: insufficient payment history")

	errCustomerNotFound    = &ledger.Error{Err: ErrCustomerNotFound, Key: shared.MsgCustomerNotFound}
	errInsufficientHistory = &ledger.Error{Err: ErrInsufficientHistory, Key: shared.MsgInsufficientHistory}
)

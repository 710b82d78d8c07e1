package calculator

import "errors"

var (
	// ErrInvalidExpense is returned for an expense with a non-positive amount,
	// no participants or a participant listed twice.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrInvalidPayment is returned for a settlement payment with a
	// non-positive amount or identical sender and receiver.
	ErrInvalidPayment = errors.New("invalid settlement payment")

	// ErrUnresolvedMember is returned when a record references a member id
	// that is not in the group roster.
	ErrUnresolvedMember = errors.New("unresolved member reference")

	// ErrUnbalancedLedger means the rounded balances do not sum to zero within
	// tolerance. It indicates a bug, not bad input.
	ErrUnbalancedLedger = errors.New("ledger does not balance")
)

package models

import "github.com/shopspring/decimal"

// SettlementPayment is a payment between group members to clear debts.
// It records a transfer that already happened outside the system.
type SettlementPayment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// GroupID is the group this payment belongs to.
	GroupID string

	// From is the member who paid (debtor settling up).
	From string

	// To is the member who received the payment (creditor being paid).
	To string

	// Amount is the payment amount. Always positive.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64
}

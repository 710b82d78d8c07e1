package models

import "github.com/shopspring/decimal"

// Expense is an amount paid by one member on behalf of others, split equally
// among the participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Title is a short label (e.g., "Groceries").
	Title string

	// Description is optional free text.
	Description string

	// Amount is the total paid. Always positive.
	Amount decimal.Decimal

	// PaidBy is the member id of the payer. The payer does not have to be a
	// participant.
	PaidBy string

	// SplitBetween lists the participating member ids, without duplicates.
	SplitBetween []string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

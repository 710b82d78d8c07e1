package models

// Member is a participant of a group.
// IDs are opaque and supplied by the caller; the ledger does not own user
// accounts.
type Member struct {
	// ID is the caller-assigned identifier, unique within a group.
	ID string

	// Name is the display name shown in balances and settlements.
	Name string
}

// Group is a roster of members that share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Trip to Goa").
	Name string

	// Description is optional free text.
	Description string

	// Members is the roster in the order members joined.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

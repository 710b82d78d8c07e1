package models

// Snapshot is every record of one group as of a single point in time.
type Snapshot struct {
	Group    *Group
	Expenses []*Expense
	Payments []*SettlementPayment

	// Version changes whenever a member, expense or payment is added.
	Version string
}

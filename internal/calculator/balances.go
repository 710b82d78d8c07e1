// Package calculator holds the balance and settlement engine. Everything in
// here is a pure function of its inputs: callers load a consistent snapshot of
// a group's records and hand it over, the engine never touches storage.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits balances are rounded to.
const Precision int32 = 2

// Member is one entry of a group roster.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Expense is the part of an expense record the engine needs.
// The amount is divided equally among ParticipantIDs. The payer does not have
// to be a participant.
type Expense struct {
	ID             string
	Amount         decimal.Decimal
	PayerID        string
	ParticipantIDs []string
}

// Payment is a settlement payment already made outside the system.
type Payment struct {
	ID     string
	FromID string // debtor settling up
	ToID   string // creditor being paid
	Amount decimal.Decimal
}

// MemberBalance is the derived position of one member.
type MemberBalance struct {
	Member Member `json:"member"`

	// NetBalance is positive when the member is owed money and negative when
	// the member owes money.
	NetBalance decimal.Decimal `json:"net_balance"`

	// TotalCostBorne is the member's gross share of all expenses, before any
	// settlement payment is applied.
	TotalCostBorne decimal.Decimal `json:"total_cost_borne"`
}

// posting is one signed movement against a member's running totals.
type posting struct {
	memberID string
	net      decimal.Decimal
	cost     decimal.Decimal
}

type totals struct {
	net  decimal.Decimal
	cost decimal.Decimal
}

// ValidateExpense checks the construction-time invariants of an expense.
func ValidateExpense(e Expense) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, e.Amount)
	}
	if e.PayerID == "" {
		return fmt.Errorf("%w: payer is required", ErrInvalidExpense)
	}
	if len(e.ParticipantIDs) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidExpense)
	}
	seen := make(map[string]bool, len(e.ParticipantIDs))
	for _, id := range e.ParticipantIDs {
		if id == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidExpense)
		}
		if seen[id] {
			return fmt.Errorf("%w: participant %q listed twice", ErrInvalidExpense, id)
		}
		seen[id] = true
	}
	return nil
}

// ValidatePayment checks the construction-time invariants of a payment.
func ValidatePayment(p Payment) error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidPayment, p.Amount)
	}
	if p.FromID == "" || p.ToID == "" {
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalidPayment)
	}
	if p.FromID == p.ToID {
		return fmt.Errorf("%w: sender and receiver are the same member", ErrInvalidPayment)
	}
	return nil
}

// CheckMembers returns ErrUnresolvedMember for the first id not in roster.
func CheckMembers(roster []Member, ids ...string) error {
	known := make(map[string]bool, len(roster))
	for _, m := range roster {
		known[m.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: %q", ErrUnresolvedMember, id)
		}
	}
	return nil
}

// Aggregate folds a group's expenses and settlement payments into per-member
// balances.
//
// Only members that appear in at least one record are returned, in roster
// order. Every id referenced by a record must be in the roster; the first
// invalid or unresolved record aborts the whole computation.
func Aggregate(roster []Member, expenses []Expense, payments []Payment) ([]MemberBalance, error) {
	stream, err := postings(roster, expenses, payments)
	if err != nil {
		return nil, err
	}

	byMember := fold(stream)

	balances := make([]MemberBalance, 0, len(byMember))
	seen := make(map[string]bool, len(roster))
	for _, m := range roster {
		t, ok := byMember[m.ID]
		if !ok || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		balances = append(balances, MemberBalance{
			Member:         m,
			NetBalance:     t.net.Round(Precision),
			TotalCostBorne: t.cost.Round(Precision),
		})
	}

	if err := checkZeroSum(balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// postings validates every record and flattens them into one stream.
func postings(roster []Member, expenses []Expense, payments []Payment) ([]posting, error) {
	var stream []posting

	for _, e := range expenses {
		if err := ValidateExpense(e); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if err := CheckMembers(roster, e.PayerID); err != nil {
			return nil, fmt.Errorf("expense %s payer: %w", e.ID, err)
		}
		if err := CheckMembers(roster, e.ParticipantIDs...); err != nil {
			return nil, fmt.Errorf("expense %s participant: %w", e.ID, err)
		}

		share := e.Amount.Div(decimal.NewFromInt(int64(len(e.ParticipantIDs))))

		// Paying and owing are independent: a payer who is also a participant
		// gets both postings.
		stream = append(stream, posting{memberID: e.PayerID, net: e.Amount})
		for _, id := range e.ParticipantIDs {
			stream = append(stream, posting{memberID: id, net: share.Neg(), cost: share})
		}
	}

	for _, p := range payments {
		if err := ValidatePayment(p); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		if err := CheckMembers(roster, p.FromID, p.ToID); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		stream = append(stream,
			posting{memberID: p.FromID, net: p.Amount},
			posting{memberID: p.ToID, net: p.Amount.Neg()},
		)
	}

	return stream, nil
}

func fold(stream []posting) map[string]totals {
	byMember := make(map[string]totals)
	for _, p := range stream {
		t := byMember[p.memberID]
		byMember[p.memberID] = totals{
			net:  t.net.Add(p.net),
			cost: t.cost.Add(p.cost),
		}
	}
	return byMember
}

// checkZeroSum enforces the double-entry invariant: rounded balances sum to
// zero within one minor unit per member.
func checkZeroSum(balances []MemberBalance) error {
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.NetBalance)
	}
	tolerance := decimal.New(1, -Precision).Mul(decimal.NewFromInt(int64(len(balances))))
	if sum.Abs().GreaterThan(tolerance) {
		return fmt.Errorf("%w: sum is %s over %d members", ErrUnbalancedLedger, sum, len(balances))
	}
	return nil
}

package calculator

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	From   Member          `json:"from"`
	To     Member          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Residual is an amount left on a member after the settlement walk stops.
// Positive means the member is still owed, negative means they still owe.
// Residuals come from two-decimal rounding and are expected to be tiny.
type Residual struct {
	Member Member          `json:"member"`
	Amount decimal.Decimal `json:"amount"`
}

// Plan is the output of PlanSettlements.
type Plan struct {
	Settlements []Settlement
	Residuals   []Residual
}

type position struct {
	member    Member
	remaining decimal.Decimal // always positive while open
}

// PlanSettlements matches the largest creditor with the largest debtor until
// one side runs out. It does not search for the global minimum number of
// transfers; the greedy walk emits at most creditors+debtors-1 of them.
//
// Members with a zero balance never appear in the output. Sorting is stable so
// equal balances keep their input order.
func PlanSettlements(balances []MemberBalance) Plan {
	var creditors, debtors []position
	for _, b := range balances {
		switch b.NetBalance.Sign() {
		case 1:
			creditors = append(creditors, position{member: b.Member, remaining: b.NetBalance})
		case -1:
			debtors = append(debtors, position{member: b.Member, remaining: b.NetBalance.Neg()})
		}
	}

	largestFirst := func(a, b position) int { return b.remaining.Cmp(a.remaining) }
	slices.SortStableFunc(creditors, largestFirst)
	slices.SortStableFunc(debtors, largestFirst)

	var plan Plan
	i, j := 0, 0
	maxSteps := len(creditors) + len(debtors)
	for step := 0; step < maxSteps && i < len(creditors) && j < len(debtors); step++ {
		creditor, debtor := &creditors[i], &debtors[j]

		amount := decimal.Min(creditor.remaining, debtor.remaining)
		if amount.IsPositive() {
			plan.Settlements = append(plan.Settlements, Settlement{
				From:   debtor.member,
				To:     creditor.member,
				Amount: amount,
			})
		}

		creditor.remaining = creditor.remaining.Sub(amount)
		debtor.remaining = debtor.remaining.Sub(amount)

		if !creditor.remaining.IsPositive() {
			i++
		}
		if !debtor.remaining.IsPositive() {
			j++
		}
	}

	for ; i < len(creditors); i++ {
		if creditors[i].remaining.IsPositive() {
			plan.Residuals = append(plan.Residuals, Residual{Member: creditors[i].member, Amount: creditors[i].remaining})
		}
	}
	for ; j < len(debtors); j++ {
		if debtors[j].remaining.IsPositive() {
			plan.Residuals = append(plan.Residuals, Residual{Member: debtors[j].member, Amount: debtors[j].remaining.Neg()})
		}
	}

	return plan
}

package calculator

import "github.com/shopspring/decimal"

// Report is everything the presentation layer needs about a group's debts.
type Report struct {
	NetBalances []MemberBalance `json:"net_balances"`
	Settlements []Settlement    `json:"settlements"`
	Residuals   []Residual      `json:"residuals,omitempty"`

	// TotalSpent is the sum of all expense amounts in the group.
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// BuildReport runs Aggregate and then PlanSettlements on its output.
func BuildReport(roster []Member, expenses []Expense, payments []Payment) (*Report, error) {
	balances, err := Aggregate(roster, expenses, payments)
	if err != nil {
		return nil, err
	}

	plan := PlanSettlements(balances)

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	return &Report{
		NetBalances: balances,
		Settlements: plan.Settlements,
		Residuals:   plan.Residuals,
		TotalSpent:  total,
	}, nil
}

// HasResidual reports whether the settlement walk left anything unmatched.
func (r *Report) HasResidual() bool {
	return len(r.Residuals) > 0
}

// Package api defines the request and response messages of the splitledger.v1
// services. Messages are plain structs encoded as JSON; validate tags are
// checked by the service layer.
package api

import "github.com/shopspring/decimal"

// Member is one entry of a group roster.
type Member struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Group is a roster of members that share expenses.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Members     []Member `json:"members"`
	CreatedAt   int64    `json:"created_at"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Members     []Member `json:"members" validate:"required,min=1,dive"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct {
	// MemberID restricts the result to groups the member belongs to.
	MemberID string `json:"member_id,omitempty"`
}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id" validate:"required"`
	Members []Member `json:"members" validate:"required,min=1,dive"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type DeleteGroupResponse struct{}

// Expense is an amount paid by one member and split equally among others.
type Expense struct {
	ID           string          `json:"id"`
	GroupID      string          `json:"group_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	PaidBy       string          `json:"paid_by"`
	SplitBetween []string        `json:"split_between"`
	CreatedAt    int64           `json:"created_at"`
}

type AddExpenseRequest struct {
	GroupID      string          `json:"group_id" validate:"required"`
	Title        string          `json:"title" validate:"required"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	PaidBy       string          `json:"paid_by" validate:"required"`
	SplitBetween []string        `json:"split_between" validate:"required,min=1,dive,required"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

// Payment is a recorded settlement payment.
type Payment struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"group_id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt int64           `json:"created_at"`
}

type RecordPaymentRequest struct {
	GroupID string          `json:"group_id" validate:"required"`
	From    string          `json:"from" validate:"required"`
	To      string          `json:"to" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

type RecordPaymentResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type GetBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// MemberBalance is one member's position in a group.
type MemberBalance struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`

	// NetBalance is positive when the member is owed money.
	NetBalance decimal.Decimal `json:"net_balance"`

	// TotalOwes is the member's gross share of all expenses.
	TotalOwes decimal.Decimal `json:"total_owes"`
}

// Settlement is a suggested transfer that reduces outstanding debt.
type Settlement struct {
	From     string          `json:"from"`
	FromName string          `json:"from_name"`
	To       string          `json:"to"`
	ToName   string          `json:"to_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// Residual is an amount left unmatched by rounding.
type Residual struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type GetBalancesResponse struct {
	NetBalances []*MemberBalance `json:"net_balances"`
	Settlements []*Settlement    `json:"settlements"`
	Residuals   []*Residual      `json:"residuals,omitempty"`
	TotalSpent  decimal.Decimal  `json:"total_spent"`

	// Payments is the group's settlement history, newest first.
	Payments []*Payment `json:"payments"`
}

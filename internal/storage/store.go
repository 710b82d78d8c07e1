// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrNotFound is returned (wrapped) when a group does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group with its initial roster.
	// The group.ID and group.CreatedAt fields are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its roster.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns all groups, or only those memberID belongs to when
	// memberID is not empty.
	ListGroups(ctx context.Context, memberID string) ([]*models.Group, error)

	// AddGroupMembers appends members to the roster. Members already on the
	// roster are left untouched.
	AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error

	// DeleteGroup removes a group together with its expenses and payments.
	DeleteGroup(ctx context.Context, groupID string) error

	// CreateExpense persists a new expense.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// CreatePayment persists a new settlement payment.
	CreatePayment(ctx context.Context, payment *models.SettlementPayment) error

	// ListPaymentsByGroup returns a group's settlement payments, newest first.
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.SettlementPayment, error)

	// GroupPayments returns the group's version token together with its
	// settlement payments, newest first, read in one transaction. The token
	// changes whenever a member, expense or payment is added to the group.
	GroupPayments(ctx context.Context, groupID string) (string, []*models.SettlementPayment, error)

	// GroupSnapshot reads the group, its roster, expenses and payments as of
	// one point in time, oldest records first.
	GroupSnapshot(ctx context.Context, groupID string) (*models.Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}

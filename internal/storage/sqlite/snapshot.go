package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// GroupPayments reads the version token and the payment history in one
// transaction, so the history always matches the version.
func (s *SQLiteStore) GroupPayments(ctx context.Context, groupID string) (string, []*models.SettlementPayment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := groupVersion(ctx, tx, groupID)
	if err != nil {
		return "", nil, err
	}

	payments, err := loadPayments(ctx, tx, groupID, true)
	if err != nil {
		return "", nil, err
	}

	return version, payments, nil
}

func groupVersion(ctx context.Context, q querier, groupID string) (string, error) {
	var members, expenses, payments int
	var latest int64
	err := q.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM group_members WHERE group_id = g.id),
		   (SELECT COUNT(*) FROM expenses WHERE group_id = g.id),
		   (SELECT COUNT(*) FROM payments WHERE group_id = g.id),
		   MAX(
		     COALESCE((SELECT MAX(created_at) FROM expenses WHERE group_id = g.id), 0),
		     COALESCE((SELECT MAX(created_at) FROM payments WHERE group_id = g.id), 0)
		   )
		 FROM groups g WHERE g.id = ?`,
		groupID,
	).Scan(&members, &expenses, &payments, &latest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", groupNotFound(groupID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read group version: %w", err)
	}

	return fmt.Sprintf("m%d.e%d.p%d.t%d", members, expenses, payments, latest), nil
}

// GroupSnapshot reads a group and its full history inside one transaction so
// expenses and payments come from the same point in time. The transaction is
// never committed; it only holds the read snapshot.
func (s *SQLiteStore) GroupSnapshot(ctx context.Context, groupID string) (*models.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	expenses, err := loadExpenses(ctx, tx, groupID, false)
	if err != nil {
		return nil, err
	}

	payments, err := loadPayments(ctx, tx, groupID, false)
	if err != nil {
		return nil, err
	}

	version, err := groupVersion(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Group:    group,
		Expenses: expenses,
		Payments: payments,
		Version:  version,
	}, nil
}

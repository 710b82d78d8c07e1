package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

// CreateExpense persists a new expense and its participants.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, title, description, amount, paid_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Title, expense.Description,
		expense.Amount.String(), expense.PaidBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, memberID := range expense.SplitBetween {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, member_id, position) VALUES (?, ?, ?)",
			expense.ID, memberID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpensesByGroup retrieves all expenses for a group, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return loadExpenses(ctx, s.db, groupID, true)
}

func loadExpenses(ctx context.Context, q querier, groupID string, newestFirst bool) ([]*models.Expense, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, group_id, title, description, amount, paid_by, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at `+order+`, rowid `+order,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Title, &expense.Description,
			&expense.Amount, &expense.PaidBy, &expense.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(expenses) == 0 {
		return expenses, nil
	}

	// One query for every participant of the group instead of one per expense
	partRows, err := q.QueryContext(ctx,
		`SELECT ep.expense_id, ep.member_id FROM expense_participants ep
		 JOIN expenses e ON e.id = ep.expense_id
		 WHERE e.group_id = ? ORDER BY ep.expense_id, ep.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer partRows.Close()

	for partRows.Next() {
		var expenseID, memberID string
		if err := partRows.Scan(&expenseID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if expense, ok := byID[expenseID]; ok {
			expense.SplitBetween = append(expense.SplitBetween, memberID)
		}
	}
	if err := partRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return expenses, nil
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

// CreatePayment persists a new settlement payment to the database.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.SettlementPayment) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, group_id, from_member, to_member, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.From, payment.To,
		payment.Amount.String(), payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// ListPaymentsByGroup retrieves all settlement payments for a group, newest first.
func (s *SQLiteStore) ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.SettlementPayment, error) {
	return loadPayments(ctx, s.db, groupID, true)
}

func loadPayments(ctx context.Context, q querier, groupID string, newestFirst bool) ([]*models.SettlementPayment, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, group_id, from_member, to_member, amount, created_at
		 FROM payments WHERE group_id = ? ORDER BY created_at `+order+`, rowid `+order,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by group: %w", err)
	}
	defer rows.Close()

	var payments []*models.SettlementPayment
	for rows.Next() {
		payment := &models.SettlementPayment{}
		if err := rows.Scan(&payment.ID, &payment.GroupID, &payment.From, &payment.To,
			&payment.Amount, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}

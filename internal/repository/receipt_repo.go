package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubpulse/backend/internal/models"
)

type ReceiptRepo struct {
	pool *pgxpool.Pool
}

func NewReceiptRepo(pool *pgxpool.Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

// CreateTx allocates the next sequential receipt number and inserts the
// receipt, both inside the caller's transaction. The counter row is locked by
// the UPDATE, so numbers never collide or skip on rollback.
func (r *ReceiptRepo) CreateTx(ctx context.Context, tx pgx.Tx, rcpt *models.Receipt) error {
	if err := tx.QueryRow(ctx, `
		UPDATE receipt_counters SET last_number = last_number + 1 RETURNING last_number
	`).Scan(&rcpt.Number); err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO receipts (id, number, member_id, kind, amount, paid, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, rcpt.ID, rcpt.Number, rcpt.MemberID, rcpt.Kind, rcpt.Amount, rcpt.Paid, rcpt.Description, rcpt.Metadata).Scan(&rcpt.CreatedAt)
}

func (r *ReceiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var rc models.Receipt
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, member_id, kind, amount, paid, description, metadata, created_at
		FROM receipts WHERE id = $1
	`, id).Scan(&rc.ID, &rc.Number, &rc.MemberID, &rc.Kind, &rc.Amount, &rc.Paid, &rc.Description, &rc.Metadata, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *ReceiptRepo) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]*models.Receipt, error) {
	return r.list(ctx, `
		SELECT id, number, member_id, kind, amount, paid, description, metadata, created_at
		FROM receipts WHERE member_id = $1 ORDER BY created_at DESC
	`, memberID)
}

// ListByKind serves the downstream commission engine, which reads receipts
// and filters loyalty kinds out of revenue.
func (r *ReceiptRepo) ListByKind(ctx context.Context, kind string) ([]*models.Receipt, error) {
	return r.list(ctx, `
		SELECT id, number, member_id, kind, amount, paid, description, metadata, created_at
		FROM receipts WHERE kind = $1 ORDER BY created_at DESC
	`, kind)
}

func (r *ReceiptRepo) list(ctx context.Context, query string, args ...any) ([]*models.Receipt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Receipt
	for rows.Next() {
		var rc models.Receipt
		if err := rows.Scan(&rc.ID, &rc.Number, &rc.MemberID, &rc.Kind, &rc.Amount, &rc.Paid, &rc.Description, &rc.Metadata, &rc.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rc)
	}
	return list, rows.Err()
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubpulse/backend/internal/models"
)

type OfferRepo struct {
	pool *pgxpool.Pool
}

func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

const offerColumns = `id, name, price, duration_days,
	pool_sessions, paddle_sessions, nutrition_sessions, physio_sessions, body_scans, guest_invitations,
	created_at, updated_at`

func scanOffer(row pgx.Row) (*models.Offer, error) {
	var o models.Offer
	err := row.Scan(&o.ID, &o.Name, &o.Price, &o.DurationDays,
		&o.PoolSessions, &o.PaddleSessions, &o.NutritionSessions, &o.PhysioSessions, &o.BodyScans, &o.GuestInvitations,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return scanOffer(r.pool.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE id = $1
	`, id))
}

// GetByIDTx reads an offer inside the caller's transaction.
func (r *OfferRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Offer, error) {
	return scanOffer(tx.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE id = $1
	`, id))
}

func (r *OfferRepo) List(ctx context.Context) ([]*models.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM offers ORDER BY price DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

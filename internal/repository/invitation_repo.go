package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubpulse/backend/internal/models"
)

type InvitationRepo struct {
	pool *pgxpool.Pool
}

func NewInvitationRepo(pool *pgxpool.Pool) *InvitationRepo {
	return &InvitationRepo{pool: pool}
}

func (r *InvitationRepo) Create(ctx context.Context, inv *models.Invitation) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO invitations (id, inviter_id, guest_name, guest_phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, inv.ID, inv.InviterID, inv.GuestName, inv.GuestPhone).Scan(&inv.CreatedAt)
}

// FindByGuestPhone returns the earliest invitation for the phone, or nil when
// nobody invited this guest.
func (r *InvitationRepo) FindByGuestPhone(ctx context.Context, phone string) (*models.Invitation, error) {
	var inv models.Invitation
	err := r.pool.QueryRow(ctx, `
		SELECT id, inviter_id, guest_name, guest_phone, created_at
		FROM invitations WHERE guest_phone = $1 ORDER BY created_at ASC LIMIT 1
	`, phone).Scan(&inv.ID, &inv.InviterID, &inv.GuestName, &inv.GuestPhone, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepo) ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]*models.Invitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, inviter_id, guest_name, guest_phone, created_at
		FROM invitations WHERE inviter_id = $1 ORDER BY created_at DESC
	`, inviterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.InviterID, &inv.GuestName, &inv.GuestPhone, &inv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &inv)
	}
	return list, rows.Err()
}

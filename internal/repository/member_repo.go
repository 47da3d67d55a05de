package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubpulse/backend/internal/models"
)

type MemberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `id, name, phone, email, birthday, store_credit,
	pool_sessions, paddle_sessions, nutrition_sessions, physio_sessions, body_scans, guest_invitations,
	offer_id, offer_name, offer_price, membership_start, membership_expiry, created_at, updated_at`

func scanMember(row pgx.Row) (*models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.Name, &m.Phone, &m.Email, &m.Birthday, &m.StoreCredit,
		&m.PoolSessions, &m.PaddleSessions, &m.NutritionSessions, &m.PhysioSessions, &m.BodyScans, &m.GuestInvitations,
		&m.OfferID, &m.OfferName, &m.OfferPrice, &m.MembershipStart, &m.MembershipExpiry, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepo) Create(ctx context.Context, m *models.Member) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO members (id, name, phone, email, birthday, store_credit,
			pool_sessions, paddle_sessions, nutrition_sessions, physio_sessions, body_scans, guest_invitations,
			offer_id, offer_name, offer_price, membership_start, membership_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`, m.ID, m.Name, m.Phone, m.Email, m.Birthday, m.StoreCredit,
		m.PoolSessions, m.PaddleSessions, m.NutritionSessions, m.PhysioSessions, m.BodyScans, m.GuestInvitations,
		m.OfferID, m.OfferName, m.OfferPrice, m.MembershipStart, m.MembershipExpiry).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM members WHERE id = $1
	`, id))
}

func (r *MemberRepo) GetByPhone(ctx context.Context, phone string) (*models.Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM members WHERE phone = $1
	`, phone))
}

func (r *MemberRepo) List(ctx context.Context) ([]*models.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+` FROM members ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Update writes the plan snapshot and entitlement counters outside a
// transaction, for plan changes driven by the sales flow.
func (r *MemberRepo) Update(ctx context.Context, m *models.Member) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE members SET offer_id = $2, offer_name = $3, offer_price = $4,
			membership_start = $5, membership_expiry = $6,
			pool_sessions = $7, paddle_sessions = $8, nutrition_sessions = $9, physio_sessions = $10,
			body_scans = $11, guest_invitations = $12, updated_at = now()
		WHERE id = $1
	`, m.ID, m.OfferID, m.OfferName, m.OfferPrice,
		m.MembershipStart, m.MembershipExpiry,
		m.PoolSessions, m.PaddleSessions, m.NutritionSessions, m.PhysioSessions,
		m.BodyScans, m.GuestInvitations)
	return err
}

// GetForUpdateTx locks the member row for update. Call within a transaction.
func (r *MemberRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Member, error) {
	return scanMember(tx.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE
	`, id))
}

// AddStoreCreditTx adds standing monetary credit to the member.
func (r *MemberRepo) AddStoreCreditTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error {
	_, err := tx.Exec(ctx, `
		UPDATE members SET store_credit = store_credit + $1, updated_at = now() WHERE id = $2
	`, amount, id)
	return err
}

// sessionColumn maps a counter to its member column. The whitelist keeps
// arbitrary strings out of SQL identifiers.
func sessionColumn(c models.SessionCounter) (string, error) {
	switch c {
	case models.SessionPool:
		return "pool_sessions", nil
	case models.SessionPaddle:
		return "paddle_sessions", nil
	case models.SessionNutrition:
		return "nutrition_sessions", nil
	case models.SessionPhysio:
		return "physio_sessions", nil
	}
	return "", fmt.Errorf("unknown session counter %q", c)
}

// AddSessionsTx increments one bonus session counter.
func (r *MemberRepo) AddSessionsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, counter models.SessionCounter, n int) error {
	col, err := sessionColumn(counter)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		UPDATE members SET %s = %s + $1, updated_at = now() WHERE id = $2
	`, col, col), n, id)
	return err
}

// UpdateMembershipTx writes the plan snapshot and entitlement counters after
// a loyalty renewal.
func (r *MemberRepo) UpdateMembershipTx(ctx context.Context, tx pgx.Tx, m *models.Member) error {
	_, err := tx.Exec(ctx, `
		UPDATE members SET offer_id = $2, offer_name = $3, offer_price = $4,
			membership_start = $5, membership_expiry = $6,
			pool_sessions = $7, paddle_sessions = $8, nutrition_sessions = $9, physio_sessions = $10,
			body_scans = $11, guest_invitations = $12, updated_at = now()
		WHERE id = $1
	`, m.ID, m.OfferID, m.OfferName, m.OfferPrice,
		m.MembershipStart, m.MembershipExpiry,
		m.PoolSessions, m.PaddleSessions, m.NutritionSessions, m.PhysioSessions,
		m.BodyScans, m.GuestInvitations)
	return err
}

// ListByBirthday returns members whose birthday falls on the given calendar
// day, for the daily sweep.
func (r *MemberRepo) ListByBirthday(ctx context.Context, month time.Month, day int) ([]*models.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+` FROM members
		WHERE birthday IS NOT NULL
		  AND EXTRACT(MONTH FROM birthday) = $1
		  AND EXTRACT(DAY FROM birthday) = $2
	`, int(month), day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

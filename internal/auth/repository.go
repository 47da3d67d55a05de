package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new staff record and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName, role string) (*Staff, error) {
	var id uuid.UUID
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, uuid.New(), email, passwordHash, displayName, role)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return &Staff{ID: id, Email: email, DisplayName: displayName, Role: role}, nil
}

// GetByEmail returns the staff record and password hash for login. Returns
// nil when the email is unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Staff, string, error) {
	var s Staff
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, password_hash
		FROM staff WHERE email = $1
	`, email)
	if err := row.Scan(&s.ID, &s.Email, &s.DisplayName, &s.Role, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &s, passwordHash, nil
}

// GetByID resolves a staff record from a token subject.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	var s Staff
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role FROM staff WHERE id = $1
	`, id)
	if err := row.Scan(&s.ID, &s.Email, &s.DisplayName, &s.Role); err != nil {
		return nil, err
	}
	return &s, nil
}

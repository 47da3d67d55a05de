package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubpulse/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside one serializable transaction. Every balance-mutating
// engine operation goes through here so a mid-flight failure leaves zero
// partial state.
func (r *Repository) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `id, member_id, points_balance, total_earned, total_redeemed, pending_cash_rewards, referral_count, last_birthday_award_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.LoyaltyAccount, error) {
	var a models.LoyaltyAccount
	err := row.Scan(&a.ID, &a.MemberID, &a.PointsBalance, &a.TotalEarned, &a.TotalRedeemed, &a.PendingCashRewards, &a.ReferralCount, &a.LastBirthdayAwardAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByMemberID returns the member's account, or nil when the member
// has no loyalty activity yet.
func (r *Repository) GetAccountByMemberID(ctx context.Context, memberID uuid.UUID) (*models.LoyaltyAccount, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM loyalty_accounts WHERE member_id = $1
	`, memberID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccountForUpdateTx locks the account row for update. Call within a
// transaction.
func (r *Repository) GetAccountForUpdateTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*models.LoyaltyAccount, error) {
	return scanAccount(tx.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM loyalty_accounts WHERE member_id = $1 FOR UPDATE
	`, memberID))
}

// GetOrCreateAccountTx creates the member's account on first use and returns
// it locked for update.
func (r *Repository) GetOrCreateAccountTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*models.LoyaltyAccount, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO loyalty_accounts (id, member_id) VALUES ($1, $2)
		ON CONFLICT (member_id) DO NOTHING
	`, uuid.New(), memberID)
	if err != nil {
		return nil, err
	}
	return r.GetAccountForUpdateTx(ctx, tx, memberID)
}

// CreditTx adds points to balance and lifetime earned in one statement.
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, points int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE loyalty_accounts
		SET points_balance = points_balance + $1, total_earned = total_earned + $1, updated_at = now()
		WHERE id = $2
		RETURNING points_balance
	`, points, accountID).Scan(&newBalance)
	return newBalance, err
}

// DebitTx atomically spends points if the balance covers the cost. Returns
// pgx.ErrNoRows when it does not, leaving the row untouched.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, cost int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE loyalty_accounts
		SET points_balance = points_balance - $1, total_redeemed = total_redeemed + $1, updated_at = now()
		WHERE id = $2 AND points_balance >= $1
		RETURNING points_balance
	`, cost, accountID).Scan(&newBalance)
	return newBalance, err
}

// MarkBirthdayAwardedTx stamps the account so the yearly guard can compare
// calendar years on the next sweep.
func (r *Repository) MarkBirthdayAwardedTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE loyalty_accounts SET last_birthday_award_at = $1, updated_at = now() WHERE id = $2
	`, at, accountID)
	return err
}

// IncrementReferralCountTx bumps the referral tally and returns the new count.
func (r *Repository) IncrementReferralCountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (newCount int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE loyalty_accounts SET referral_count = referral_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING referral_count
	`, accountID).Scan(&newCount)
	return newCount, err
}

// AddPendingCashRewardTx grants voucher(s) on the separate cash-reward
// counter.
func (r *Repository) AddPendingCashRewardTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, n int) error {
	_, err := tx.Exec(ctx, `
		UPDATE loyalty_accounts SET pending_cash_rewards = pending_cash_rewards + $1, updated_at = now()
		WHERE id = $2
	`, n, accountID)
	return err
}

// SpendPendingCashRewardTx decrements the voucher counter if positive.
// Returns pgx.ErrNoRows when there is nothing to spend.
func (r *Repository) SpendPendingCashRewardTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (remaining int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE loyalty_accounts SET pending_cash_rewards = pending_cash_rewards - 1, updated_at = now()
		WHERE id = $1 AND pending_cash_rewards > 0
		RETURNING pending_cash_rewards
	`, accountID).Scan(&remaining)
	return remaining, err
}

// InsertTransactionTx appends one immutable audit row. No update or delete
// path exists for written transactions.
func (r *Repository) InsertTransactionTx(ctx context.Context, tx pgx.Tx, t *models.LoyaltyTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO loyalty_transactions (id, account_id, member_id, type, points, source, description, staff_name, related_entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.AccountID, t.MemberID, t.Type, t.Points, t.Source, t.Description, t.StaffName, t.RelatedEntityID, t.Metadata).Scan(&t.CreatedAt)
}

// HasReferralAwardTx reports whether the invitation already produced a
// referral award for any account.
func (r *Repository) HasReferralAwardTx(ctx context.Context, tx pgx.Tx, invitationID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loyalty_transactions WHERE source = $1 AND related_entity_id = $2
		)
	`, models.SourceReferral, invitationID).Scan(&exists)
	return exists, err
}

// ListByMemberID returns the member's transactions, most recent first.
func (r *Repository) ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, member_id, type, points, source, description, staff_name, related_entity_id, metadata, created_at
		FROM loyalty_transactions WHERE member_id = $1 ORDER BY created_at DESC
	`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LoyaltyTransaction
	for rows.Next() {
		var t models.LoyaltyTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.MemberID, &t.Type, &t.Points, &t.Source, &t.Description, &t.StaffName, &t.RelatedEntityID, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clubpulse/backend/internal/models"
)

// Store is the persistence surface of the engine: the per-member account row
// plus the append-only transaction log.
type Store interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetAccountByMemberID(ctx context.Context, memberID uuid.UUID) (*models.LoyaltyAccount, error)
	GetAccountForUpdateTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*models.LoyaltyAccount, error)
	GetOrCreateAccountTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*models.LoyaltyAccount, error)
	CreditTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, points int) (int, error)
	DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, cost int) (int, error)
	MarkBirthdayAwardedTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error
	IncrementReferralCountTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error)
	AddPendingCashRewardTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, n int) error
	SpendPendingCashRewardTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error)
	InsertTransactionTx(ctx context.Context, tx pgx.Tx, t *models.LoyaltyTransaction) error
	HasReferralAwardTx(ctx context.Context, tx pgx.Tx, invitationID uuid.UUID) (bool, error)
	ListByMemberID(ctx context.Context, memberID uuid.UUID) ([]*models.LoyaltyTransaction, error)
}

// MemberStore is the minimal member surface fulfillments need.
type MemberStore interface {
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Member, error)
	AddStoreCreditTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error
	AddSessionsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, counter models.SessionCounter, n int) error
	UpdateMembershipTx(ctx context.Context, tx pgx.Tx, m *models.Member) error
	ListByBirthday(ctx context.Context, month time.Month, day int) ([]*models.Member, error)
}

// OfferStore resolves subscription plans from the catalog.
type OfferStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Offer, error)
}

// ReceiptStore writes synthesized financial records. CreateTx allocates the
// sequential receipt number inside the caller's transaction.
type ReceiptStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rcpt *models.Receipt) error
}

type AwardParams struct {
	MemberID        uuid.UUID
	Points          int
	Source          string
	Description     string
	StaffName       *string
	RelatedEntityID *uuid.UUID
	// Goal is required when Source is goal and ignored otherwise.
	Goal     string
	Metadata json.RawMessage
}

type AwardResult struct {
	Transaction *models.LoyaltyTransaction
	Balance     int
	// AlreadyProcessed means an idempotency guard suppressed the award.
	// This is a successful no-op, not a failure: schedulers must not retry.
	AlreadyProcessed bool
}

type RedeemParams struct {
	MemberID  uuid.UUID
	TierKey   string
	SubOption string
	StaffName *string
}

type RedemptionResult struct {
	Transaction *models.LoyaltyTransaction
	Balance     int
	TierKey     string
	Cost        int
	// Receipt is the synthesized zero-amount record for membership
	// extensions; nil for other tiers.
	Receipt *models.Receipt
}

type CashRewardResult struct {
	PayableID        uuid.UUID
	ReceiptNumber    int64
	RemainingRewards int
}

type SweepFailure struct {
	MemberID uuid.UUID `json:"member_id"`
	Err      string    `json:"error"`
}

type SweepResult struct {
	Processed       int            `json:"processed"`
	Awarded         []uuid.UUID    `json:"awarded"`
	AlreadyRewarded []uuid.UUID    `json:"already_rewarded"`
	Failed          []SweepFailure `json:"failed"`
}

type Service interface {
	GetAccount(ctx context.Context, memberID uuid.UUID) (*models.LoyaltyAccount, error)
	Award(ctx context.Context, p AwardParams) (*AwardResult, error)
	Redeem(ctx context.Context, p RedeemParams) (*RedemptionResult, error)
	RedeemPendingCashReward(ctx context.Context, memberID uuid.UUID, staffName *string) (*CashRewardResult, error)
	RunBirthdaySweep(ctx context.Context, asOf time.Time) (*SweepResult, error)
	ListTransactions(ctx context.Context, memberID uuid.UUID) ([]*models.LoyaltyTransaction, error)
}

type service struct {
	store    Store
	members  MemberStore
	offers   OfferStore
	receipts ReceiptStore

	// topTierOfferID is the configured identity of the plan granted by
	// membership-extension redemptions. Resolved by id, never by name.
	topTierOfferID uuid.UUID

	now func() time.Time
}

// NewService creates the loyalty engine. topTierOfferID comes from
// configuration (TOP_TIER_OFFER_ID).
func NewService(store Store, members MemberStore, offers OfferStore, receipts ReceiptStore, topTierOfferID uuid.UUID) *service {
	return &service{
		store:          store,
		members:        members,
		offers:         offers,
		receipts:       receipts,
		topTierOfferID: topTierOfferID,
		now:            time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) GetAccount(ctx context.Context, memberID uuid.UUID) (*models.LoyaltyAccount, error) {
	return s.store.GetAccountByMemberID(ctx, memberID)
}

func (s *service) ListTransactions(ctx context.Context, memberID uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	return s.store.ListByMemberID(ctx, memberID)
}

func validSource(source string) bool {
	switch source {
	case models.SourcePurchase, models.SourceUpgrade, models.SourceReferral,
		models.SourceBirthday, models.SourceGoal, models.SourceReview,
		models.SourceSession:
		return true
	}
	return false
}

func (s *service) Award(ctx context.Context, p AwardParams) (*AwardResult, error) {
	return s.award(ctx, p, s.now())
}

func (s *service) award(ctx context.Context, p AwardParams, asOf time.Time) (*AwardResult, error) {
	if !validSource(p.Source) {
		return nil, ErrInvalidSource
	}
	if p.Source == models.SourcePurchase && p.Points == 0 {
		// A sub-threshold purchase earns nothing. That is a quiet no-op
		// with no transaction, not a validation failure.
		account, err := s.store.GetAccountByMemberID(ctx, p.MemberID)
		if err != nil {
			return nil, err
		}
		res := &AwardResult{}
		if account != nil {
			res.Balance = account.PointsBalance
		}
		return res, nil
	}
	if p.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	if p.Source == models.SourceGoal && !ValidGoal(p.Goal) {
		return nil, ErrInvalidGoal
	}
	if p.Source == models.SourceReferral && p.RelatedEntityID == nil {
		return nil, ErrMissingReference
	}

	var res AwardResult
	err := s.store.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.members.GetForUpdateTx(ctx, tx, p.MemberID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return err
		}
		account, err := s.store.GetOrCreateAccountTx(ctx, tx, p.MemberID)
		if err != nil {
			return err
		}

		// Idempotency guards. Tripping one is a successful no-op so
		// repeated invocations (a re-run sweep, a replayed event) stay
		// safe to call.
		switch p.Source {
		case models.SourceBirthday:
			if account.LastBirthdayAwardAt != nil && account.LastBirthdayAwardAt.Year() == asOf.Year() {
				res = AwardResult{Balance: account.PointsBalance, AlreadyProcessed: true}
				return nil
			}
		case models.SourceReferral:
			done, err := s.store.HasReferralAwardTx(ctx, tx, *p.RelatedEntityID)
			if err != nil {
				return err
			}
			if done {
				res = AwardResult{Balance: account.PointsBalance, AlreadyProcessed: true}
				return nil
			}
		}

		balance, err := s.store.CreditTx(ctx, tx, account.ID, p.Points)
		if err != nil {
			return err
		}

		switch p.Source {
		case models.SourceBirthday:
			if err := s.store.MarkBirthdayAwardedTx(ctx, tx, account.ID, asOf); err != nil {
				return err
			}
		case models.SourceReferral:
			count, err := s.store.IncrementReferralCountTx(ctx, tx, account.ID)
			if err != nil {
				return err
			}
			if count%cashRewardReferralStep == 0 {
				if err := s.store.AddPendingCashRewardTx(ctx, tx, account.ID, 1); err != nil {
					return err
				}
			}
		}

		t, err := s.record(ctx, tx, account, models.LoyaltyTxEarn, p.Points, p.Source, p.Description, p.StaffName, p.RelatedEntityID, p.Metadata)
		if err != nil {
			return err
		}
		res = AwardResult{Transaction: t, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *service) Redeem(ctx context.Context, p RedeemParams) (*RedemptionResult, error) {
	// Catalog validation happens before any state is touched.
	tier, counter, err := ResolveTier(p.TierKey, p.SubOption)
	if err != nil {
		return nil, err
	}

	var res RedemptionResult
	err = s.store.InTx(ctx, func(tx pgx.Tx) error {
		member, err := s.members.GetForUpdateTx(ctx, tx, p.MemberID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return err
		}
		account, err := s.store.GetAccountForUpdateTx(ctx, tx, p.MemberID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		if account.PointsBalance < tier.Cost {
			return ErrInsufficientBalance
		}

		// Conditional decrement re-validates the balance at commit time,
		// so two concurrent redemptions cannot both pass the stale check
		// above.
		balance, err := s.store.DebitTx(ctx, tx, account.ID, tier.Cost)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientBalance
			}
			return err
		}

		meta := map[string]any{
			"tier":           tier.Key,
			"sub_option":     p.SubOption,
			"balance_before": account.PointsBalance,
			"balance_after":  balance,
		}

		var receipt *models.Receipt
		switch f := tier.Fulfill.(type) {
		case CashbackFulfillment:
			if err := s.members.AddStoreCreditTx(ctx, tx, member.ID, f.Credit); err != nil {
				return err
			}
		case SessionFulfillment:
			before := member.SessionCounterValue(counter)
			if err := s.members.AddSessionsTx(ctx, tx, member.ID, counter, 1); err != nil {
				return err
			}
			meta["sessions_before"] = before
			meta["sessions_after"] = before + 1
		case ExtensionFulfillment:
			receipt, err = s.extendMembership(ctx, tx, member, f.Days, tier.Key)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled fulfillment for tier %q", tier.Key)
		}

		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		t, err := s.record(ctx, tx, account, models.LoyaltyTxRedeem, tier.Cost, models.SourceRedemption,
			fmt.Sprintf("Redeemed reward %s", tier.Key), p.StaffName, nil, metaJSON)
		if err != nil {
			return err
		}
		res = RedemptionResult{
			Transaction: t,
			Balance:     balance,
			TierKey:     tier.Key,
			Cost:        tier.Cost,
			Receipt:     receipt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// extendMembership renews the member under the configured top-tier offer.
// Plan fields are overwritten; entitlement counters merge additively so
// unused sessions survive the renewal. A zero-amount receipt documents the
// before/after state for the commission engine to skip.
func (s *service) extendMembership(ctx context.Context, tx pgx.Tx, member *models.Member, days int, tierKey string) (*models.Receipt, error) {
	offer, err := s.offers.GetByIDTx(ctx, tx, s.topTierOfferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTopTierLookup
		}
		return nil, fmt.Errorf("%w: %v", ErrTopTierLookup, err)
	}

	now := s.now()
	start := now
	if member.MembershipExpiry != nil && member.MembershipExpiry.After(now) {
		start = *member.MembershipExpiry
	}
	expiry := start.AddDate(0, 0, days)

	meta, err := json.Marshal(map[string]any{
		"tier":         tierKey,
		"offer_id":     offer.ID,
		"offer_name":   offer.Name,
		"old_offer":    member.OfferName,
		"old_expiry":   member.MembershipExpiry,
		"new_expiry":   expiry,
		"granted_days": days,
	})
	if err != nil {
		return nil, err
	}

	member.OfferID = &offer.ID
	member.OfferName = offer.Name
	member.OfferPrice = offer.Price
	if member.MembershipStart == nil {
		member.MembershipStart = &now
	}
	member.MembershipExpiry = &expiry
	member.PoolSessions += offer.PoolSessions
	member.PaddleSessions += offer.PaddleSessions
	member.NutritionSessions += offer.NutritionSessions
	member.PhysioSessions += offer.PhysioSessions
	member.BodyScans += offer.BodyScans
	member.GuestInvitations += offer.GuestInvitations
	if err := s.members.UpdateMembershipTx(ctx, tx, member); err != nil {
		return nil, err
	}

	receipt := &models.Receipt{
		ID:          uuid.New(),
		MemberID:    member.ID,
		Kind:        models.ReceiptKindLoyaltyRedemption,
		Amount:      0,
		Paid:        true,
		Description: fmt.Sprintf("Loyalty renewal: %s (+%d days)", offer.Name, days),
		Metadata:    meta,
	}
	if err := s.receipts.CreateTx(ctx, tx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) RedeemPendingCashReward(ctx context.Context, memberID uuid.UUID, staffName *string) (*CashRewardResult, error) {
	var res CashRewardResult
	err := s.store.InTx(ctx, func(tx pgx.Tx) error {
		account, err := s.store.GetAccountForUpdateTx(ctx, tx, memberID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		remaining, err := s.store.SpendPendingCashRewardTx(ctx, tx, account.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoPendingRewards
			}
			return err
		}

		payable := &models.Receipt{
			ID:          uuid.New(),
			MemberID:    memberID,
			Kind:        models.ReceiptKindLoyaltyCashReward,
			Amount:      CashRewardAmount,
			Paid:        false,
			Description: "Referral cash reward payout",
		}
		if err := s.receipts.CreateTx(ctx, tx, payable); err != nil {
			return err
		}

		// Zero-point row for audit visibility only; the voucher counter is
		// not part of the points ledger.
		if _, err := s.record(ctx, tx, account, models.LoyaltyTxRedeem, 0, models.SourceReferralCashRedeem,
			"Pending cash reward redeemed", staffName, &payable.ID, nil); err != nil {
			return err
		}
		res = CashRewardResult{
			PayableID:        payable.ID,
			ReceiptNumber:    payable.Number,
			RemainingRewards: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *service) RunBirthdaySweep(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	members, err := s.members.ListByBirthday(ctx, asOf.Month(), asOf.Day())
	if err != nil {
		return nil, err
	}

	// One member's failure must not abort the rest of the batch.
	res := &SweepResult{}
	for _, m := range members {
		res.Processed++
		award, err := s.award(ctx, AwardParams{
			MemberID:    m.ID,
			Points:      BirthdayPoints,
			Source:      models.SourceBirthday,
			Description: "Happy birthday reward",
		}, asOf)
		if err != nil {
			res.Failed = append(res.Failed, SweepFailure{MemberID: m.ID, Err: err.Error()})
			continue
		}
		if award.AlreadyProcessed {
			res.AlreadyRewarded = append(res.AlreadyRewarded, m.ID)
			continue
		}
		res.Awarded = append(res.Awarded, m.ID)
	}
	return res, nil
}

// record is the single write site for audit rows. It applies the sign
// convention (earn positive, redeem negative) to the given magnitude, so no
// call site ever stores an inconsistent delta.
func (s *service) record(ctx context.Context, tx pgx.Tx, account *models.LoyaltyAccount, txType string, magnitude int, source, description string, staffName *string, relatedID *uuid.UUID, metadata json.RawMessage) (*models.LoyaltyTransaction, error) {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	points := magnitude
	if txType == models.LoyaltyTxRedeem {
		points = -magnitude
	}
	t := &models.LoyaltyTransaction{
		ID:              uuid.New(),
		AccountID:       account.ID,
		MemberID:        account.MemberID,
		Type:            txType,
		Points:          points,
		Source:          source,
		Description:     description,
		StaffName:       staffName,
		RelatedEntityID: relatedID,
		Metadata:        metadata,
	}
	if err := s.store.InsertTransactionTx(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

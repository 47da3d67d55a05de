package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transaction type enums.
const (
	LoyaltyTxEarn   = "earn"
	LoyaltyTxRedeem = "redeem"
)

// Earning/redemption source enums.
const (
	SourcePurchase           = "purchase"
	SourceUpgrade            = "upgrade"
	SourceReferral           = "referral"
	SourceBirthday           = "birthday"
	SourceGoal               = "goal"
	SourceReview             = "review"
	SourceSession            = "session"
	SourceRedemption         = "redemption"
	SourceReferralCashRedeem = "referral_cash_redeemed"
)

// Goal types accepted by the goal-achievement award.
const (
	GoalWeightLoss = "weight_loss"
	GoalMuscleGain = "muscle_gain"
	GoalStrength   = "strength"
)

// LoyaltyAccount is the per-member points account. Created lazily on the
// first earning event, never deleted while the member exists.
//
// Invariant at every committed state:
//
//	PointsBalance == TotalEarned - TotalRedeemed
type LoyaltyAccount struct {
	ID       uuid.UUID `json:"id"`
	MemberID uuid.UUID `json:"member_id"`

	PointsBalance int `json:"points_balance"`
	TotalEarned   int `json:"total_earned"`
	TotalRedeemed int `json:"total_redeemed"`

	// PendingCashRewards is a voucher counter separate from points.
	PendingCashRewards int `json:"pending_cash_rewards"`
	ReferralCount      int `json:"referral_count"`

	LastBirthdayAwardAt *time.Time `json:"last_birthday_award_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoyaltyTransaction is one immutable row of the audit trail. Points carry a
// signed delta: positive for earn, negative for redeem. Zero-point rows are
// written only for voucher redemptions, purely for audit visibility.
type LoyaltyTransaction struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	MemberID        uuid.UUID       `json:"member_id"`
	Type            string          `json:"type"`
	Points          int             `json:"points"`
	Source          string          `json:"source"`
	Description     string          `json:"description"`
	StaffName       *string         `json:"staff_name,omitempty"`
	RelatedEntityID *uuid.UUID      `json:"related_entity_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

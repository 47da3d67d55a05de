package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Receipt kind enums. The commission engine consumes receipts downstream and
// filters on kind: loyalty_redemption receipts are zero-amount and must never
// count as revenue; loyalty_cash_reward receipts are unpaid payables owed to
// the member.
const (
	ReceiptKindLoyaltyRedemption = "loyalty_redemption"
	ReceiptKindLoyaltyCashReward = "loyalty_cash_reward"
)

type Receipt struct {
	ID       uuid.UUID `json:"id"`
	Number   int64     `json:"number"`
	MemberID uuid.UUID `json:"member_id"`
	Kind     string    `json:"kind"`
	// Amount in whole currency units. Zero for synthesized redemption
	// receipts, positive for payables.
	Amount      int             `json:"amount"`
	Paid        bool            `json:"paid"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

package loyalty

import (
	"github.com/clubpulse/backend/internal/models"
)

// Redemption tier keys.
const (
	TierCashback           = "cashback"
	TierDayAccess          = "day_access"
	TierSpecializedService = "specialized_service"
	TierFreeMonth          = "free_month"
	TierFreeYear           = "free_year"
)

// Fulfillment is the effect applied when a tier is redeemed. Each reward kind
// is a distinct variant carrying only the fields it needs; the executor
// switches over the concrete type and rejects anything it does not know.
type Fulfillment interface {
	rewardKind() string
}

// CashbackFulfillment adds standing monetary credit to the member.
type CashbackFulfillment struct {
	Credit int
}

// SessionFulfillment increments one member session counter, chosen by a
// required sub-option.
type SessionFulfillment struct {
	Options map[string]models.SessionCounter
}

// ExtensionFulfillment extends the membership under the configured top-tier
// offer and synthesizes a zero-amount receipt.
type ExtensionFulfillment struct {
	Days int
}

func (CashbackFulfillment) rewardKind() string  { return "cashback" }
func (SessionFulfillment) rewardKind() string   { return "session_grant" }
func (ExtensionFulfillment) rewardKind() string { return "membership_extension" }

// Tier is one fixed catalog entry.
type Tier struct {
	Key     string
	Cost    int
	Fulfill Fulfillment
}

// Catalog is the fixed redemption table. Not member-scoped, not configurable
// at runtime.
var Catalog = map[string]Tier{
	TierCashback: {
		Key:     TierCashback,
		Cost:    500,
		Fulfill: CashbackFulfillment{Credit: 100},
	},
	TierDayAccess: {
		Key:  TierDayAccess,
		Cost: 1000,
		Fulfill: SessionFulfillment{Options: map[string]models.SessionCounter{
			"pool":   models.SessionPool,
			"paddle": models.SessionPaddle,
		}},
	},
	TierSpecializedService: {
		Key:  TierSpecializedService,
		Cost: 1500,
		Fulfill: SessionFulfillment{Options: map[string]models.SessionCounter{
			"nutrition":     models.SessionNutrition,
			"physiotherapy": models.SessionPhysio,
		}},
	},
	TierFreeMonth: {
		Key:     TierFreeMonth,
		Cost:    3000,
		Fulfill: ExtensionFulfillment{Days: 30},
	},
	TierFreeYear: {
		Key:     TierFreeYear,
		Cost:    6000,
		Fulfill: ExtensionFulfillment{Days: 365},
	},
}

// ResolveTier validates the tier key and sub-option before any state is
// touched. For session tiers the returned counter is the member column to
// increment; for other kinds it is empty.
func ResolveTier(tierKey, subOption string) (Tier, models.SessionCounter, error) {
	tier, ok := Catalog[tierKey]
	if !ok {
		return Tier{}, "", ErrInvalidTier
	}
	sf, needsOption := tier.Fulfill.(SessionFulfillment)
	if !needsOption {
		if subOption != "" {
			return Tier{}, "", ErrInvalidSubOption
		}
		return tier, "", nil
	}
	counter, ok := sf.Options[subOption]
	if !ok {
		return Tier{}, "", ErrInvalidSubOption
	}
	return tier, counter, nil
}

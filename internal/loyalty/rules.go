package loyalty

import (
	"github.com/clubpulse/backend/internal/models"
)

// Fixed award amounts.
const (
	BirthdayPoints = 250
	ReviewPoints   = 250
	SessionPoints  = 25
	GoalPoints     = 500

	// CashRewardAmount is the payable created when a pending cash reward
	// voucher is redeemed, in whole currency units.
	CashRewardAmount = 100

	// Every cashRewardReferralStep-th successful referral grants one
	// pending cash reward voucher on top of the points.
	cashRewardReferralStep = 5
)

// ValidGoal reports whether g is one of the accepted goal types.
func ValidGoal(g string) bool {
	switch g {
	case models.GoalWeightLoss, models.GoalMuscleGain, models.GoalStrength:
		return true
	}
	return false
}

// ReferralPoints computes the inviter's award from the new member's
// subscription. Longer and pricier plans earn more; short cheap plans earn
// nothing, in which case no transaction is written.
func ReferralPoints(offer *models.Offer) int {
	if offer == nil {
		return 0
	}
	switch {
	case offer.DurationDays >= 360:
		return 1000
	case offer.DurationDays >= 180:
		return 600
	case offer.DurationDays >= 90:
		return 400
	case offer.DurationDays >= 30 && offer.Price >= 100:
		return 250
	}
	return 0
}

// UpgradePoints computes the award for moving from oldOffer (nil when the
// member had no plan) to newOffer. Half the price difference, never negative.
func UpgradePoints(oldOffer, newOffer *models.Offer) int {
	if newOffer == nil {
		return 0
	}
	oldPrice := 0
	if oldOffer != nil {
		oldPrice = oldOffer.Price
	}
	diff := newOffer.Price - oldPrice
	if diff <= 0 {
		return 0
	}
	return diff / 2
}

// PurchasePoints converts a purchase amount to points: one point per ten
// currency units, truncated.
func PurchasePoints(amount int) int {
	if amount <= 0 {
		return 0
	}
	return amount / 10
}

package loyalty

import "errors"

// Sentinel errors returned by the engine. Handlers map these to HTTP status
// codes; anything else is a storage/transaction failure and surfaces as an
// internal error.
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrAccountNotFound = errors.New("loyalty account not found")

	ErrInvalidSource    = errors.New("invalid earning source")
	ErrInvalidPoints    = errors.New("points must be positive")
	ErrInvalidGoal      = errors.New("invalid goal type")
	ErrMissingReference = errors.New("related entity id required for this source")

	ErrInvalidTier      = errors.New("unknown redemption tier")
	ErrInvalidSubOption = errors.New("missing or invalid sub-option for tier")

	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrNoPendingRewards    = errors.New("no pending cash rewards")

	// ErrTopTierLookup means the configured top-tier offer could not be
	// resolved; membership extensions cannot proceed without it.
	ErrTopTierLookup = errors.New("top tier offer lookup failed")
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// Offer is a subscription plan from the club's catalog. The loyalty engine
// reads offers when a redemption extends a membership; CRUD management of the
// catalog lives elsewhere.
type Offer struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Price        int       `json:"price"`
	DurationDays int       `json:"duration_days"`

	// Entitlements granted per subscription period. On a loyalty renewal
	// these are added to the member's current counters, never overwritten.
	PoolSessions      int `json:"pool_sessions"`
	PaddleSessions    int `json:"paddle_sessions"`
	NutritionSessions int `json:"nutrition_sessions"`
	PhysioSessions    int `json:"physio_sessions"`
	BodyScans         int `json:"body_scans"`
	GuestInvitations  int `json:"guest_invitations"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

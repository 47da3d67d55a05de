package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionCounter names one of the per-member bonus session counters that
// loyalty fulfillments may increment. Values map 1:1 to member columns, so
// anything outside this set must be rejected before it reaches SQL.
type SessionCounter string

const (
	SessionPool      SessionCounter = "pool"
	SessionPaddle    SessionCounter = "paddle"
	SessionNutrition SessionCounter = "nutrition"
	SessionPhysio    SessionCounter = "physiotherapy"
)

type Member struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Phone    string     `json:"phone"`
	Email    string     `json:"email"`
	Birthday *time.Time `json:"birthday,omitempty"`

	// Standing monetary credit, in whole currency units.
	StoreCredit int `json:"store_credit"`

	// Entitlement counters carried on the member so unused sessions survive
	// plan changes.
	PoolSessions      int `json:"pool_sessions"`
	PaddleSessions    int `json:"paddle_sessions"`
	NutritionSessions int `json:"nutrition_sessions"`
	PhysioSessions    int `json:"physio_sessions"`
	BodyScans         int `json:"body_scans"`
	GuestInvitations  int `json:"guest_invitations"`

	// Active subscription snapshot.
	OfferID          *uuid.UUID `json:"offer_id,omitempty"`
	OfferName        string     `json:"offer_name"`
	OfferPrice       int        `json:"offer_price"`
	MembershipStart  *time.Time `json:"membership_start,omitempty"`
	MembershipExpiry *time.Time `json:"membership_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionCounterValue returns the current value of the named counter.
func (m *Member) SessionCounterValue(c SessionCounter) int {
	switch c {
	case SessionPool:
		return m.PoolSessions
	case SessionPaddle:
		return m.PaddleSessions
	case SessionNutrition:
		return m.NutritionSessions
	case SessionPhysio:
		return m.PhysioSessions
	}
	return 0
}

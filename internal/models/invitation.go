package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation records that an existing member invited a guest. When a new
// member later registers with the guest's phone number, the inviter earns a
// referral award keyed to this invitation.
type Invitation struct {
	ID         uuid.UUID `json:"id"`
	InviterID  uuid.UUID `json:"inviter_id"`
	GuestName  string    `json:"guest_name"`
	GuestPhone string    `json:"guest_phone"`
	CreatedAt  time.Time `json:"created_at"`
}

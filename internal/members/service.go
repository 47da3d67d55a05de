package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clubpulse/backend/internal/loyalty"
	"github.com/clubpulse/backend/internal/models"
)

// ErrMemberNotFound is returned when a member id resolves to nothing.
var ErrMemberNotFound = errors.New("member not found")

// ErrDuplicatePhone is returned when registering with a phone number that
// already belongs to a member.
var ErrDuplicatePhone = errors.New("phone already registered")

// MemberStore is the minimal member repository interface for this service.
type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	GetByPhone(ctx context.Context, phone string) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
	Update(ctx context.Context, m *models.Member) error
}

// InvitationStore records and resolves guest invitations.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByGuestPhone(ctx context.Context, phone string) (*models.Invitation, error)
}

// OfferStore resolves subscription plans for new registrations.
type OfferStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

type CreateMemberParams struct {
	Name     string
	Phone    string
	Email    string
	Birthday *time.Time
	// OfferID selects the initial subscription plan; nil registers the
	// member without one.
	OfferID *uuid.UUID
}

type Service interface {
	CreateMember(ctx context.Context, p CreateMemberParams) (*models.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ListMembers(ctx context.Context) ([]*models.Member, error)
	UpgradeMembership(ctx context.Context, memberID, newOfferID uuid.UUID) (*models.Member, error)
	CreateInvitation(ctx context.Context, inviterID uuid.UUID, guestName, guestPhone string) (*models.Invitation, error)
}

type service struct {
	members     MemberStore
	invitations InvitationStore
	offers      OfferStore
	loyalty     loyalty.Service
	log         *slog.Logger
}

func NewService(members MemberStore, invitations InvitationStore, offers OfferStore, loyaltySvc loyalty.Service, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{members: members, invitations: invitations, offers: offers, loyalty: loyaltySvc, log: log}
}

var _ Service = (*service)(nil)

// CreateMember registers a member and, when an invitation matches the phone,
// settles the inviter's referral award. The award is idempotent per
// invitation, so re-processing a registration never double-pays.
func (s *service) CreateMember(ctx context.Context, p CreateMemberParams) (*models.Member, error) {
	if _, err := s.members.GetByPhone(ctx, p.Phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	m := &models.Member{
		ID:       uuid.New(),
		Name:     p.Name,
		Phone:    p.Phone,
		Email:    p.Email,
		Birthday: p.Birthday,
	}

	var offer *models.Offer
	if p.OfferID != nil {
		var err error
		offer, err = s.offers.GetByID(ctx, *p.OfferID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("offer %s not found", *p.OfferID)
			}
			return nil, err
		}
		now := time.Now()
		expiry := now.AddDate(0, 0, offer.DurationDays)
		m.OfferID = &offer.ID
		m.OfferName = offer.Name
		m.OfferPrice = offer.Price
		m.MembershipStart = &now
		m.MembershipExpiry = &expiry
		m.PoolSessions = offer.PoolSessions
		m.PaddleSessions = offer.PaddleSessions
		m.NutritionSessions = offer.NutritionSessions
		m.PhysioSessions = offer.PhysioSessions
		m.BodyScans = offer.BodyScans
		m.GuestInvitations = offer.GuestInvitations
	}

	if err := s.members.Create(ctx, m); err != nil {
		return nil, err
	}

	s.settleReferral(ctx, m, offer)
	return m, nil
}

// settleReferral awards the inviter when the new member's phone matches a
// prior invitation. The member is already committed; a failed award is logged
// and left for the next replay rather than failing the registration.
func (s *service) settleReferral(ctx context.Context, m *models.Member, offer *models.Offer) {
	inv, err := s.invitations.FindByGuestPhone(ctx, m.Phone)
	if err != nil {
		s.log.Error("referral lookup failed", "member_id", m.ID, "error", err)
		return
	}
	if inv == nil {
		return
	}
	points := loyalty.ReferralPoints(offer)
	if points == 0 {
		return
	}
	res, err := s.loyalty.Award(ctx, loyalty.AwardParams{
		MemberID:        inv.InviterID,
		Points:          points,
		Source:          models.SourceReferral,
		Description:     fmt.Sprintf("Referral bonus: %s joined", m.Name),
		RelatedEntityID: &inv.ID,
	})
	if err != nil {
		s.log.Error("referral award failed", "invitation_id", inv.ID, "inviter_id", inv.InviterID, "error", err)
		return
	}
	if res.AlreadyProcessed {
		s.log.Info("referral already settled", "invitation_id", inv.ID)
	}
}

func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *service) ListMembers(ctx context.Context) ([]*models.Member, error) {
	return s.members.List(ctx)
}

// UpgradeMembership moves the member onto a new plan and awards upgrade
// points from the price difference. Plan fields are overwritten; entitlement
// counters merge additively so unused sessions survive the plan change.
func (s *service) UpgradeMembership(ctx context.Context, memberID, newOfferID uuid.UUID) (*models.Member, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	newOffer, err := s.offers.GetByID(ctx, newOfferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s not found", newOfferID)
		}
		return nil, err
	}
	var oldOffer *models.Offer
	if m.OfferID != nil {
		oldOffer, err = s.offers.GetByID(ctx, *m.OfferID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	now := time.Now()
	expiry := now.AddDate(0, 0, newOffer.DurationDays)
	m.OfferID = &newOffer.ID
	m.OfferName = newOffer.Name
	m.OfferPrice = newOffer.Price
	m.MembershipStart = &now
	m.MembershipExpiry = &expiry
	m.PoolSessions += newOffer.PoolSessions
	m.PaddleSessions += newOffer.PaddleSessions
	m.NutritionSessions += newOffer.NutritionSessions
	m.PhysioSessions += newOffer.PhysioSessions
	m.BodyScans += newOffer.BodyScans
	m.GuestInvitations += newOffer.GuestInvitations
	if err := s.members.Update(ctx, m); err != nil {
		return nil, err
	}

	if points := loyalty.UpgradePoints(oldOffer, newOffer); points > 0 {
		if _, err := s.loyalty.Award(ctx, loyalty.AwardParams{
			MemberID:        m.ID,
			Points:          points,
			Source:          models.SourceUpgrade,
			Description:     fmt.Sprintf("Membership upgrade to %s", newOffer.Name),
			RelatedEntityID: &newOffer.ID,
		}); err != nil {
			// The plan change is already committed; a failed award is
			// logged and left for a replay rather than rolled into here.
			s.log.Error("upgrade award failed", "member_id", m.ID, "error", err)
		}
	}
	return m, nil
}

func (s *service) CreateInvitation(ctx context.Context, inviterID uuid.UUID, guestName, guestPhone string) (*models.Invitation, error) {
	if _, err := s.members.GetByID(ctx, inviterID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	inv := &models.Invitation{
		ID:         uuid.New(),
		InviterID:  inviterID,
		GuestName:  guestName,
		GuestPhone: guestPhone,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

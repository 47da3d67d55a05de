package members

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clubpulse/backend/internal/loyalty"
	"github.com/clubpulse/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStores struct {
	mu          sync.Mutex
	members     map[uuid.UUID]*models.Member
	invitations []*models.Invitation
	offers      map[uuid.UUID]*models.Offer
}

func newMockStores() *mockStores {
	return &mockStores{
		members: make(map[uuid.UUID]*models.Member),
		offers:  make(map[uuid.UUID]*models.Offer),
	}
}

func (m *mockStores) Create(ctx context.Context, mem *models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem.CreatedAt = time.Now()
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *mockStores) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *mem
	return &cp, nil
}

func (m *mockStores) GetByPhone(ctx context.Context, phone string) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.Phone == phone {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStores) Update(ctx context.Context, mem *models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[mem.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *mockStores) List(ctx context.Context) ([]*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Member, 0, len(m.members))
	for _, mem := range m.members {
		cp := *mem
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStores) CreateInvitation(inv *models.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, inv)
}

// invitationStore view

type invStore struct{ s *mockStores }

func (i invStore) Create(ctx context.Context, inv *models.Invitation) error {
	inv.CreatedAt = time.Now()
	i.s.CreateInvitation(inv)
	return nil
}

func (i invStore) FindByGuestPhone(ctx context.Context, phone string) (*models.Invitation, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	for _, inv := range i.s.invitations {
		if inv.GuestPhone == phone {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

type offerStore struct{ s *mockStores }

func (o offerStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	off, ok := o.s.offers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *off
	return &cp, nil
}

// mockLoyalty records Award calls; the real engine is tested in its own
// package.
type mockLoyalty struct {
	awards   []loyalty.AwardParams
	awardErr error
}

func (m *mockLoyalty) GetAccount(ctx context.Context, memberID uuid.UUID) (*models.LoyaltyAccount, error) {
	return nil, nil
}

func (m *mockLoyalty) Award(ctx context.Context, p loyalty.AwardParams) (*loyalty.AwardResult, error) {
	if m.awardErr != nil {
		return nil, m.awardErr
	}
	m.awards = append(m.awards, p)
	return &loyalty.AwardResult{Balance: p.Points}, nil
}

func (m *mockLoyalty) Redeem(ctx context.Context, p loyalty.RedeemParams) (*loyalty.RedemptionResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLoyalty) RedeemPendingCashReward(ctx context.Context, memberID uuid.UUID, staffName *string) (*loyalty.CashRewardResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLoyalty) RunBirthdaySweep(ctx context.Context, asOf time.Time) (*loyalty.SweepResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLoyalty) ListTransactions(ctx context.Context, memberID uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	return nil, nil
}

var _ loyalty.Service = (*mockLoyalty)(nil)

func newTestService(stores *mockStores, lp *mockLoyalty) *service {
	return NewService(stores, invStore{stores}, offerStore{stores}, lp, nil)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateMember_SnapshotsOffer(t *testing.T) {
	stores := newMockStores()
	offer := &models.Offer{
		ID:                uuid.New(),
		Name:              "Gold Quarterly",
		Price:             300,
		DurationDays:      90,
		PoolSessions:      2,
		NutritionSessions: 1,
	}
	stores.offers[offer.ID] = offer
	svc := newTestService(stores, &mockLoyalty{})

	m, err := svc.CreateMember(context.Background(), CreateMemberParams{
		Name:    "Dana",
		Phone:   "+15550100",
		OfferID: &offer.ID,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if m.OfferID == nil || *m.OfferID != offer.ID || m.OfferName != "Gold Quarterly" || m.OfferPrice != 300 {
		t.Errorf("offer snapshot: %+v", m)
	}
	if m.PoolSessions != 2 || m.NutritionSessions != 1 {
		t.Errorf("entitlements: pool=%d nutrition=%d", m.PoolSessions, m.NutritionSessions)
	}
	if m.MembershipStart == nil || m.MembershipExpiry == nil {
		t.Fatal("membership window not set")
	}
	wantExpiry := m.MembershipStart.AddDate(0, 0, 90)
	if !m.MembershipExpiry.Equal(wantExpiry) {
		t.Errorf("expiry: got %v, want %v", m.MembershipExpiry, wantExpiry)
	}
}

func TestCreateMember_UnknownOffer(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(stores, &mockLoyalty{})
	missing := uuid.New()

	_, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "X", OfferID: &missing})
	if err == nil {
		t.Fatal("expected error for unknown offer")
	}
	if len(stores.members) != 0 {
		t.Error("member must not be created when the offer lookup fails")
	}
}

func TestCreateMember_DuplicatePhone(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(stores, &mockLoyalty{})

	if _, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "First", Phone: "+15550200"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "Second", Phone: "+15550200"})
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("expected ErrDuplicatePhone, got: %v", err)
	}
	if len(stores.members) != 1 {
		t.Errorf("members: got %d, want 1", len(stores.members))
	}
}

func TestUpgradeMembership_AwardsHalfPriceDifference(t *testing.T) {
	stores := newMockStores()
	basic := &models.Offer{ID: uuid.New(), Name: "Basic Monthly", Price: 100, DurationDays: 30, PoolSessions: 1}
	gold := &models.Offer{ID: uuid.New(), Name: "Gold Quarterly", Price: 400, DurationDays: 90, PoolSessions: 3, BodyScans: 1}
	stores.offers[basic.ID] = basic
	stores.offers[gold.ID] = gold
	lp := &mockLoyalty{}
	svc := newTestService(stores, lp)

	m, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "Lev", Phone: "+15550300", OfferID: &basic.ID})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	upgraded, err := svc.UpgradeMembership(context.Background(), m.ID, gold.ID)
	if err != nil {
		t.Fatalf("UpgradeMembership: %v", err)
	}
	if upgraded.OfferID == nil || *upgraded.OfferID != gold.ID || upgraded.OfferName != "Gold Quarterly" || upgraded.OfferPrice != 400 {
		t.Errorf("plan snapshot: %+v", upgraded)
	}
	// 1 from the basic plan + 3 from gold: counters merge, never reset.
	if upgraded.PoolSessions != 4 || upgraded.BodyScans != 1 {
		t.Errorf("entitlements: pool=%d scans=%d, want 4/1", upgraded.PoolSessions, upgraded.BodyScans)
	}

	if len(lp.awards) != 1 {
		t.Fatalf("awards: got %d, want 1", len(lp.awards))
	}
	got := lp.awards[0]
	if got.Source != models.SourceUpgrade {
		t.Errorf("award source: got %s", got.Source)
	}
	if got.Points != 150 {
		t.Errorf("award points: got %d, want (400-100)/2 = 150", got.Points)
	}
	if got.RelatedEntityID == nil || *got.RelatedEntityID != gold.ID {
		t.Errorf("award reference: got %v, want new offer %s", got.RelatedEntityID, gold.ID)
	}
}

func TestUpgradeMembership_DowngradeEarnsNothing(t *testing.T) {
	stores := newMockStores()
	gold := &models.Offer{ID: uuid.New(), Name: "Gold", Price: 400, DurationDays: 90}
	basic := &models.Offer{ID: uuid.New(), Name: "Basic", Price: 100, DurationDays: 30}
	stores.offers[gold.ID] = gold
	stores.offers[basic.ID] = basic
	lp := &mockLoyalty{}
	svc := newTestService(stores, lp)

	m, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "Mia", Phone: "+15550301", OfferID: &gold.ID})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	downgraded, err := svc.UpgradeMembership(context.Background(), m.ID, basic.ID)
	if err != nil {
		t.Fatalf("UpgradeMembership: %v", err)
	}
	if downgraded.OfferName != "Basic" {
		t.Errorf("plan should still change: %+v", downgraded)
	}
	if len(lp.awards) != 0 {
		t.Errorf("downgrade must not call Award: %v", lp.awards)
	}
}

func TestUpgradeMembership_UnknownMember(t *testing.T) {
	stores := newMockStores()
	offer := &models.Offer{ID: uuid.New(), Price: 100, DurationDays: 30}
	stores.offers[offer.ID] = offer
	svc := newTestService(stores, &mockLoyalty{})

	_, err := svc.UpgradeMembership(context.Background(), uuid.New(), offer.ID)
	if !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got: %v", err)
	}
}

func TestCreateMember_SettlesReferral(t *testing.T) {
	stores := newMockStores()
	offer := &models.Offer{ID: uuid.New(), Name: "Annual", Price: 1200, DurationDays: 365}
	stores.offers[offer.ID] = offer
	lp := &mockLoyalty{}
	svc := newTestService(stores, lp)

	inviter, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "Noa", Phone: "+15550001"})
	if err != nil {
		t.Fatalf("create inviter: %v", err)
	}
	inv, err := svc.CreateInvitation(context.Background(), inviter.ID, "Guest", "+15550002")
	if err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	if _, err := svc.CreateMember(context.Background(), CreateMemberParams{
		Name:    "Guest",
		Phone:   "+15550002",
		OfferID: &offer.ID,
	}); err != nil {
		t.Fatalf("create guest: %v", err)
	}

	if len(lp.awards) != 1 {
		t.Fatalf("awards: got %d, want 1", len(lp.awards))
	}
	got := lp.awards[0]
	if got.MemberID != inviter.ID {
		t.Errorf("award target: got %s, want inviter %s", got.MemberID, inviter.ID)
	}
	if got.Points != 1000 {
		t.Errorf("award points: got %d, want 1000 for an annual plan", got.Points)
	}
	if got.Source != models.SourceReferral {
		t.Errorf("award source: got %s", got.Source)
	}
	if got.RelatedEntityID == nil || *got.RelatedEntityID != inv.ID {
		t.Errorf("award reference: got %v, want invitation %s", got.RelatedEntityID, inv.ID)
	}
}

func TestCreateMember_CheapPlanEarnsNoReferral(t *testing.T) {
	stores := newMockStores()
	offer := &models.Offer{ID: uuid.New(), Name: "Cheap Monthly", Price: 40, DurationDays: 30}
	stores.offers[offer.ID] = offer
	lp := &mockLoyalty{}
	svc := newTestService(stores, lp)

	inviter, _ := svc.CreateMember(context.Background(), CreateMemberParams{Name: "A", Phone: "+15550010"})
	if _, err := svc.CreateInvitation(context.Background(), inviter.ID, "B", "+15550011"); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}
	if _, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "B", Phone: "+15550011", OfferID: &offer.ID}); err != nil {
		t.Fatalf("create guest: %v", err)
	}
	if len(lp.awards) != 0 {
		t.Errorf("zero-point referral must not call Award: %v", lp.awards)
	}
}

func TestCreateMember_ReferralFailureDoesNotFailRegistration(t *testing.T) {
	stores := newMockStores()
	offer := &models.Offer{ID: uuid.New(), DurationDays: 365, Price: 900}
	stores.offers[offer.ID] = offer
	lp := &mockLoyalty{awardErr: errors.New("engine down")}
	svc := newTestService(stores, lp)

	inviter, _ := svc.CreateMember(context.Background(), CreateMemberParams{Name: "A", Phone: "+15550020"})
	if _, err := svc.CreateInvitation(context.Background(), inviter.ID, "B", "+15550021"); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	guest, err := svc.CreateMember(context.Background(), CreateMemberParams{Name: "B", Phone: "+15550021", OfferID: &offer.ID})
	if err != nil {
		t.Fatalf("registration must survive a failed referral award: %v", err)
	}
	if _, ok := stores.members[guest.ID]; !ok {
		t.Error("guest should be persisted")
	}
}

func TestCreateInvitation_UnknownInviter(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(stores, &mockLoyalty{})

	_, err := svc.CreateInvitation(context.Background(), uuid.New(), "Guest", "+15550030")
	if !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got: %v", err)
	}
}

func TestGetMember_NotFound(t *testing.T) {
	stores := newMockStores()
	svc := newTestService(stores, &mockLoyalty{})

	_, err := svc.GetMember(context.Background(), uuid.New())
	if !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got: %v", err)
	}
}

package loyalty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubpulse/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// stubService captures the params handlers pass down and returns canned
// results, so these tests cover routing, decoding, and status mapping only.
type stubService struct {
	awardParams  *AwardParams
	awardRes     *AwardResult
	awardErr     error
	redeemParams *RedeemParams
	redeemRes    *RedemptionResult
	redeemErr    error
	cashRes      *CashRewardResult
	cashErr      error
	sweepRes     *SweepResult
	account      *models.LoyaltyAccount
}

func (s *stubService) GetAccount(_ context.Context, _ uuid.UUID) (*models.LoyaltyAccount, error) {
	return s.account, nil
}

func (s *stubService) Award(_ context.Context, p AwardParams) (*AwardResult, error) {
	s.awardParams = &p
	if s.awardErr != nil {
		return nil, s.awardErr
	}
	return s.awardRes, nil
}

func (s *stubService) Redeem(_ context.Context, p RedeemParams) (*RedemptionResult, error) {
	s.redeemParams = &p
	if s.redeemErr != nil {
		return nil, s.redeemErr
	}
	return s.redeemRes, nil
}

func (s *stubService) RedeemPendingCashReward(_ context.Context, _ uuid.UUID, _ *string) (*CashRewardResult, error) {
	if s.cashErr != nil {
		return nil, s.cashErr
	}
	return s.cashRes, nil
}

func (s *stubService) RunBirthdaySweep(_ context.Context, _ time.Time) (*SweepResult, error) {
	return s.sweepRes, nil
}

func (s *stubService) ListTransactions(_ context.Context, _ uuid.UUID) ([]*models.LoyaltyTransaction, error) {
	return nil, nil
}

var _ Service = (*stubService)(nil)

func postWithMemberID(target, body string, memberID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.SetPathValue("id", memberID.String())
	return req
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHandlerAward_FixedSourcesFillPoints(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantPoints int
	}{
		{name: "birthday default", body: `{"source":"birthday"}`, wantPoints: BirthdayPoints},
		{name: "review default", body: `{"source":"review"}`, wantPoints: ReviewPoints},
		{name: "session default", body: `{"source":"session"}`, wantPoints: SessionPoints},
		{name: "goal default", body: `{"source":"goal","goal":"strength"}`, wantPoints: GoalPoints},
		{name: "purchase derives from amount", body: `{"source":"purchase","amount":199}`, wantPoints: 19},
		{name: "sub-threshold purchase passes zero", body: `{"source":"purchase","amount":9}`, wantPoints: 0},
		{name: "explicit points win", body: `{"source":"review","points":300}`, wantPoints: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{awardRes: &AwardResult{Balance: tt.wantPoints}}
			h := NewHandler(stub, nil)
			memberID := uuid.New()

			rec := httptest.NewRecorder()
			h.Award(rec, postWithMemberID("/v1/loyalty/members/"+memberID.String()+"/award", tt.body, memberID))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if stub.awardParams == nil {
				t.Fatal("service not called")
			}
			if stub.awardParams.Points != tt.wantPoints {
				t.Errorf("points: got %d, want %d", stub.awardParams.Points, tt.wantPoints)
			}
			if stub.awardParams.MemberID != memberID {
				t.Errorf("member id: got %s, want %s", stub.awardParams.MemberID, memberID)
			}
		})
	}
}

func TestHandlerAward_BadMemberID(t *testing.T) {
	h := NewHandler(&stubService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/loyalty/members/not-a-uuid/award", strings.NewReader(`{}`))
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Award(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerAward_InvalidJSON(t *testing.T) {
	h := NewHandler(&stubService{}, nil)
	memberID := uuid.New()

	rec := httptest.NewRecorder()
	h.Award(rec, postWithMemberID("/award", `{"source":`, memberID))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid source", err: ErrInvalidSource, wantStatus: http.StatusBadRequest},
		{name: "invalid goal", err: ErrInvalidGoal, wantStatus: http.StatusBadRequest},
		{name: "missing reference", err: ErrMissingReference, wantStatus: http.StatusBadRequest},
		{name: "unknown tier", err: ErrInvalidTier, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad sub option", err: ErrInvalidSubOption, wantStatus: http.StatusUnprocessableEntity},
		{name: "member not found", err: ErrMemberNotFound, wantStatus: http.StatusNotFound},
		{name: "account not found", err: ErrAccountNotFound, wantStatus: http.StatusNotFound},
		{name: "insufficient balance", err: ErrInsufficientBalance, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{redeemErr: tt.err}
			h := NewHandler(stub, nil)
			memberID := uuid.New()

			rec := httptest.NewRecorder()
			h.Redeem(rec, postWithMemberID("/redeem", `{"tier":"cashback"}`, memberID))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerRedeem_PassesTierAndSubOption(t *testing.T) {
	stub := &stubService{redeemRes: &RedemptionResult{Balance: 1500, TierKey: TierDayAccess, Cost: 1000}}
	h := NewHandler(stub, nil)
	memberID := uuid.New()

	rec := httptest.NewRecorder()
	h.Redeem(rec, postWithMemberID("/redeem", `{"tier":"day_access","sub_option":"pool"}`, memberID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.redeemParams == nil || stub.redeemParams.TierKey != TierDayAccess || stub.redeemParams.SubOption != "pool" {
		t.Errorf("params: %+v", stub.redeemParams)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["balance"].(float64) != 1500 || body["cost"].(float64) != 1000 {
		t.Errorf("body: %v", body)
	}
}

func TestHandlerRedeemCashReward_NoneLeft(t *testing.T) {
	h := NewHandler(&stubService{cashErr: ErrNoPendingRewards}, nil)
	memberID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/cash-reward", nil)
	req.SetPathValue("id", memberID.String())
	rec := httptest.NewRecorder()
	h.RedeemCashReward(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandlerBirthdaySweep(t *testing.T) {
	stub := &stubService{sweepRes: &SweepResult{Processed: 2, Awarded: []uuid.UUID{uuid.New()}}}
	h := NewHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/loyalty/birthday-sweep", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.BirthdaySweep(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res SweepResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Processed != 2 || len(res.Awarded) != 1 {
		t.Errorf("sweep result: %+v", res)
	}
}

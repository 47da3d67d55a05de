package loyalty

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clubpulse/backend/internal/middleware"
	"github.com/clubpulse/backend/internal/models"
)

// Request/response structs use snake_case JSON.

type AwardRequest struct {
	// Points may be omitted for sources with a fixed amount.
	Points      int    `json:"points,omitempty"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Goal        string `json:"goal,omitempty"`
	// Amount is the purchase amount, used to derive points for
	// source=purchase.
	Amount          int             `json:"amount,omitempty"`
	RelatedEntityID *uuid.UUID      `json:"related_entity_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

type RedeemRequest struct {
	Tier      string `json:"tier"`
	SubOption string `json:"sub_option,omitempty"`
}

type SweepRequest struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromPath(w, r)
	if !ok {
		return
	}
	account, err := h.svc.GetAccount(r.Context(), memberID)
	if err != nil {
		h.log.Error("get loyalty account failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errBody("get account failed"))
		return
	}
	if account == nil {
		writeJSON(w, http.StatusNotFound, errBody("no loyalty account"))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromPath(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListTransactions(r.Context(), memberID)
	if err != nil {
		h.log.Error("list loyalty transactions failed", "member_id", memberID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errBody("list transactions failed"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// defaultPoints fills the canonical amount for fixed-value sources so callers
// only send what varies.
func defaultPoints(req AwardRequest) int {
	if req.Points > 0 {
		return req.Points
	}
	switch req.Source {
	case models.SourceBirthday:
		return BirthdayPoints
	case models.SourceReview:
		return ReviewPoints
	case models.SourceSession:
		return SessionPoints
	case models.SourceGoal:
		return GoalPoints
	case models.SourcePurchase:
		return PurchasePoints(req.Amount)
	}
	return req.Points
}

func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromPath(w, r)
	if !ok {
		return
	}
	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid JSON"))
		return
	}
	res, err := h.svc.Award(r.Context(), AwardParams{
		MemberID:        memberID,
		Points:          defaultPoints(req),
		Source:          req.Source,
		Description:     req.Description,
		Goal:            req.Goal,
		StaffName:       middleware.StaffNameFromCtx(r.Context()),
		RelatedEntityID: req.RelatedEntityID,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.writeError(w, err, "award failed", "member_id", memberID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":           res.Balance,
		"already_processed": res.AlreadyProcessed,
		"transaction":       res.Transaction,
	})
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromPath(w, r)
	if !ok {
		return
	}
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid JSON"))
		return
	}
	res, err := h.svc.Redeem(r.Context(), RedeemParams{
		MemberID:  memberID,
		TierKey:   req.Tier,
		SubOption: req.SubOption,
		StaffName: middleware.StaffNameFromCtx(r.Context()),
	})
	if err != nil {
		h.writeError(w, err, "redeem failed", "member_id", memberID, "tier", req.Tier)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":     res.Balance,
		"tier":        res.TierKey,
		"cost":        res.Cost,
		"receipt":     res.Receipt,
		"transaction": res.Transaction,
	})
}

func (h *Handler) RedeemCashReward(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RedeemPendingCashReward(r.Context(), memberID, middleware.StaffNameFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, err, "cash reward redemption failed", "member_id", memberID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payable_id":        res.PayableID,
		"receipt_number":    res.ReceiptNumber,
		"remaining_rewards": res.RemainingRewards,
	})
}

// BirthdaySweep is the external scheduler's entry point. Any shared-secret
// check belongs to the deployment in front of this endpoint.
func (h *Handler) BirthdaySweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	asOf := time.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	res, err := h.svc.RunBirthdaySweep(r.Context(), asOf)
	if err != nil {
		h.log.Error("birthday sweep failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errBody("birthday sweep failed"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps engine sentinels to HTTP statuses, keeping actionable
// failures (bad input, insufficient points) apart from system failures.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, logArgs ...any) {
	switch {
	case errors.Is(err, ErrInvalidSource), errors.Is(err, ErrInvalidPoints),
		errors.Is(err, ErrInvalidGoal), errors.Is(err, ErrMissingReference):
		writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
	case errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidSubOption):
		writeJSON(w, http.StatusUnprocessableEntity, errBody(err.Error()))
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errBody(err.Error()))
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrNoPendingRewards):
		writeJSON(w, http.StatusConflict, errBody(err.Error()))
	default:
		h.log.Error(msg, append(logArgs, "error", err)...)
		writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
	}
}

func memberIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid member id"))
		return uuid.Nil, false
	}
	return id, true
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

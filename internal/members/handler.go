package members

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request/response structs use snake_case JSON.

type CreateMemberRequest struct {
	Name     string     `json:"name"`
	Phone    string     `json:"phone"`
	Email    string     `json:"email"`
	Birthday *time.Time `json:"birthday,omitempty"`
	OfferID  *uuid.UUID `json:"offer_id,omitempty"`
}

type UpgradeMembershipRequest struct {
	OfferID uuid.UUID `json:"offer_id"`
}

type CreateInvitationRequest struct {
	InviterID  uuid.UUID `json:"inviter_id"`
	GuestName  string    `json:"guest_name"`
	GuestPhone string    `json:"guest_phone"`
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

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Phone == "" {
		http.Error(w, "missing name or phone", http.StatusBadRequest)
		return
	}
	m, err := h.svc.CreateMember(r.Context(), CreateMemberParams{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Birthday: req.Birthday,
		OfferID:  req.OfferID,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			http.Error(w, "phone already registered", http.StatusConflict)
			return
		}
		h.log.Error("create member failed", "error", err)
		http.Error(w, "create member failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpgradeMembership(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}
	var req UpgradeMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OfferID == uuid.Nil {
		http.Error(w, "missing offer_id", http.StatusBadRequest)
		return
	}
	m, err := h.svc.UpgradeMembership(r.Context(), id, req.OfferID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		h.log.Error("upgrade membership failed", "member_id", id, "error", err)
		http.Error(w, "upgrade membership failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}
	m, err := h.svc.GetMember(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		h.log.Error("get member failed", "member_id", id, "error", err)
		http.Error(w, "get member failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMembers(r.Context())
	if err != nil {
		h.log.Error("list members failed", "error", err)
		http.Error(w, "list members failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.InviterID == uuid.Nil || req.GuestPhone == "" {
		http.Error(w, "missing inviter_id or guest_phone", http.StatusBadRequest)
		return
	}
	inv, err := h.svc.CreateInvitation(r.Context(), req.InviterID, req.GuestName, req.GuestPhone)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, "inviter not found", http.StatusNotFound)
			return
		}
		h.log.Error("create invitation failed", "error", err)
		http.Error(w, "create invitation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clubpulse/backend/internal/auth"
)

type contextKey string

const ctxStaffKey contextKey = "staff"

// TokenValidator is the slice of auth.Service the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Staff, error)
}

// StaffAuth authenticates requests with a staff Bearer token and puts the
// staff identity into the request context. Handlers read it from there and
// pass the display name explicitly into the loyalty engine.
func StaffAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			staff, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxStaffKey, staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffFromCtx returns the authenticated staff identity or nil.
func StaffFromCtx(ctx context.Context) *auth.Staff {
	st, _ := ctx.Value(ctxStaffKey).(*auth.Staff)
	return st
}

// StaffNameFromCtx returns the staff display name for attribution, or nil for
// unattributed calls (e.g. the scheduler).
func StaffNameFromCtx(ctx context.Context) *string {
	st := StaffFromCtx(ctx)
	if st == nil || st.DisplayName == "" {
		return nil
	}
	name := st.DisplayName
	return &name
}

// WithStaff returns a context carrying the given staff identity.
func WithStaff(ctx context.Context, st *auth.Staff) context.Context {
	return context.WithValue(ctx, ctxStaffKey, st)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

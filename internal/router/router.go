package router

import (
	"net/http"

	"github.com/clubpulse/backend/internal/auth"
	"github.com/clubpulse/backend/internal/loyalty"
	"github.com/clubpulse/backend/internal/members"
	"github.com/clubpulse/backend/internal/middleware"
)

// New returns an http.Handler serving the API under /v1. Everything except
// auth is behind the staff token middleware, which is also where award and
// redeem attribution comes from.
func New(authHandler *auth.Handler, authSvc auth.Service, membersHandler *members.Handler, loyaltyHandler *loyalty.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)

	staff := middleware.StaffAuth(authSvc)

	mux.Handle("POST /v1/members", staff(http.HandlerFunc(membersHandler.CreateMember)))
	mux.Handle("GET /v1/members", staff(http.HandlerFunc(membersHandler.ListMembers)))
	mux.Handle("GET /v1/members/{id}", staff(http.HandlerFunc(membersHandler.GetMember)))
	mux.Handle("POST /v1/members/{id}/upgrade", staff(http.HandlerFunc(membersHandler.UpgradeMembership)))
	mux.Handle("POST /v1/invitations", staff(http.HandlerFunc(membersHandler.CreateInvitation)))

	mux.Handle("GET /v1/members/{id}/loyalty", staff(http.HandlerFunc(loyaltyHandler.GetAccount)))
	mux.Handle("GET /v1/members/{id}/loyalty/transactions", staff(http.HandlerFunc(loyaltyHandler.ListTransactions)))
	mux.Handle("POST /v1/members/{id}/loyalty/award", staff(http.HandlerFunc(loyaltyHandler.Award)))
	mux.Handle("POST /v1/members/{id}/loyalty/redeem", staff(http.HandlerFunc(loyaltyHandler.Redeem)))
	mux.Handle("POST /v1/members/{id}/loyalty/cash-reward", staff(http.HandlerFunc(loyaltyHandler.RedeemCashReward)))

	// Scheduler entry point; the deployment in front of it owns any
	// shared-secret check.
	mux.HandleFunc("POST /v1/loyalty/birthday-sweep", loyaltyHandler.BirthdaySweep)

	return mux
}

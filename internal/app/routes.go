package app

import (
	"github.com/fintrack/fintrack/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, _ config.Application) {
	h := deps.OnboardingHandler

	// Onboarding wizard
	r.HandleFunc("/api/onboarding", h.GetState).Methods("GET")
	r.HandleFunc("/api/onboarding/validate", h.ValidateField).Methods("POST")
	r.HandleFunc("/api/onboarding/next", h.Next).Methods("POST")
	r.HandleFunc("/api/onboarding/back", h.Back).Methods("POST")
	r.HandleFunc("/api/onboarding/jump", h.JumpTo).Methods("POST")
	r.HandleFunc("/api/onboarding/edit", h.EditStep).Methods("POST")
	r.HandleFunc("/api/onboarding/review", h.GetReview).Methods("GET")
	r.HandleFunc("/api/onboarding/complete", h.Complete).Methods("POST")

	// Bank accounts and cards
	r.HandleFunc("/api/onboarding/bank-accounts", h.AddBankAccount).Methods("POST")
	r.HandleFunc("/api/onboarding/bank-accounts/{localId}", h.RemoveBankAccount).Methods("DELETE")
	r.HandleFunc("/api/onboarding/bank-accounts/{localId}/primary", h.SetPrimaryBankAccount).Methods("PUT")
	r.HandleFunc("/api/onboarding/cards", h.AddCard).Methods("POST")
	r.HandleFunc("/api/onboarding/cards/{localId}", h.RemoveCard).Methods("DELETE")

	// Draft sections
	r.HandleFunc("/api/onboarding/{section}", h.UpdateSection).Methods("PUT")
}

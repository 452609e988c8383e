package onboarding

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fintrack/fintrack/internal/rest"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type ValidationErrorDTO struct {
	Error  string      `json:"error"`
	Fields FieldErrors `json:"fields"`
}

type ValidateFieldRequestDTO struct {
	Step    Step         `json:"step"`
	Field   string       `json:"field"`
	Value   string       `json:"value"`
	Context FieldContext `json:"context"`
}

type ValidateFieldResponseDTO struct {
	Field string `json:"field"`
	Error string `json:"error"`
	Valid bool   `json:"valid"`
}

type StepRequestDTO struct {
	Step Step `json:"step"`
}

type AddCardRequestDTO struct {
	CardType CardType `json:"cardType"`
}

type CompleteRequestDTO struct {
	Consent bool `json:"consent"`
}

type CompleteResponseDTO struct {
	Redirect string `json:"redirect"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	var submissionErr *SubmissionError
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "User not found", "")
	case errors.As(err, &validationErr):
		rest.WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorDTO{
			Error:  "Validation failed",
			Fields: validationErr.Fields,
		})
	case errors.As(err, &submissionErr):
		log.Errorf("onboarding submission failed: %v", err)
		rest.WriteError(w, http.StatusBadGateway, "Failed to create account. Please try again.", submissionErr.Operation)
	case errors.Is(err, ErrStepNotReachable), errors.Is(err, ErrNotOnReviewStep):
		rest.WriteError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCardNotFound):
		rest.WriteError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, ErrUnknownSection), errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrUnknownField), errors.Is(err, ErrUnknownCardType), errors.Is(err, ErrConsentRequired):
		rest.WriteError(w, http.StatusBadRequest, err.Error(), "")
	default:
		log.Errorf("onboarding request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for requests whose body may be empty, chunked or not.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, target any) bool {
	err := json.NewDecoder(r.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
	return false
}

// GetState godoc
// @Summary Get onboarding state
// @Description Current step, completed steps, draft and step metadata of the current user
// @Tags Onboarding
// @Produce json
// @Success 200 {object} State
// @Failure 403 {object} rest.ErrorResponse "User not found"
// @Router /api/onboarding [get]
// @Security XUserId
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting onboarding state")
	w.Header().Set("Content-Type", "application/json")
	state, err := h.service.State(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, state)
}

// UpdateSection godoc
// @Summary Update a draft section
// @Description Object sections are merged onto the stored value, list sections are replaced
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param section path string true "personalInfo, employmentInfo, bankAccounts, cardDetails or budget"
// @Success 200 {object} Draft
// @Failure 400 {object} rest.ErrorResponse "Unknown section or invalid payload"
// @Failure 403 {object} rest.ErrorResponse "User not found"
// @Router /api/onboarding/{section} [put]
// @Security XUserId
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]
	log.Debugf("Updating onboarding section %s", section)
	w.Header().Set("Content-Type", "application/json")
	var partial json.RawMessage
	if !decodeBody(w, r, &partial) {
		return
	}
	draft, err := h.service.UpdateSection(r.Context(), section, partial)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, draft)
}

// ValidateField godoc
// @Summary Validate one field
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body ValidateFieldRequestDTO true "Field to validate"
// @Success 200 {object} ValidateFieldResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Unknown field"
// @Router /api/onboarding/validate [post]
// @Security XUserId
func (h *Handler) ValidateField(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req ValidateFieldRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := h.service.ValidateField(r.Context(), req.Step, req.Field, req.Value, req.Context)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ValidateFieldResponseDTO{Field: req.Field, Error: msg, Valid: msg == ""})
}

// Next godoc
// @Summary Continue to the next step
// @Description Validates the current step and advances when it passes
// @Tags Onboarding
// @Produce json
// @Success 200 {object} Progress
// @Failure 422 {object} ValidationErrorDTO "Current step is invalid"
// @Router /api/onboarding/next [post]
// @Security XUserId
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	log.Debug("Advancing onboarding")
	w.Header().Set("Content-Type", "application/json")
	progress, err := h.service.Next(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, progress)
}

// Back godoc
// @Summary Go back one step
// @Tags Onboarding
// @Produce json
// @Success 200 {object} Progress
// @Router /api/onboarding/back [post]
// @Security XUserId
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	progress, err := h.service.Back(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, progress)
}

// JumpTo godoc
// @Summary Jump to a reached step
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body StepRequestDTO true "Target step"
// @Success 200 {object} Progress
// @Failure 409 {object} rest.ErrorResponse "Step not reached yet"
// @Router /api/onboarding/jump [post]
// @Security XUserId
func (h *Handler) JumpTo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req StepRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	progress, err := h.service.JumpTo(r.Context(), req.Step)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, progress)
}

// EditStep godoc
// @Summary Edit a step from the review
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body StepRequestDTO true "Target step"
// @Success 200 {object} Progress
// @Failure 400 {object} rest.ErrorResponse "Invalid step"
// @Router /api/onboarding/edit [post]
// @Security XUserId
func (h *Handler) EditStep(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req StepRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	progress, err := h.service.EditStep(r.Context(), req.Step)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, progress)
}

// AddBankAccount godoc
// @Summary Add a bank account
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param account body BankAccount false "Initial values"
// @Success 201 {object} BankAccount
// @Router /api/onboarding/bank-accounts [post]
// @Security XUserId
func (h *Handler) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var account BankAccount
	if !decodeOptionalBody(w, r, &account) {
		return
	}
	added, err := h.service.AddBankAccount(r.Context(), account)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, added)
}

// RemoveBankAccount godoc
// @Summary Remove a bank account
// @Tags Onboarding
// @Produce json
// @Param localId path string true "Account local id"
// @Success 200 {array} BankAccount
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/onboarding/bank-accounts/{localId} [delete]
// @Security XUserId
func (h *Handler) RemoveBankAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	accounts, err := h.service.RemoveBankAccount(r.Context(), mux.Vars(r)["localId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, accounts)
}

// SetPrimaryBankAccount godoc
// @Summary Make a bank account primary
// @Tags Onboarding
// @Produce json
// @Param localId path string true "Account local id"
// @Success 200 {array} BankAccount
// @Failure 404 {object} rest.ErrorResponse "Account not found"
// @Router /api/onboarding/bank-accounts/{localId}/primary [put]
// @Security XUserId
func (h *Handler) SetPrimaryBankAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	accounts, err := h.service.SetPrimaryBankAccount(r.Context(), mux.Vars(r)["localId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, accounts)
}

// AddCard godoc
// @Summary Add a card
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body AddCardRequestDTO false "Card type, Credit Card when omitted"
// @Success 201 {object} Card
// @Failure 400 {object} rest.ErrorResponse "Unknown card type"
// @Router /api/onboarding/cards [post]
// @Security XUserId
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req AddCardRequestDTO
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	card, err := h.service.AddCard(r.Context(), req.CardType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, card)
}

// RemoveCard godoc
// @Summary Remove a card
// @Tags Onboarding
// @Produce json
// @Param localId path string true "Card local id"
// @Success 200 {array} Card
// @Failure 404 {object} rest.ErrorResponse "Card not found"
// @Router /api/onboarding/cards/{localId} [delete]
// @Security XUserId
func (h *Handler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	cards, err := h.service.RemoveCard(r.Context(), mux.Vars(r)["localId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, cards)
}

// GetReview godoc
// @Summary Review summary
// @Tags Onboarding
// @Produce json
// @Success 200 {object} Review
// @Router /api/onboarding/review [get]
// @Security XUserId
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	review, err := h.service.Review(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, review)
}

// Complete godoc
// @Summary Complete onboarding
// @Description Submits the draft to the finance backend and clears it
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body CompleteRequestDTO true "Consent"
// @Success 200 {object} CompleteResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Consent missing"
// @Failure 409 {object} rest.ErrorResponse "Not on the review step"
// @Failure 422 {object} ValidationErrorDTO "Budget exceeded"
// @Failure 502 {object} rest.ErrorResponse "Finance backend call failed"
// @Router /api/onboarding/complete [post]
// @Security XUserId
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	log.Debug("Completing onboarding")
	w.Header().Set("Content-Type", "application/json")
	var req CompleteRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	redirect, err := h.service.Complete(r.Context(), req.Consent)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, CompleteResponseDTO{Redirect: redirect})
}

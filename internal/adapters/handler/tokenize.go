package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sebagarciam/servipay/internal/core/domain"
	"github.com/sebagarciam/servipay/internal/core/service"
)

type TokenizeRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Provider     string `json:"provider" validate:"required"`
	CardNumber   string `json:"card_number" validate:"required,numeric,min=13,max=19"`
	ExpiryMonth  int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear   int    `json:"expiry_year" validate:"required,min=2020"`
	CVV          string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	HolderName   string `json:"holder_name" validate:"required"`
	Alias        string `json:"alias"`
	SetAsDefault bool   `json:"set_as_default"`
}

// HandleTokenizeDirect tokenizes raw card data in a single call against
// providers that support the direct method.
func (h *Handler) HandleTokenizeDirect(w http.ResponseWriter, r *http.Request) {
	var req TokenizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	provider, err := domain.ParseProviderName(req.Provider)
	if err != nil {
		respondWithError(w, err)
		return
	}

	card, err := h.tokenization.TokenizeDirect(r.Context(), service.TokenizeDirectCommand{
		UserID:   req.UserID,
		Email:    req.Email,
		Provider: provider,
		Card: domain.CardInput{
			Number:     req.CardNumber,
			ExpMonth:   req.ExpiryMonth,
			ExpYear:    req.ExpiryYear,
			CVV:        req.CVV,
			HolderName: req.HolderName,
		},
		Alias:        req.Alias,
		SetAsDefault: req.SetAsDefault,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, card)
}

type CreateSessionRequest struct {
	UserID       string            `json:"user_id" validate:"required"`
	Email        string            `json:"email" validate:"omitempty,email"`
	Provider     string            `json:"provider" validate:"required"`
	ReturnURL    string            `json:"return_url" validate:"required,url"`
	SetAsDefault bool              `json:"set_as_default"`
	Metadata     map[string]string `json:"metadata"`
}

// HandleCreateSession starts phase 1 of a redirect tokenization flow.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	provider, err := domain.ParseProviderName(req.Provider)
	if err != nil {
		respondWithError(w, err)
		return
	}

	session, err := h.tokenization.CreateSession(r.Context(), service.CreateSessionCommand{
		UserID:       req.UserID,
		Email:        req.Email,
		Provider:     provider,
		ReturnURL:    req.ReturnURL,
		SetAsDefault: req.SetAsDefault,
		Metadata:     req.Metadata,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

type CompleteSessionRequest struct {
	UserID   string            `json:"user_id" validate:"required"`
	Callback map[string]string `json:"callback"`
}

// HandleCompleteSession finishes phase 2 of a redirect flow with the payload
// the vendor posted back to the return URL.
func (h *Handler) HandleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewValidationError("invalid session id"))
		return
	}

	var req CompleteSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.tokenization.CompleteSession(r.Context(), service.CompleteSessionCommand{
		SessionID: sessionID,
		UserID:    req.UserID,
		Callback:  domain.CallbackData(req.Callback),
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, card)
}

type cardView struct {
	TokenID    uuid.UUID `json:"token_id"`
	LastFour   string    `json:"card_last4"`
	Brand      string    `json:"card_brand"`
	ExpMonth   int       `json:"card_exp_month,omitempty"`
	ExpYear    int       `json:"card_exp_year,omitempty"`
	Alias      string    `json:"alias,omitempty"`
	IsDefault  bool      `json:"is_default"`
	Provider   string    `json:"provider"`
	RequireCVV bool      `json:"requires_cvv"`
}

// HandleListCards returns the caller's stored cards.
func (h *Handler) HandleListCards(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	cards, err := h.tokenization.ListCards(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	views := make([]cardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, cardView{
			TokenID:    card.ID,
			LastFour:   card.LastFour,
			Brand:      card.Brand,
			ExpMonth:   card.ExpMonth,
			ExpYear:    card.ExpYear,
			Alias:      card.Alias,
			IsDefault:  card.IsDefault,
			Provider:   string(card.Provider),
			RequireCVV: card.RequiresCVV,
		})
	}

	respondWithJSON(w, http.StatusOK, views)
}

// decode reads, unmarshals and validates a JSON request body. It writes the
// error response itself and reports whether the caller should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, err)
		return false
	}

	if err := json.Unmarshal(body, req); err != nil {
		respondWithError(w, domain.NewValidationError("invalid JSON body"))
		return false
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return false
	}
	return true
}

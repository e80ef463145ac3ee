package handler

import (
	"io"
	"net/http"

	"github.com/sebagarciam/servipay/internal/core/domain"
)

// HandleWebhook receives vendor notifications. The signature header differs
// per vendor; providers that do not sign deliveries send none.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}

	ack, err := h.webhooks.Handle(r.Context(), providerName, payload, webhookSignature(r, providerName))
	if err != nil {
		h.logger.Warn("webhook rejected",
			"provider", providerName,
			"error", err,
		)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ack)
}

func webhookSignature(r *http.Request, providerName string) string {
	switch domain.ProviderName(providerName) {
	case domain.ProviderStripe:
		return r.Header.Get("Stripe-Signature")
	case domain.ProviderMercadoPago:
		return r.Header.Get("X-Signature")
	default:
		return ""
	}
}

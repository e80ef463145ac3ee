package handler

import "net/http"

// HandleListProviders describes every processor the deployment knows about,
// so callers can discover which providers and tokenization methods are live.
func (h *Handler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.registry.List())
}

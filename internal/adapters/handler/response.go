package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sebagarciam/servipay/internal/core/domain"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else {
		if apiErr, ok := data.(*APIError); ok {
			response.Error = apiErr
		}
	}

	_ = json.NewEncoder(w).Encode(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	code := domain.ErrCodeInternal
	message := err.Error()
	status := http.StatusInternalServerError
	var details map[string]string

	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		details = domainErr.Details

		switch domainErr.Code {
		case domain.ErrCodeValidation, domain.ErrCodeUnknownProvider, domain.ErrCodeMethodNotSupported, domain.ErrCodeMissingConfig:
			status = http.StatusBadRequest
		case domain.ErrCodeUnauthorized:
			status = http.StatusForbidden
		case domain.ErrCodeNotFound:
			status = http.StatusNotFound
		case domain.ErrCodeSessionProcessed, domain.ErrCodeInvalidTransition:
			status = http.StatusConflict
		case domain.ErrCodeSessionExpired:
			status = http.StatusGone
		case domain.ErrCodeTokenizationFailed, domain.ErrCodeSessionCreationFailed, domain.ErrCodeCompletionFailed,
			domain.ErrCodePaymentFailed, domain.ErrCodeRefundFailed, domain.ErrCodeStatusCheckFailed:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

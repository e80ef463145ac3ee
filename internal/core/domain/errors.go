package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a business logic error with a stable taxonomy code.
type DomainError struct {
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error taxonomy codes. Adapters never let vendor errors cross their boundary
// without being wrapped into one of these.
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeMissingConfig         = "MISSING_CONFIG"
	ErrCodeUnknownProvider       = "UNKNOWN_PROVIDER"
	ErrCodeMethodNotSupported    = "METHOD_NOT_SUPPORTED"
	ErrCodeSessionProcessed      = "SESSION_ALREADY_PROCESSED"
	ErrCodeSessionExpired        = "SESSION_EXPIRED"
	ErrCodeTokenizationFailed    = "TOKENIZATION_FAILED"
	ErrCodeSessionCreationFailed = "SESSION_CREATION_FAILED"
	ErrCodeCompletionFailed      = "TOKENIZATION_COMPLETION_FAILED"
	ErrCodePaymentFailed         = "PAYMENT_FAILED"
	ErrCodeRefundFailed          = "REFUND_FAILED"
	ErrCodeStatusCheckFailed     = "STATUS_CHECK_FAILED"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: message}
}

func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Code: ErrCodeUnauthorized, Message: message}
}

func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewMissingConfigError names exactly which credential fields are missing so
// the caller can fix its environment without spelunking.
func NewMissingConfigError(provider ProviderName, fields ...string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("provider %s is not configured: missing %s", provider, strings.Join(fields, ", ")),
		Details: map[string]string{"provider": string(provider), "missing": strings.Join(fields, ", ")},
	}
}

// NewProviderDisabledError reports a provider the operator switched off.
func NewProviderDisabledError(provider ProviderName) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("provider %s is disabled", provider),
		Details: map[string]string{"provider": string(provider)},
	}
}

func NewUnknownProviderError(name string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownProvider,
		Message: fmt.Sprintf("unknown payment provider %q", name),
	}
}

func NewMethodNotSupportedError(provider ProviderName, operation string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMethodNotSupported,
		Message: fmt.Sprintf("provider %s does not support %s", provider, operation),
	}
}

// NewSessionExpiredError marks a completion attempt past the redirect window.
func NewSessionExpiredError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeSessionExpired,
		Message: "tokenization session has expired",
		Err:     err,
	}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition payment from %s to %s", from, to),
	}
}

// NewProviderError wraps a vendor-side failure with a taxonomy code.
func NewProviderError(code string, provider ProviderName, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf("provider %s request failed", provider),
		Details: map[string]string{"provider": string(provider)},
		Err:     err,
	}
}

// IsErrorCode reports whether err is a DomainError carrying the given code.
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

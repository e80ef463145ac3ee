package stripe

import "github.com/sebagarciam/servipay/internal/core/domain"

// mapStatus maps payment intent statuses onto the shared taxonomy. Total:
// unrecognized statuses become pending, never a settled state.
func mapStatus(status string) domain.PaymentStatus {
	switch status {
	case "succeeded":
		return domain.PaymentCompleted
	case "processing":
		return domain.PaymentProcessing
	case "canceled":
		return domain.PaymentCancelled
	case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return domain.PaymentPending
	default:
		return domain.PaymentPending
	}
}

// mapEventType maps a webhook event type to the payment status it implies.
// Events we do not act on report relevant=false and are acknowledged without
// a payment write.
func mapEventType(eventType string) (status domain.PaymentStatus, relevant bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return domain.PaymentCompleted, true
	case "payment_intent.payment_failed":
		return domain.PaymentFailed, true
	case "payment_intent.canceled":
		return domain.PaymentCancelled, true
	case "payment_intent.processing":
		return domain.PaymentProcessing, true
	case "charge.refunded":
		return domain.PaymentRefunded, true
	default:
		return domain.PaymentPending, false
	}
}

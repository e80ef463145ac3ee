package transbank

import "github.com/sebagarciam/servipay/internal/core/domain"

// mapStatus maps the OneClick transaction status vocabulary onto the shared
// taxonomy. The mapping is total: anything unrecognized is pending, never a
// settled state, so an unknown vendor status can never be mistaken for moved
// money.
func mapStatus(status string) domain.PaymentStatus {
	switch status {
	case "AUTHORIZED", "CAPTURED":
		return domain.PaymentCompleted
	case "INITIALIZED":
		return domain.PaymentPending
	case "FAILED":
		return domain.PaymentFailed
	case "NULLIFIED":
		return domain.PaymentCancelled
	case "PARTIALLY_NULLIFIED", "REVERSED":
		return domain.PaymentRefunded
	default:
		return domain.PaymentPending
	}
}

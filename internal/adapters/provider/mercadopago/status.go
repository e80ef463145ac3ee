package mercadopago

import "github.com/sebagarciam/servipay/internal/core/domain"

// mapStatus maps the Mercado Pago payment status vocabulary onto the shared
// taxonomy. Total: unrecognized statuses become pending, never a settled
// state.
func mapStatus(status string) domain.PaymentStatus {
	switch status {
	case "approved":
		return domain.PaymentCompleted
	case "authorized", "in_process", "in_mediation":
		return domain.PaymentProcessing
	case "pending":
		return domain.PaymentPending
	case "rejected":
		return domain.PaymentFailed
	case "cancelled":
		return domain.PaymentCancelled
	case "refunded", "charged_back":
		return domain.PaymentRefunded
	default:
		return domain.PaymentPending
	}
}

package payment

import (
	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// NewGateway returns the Razorpay gateway, or the dev gateway when running in
// dev mode without Razorpay credentials.
func NewGateway(cfg config.PaymentConfig, dev bool, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	if dev && cfg.Razorpay.KeySecret == "" {
		logger.Warn().Msg("razorpay credentials missing; using the in-memory dev gateway")
		return NewNoopPaymentGateway(""), nil
	}
	return NewRazorpayGateway(cfg.Razorpay)
}

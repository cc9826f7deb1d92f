package adapter

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/model"
)

type OrderRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
	OfferID  string
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type OfferRequest struct {
	Code          string
	Description   string
	DiscountType  model.DiscountType
	DiscountValue float64
	ExpiresAt     *time.Time
}

// RefundResult captures a minimal, provider-agnostic result of a refund request.
type RefundResult struct {
	ID     string // provider refund id
	Status string
	Amount int64
}

// WebhookEvent is a verified, decoded gateway notification.
type WebhookEvent struct {
	Event       string // e.g. payment.captured, payment.failed
	PaymentID   string
	OrderID     string
	Amount      int64
	Currency    string
	Notes       map[string]string
	ErrorReason string
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key the checkout widget needs.
	KeyID() string

	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	// CreateOffer mirrors a coupon as a provider-side offer and returns its id.
	CreateOffer(ctx context.Context, req OfferRequest) (string, error)
	// Refund issues a full refund of a captured payment.
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*RefundResult, error)

	// VerifySignature checks the checkout callback signature for orderID|paymentID.
	VerifySignature(orderID, paymentID, signature string) bool
	// ParseWebhook authenticates body against signature and decodes it.
	// Returns domain.ErrInvalidWebhook when the signature does not match.
	ParseWebhook(body []byte, signature string) (*WebhookEvent, error)
}

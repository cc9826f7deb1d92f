package repository

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Create inserts a payment; domain.ErrAlreadyExists if the gateway
	// payment id or invoice number was already recorded.
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByGatewayID(ctx context.Context, paymentID string) (*model.Payment, error)
	FindByInvoice(ctx context.Context, invoiceNumber string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
	// MarkRefunded performs paid -> refunded; domain.ErrRefundNotAllowed when
	// the payment is no longer paid.
	MarkRefunded(ctx context.Context, id, refundID string, at time.Time) error

	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
	RevenueByMonth(ctx context.Context, since time.Time) ([]model.MonthlyRevenue, error)
	TopCoupons(ctx context.Context, limit int) ([]model.CouponUsage, error)
}

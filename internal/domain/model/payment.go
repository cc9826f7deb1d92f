package model

import (
	"fmt"
	"time"

	"linkbio-billing/internal/domain"

	"github.com/oklog/ulid/v2"
)

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is the money record of one gateway payment. Rows are written once;
// the only later change is paid -> refunded.
type Payment struct {
	ID            string        `bson:"_id" json:"id"`
	UserID        string        `bson:"user_id" json:"userId"`
	Plan          Plan          `bson:"plan" json:"plan"`
	Amount        int64         `bson:"amount" json:"amount"` // minor units actually charged
	BaseAmount    int64         `bson:"base_amount" json:"baseAmount"`
	Discount      int64         `bson:"discount" json:"discount"`
	Currency      string        `bson:"currency" json:"currency"`
	Provider      string        `bson:"provider" json:"provider"`
	OrderID       string        `bson:"order_id" json:"orderId"`
	PaymentID     string        `bson:"payment_id" json:"paymentId"` // gateway payment id
	InvoiceNumber string        `bson:"invoice_number,omitempty" json:"invoiceNumber,omitempty"`
	CouponCode    string        `bson:"coupon_code,omitempty" json:"couponCode,omitempty"`
	Status        PaymentStatus `bson:"status" json:"status"`
	FailureReason string        `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	PaidAt        *time.Time    `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	RefundedAt    *time.Time    `bson:"refunded_at,omitempty" json:"refundedAt,omitempty"`
	RefundID      string        `bson:"refund_id,omitempty" json:"refundId,omitempty"`
}

// NewInvoiceNumber returns INV-YYYYMMDD-<ULID>; the ULID keeps numbers unique
// across instances and sortable by issue time.
func NewInvoiceNumber(now time.Time) string {
	return "INV-" + now.UTC().Format("20060102") + "-" + ulid.Make().String()
}

// CheckRefundable fails with ErrRefundNotAllowed unless the payment is paid.
func (p *Payment) CheckRefundable() error {
	if p.Status != PaymentStatusPaid {
		return fmt.Errorf("%w: payment is %s", domain.ErrRefundNotAllowed, p.Status)
	}
	return nil
}

type PaymentFilter struct {
	Status PaymentStatus
	UserID string
	Offset int
	Limit  int
}

package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is the gateway-backed record attached to a pro user.
// A nil *Subscription means the user has none.
type Subscription struct {
	Provider  string             `bson:"provider" json:"provider"`
	OrderID   string             `bson:"order_id" json:"orderId"`
	PaymentID string             `bson:"payment_id" json:"paymentId"`
	Status    SubscriptionStatus `bson:"status" json:"status"`
	StartedAt time.Time          `bson:"started_at" json:"startedAt"`
}

func NewActiveSubscription(provider, orderID, paymentID string, now time.Time) *Subscription {
	return &Subscription{
		Provider:  provider,
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    SubscriptionStatusActive,
		StartedAt: now,
	}
}

func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// Kind is "none" for a nil subscription, otherwise its status.
func (s *Subscription) Kind() string {
	if s == nil {
		return "none"
	}
	return string(s.Status)
}

// BackedBy reports whether the subscription is active and was paid by paymentID.
func (s *Subscription) BackedBy(paymentID string) bool {
	return s.IsActive() && paymentID != "" && s.PaymentID == paymentID
}

package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"linkbio-billing/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account aggregate. Plan, PlanExpiresAt and Subscription form
// the entitlement record read by every feature gate.
type User struct {
	ID                 string        `bson:"_id" json:"id"`
	Email              string        `bson:"email" json:"email"`
	Username           string        `bson:"username" json:"username"`
	PasswordHash       string        `bson:"password_hash" json:"-"`
	Role               Role          `bson:"role" json:"role"`
	Plan               Plan          `bson:"plan" json:"plan"`
	PlanExpiresAt      *time.Time    `bson:"plan_expires_at" json:"planExpiresAt"`
	Subscription       *Subscription `bson:"subscription" json:"subscription"`
	Checkouts          []Checkout    `bson:"checkouts,omitempty" json:"-"`
	ExpiryAlertSentFor *time.Time    `bson:"expiry_alert_sent_for,omitempty" json:"-"`
	CreatedAt          time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updatedAt"`
}

// MaxPendingCheckouts bounds the open orders kept per user; the oldest is
// dropped first.
const MaxPendingCheckouts = 20

// Checkout is a pending gateway order opened by create-order and consumed
// by verification. Its amounts are the server-side source of truth.
type Checkout struct {
	OrderID    string    `bson:"order_id"`
	Amount     int64     `bson:"amount"`
	BaseAmount int64     `bson:"base_amount"`
	Discount   int64     `bson:"discount"`
	Currency   string    `bson:"currency"`
	CouponCode string    `bson:"coupon_code,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(email, username, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email", domain.ErrInvalidArgument)
	}
	if username == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Plan:         PlanFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// IsPro reports an unexpired pro plan at now.
func (u *User) IsPro(now time.Time) bool {
	return u != nil && u.Plan == PlanPro && u.PlanExpiresAt != nil && now.Before(*u.PlanExpiresAt)
}

// RenewalBase is the instant a newly purchased month starts from: the current
// expiry while the pro plan is still running, now otherwise.
func (u *User) RenewalBase(now time.Time) time.Time {
	if u.IsPro(now) {
		return *u.PlanExpiresAt
	}
	return now
}

// PendingCheckout returns the open order orderID, or nil.
func (u *User) PendingCheckout(orderID string) *Checkout {
	for i := range u.Checkouts {
		if u.Checkouts[i].OrderID == orderID {
			return &u.Checkouts[i]
		}
	}
	return nil
}

func (u *User) Entitlements() *Entitlements {
	return &Entitlements{
		Plan:          u.Plan,
		PlanExpiresAt: u.PlanExpiresAt,
		Subscription:  u.Subscription,
		Limits:        LimitsFor(u.Plan),
	}
}

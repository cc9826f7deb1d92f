package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrRateLimited     = errors.New("too many requests")

	// Auth
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")

	// Coupons
	ErrCouponInvalid   = errors.New("invalid coupon code")
	ErrCouponExhausted = errors.New("coupon expired or exhausted")
	ErrOfferLocked     = errors.New("discount cannot change while a gateway offer is attached")

	// Checkout and payments
	ErrAlreadyPro       = errors.New("user already has an active pro plan")
	ErrOrderNotFound    = errors.New("order not found for user")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrRefundNotAllowed = errors.New("payment cannot be refunded")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrGateway          = errors.New("payment gateway error")
	ErrInvalidWebhook   = errors.New("invalid webhook signature")

	// Entitlements
	ErrProRequired      = errors.New("feature requires the pro plan")
	ErrPlanLimitReached = errors.New("plan limit reached")

	// Infra
	ErrOperationFailed = errors.New("database operation failed")
	ErrMailFailed      = errors.New("email delivery failed")
	ErrLockNotAcquired = errors.New("lock held by another runner")
)

package repository

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

// UserRepository returns domain.ErrNotFound for missing users and
// domain.ErrAlreadyExists on email/username collisions.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// AddCheckout appends a pending gateway order, keeping at most
	// model.MaxPendingCheckouts.
	AddCheckout(ctx context.Context, userID string, c *model.Checkout) error
	// ActivatePro consumes the checkout for orderID and writes the pro
	// entitlement in one conditional update, provided plan_expires_at still
	// equals prevExpiry. domain.ErrOrderNotFound when nothing matched.
	ActivatePro(ctx context.Context, userID, orderID string, prevExpiry *time.Time, expiresAt time.Time, sub *model.Subscription) error
	// SetPlan overwrites the entitlement record (admin path).
	SetPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time, sub *model.Subscription) error
	// DowngradeIfBackedBy moves the user to free only if the active
	// subscription references paymentID. Reports whether a row changed.
	DowngradeIfBackedBy(ctx context.Context, userID, paymentID string) (bool, error)
	// DowngradeExpired bulk-downgrades every pro user whose expiry is <= now.
	DowngradeExpired(ctx context.Context, now time.Time) (int64, error)

	// FindExpiring lists pro users expiring in (from, to] not yet alerted for
	// their current expiry.
	FindExpiring(ctx context.Context, from, to time.Time) ([]*model.User, error)
	// ClaimExpiryAlert marks the alert for expiresAt as sent. False when
	// another runner already claimed it or the expiry moved.
	ClaimExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) (bool, error)
	ReleaseExpiryAlert(ctx context.Context, userID string, expiresAt time.Time) error

	// ListByAudience pages users ordered by id, starting after afterID.
	ListByAudience(ctx context.Context, audience model.Audience, afterID string, limit int) ([]*model.User, error)
	CountByAudience(ctx context.Context, audience model.Audience) (int64, error)
	CountByPlan(ctx context.Context) ([]model.PlanCount, error)
}

package repository

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/model"
)

// -----------------------------
// Coupons
// -----------------------------

type CouponRepository interface {
	Create(ctx context.Context, c *model.Coupon) error
	Update(ctx context.Context, c *model.Coupon) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context) ([]*model.Coupon, error)
	ListPublic(ctx context.Context, now time.Time) ([]*model.Coupon, error)
	// Redeem increments used_count if the coupon is still valid at now.
	// False when the guard failed.
	Redeem(ctx context.Context, code string, now time.Time) (bool, error)
}

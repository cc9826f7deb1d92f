package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

const publicCouponsKey = "coupons:public"

type CouponInput struct {
	Code            string
	Description     string
	DiscountType    model.DiscountType
	DiscountValue   float64
	MaxUses         *int
	ExpiresAt       *time.Time
	IsActive        *bool // nil means active
	IsPublic        bool
	RazorpayOfferID string
}

// CouponPatch carries optional field updates; nil leaves a field untouched.
type CouponPatch struct {
	Description   *string
	DiscountType  *model.DiscountType
	DiscountValue *float64
	MaxUses       *int
	ClearMaxUses  bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
	IsActive      *bool
	IsPublic      *bool
}

// changesDiscount reports a patch that would alter c's discount terms.
func (p CouponPatch) changesDiscount(c *model.Coupon) bool {
	return (p.DiscountType != nil && *p.DiscountType != c.DiscountType) ||
		(p.DiscountValue != nil && *p.DiscountValue != c.DiscountValue)
}

// CouponQuote is a validated coupon together with the price it yields.
type CouponQuote struct {
	Coupon *model.Coupon
	Quote  model.Quote
}

type CouponUseCase interface {
	// Validate resolves code to a coupon usable right now.
	Validate(ctx context.Context, code string) (*model.Coupon, error)
	// Quote validates code on behalf of userID (rate limited) and prices the pro plan with it.
	Quote(ctx context.Context, userID, code string) (*CouponQuote, error)
	Create(ctx context.Context, in CouponInput) (*model.Coupon, error)
	Update(ctx context.Context, id string, patch CouponPatch) (*model.Coupon, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Coupon, error)
	ListPublic(ctx context.Context) ([]model.PublicCoupon, error)
	// Redeem counts one use of code; domain.ErrCouponExhausted when no use is left.
	Redeem(ctx context.Context, code string) error
}

type CouponOptions struct {
	RateLimit int           // validations per minute per user
	CacheTTL  time.Duration // public list cache lifetime
}

type couponUC struct {
	coupons repository.CouponRepository
	gateway adapter.PaymentGateway
	cache   adapter.Cache
	limiter adapter.RateLimiter
	pricing Pricing
	opts    CouponOptions
	log     *zerolog.Logger
}

func NewCouponUseCase(
	coupons repository.CouponRepository,
	gateway adapter.PaymentGateway,
	cache adapter.Cache,
	limiter adapter.RateLimiter,
	pricing Pricing,
	opts CouponOptions,
	logger *zerolog.Logger,
) *couponUC {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	l := logger.With().Str("component", "CouponUC").Logger()
	return &couponUC{
		coupons: coupons,
		gateway: gateway,
		cache:   cache,
		limiter: limiter,
		pricing: pricing,
		opts:    opts,
		log:     &l,
	}
}

func (u *couponUC) Validate(ctx context.Context, code string) (*model.Coupon, error) {
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrCouponInvalid
	}
	c, err := u.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCouponInvalid
		}
		return nil, err
	}
	if !c.IsValid(time.Now()) {
		return nil, domain.ErrCouponExhausted
	}
	return c, nil
}

func (u *couponUC) Quote(ctx context.Context, userID, code string) (*CouponQuote, error) {
	key := fmt.Sprintf("rate_limit:coupon_validate:%s", userID)
	ok, err := u.limiter.Allow(ctx, key, u.opts.RateLimit, time.Minute)
	if err != nil {
		// the limiter is advisory; a Redis hiccup must not block checkout
		logging.With(ctx, u.log).Warn().Err(err).Msg("coupon rate limiter unavailable")
	} else if !ok {
		return nil, domain.ErrRateLimited
	}

	c, err := u.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	return &CouponQuote{Coupon: c, Quote: u.pricing.Quote(c)}, nil
}

func (u *couponUC) Create(ctx context.Context, in CouponInput) (*model.Coupon, error) {
	defer logging.TraceDuration(u.log, "CouponUC.Create")()

	now := time.Now().UTC()
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	c := &model.Coupon{
		ID:              uuid.NewString(),
		Code:            model.NormalizeCode(in.Code),
		Description:     in.Description,
		DiscountType:    in.DiscountType,
		DiscountValue:   in.DiscountValue,
		MaxUses:         in.MaxUses,
		ExpiresAt:       in.ExpiresAt,
		IsActive:        active,
		IsPublic:        in.IsPublic,
		RazorpayOfferID: in.RazorpayOfferID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.CheckDiscount(now); err != nil {
		return nil, err
	}

	if c.RazorpayOfferID == "" {
		offerID, err := u.gateway.CreateOffer(ctx, adapter.OfferRequest{
			Code:          c.Code,
			Description:   c.Description,
			DiscountType:  c.DiscountType,
			DiscountValue: c.DiscountValue,
			ExpiresAt:     c.ExpiresAt,
		})
		if err != nil {
			u.log.Warn().Err(err).Str("code", c.Code).Msg("gateway offer not created; coupon stays local")
		} else {
			c.RazorpayOfferID = offerID
		}
	}

	if err := u.coupons.Create(ctx, c); err != nil {
		return nil, err
	}
	u.invalidatePublic(ctx)
	u.log.Info().Str("code", c.Code).Str("offer_id", c.RazorpayOfferID).Msg("coupon created")
	return c, nil
}

func (u *couponUC) Update(ctx context.Context, id string, patch CouponPatch) (*model.Coupon, error) {
	c, err := u.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.RazorpayOfferID != "" && patch.changesDiscount(c) {
		return nil, domain.ErrOfferLocked
	}

	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.DiscountType != nil {
		c.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		c.DiscountValue = *patch.DiscountValue
	}
	switch {
	case patch.ClearMaxUses:
		c.MaxUses = nil
	case patch.MaxUses != nil:
		c.MaxUses = patch.MaxUses
	}
	switch {
	case patch.ClearExpiry:
		c.ExpiresAt = nil
	case patch.ExpiresAt != nil:
		c.ExpiresAt = patch.ExpiresAt
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	if patch.IsPublic != nil {
		c.IsPublic = *patch.IsPublic
	}

	if err := c.CheckTerms(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	// only a newly set expiry has to lie ahead
	if patch.ExpiresAt != nil && !patch.ClearExpiry && !patch.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", domain.ErrInvalidArgument)
	}
	c.UpdatedAt = now
	if err := u.coupons.Update(ctx, c); err != nil {
		return nil, err
	}
	u.invalidatePublic(ctx)
	return c, nil
}

func (u *couponUC) Delete(ctx context.Context, id string) error {
	if err := u.coupons.Delete(ctx, id); err != nil {
		return err
	}
	u.invalidatePublic(ctx)
	return nil
}

func (u *couponUC) List(ctx context.Context) ([]*model.Coupon, error) {
	return u.coupons.List(ctx)
}

func (u *couponUC) ListPublic(ctx context.Context) ([]model.PublicCoupon, error) {
	if raw, ok, err := u.cache.Get(ctx, publicCouponsKey); err != nil {
		metrics.IncCacheRequest("public_coupons", "error")
		u.log.Warn().Err(err).Msg("public coupon cache read failed")
	} else if ok {
		var out []model.PublicCoupon
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.IncCacheRequest("public_coupons", "hit")
			return out, nil
		}
	} else {
		metrics.IncCacheRequest("public_coupons", "miss")
	}

	now := time.Now()
	list, err := u.coupons.ListPublic(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicCoupon, 0, len(list))
	for _, c := range list {
		if c.IsValid(now) {
			out = append(out, c.Public())
		}
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := u.cache.Set(ctx, publicCouponsKey, raw, u.opts.CacheTTL); err != nil {
			u.log.Warn().Err(err).Msg("public coupon cache write failed")
		}
	}
	return out, nil
}

func (u *couponUC) Redeem(ctx context.Context, code string) error {
	ok, err := u.coupons.Redeem(ctx, model.NormalizeCode(code), time.Now())
	if err != nil {
		metrics.IncCouponRedemption("error")
		return err
	}
	if !ok {
		metrics.IncCouponRedemption("exhausted")
		return domain.ErrCouponExhausted
	}
	metrics.IncCouponRedemption("ok")
	u.invalidatePublic(ctx)
	return nil
}

func (u *couponUC) invalidatePublic(ctx context.Context) {
	if err := u.cache.Del(ctx, publicCouponsKey); err != nil {
		u.log.Warn().Err(err).Msg("public coupon cache invalidation failed")
	}
}

package model

import (
	"fmt"
	"strings"
	"time"

	"linkbio-billing/internal/domain"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon is a discount code. Fixed discounts are in currency minor units.
type Coupon struct {
	ID              string       `bson:"_id" json:"id"`
	Code            string       `bson:"code" json:"code"`
	Description     string       `bson:"description" json:"description"`
	DiscountType    DiscountType `bson:"discount_type" json:"discountType"`
	DiscountValue   float64      `bson:"discount_value" json:"discountValue"`
	MaxUses         *int         `bson:"max_uses" json:"maxUses"`
	UsedCount       int          `bson:"used_count" json:"usedCount"`
	ExpiresAt       *time.Time   `bson:"expires_at" json:"expiresAt"`
	IsActive        bool         `bson:"is_active" json:"isActive"`
	IsPublic        bool         `bson:"is_public" json:"isPublic"`
	RazorpayOfferID string       `bson:"razorpay_offer_id,omitempty" json:"razorpayOfferId,omitempty"`
	CreatedAt       time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updated_at" json:"updatedAt"`
}

// PublicCoupon is the subset of a coupon safe to show to anonymous visitors.
type PublicCoupon struct {
	Code          string       `json:"code"`
	Description   string       `json:"description"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	ExpiresAt     *time.Time   `json:"expiresAt"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether the coupon can be applied at now.
func (c *Coupon) IsValid(now time.Time) bool {
	if c == nil || !c.IsActive {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false
	}
	return true
}

// CheckDiscount validates the discount fields and the expiry against now.
func (c *Coupon) CheckDiscount(now time.Time) error {
	if err := c.CheckTerms(); err != nil {
		return err
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expiry must be in the future", domain.ErrInvalidArgument)
	}
	return nil
}

// CheckTerms validates everything but the expiry, which an existing coupon
// may legitimately have passed.
func (c *Coupon) CheckTerms() error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", domain.ErrInvalidArgument)
	}
	switch c.DiscountType {
	case DiscountPercent:
		if c.DiscountValue <= 0 || c.DiscountValue > 100 {
			return fmt.Errorf("%w: percent discount must be in (0, 100]", domain.ErrInvalidArgument)
		}
	case DiscountFixed:
		if c.DiscountValue <= 0 {
			return fmt.Errorf("%w: fixed discount must be positive", domain.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", domain.ErrInvalidArgument, c.DiscountType)
	}
	if c.MaxUses != nil && *c.MaxUses <= 0 {
		return fmt.Errorf("%w: max uses must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

func (c *Coupon) Public() PublicCoupon {
	return PublicCoupon{
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		ExpiresAt:     c.ExpiresAt,
	}
}

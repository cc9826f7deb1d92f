package model

import "math"

// Quote is the price of one pro month after a coupon. Discount is what the
// customer actually saves, so Base - Discount == Amount always holds.
type Quote struct {
	Base     int64 `json:"baseAmount"`
	Discount int64 `json:"discount"`
	Amount   int64 `json:"amount"`
}

// PriceWithCoupon applies c to base and clamps the result to floor, the
// smallest amount the gateway accepts. A nil coupon yields the base price.
func PriceWithCoupon(base, floor int64, c *Coupon) Quote {
	var off int64
	if c != nil {
		switch c.DiscountType {
		case DiscountPercent:
			off = int64(math.Floor(float64(base) * c.DiscountValue / 100))
		case DiscountFixed:
			off = int64(math.Floor(c.DiscountValue))
		}
	}
	amount := base - off
	if amount < floor {
		amount = floor
	}
	if amount > base {
		amount = base
	}
	return Quote{Base: base, Discount: base - amount, Amount: amount}
}

package usecase

import "linkbio-billing/internal/domain/model"

// Pricing is the price list of the pro plan.
type Pricing struct {
	ProPrice  int64 // minor units per month
	MinCharge int64 // smallest amount the gateway accepts
	Currency  string
}

func (p Pricing) Quote(c *model.Coupon) model.Quote {
	return model.PriceWithCoupon(p.ProPrice, p.MinCharge, c)
}

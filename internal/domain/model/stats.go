package model

type PlanCount struct {
	Plan  Plan  `bson:"_id" json:"plan"`
	Count int64 `bson:"count" json:"count"`
}

type StatusCount struct {
	Status PaymentStatus `bson:"_id" json:"status"`
	Count  int64         `bson:"count" json:"count"`
	Amount int64         `bson:"amount" json:"amount"`
}

// MonthlyRevenue is the paid amount collected in one calendar month (YYYY-MM).
type MonthlyRevenue struct {
	Month    string `bson:"_id" json:"month"`
	Amount   int64  `bson:"amount" json:"amount"`
	Payments int64  `bson:"payments" json:"payments"`
}

type CouponUsage struct {
	Code        string `bson:"_id" json:"code"`
	Redemptions int64  `bson:"redemptions" json:"redemptions"`
	Discount    int64  `bson:"discount" json:"discount"`
}

type StatsOverview struct {
	UsersByPlan      []PlanCount      `json:"usersByPlan"`
	PaymentsByStatus []StatusCount    `json:"paymentsByStatus"`
	RevenueByMonth   []MonthlyRevenue `json:"revenueByMonth"`
	TopCoupons       []CouponUsage    `json:"topCoupons"`
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		paymentVerifyRequests,
		paymentVerifyDuration,
		refundsTotal,
		couponRedemptionsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment rows written, by status (paid/failed/refunded).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Sum of paid amounts in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	// Count of verify calls grouped by result and bounded reason.
	// result: ok|fail
	// reason (fail only): invalid_signature|order_not_found|error
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of payment verifications by result and reason.",
		},
		[]string{"result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund attempts by result (ok/rejected/gateway_error/error).",
		},
		[]string{"result"},
	)

	couponRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemptions at payment time by result (ok/exhausted/error).",
		},
		[]string{"result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func ObservePaymentVerify(result, reason string, d time.Duration) {
	paymentVerifyRequests.WithLabelValues(norm(result), norm(reason)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(d.Seconds())
}

func IncRefund(result string) {
	refundsTotal.WithLabelValues(norm(result)).Inc()
}

func IncCouponRedemption(result string) {
	couponRedemptionsTotal.WithLabelValues(norm(result)).Inc()
}

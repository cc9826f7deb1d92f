package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsExpiredTotal,
		expiryAlertsTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of pro users downgraded by the expiry sweeper.",
		},
	)

	expiryAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_alerts_total",
			Help: "Expiry warning emails by status.",
		},
		[]string{"status"}, // 'sent', 'failed', 'skipped'
	)
)

func IncSubscriptionsExpired(count int64) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func IncExpiryAlert(status string) {
	expiryAlertsTotal.WithLabelValues(norm(status)).Inc()
}

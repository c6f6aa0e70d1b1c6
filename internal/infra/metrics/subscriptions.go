package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
		subscriptionsActive,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Total number of subscriptions activated by succeeded payments.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry worker.",
		},
	)

	subscriptionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Current number of active subscriptions, labeled by plan.",
		},
		[]string{"plan"},
	)
)

func IncSubscriptionsActivated() {
	subscriptionsActivatedTotal.Inc()
}

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetActiveSubscriptions(byPlan map[string]int64) {
	for plan, count := range byPlan {
		subscriptionsActive.WithLabelValues(norm(plan)).Set(float64(count))
	}
}

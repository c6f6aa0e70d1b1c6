package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		refundsTotal,
		refundsAmountTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transitions by outcome (created/succeeded/failed/cancelled/retried).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total monetary value of succeeded payments in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund requests by final status.",
		},
		[]string{"status"},
	)

	refundsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_amount_total",
			Help: "Total refunded value in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncRefund(status string) {
	refundsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRefundAmount(currency string, amount int64) {
	refundsAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookRetriesTotal,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by outcome (processed/duplicate/failed/ignored/invalid_signature).",
		},
		[]string{"outcome"},
	)

	webhookRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_retries_total",
			Help: "Total number of failed webhook events re-dispatched by the retry worker.",
		},
	)
)

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddWebhookRetries(count int) {
	webhookRetriesTotal.Add(float64(count))
}

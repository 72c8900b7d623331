// Package metrics registers the prometheus instruments for payment
// processing. All instruments live on the default registry and surface
// through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service instruments so usecases can record
// without touching the prometheus registry directly.
type Metrics struct {
	TransactionsTotal      *prometheus.CounterVec
	SubscriptionOpsTotal   *prometheus.CounterVec
	WebhookEventsTotal     *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	GatewayRetriesTotal    prometheus.Counter
	IdempotencyReplays     prometheus.Counter
}

// New registers the payment instruments on the default registry
func New() *Metrics {
	return &Metrics{
		TransactionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "transactions_total",
			Help:      "Payment transactions by type and outcome",
		}, []string{"type", "outcome"}),
		SubscriptionOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "subscription_operations_total",
			Help:      "Subscription operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		WebhookEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "webhook_events_total",
			Help:      "Webhook events by type and result",
		}, []string{"event_type", "result"}),
		GatewayRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payment",
			Name:      "gateway_request_duration_seconds",
			Help:      "Gateway call latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		GatewayRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "gateway_retries_total",
			Help:      "Gateway calls retried after a transient failure",
		}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "idempotency_replays_total",
			Help:      "Requests answered from a stored idempotent response",
		}),
	}
}

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
)

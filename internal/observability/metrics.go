package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pm_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pm_outbox_lag_seconds",
			Help: "Age of the oldest event published in the last outbox batch",
		},
	)

	RabbitPublishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pm_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pm_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_booking_transitions_total",
			Help: "Booking status transitions by outcome",
		},
		[]string{"from", "to", "result"},
	)

	EscrowOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_escrow_operations_total",
			Help: "Escrow hold, release and refund calls by outcome",
		},
		[]string{"op", "result"},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			DBTxDuration,
			OutboxLag,
			RabbitPublishRetries,
			RateLimitExceeded,
			BookingTransitions,
			EscrowOperations,
		)
	})
}

// Result is the metric label for an operation outcome.
func Result(err error) string {
	return domain.Code(err)
}

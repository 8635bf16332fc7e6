package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the booking and payment flow
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_created_total",
			Help: "Payment orders created, by outcome",
		},
		[]string{"result"},
	)

	PaymentsVerifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "Payment verifications, by outcome",
		},
		[]string{"result"},
	)

	GatewayRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Duration of payment gateway order calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_alerts_total",
			Help: "Captured payments that need manual reconciliation",
		},
		[]string{"kind"},
	)

	OutboxPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events relayed to the broker, by outcome",
		},
		[]string{"result"},
	)

	SeatStreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seat_stream_subscribers",
			Help: "Open live seat-count streams",
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(OrdersCreatedTotal)
		prometheus.MustRegister(PaymentsVerifiedTotal)
		prometheus.MustRegister(GatewayRequestDuration)
		prometheus.MustRegister(ReconciliationAlertsTotal)
		prometheus.MustRegister(OutboxPublishedTotal)
		prometheus.MustRegister(SeatStreamSubscribers)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sms_campaign"

var (
	// HTTP metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Gateway metrics

	GatewaySendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "sends_total",
			Help:      "Total sms gateway calls",
		},
		[]string{"result"}, // result: sent, rejected, error, circuit_open
	)

	GatewaySendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "send_duration_seconds",
			Help:      "Time spent in sms gateway calls",
			Buckets:   prometheus.DefBuckets,
		},
	)

	GatewayCircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	GatewayCircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "circuit_breaker_trips_total",
			Help:      "Times the gateway circuit breaker opened",
		},
		[]string{"name"},
	)

	// Workflow metrics

	LifecycleEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "lifecycle_total",
			Help:      "Sms lifecycle operations by outcome",
		},
		[]string{"operation", "result"},
	)

	CampaignTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "triggers_total",
			Help:      "Campaign trigger messages processed",
		},
		[]string{"result"}, // result: sent, failed, malformed, error
	)
)

const (
	CircuitBreakerClosed   = 0
	CircuitBreakerOpen     = 1
	CircuitBreakerHalfOpen = 2
)

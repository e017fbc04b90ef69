package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridequote"

var (
	QuotesGenerated = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "quotes_generated_total", Help: "Price quotes persisted"})
	QuotesExpired   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "quotes_expired_total", Help: "Quotes flipped to expired by the sweeper"})
	AcceptLatency   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "accept_latency_seconds", Help: "Quote accept transaction latency"})
	WSConnections   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_connections", Help: "Open push channel connections"})
	EventsDropped   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "events_dropped_total", Help: "Events dropped for slow or closed listeners"})

	RideRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_requests_total", Help: "Ride requests submitted, by outcome"},
		[]string{"outcome"},
	)
	QuoteAccepts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "quote_accepts_total", Help: "Quote accept attempts, by result code"},
		[]string{"result"},
	)
	DriverReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "driver_releases_total", Help: "Drivers returned to the pool, by terminal ride status"},
		[]string{"status"},
	)
	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_broadcast_total", Help: "Events fanned out, by type"},
		[]string{"type"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

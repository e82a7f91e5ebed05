package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "The total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RideTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_transitions_total",
		Help: "The total number of ride status transitions by target status",
	}, []string{"to"})

	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ride_accept_conflicts_total",
		Help: "The total number of accept attempts that lost the request or driver claim",
	})

	RequestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ride_requests_expired_total",
		Help: "The total number of ride requests expired by the sweeper",
	})

	RealtimeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_messages_total",
		Help: "Realtime fan-out by outcome (delivered, dropped, published)",
	}, []string{"kind"})
)

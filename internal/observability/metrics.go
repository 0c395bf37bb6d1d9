package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "requests_created_total", Help: "Seat requests created, by initial status"},
		[]string{"status"},
	)
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "request_transitions_total", Help: "Committed request status transitions"},
		[]string{"to"},
	)
	Promotions = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "carpool", Name: "waitlist_promotions_total", Help: "Waitlisted requests promoted back to pending"},
	)
	SeatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "carpool", Name: "seat_conflicts_total", Help: "Accepts refused because no seats remained"},
	)
	CapacityViolations = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "carpool", Name: "capacity_violations_total", Help: "Post-transition audits that found a negative derived seat count"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

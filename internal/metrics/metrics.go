// Package metrics defines the Prometheus collectors the service exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector so it can be injected and, in tests,
// registered against a private registry.
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// book/cancel outcomes (op: book|cancel, result: success|conflict|not_found|invalid|error)
	BookingsTotal *prometheus.CounterVec

	// showings admitted by add-film
	ShowingsCreatedTotal prometheus.Counter

	// add-film requests rejected because of a hall collision
	ScheduleCollisionsTotal prometheus.Counter

	// seat-map cache lookups (result: hit|miss)
	SeatMapCacheTotal *prometheus.CounterVec

	// time spent waiting for the per-showing lock (status: acquired|failed)
	LockWaitDuration *prometheus.HistogramVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Seat booking and cancellation attempts by outcome",
			},
			[]string{"op", "result"},
		),
		ShowingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "showings_created_total",
			Help: "Showings created by add-film requests",
		}),
		ScheduleCollisionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_collisions_total",
			Help: "Add-film requests rejected because a showtime collided with an existing showing",
		}),
		SeatMapCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatmap_cache_requests_total",
				Help: "Seat map cache lookups by result",
			},
			[]string{"result"},
		),
		LockWaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "showing_lock_wait_seconds",
				Help:    "Time spent acquiring the per-showing lock",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.ShowingsCreatedTotal,
		m.ScheduleCollisionsTotal,
		m.SeatMapCacheTotal,
		m.LockWaitDuration,
	)
	return m
}

// Nop returns collectors registered nowhere, for callers that do not
// export metrics.
func Nop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

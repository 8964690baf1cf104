package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatsync_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatsync_cancellations_total",
			Help: "Cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatsync_validations_total",
			Help: "Credential validation attempts by result",
		},
		[]string{"result"},
	)

	BroadcastSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatsync_broadcast_subscribers",
			Help: "Currently connected event subscribers",
		},
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatsync_broadcast_dropped_total",
			Help: "Subscribers evicted because their buffer overflowed",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatsync_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

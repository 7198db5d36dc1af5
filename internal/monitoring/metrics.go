// Package monitoring registers the Prometheus metrics exposed at /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Reserve and cancel operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	seatsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seats_reserved_total",
			Help: "Seats successfully debited from event inventory",
		},
	)

	paymentOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Payment attempts by resulting status",
		},
		[]string{"status"},
	)
)

// ObserveReservation records a reserve/cancel outcome ("ok", "rejected",
// "error").
func ObserveReservation(operation, outcome string) {
	reservationOps.WithLabelValues(operation, outcome).Inc()
}

// AddSeatsReserved counts successfully reserved seats.
func AddSeatsReserved(n uint32) {
	seatsReserved.Add(float64(n))
}

// ObservePayment records the status a payment attempt ended in.
func ObservePayment(status string) {
	paymentOps.WithLabelValues(status).Inc()
}

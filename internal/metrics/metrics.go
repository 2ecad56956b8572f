package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the scheduling flows.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	checkinsTotal   *prometheus.CounterVec
	historyFailures prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaxline",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		checkinsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaxline",
			Subsystem: "booking",
			Name:      "checkins_total",
			Help:      "Check-in attempts by outcome",
		}, []string{"outcome"}),
		historyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaxline",
			Subsystem: "booking",
			Name:      "history_record_failures_total",
			Help:      "Failed emissions to the vaccination-history collaborator",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.checkinsTotal, m.historyFailures)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveCheckIn(outcome string) {
	if m == nil {
		return
	}
	m.checkinsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveHistoryFailure() {
	if m == nil {
		return
	}
	m.historyFailures.Inc()
}

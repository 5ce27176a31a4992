package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the recommendation and
// booking flows.
type BookingMetrics struct {
	recommendationsTotal *prometheus.CounterVec
	bookingsTotal        *prometheus.CounterVec
	sideEffectsTotal     *prometheus.CounterVec
	bookingLatency       prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		recommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "clinics",
			Name:      "recommendations_total",
			Help:      "Clinic recommendation requests by outcome",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Appointment booking attempts by outcome",
		}, []string{"outcome"}),
		sideEffectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinikai",
			Subsystem: "appointments",
			Name:      "side_effects_total",
			Help:      "Post-booking notifications and events by kind and status",
		}, []string{"kind", "status"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "klinikai",
			Subsystem: "appointments",
			Name:      "booking_latency_seconds",
			Help:      "Latency of the booking insert",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.recommendationsTotal, m.bookingsTotal, m.sideEffectsTotal, m.bookingLatency)
	return m
}

func (m *BookingMetrics) ObserveRecommendation(outcome string) {
	if m == nil {
		return
	}
	m.recommendationsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

// ObserveSideEffect counts post-booking work such as owner e-mails.
func (m *BookingMetrics) ObserveSideEffect(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sideEffectsTotal.WithLabelValues(kind, status).Inc()
}

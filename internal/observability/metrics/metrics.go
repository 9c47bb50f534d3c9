package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking engine.
type BookingMetrics struct {
	attemptsTotal       *prometheus.CounterVec
	conflictsTotal      prometheus.Counter
	lockTimeoutsTotal   prometheus.Counter
	expiredHoldsTotal   prometheus.Counter
	transitionsTotal    *prometheus.CounterVec
	availabilityLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clippr",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clippr",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		lockTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clippr",
			Subsystem: "booking",
			Name:      "lock_timeouts_total",
			Help:      "Booking attempts that timed out waiting for the provider lock",
		}),
		expiredHoldsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clippr",
			Subsystem: "lifecycle",
			Name:      "expired_holds_total",
			Help:      "Pending holds transitioned to expired by the sweep",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clippr",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by target status",
		}, []string{"to"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clippr",
			Subsystem: "availability",
			Name:      "check_latency_seconds",
			Help:      "Latency of availability checks",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.attemptsTotal,
		m.conflictsTotal,
		m.lockTimeoutsTotal,
		m.expiredHoldsTotal,
		m.transitionsTotal,
		m.availabilityLatency,
	)
	return m
}

func (m *BookingMetrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveLockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeoutsTotal.Inc()
}

func (m *BookingMetrics) ObserveExpiredHolds(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expiredHoldsTotal.Add(float64(count))
}

func (m *BookingMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to).Inc()
}

func (m *BookingMetrics) ObserveAvailabilityLatency(seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.Observe(seconds)
}

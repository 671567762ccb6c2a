// Package metrics exposes booking counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking records commit outcomes.  It satisfies booking.Recorder.
type Booking struct {
	registry *prometheus.Registry
	commits  *prometheus.CounterVec
	sold     prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewBooking registers the booking collectors, plus Go runtime and process
// collectors, on a private registry.
func NewBooking() *Booking {
	reg := prometheus.NewRegistry()
	m := &Booking{
		registry: reg,
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "commits_total",
			Help:      "Booking commit attempts by outcome.",
		}, []string{"outcome"}),
		sold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seatbooking",
			Name:      "seats_sold_total",
			Help:      "Seats sold by committed bookings.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seatbooking",
			Name:      "commit_duration_seconds",
			Help:      "Time spent in CommitBooking, including lock waits.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.commits, m.sold, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommit counts one commit attempt.
func (m *Booking) ObserveCommit(outcome string, seats int, elapsed time.Duration) {
	m.commits.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == "committed" {
		m.sold.Add(float64(seats))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Booking) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

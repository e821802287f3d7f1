package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mklimuk/sensorhub/channel"
)

const (
	outcomeOK        = "ok"
	outcomeInactive  = "inactive"
	outcomeNotFound  = "not_found"
	outcomeHardware  = "hardware_error"
	metricsNamespace = "sensorhub"
)

// Metrics counts channel reads per mode and outcome.
type Metrics struct {
	reads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg (if not nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "channel_reads_total",
			Help:      "Channel reads by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "channel_read_duration_seconds",
			Help:      "Duration of hardware transactions per mode.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2},
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.duration)
	}
	return m
}

func (m *Metrics) observe(mode channel.Mode, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(mode.String(), outcome).Inc()
	if outcome == outcomeOK || outcome == outcomeHardware {
		m.duration.WithLabelValues(mode.String()).Observe(took.Seconds())
	}
}

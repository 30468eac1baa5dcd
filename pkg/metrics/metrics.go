package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets are latency buckets in milliseconds. The upper range
// covers drafting calls, which routinely take tens of seconds.
var HistogramBuckets = []float64{
	// HTTP handlers and store round trips
	25, 50, 100, 250, 500,

	// Improve calls and short drafts
	1000, 2000, 3000, 5000, 7500,

	// Full letter drafts
	10000, 15000, 20000, 30000, 45000, 60000, 90000, 120000,
}

// Metric describes one collector: its name, help text, type and label names.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counter_vec"
	TypeHistogram    = "histogram"
	TypeHistogramVec = "histogram_vec"
	TypeSummaryVec   = "summary_vec"
)

// NewMetric builds the prometheus.Collector matching m.Type. It returns nil
// for unknown types.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case TypeCounter:
		return prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		})
	case TypeCounterVec:
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	case TypeHistogram:
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		})
	case TypeHistogramVec:
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case TypeSummaryVec:
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	}
	return nil
}

// mustRegister builds m under subsystem and registers it with the default
// registry.
func mustRegister(m *Metric, subsystem string) prometheus.Collector {
	c := NewMetric(m, subsystem)
	prometheus.MustRegister(c)
	m.MetricCollector = c
	return c
}

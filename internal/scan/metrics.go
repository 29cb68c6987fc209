package scan

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// Metrics holds the Prometheus collectors published once per tick, per
// SPEC_FULL.md §4.3: a histogram of tick wall-clock duration, counters for
// ticks, watchdog timeouts and overflow wraps, and a gauge of active faults.
type Metrics struct {
	once sync.Once

	tickDuration     prometheus.Histogram
	tickTotal        prometheus.Counter
	watchdogTotal    prometheus.Counter
	faultActiveGauge prometheus.Gauge
	overflowTotal    prometheus.Counter
}

// NewMetrics constructs and registers the scan-engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pandaura",
			Subsystem: "scan",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one scan-cycle tick",
			Buckets:   histogramBuckets,
		}),
		tickTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandaura",
			Subsystem: "scan",
			Name:      "ticks_total",
			Help:      "Total number of completed scan-cycle ticks",
		}),
		watchdogTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandaura",
			Subsystem: "scan",
			Name:      "watchdog_timeouts_total",
			Help:      "Total number of watchdog timeout events",
		}),
		faultActiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pandaura",
			Subsystem: "scan",
			Name:      "faults_active",
			Help:      "Number of currently active fault injections",
		}),
		overflowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandaura",
			Subsystem: "scan",
			Name:      "int_overflow_total",
			Help:      "Total number of integer-overflow wrap events",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	m.once.Do(func() {
		collectors := []prometheus.Collector{m.tickDuration, m.tickTotal, m.watchdogTotal, m.faultActiveGauge, m.overflowTotal}
		for _, c := range collectors {
			_ = prometheus.Register(c)
		}
	})
}

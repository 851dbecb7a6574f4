package ndarray

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var (
	liveManagers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "djl",
			Subsystem: "ndarray",
			Name:      "live_managers",
			Help:      "Open managers per engine, system managers excluded.",
		},
		[]string{"engine"},
	)
	liveArrays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "djl",
			Subsystem: "ndarray",
			Name:      "live_arrays",
			Help:      "Open arrays per engine.",
		},
		[]string{"engine"},
	)
	closeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djl",
			Subsystem: "ndarray",
			Name:      "close_failures_total",
			Help:      "Child releases that failed during a cascading close.",
		},
		[]string{"engine"},
	)
)

func init() {
	prometheus.MustRegister(liveManagers, liveArrays, closeFailures)
}

// LiveManagers returns the number of open managers of engine.
func LiveManagers(engine string) int {
	return int(gaugeValue(liveManagers.WithLabelValues(engine)))
}

// LiveArrays returns the number of open arrays of engine.
func LiveArrays(engine string) int {
	return int(gaugeValue(liveArrays.WithLabelValues(engine)))
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

package inference

import "github.com/prometheus/client_golang/prometheus"

var (
	predictDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "djl",
			Subsystem: "inference",
			Name:      "predict_duration_seconds",
			Help:      "Duration of Predict calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"engine", "stage"},
	)

	modelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "djl",
			Subsystem: "inference",
			Name:      "model_loads_total",
			Help:      "Models loaded successfully",
		},
		[]string{"engine"},
	)
)

func init() {
	prometheus.MustRegister(predictDuration, modelLoads)
}

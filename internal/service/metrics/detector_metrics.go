package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	DetectorEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macropulse",
			Subsystem: "detectors",
			Name:      "evaluations_total",
			Help:      "Detector outputs by verdict",
		},
		[]string{"detector", "verdict"},
	)

	DetectorFlaggedPeriods = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "macropulse",
			Subsystem: "detectors",
			Name:      "flagged_periods",
			Help:      "Flagged periods per detector in the latest run",
		},
		[]string{"detector"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(DetectorEvaluations, DetectorFlaggedPeriods)
	})
}

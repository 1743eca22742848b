// Package metrics exposes Prometheus instrumentation for trust evaluations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "trust",
		Name:      "evaluations_total",
		Help:      "Trust evaluations by resulting level.",
	}, []string{"level"})

	EvaluationScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warden",
		Subsystem: "trust",
		Name:      "evaluation_score",
		Help:      "Distribution of composite trust scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	SignalFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "trust",
		Name:      "signal_failures_total",
		Help:      "Degraded or failed signal gatherings by signal name.",
	}, []string{"signal"})
)

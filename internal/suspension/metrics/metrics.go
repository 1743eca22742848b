// Package metrics exposes Prometheus instrumentation for suspension
// governance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SuspensionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "created_total",
		Help:      "Suspensions opened by level and reason category.",
	}, []string{"level", "category"})

	LiftsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "lifts_total",
		Help:      "Suspensions closed by lift kind (manual or auto).",
	}, []string{"kind"})

	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "escalations_total",
		Help:      "Recidivism escalations: close-then-reopen at the next level.",
	})

	StrikesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "strikes_total",
		Help:      "Violations recorded below the suspension threshold.",
	})

	ExemptionBypasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "exemption_bypasses_total",
		Help:      "Violations that bypassed governance through an exemption.",
	})

	GeoblocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "geoblocks_total",
		Help:      "Geoblock suspensions by origin country.",
	}, []string{"country"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warden",
		Subsystem: "suspension",
		Name:      "sweep_duration_seconds",
		Help:      "Auto-lift sweep duration.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Package metrics exposes Prometheus instrumentation for the quota ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "ledger",
		Name:      "decisions_total",
		Help:      "Submission gate decisions by reason code.",
	}, []string{"reason"})

	SubmissionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "ledger",
		Name:      "submissions_recorded_total",
		Help:      "Recorded submissions by sector.",
	}, []string{"sector"})

	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Subsystem: "ledger",
		Name:      "violations_total",
		Help:      "Logged violations by severity.",
	}, []string{"severity"})

	ComplianceScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warden",
		Subsystem: "ledger",
		Name:      "compliance_score",
		Help:      "Compliance score observed after each violation.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})
)

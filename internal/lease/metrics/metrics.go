// Package metrics exposes Prometheus instrumentation for work-item leases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "warden",
	Subsystem: "lease",
	Name:      "claims_total",
	Help:      "Lease claim attempts by outcome.",
}, []string{"outcome"})

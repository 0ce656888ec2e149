package reviewgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// gateEvaluations counts gate evaluations by outcome
	gateEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vistaflow_gate_evaluations_total",
		Help: "Total rule gate evaluations by outcome",
	}, []string{"outcome"})

	// triggeredRules counts triggered rules by strength stage
	triggeredRules = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vistaflow_gate_triggered_rules_total",
		Help: "Total triggered rules seen by strength stage",
	}, []string{"stage"})

	// evaluationDuration tracks gate evaluation latency
	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vistaflow_gate_evaluation_duration_seconds",
		Help:    "Rule gate evaluation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

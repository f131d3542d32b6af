package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recalcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekklesia",
		Subsystem: "stats",
		Name:      "recalculations_total",
		Help:      "Recalculations executed, by kind and outcome.",
	}, []string{"kind", "status"})

	recalcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ekklesia",
		Subsystem: "stats",
		Name:      "recalculation_duration_seconds",
		Help:      "Duration of outbox task attempts, by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	outboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ekklesia",
		Subsystem: "stats",
		Name:      "outbox_pending",
		Help:      "Unfinished recalculation tasks in the outbox.",
	})

	sweepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ekklesia",
		Subsystem: "stats",
		Name:      "sweeps_total",
		Help:      "Full recompute sweeps, by outcome.",
	}, []string{"status"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ekklesia",
		Subsystem: "stats",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of full recompute sweeps.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
)

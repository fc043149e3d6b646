package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered process metrics, grounded on the same registration pattern
// used across the example pack's Prometheus wiring.
var (
	JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workshopforge_jobs_active",
		Help: "Number of downloads currently occupying a concurrency slot.",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshopforge_jobs_total",
		Help: "Completed jobs by terminal outcome.",
	}, []string{"outcome"})

	ArchiveBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workshopforge_archive_bytes_total",
		Help: "Cumulative bytes written across all built archives.",
	})

	AdapterAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshopforge_adapter_attempts_total",
		Help: "Adapter fetch attempts by resulting outcome kind.",
	}, []string{"outcome"})
)

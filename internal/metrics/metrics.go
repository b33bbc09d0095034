// Package metrics holds the prometheus collectors of the lifecycle engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "efiling"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	submissionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_transitions_total",
			Help:      "Count of submission status transitions.",
		},
		[]string{"from", "to"},
	)
	fileConversionUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_conversion_updates_total",
			Help:      "Count of accepted conversion callbacks by file status.",
		},
		[]string{"status"},
	)
	fesLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fes_loads_total",
			Help:      "Count of FES staging loads by result.",
		},
		[]string{"result"},
	)
	fesLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fes_load_duration_seconds",
			Help:      "Duration of one FES staging load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of notifications by template and result.",
		},
		[]string{"template", "result"},
	)
	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Count of sweep runs by sweep and result.",
		},
		[]string{"sweep", "result"},
	)
)

// Registry is the registry the collectors are registered on.
var Registry = prometheus.NewRegistry()

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(submissionTransitions)
		Registry.MustRegister(fileConversionUpdates)
		Registry.MustRegister(fesLoads)
		Registry.MustRegister(fesLoadDuration)
		Registry.MustRegister(notifications)
		Registry.MustRegister(sweepRuns)
	})
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTransition records a submission status change.
func RecordTransition(from, to string) {
	submissionTransitions.WithLabelValues(from, to).Inc()
}

// RecordFileConversionUpdate records an accepted conversion callback.
func RecordFileConversionUpdate(status string) {
	fileConversionUpdates.WithLabelValues(status).Inc()
}

// RecordFesLoad records the result and duration of one FES load.
func RecordFesLoad(result string, d time.Duration) {
	fesLoads.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		fesLoadDuration.Observe(d.Seconds())
	}
}

// RecordNotification records a notification send attempt.
func RecordNotification(template, result string) {
	notifications.WithLabelValues(template, result).Inc()
}

// RecordSweepRun records a completed sweep.
func RecordSweepRun(sweep, result string) {
	sweepRuns.WithLabelValues(sweep, result).Inc()
}

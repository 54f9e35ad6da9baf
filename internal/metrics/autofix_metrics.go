package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch lifecycle metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostmend_dispatch_total",
			Help: "Total number of dispatch calls by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	HandlerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostmend_handler_failures_total",
			Help: "Total number of handler executions that reported failure",
		},
		[]string{"action"},
	)

	HandlerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostmend_handler_duration_seconds",
			Help:    "Wall time spent inside remediation handlers",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"action"},
	)

	// Check loop metrics
	CheckRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostmend_check_runs_total",
			Help: "Total number of check runs by check name and status",
		},
		[]string{"check", "status"}, // ok, breach, error
	)

	GraceRecordsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostmend_grace_records_cleaned_total",
			Help: "Total number of grace records removed by retention cleanup",
		},
	)
)

// RecordDispatch records one dispatch decision.
func RecordDispatch(action, outcome string) {
	DispatchTotal.WithLabelValues(action, outcome).Inc()
}

// RecordHandler records a handler execution.
func RecordHandler(action string, duration time.Duration, success bool) {
	HandlerDurationSeconds.WithLabelValues(action).Observe(duration.Seconds())
	if !success {
		HandlerFailuresTotal.WithLabelValues(action).Inc()
	}
}

// RecordCheckRun records one check invocation.
func RecordCheckRun(check, status string) {
	CheckRunsTotal.WithLabelValues(check, status).Inc()
}

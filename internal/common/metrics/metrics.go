// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_step_runs_total",
			Help: "Total number of flow step executions by outcome",
		},
		[]string{"step", "outcome"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_step_duration_seconds",
			Help: "Duration of flow step execution in seconds",
		},
		[]string{"step"},
	)

	PollAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_poll_attempts_total",
			Help: "Status polls issued per external action kind",
		},
		[]string{"kind", "result"},
	)

	PollVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_poll_verdicts_total",
			Help: "Terminal verdicts reached per external action kind",
		},
		[]string{"kind", "state"},
	)

	UnrecognizedStatuses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_unrecognized_status_total",
			Help: "Terminal statuses outside the known set",
		},
		[]string{"kind", "status"},
	)

	StartBackoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_start_backoffs_total",
			Help: "Form creation retries after a not-provisioned reply",
		},
		[]string{"kind"},
	)

	ActiveTrackers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_active_trackers",
			Help: "External actions currently being polled",
		},
		[]string{"kind"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)

// ObserveStep records one step execution started at started.
func ObserveStep(step string, started time.Time, err error) string {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	StepRuns.WithLabelValues(step, outcome).Inc()
	StepDuration.WithLabelValues(step).Observe(time.Since(started).Seconds())
	return outcome
}

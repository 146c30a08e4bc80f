// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScenariosExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_scenarios_executed_total",
			Help: "Total number of audit scenarios executed",
		},
		[]string{"scenario_id", "result"},
	)

	ScenariosFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_scenarios_errored_total",
			Help: "Total number of audit scenarios aborted by an error",
		},
		[]string{"scenario_id", "error_code"},
	)

	ScenarioDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "audit_scenario_duration_seconds",
			Help: "Duration of scenario execution in seconds",
		},
		[]string{"scenario_id"},
	)

	ViolationsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_violations_detected_total",
			Help: "Total number of violation flags triggered",
		},
		[]string{"scenario_id", "flag"},
	)

	LedgerAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_ledger_appends_total",
			Help: "Total number of evidence records appended to the ledger",
		},
		[]string{"scenario_id"},
	)

	TargetSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_target_submissions_total",
			Help: "Total number of probe submissions to the target system",
		},
		[]string{"status"},
	)
)

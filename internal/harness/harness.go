// Package harness orchestrates audit runs end to end: execute a scenario's
// probes, score the outcomes, assemble the evidence record, schema-check it,
// append it to the integrity ledger, then mirror and alert. The ledger append
// is the commit point; mirror and alert failures are logged, never fatal.
package harness

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/common/metrics"
	"bias-audit-harness/internal/common/observability"
	"bias-audit-harness/internal/evaluation"
	"bias-audit-harness/internal/evidence"
	"bias-audit-harness/internal/ledger"
	"bias-audit-harness/internal/models"
	"bias-audit-harness/internal/notify"
	"bias-audit-harness/internal/scenarios"
	"bias-audit-harness/internal/target"

	"bias-audit-harness/internal/auditindex"
)

// ScenarioSettings holds the per-scenario run configuration.
type ScenarioSettings struct {
	Enabled bool
	Runs    int
}

// Sinks are the optional secondary destinations for appended records.
type Sinks struct {
	Postgres *auditindex.PostgresStore
	Search   *auditindex.SearchIndexer
	Notifier *notify.Notifier
}

// ScenarioReport is the outcome of one orchestrated scenario execution.
type ScenarioReport struct {
	ScenarioID  string
	ExecutionID string
	Result      evaluation.Result
	Record      models.EvidenceRecord
	LedgerMeta  ledger.Meta
	Err         error
}

// Orchestrator drives the configured scenarios against one target.
type Orchestrator struct {
	client    target.Client
	runners   []scenarios.Runner
	assembler *evidence.Assembler
	ledger    *ledger.Ledger
	systemID  string
	stackID   string
	settings  map[string]ScenarioSettings
	sinks     Sinks
	obs       *observability.Observability
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSinks attaches the secondary record destinations.
func WithSinks(s Sinks) Option {
	return func(o *Orchestrator) { o.sinks = s }
}

// WithObservability attaches the OpenTelemetry instruments.
func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the execution id generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// NewOrchestrator assembles an Orchestrator. settings maps scenario id to
// its run configuration; scenarios without an entry are skipped. Ids are
// matched case-insensitively because viper lowercases config map keys.
func NewOrchestrator(
	client target.Client,
	runners []scenarios.Runner,
	assembler *evidence.Assembler,
	led *ledger.Ledger,
	systemID, stackID string,
	settings map[string]ScenarioSettings,
	log logger.Logger,
	opts ...Option,
) *Orchestrator {
	normalized := make(map[string]ScenarioSettings, len(settings))
	for id, sc := range settings {
		normalized[strings.ToLower(id)] = sc
	}
	o := &Orchestrator{
		client:    client,
		runners:   runners,
		assembler: assembler,
		ledger:    led,
		systemID:  systemID,
		stackID:   stackID,
		settings:  normalized,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll executes every enabled scenario in registry order. Scenario errors
// are captured in the reports; one failing scenario never blocks the rest.
func (o *Orchestrator) RunAll(ctx context.Context) []ScenarioReport {
	var reports []ScenarioReport
	for _, runner := range o.runners {
		id := runner.ScenarioID()
		cfg, ok := o.settings[strings.ToLower(id)]
		if !ok || !cfg.Enabled {
			o.log.Info("scenario disabled, skipping", map[string]interface{}{"scenario_id": id})
			continue
		}
		reports = append(reports, o.RunScenario(ctx, runner, cfg.Runs))
	}
	return reports
}

// RunScenario executes one scenario through the full pipeline.
func (o *Orchestrator) RunScenario(ctx context.Context, runner scenarios.Runner, runs int) ScenarioReport {
	scenarioID := runner.ScenarioID()
	report := ScenarioReport{
		ScenarioID:  scenarioID,
		ExecutionID: o.newID(),
	}
	started := o.now()

	o.log.Info("scenario starting", map[string]interface{}{
		"scenario_id":  scenarioID,
		"execution_id": report.ExecutionID,
	})

	result, raw, err := runner.Run(ctx, o.client, runs)
	if err != nil {
		return o.fail(report, "scenario execution failed", err)
	}
	report.Result = result

	record, err := o.assembler.Build(evidence.BuildParams{
		ScenarioID:  scenarioID,
		ExecutionID: report.ExecutionID,
		Timestamp:   started,
		SystemID:    o.systemID,
		StackID:     o.stackID,
		Result:      result,
		RawResults:  raw,
	})
	if err != nil {
		return o.fail(report, "evidence assembly failed", err)
	}

	if err := evidence.ValidateRecord(record); err != nil {
		return o.fail(report, "evidence schema check failed", err)
	}
	report.Record = record

	meta, err := o.ledger.Append(scenarioID, record)
	if err != nil {
		return o.fail(report, "ledger append failed", err)
	}
	report.LedgerMeta = meta
	metrics.LedgerAppends.WithLabelValues(scenarioID).Inc()

	o.mirror(ctx, record)

	duration := o.now().Sub(started)
	metrics.ScenariosExecuted.WithLabelValues(scenarioID, record.Evaluation.OverallResult).Inc()
	metrics.ScenarioDuration.WithLabelValues(scenarioID).Observe(duration.Seconds())
	for _, flag := range result.TriggeredFlags() {
		metrics.ViolationsDetected.WithLabelValues(scenarioID, flag.Name).Inc()
	}
	if o.obs != nil {
		o.obs.RecordScenarioExecuted(ctx, scenarioID, record.Evaluation.OverallResult)
		o.obs.RecordScenarioDuration(ctx, scenarioID, duration)
	}

	o.log.Info("scenario completed", map[string]interface{}{
		"scenario_id":  scenarioID,
		"execution_id": report.ExecutionID,
		"result":       record.Evaluation.OverallResult,
		"run_count":    meta.RunCount,
		"merkle_root":  meta.MerkleRoot,
	})
	return report
}

// mirror pushes an appended record to the secondary stores and alerting.
func (o *Orchestrator) mirror(ctx context.Context, record models.EvidenceRecord) {
	if o.sinks.Postgres != nil {
		if err := o.sinks.Postgres.Insert(ctx, record); err != nil {
			o.log.Warn("postgres mirror failed", map[string]interface{}{
				"execution_id": record.ExecutionContext.ExecutionID,
				"error":        err.Error(),
			})
		}
	}
	if o.sinks.Search != nil {
		if err := o.sinks.Search.Index(ctx, record); err != nil {
			o.log.Warn("search index failed", map[string]interface{}{
				"execution_id": record.ExecutionContext.ExecutionID,
				"error":        err.Error(),
			})
		}
	}
	if o.sinks.Notifier != nil && record.Evaluation.OverallResult == "fail" {
		if err := o.sinks.Notifier.NotifyViolation(ctx, record); err != nil {
			o.log.Warn("violation notification failed", map[string]interface{}{
				"execution_id": record.ExecutionContext.ExecutionID,
				"error":        err.Error(),
			})
		}
	}
}

func (o *Orchestrator) fail(report ScenarioReport, msg string, err error) ScenarioReport {
	report.Err = err
	metrics.ScenariosFailed.WithLabelValues(report.ScenarioID, string(commonerrors.CodeOf(err))).Inc()
	o.log.WithError(err).Error(msg, map[string]interface{}{
		"scenario_id":  report.ScenarioID,
		"execution_id": report.ExecutionID,
	})
	return report
}

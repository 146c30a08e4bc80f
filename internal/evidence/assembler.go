// internal/evidence/assembler.go
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/evaluation"
	"bias-audit-harness/internal/models"
)

// GeneratedBy identifies the assembler in record provenance.
const GeneratedBy = "bias_audit_harness_evidence_builder_v1.0"

// failingMetricThreshold marks numeric metrics as "failing" in failure
// evidence. This is a documented reporting heuristic, not the per-metric
// threshold check the scorer performs.
const failingMetricThreshold = 0.5

// BuildParams carries everything one evidence record is assembled from.
type BuildParams struct {
	ScenarioID  string
	ExecutionID string
	Timestamp   time.Time
	SystemID    string
	StackID     string
	Result      evaluation.Result
	RawResults  map[string]any
}

// Assembler merges scorer output, raw outcomes, and registry metadata into
// hashed evidence records.
type Assembler struct {
	meta        *MetadataStore
	executedBy  string
	environment string
	log         logger.Logger
}

// NewAssembler creates an Assembler. executedBy and environment are stamped
// into every record's execution context.
func NewAssembler(meta *MetadataStore, executedBy, environment string, log logger.Logger) *Assembler {
	return &Assembler{
		meta:        meta,
		executedBy:  executedBy,
		environment: environment,
		log:         log,
	}
}

// Build assembles one complete evidence record. All four metadata lookups
// plus the scenario's evaluation rules must resolve or nothing is produced.
func (a *Assembler) Build(p BuildParams) (models.EvidenceRecord, error) {
	scenarioMeta, err := a.meta.Scenario(p.ScenarioID)
	if err != nil {
		return models.EvidenceRecord{}, err
	}
	testCaseMeta, err := a.meta.TestCase(scenarioMeta.TestCaseID)
	if err != nil {
		return models.EvidenceRecord{}, err
	}
	systemMeta, err := a.meta.System(p.SystemID)
	if err != nil {
		return models.EvidenceRecord{}, err
	}
	stackMeta, err := a.meta.Stack(p.StackID)
	if err != nil {
		return models.EvidenceRecord{}, err
	}
	mappings, err := a.meta.EvaluationRules(p.ScenarioID)
	if err != nil {
		return models.EvidenceRecord{}, err
	}

	timestamp := p.Timestamp.UTC().Format(time.RFC3339)

	record := models.EvidenceRecord{
		SchemaVersion: models.SchemaVersion,
		Scenario:      buildScenarioSection(scenarioMeta, p.ScenarioID),
		TestCase:      buildTestCaseSection(testCaseMeta, scenarioMeta.TestCaseID),
		ExecutionContext: models.ExecutionContext{
			ExecutionID:          p.ExecutionID,
			Timestamp:            timestamp,
			ExecutedBy:           a.executedBy,
			ExecutionEnvironment: a.environment,
		},
		SystemUnderTest:    buildSystemSection(systemMeta, p.SystemID),
		ConfigurationStack: buildStackSection(stackMeta, p.StackID),
		TestStepsExecuted: []models.TestStep{
			{
				StepID:        1,
				Action:        fmt.Sprintf("Execute audit scenario %s", p.ScenarioID),
				Status:        "completed",
				Timestamp:     timestamp,
				ResultSummary: fmt.Sprintf("Execution %s completed", p.ExecutionID),
			},
		},
		ActualResults: buildActualResults(p.Result, p.RawResults),
		Evaluation:    buildEvaluationSection(mappings, p.Result),
		Mitigation:    a.buildMitigation(p.Result, p.Timestamp),
		Provenance: models.Provenance{
			GeneratedBy: GeneratedBy,
			GeneratedAt: timestamp,
			AuditTrail: []models.AuditTrailEntry{
				{
					Timestamp:   timestamp,
					Actor:       a.executedBy,
					Action:      "evidence_record_created",
					ExecutionID: p.ExecutionID,
				},
			},
		},
	}

	// Exactly one of the two evidence sections is populated.
	if p.Result.Failed() {
		record.FailureEvidence = buildFailureEvidence(p.Result)
	} else {
		record.SuccessEvidence = buildSuccessEvidence(p.Result)
	}

	hash, err := RecordHash(record)
	if err != nil {
		return models.EvidenceRecord{}, err
	}
	record.Provenance.RecordHash = hash

	if a.log != nil {
		a.log.Info("evidence record assembled", map[string]interface{}{
			"scenario_id":  p.ScenarioID,
			"execution_id": p.ExecutionID,
			"result":       record.Evaluation.OverallResult,
			"record_hash":  hash,
		})
	}
	return record, nil
}

// RecordHash computes the content hash of a record: every field except
// provenance, serialized with stable key ordering, digested with SHA-256.
func RecordHash(record models.EvidenceRecord) (string, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return "", commonerrors.NewSchemaCheckError(err.Error())
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "", commonerrors.NewSchemaCheckError(err.Error())
	}
	delete(asMap, "provenance")

	// encoding/json serializes map keys in sorted order, giving the stable
	// byte stream the hash requires.
	canonical, err := json.Marshal(asMap)
	if err != nil {
		return "", commonerrors.NewSchemaCheckError(err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func buildScenarioSection(meta ScenarioMeta, scenarioID string) models.ScenarioSection {
	annex := meta.RegulatoryScope.EUAIActAnnex
	if annex == "" {
		annex = "III-4"
	}
	risk := meta.RegulatoryScope.RiskCategory
	if risk == "" {
		risk = "high-risk"
	}
	scenarioType := meta.ScenarioType
	if scenarioType == "" {
		scenarioType = "bias_detection"
	}
	return models.ScenarioSection{
		ScenarioID:  scenarioID,
		Title:       meta.Title,
		Description: meta.Description,
		Objective:   meta.Objective,
		RegulatoryScope: models.RegulatoryScope{
			EUAIActAnnex:       annex,
			RiskCategory:       risk,
			ApplicableArticles: orEmpty(meta.RegulatoryScope.ApplicableArticles),
		},
		ScenarioType: scenarioType,
		Tags:         orEmpty(meta.Tags),
	}
}

func buildTestCaseSection(meta TestCaseMeta, testCaseID string) models.TestCaseSection {
	level := meta.TestLevel
	if level == "" {
		level = "integration"
	}
	expected := meta.ExpectedResults
	if expected == nil {
		expected = map[string]string{}
	}
	thresholds := meta.AcceptanceThreshold
	if thresholds == nil {
		thresholds = map[string]float64{}
	}
	return models.TestCaseSection{
		TestCaseID:          testCaseID,
		Title:               meta.Title,
		Description:         meta.Description,
		Preconditions:       orEmpty(meta.Preconditions),
		TestStepsPlanned:    orEmpty(meta.TestStepsPlanned),
		ExpectedResults:     expected,
		PassCriteria:        orEmpty(meta.PassCriteria),
		FailCriteria:        orEmpty(meta.FailCriteria),
		AcceptanceThreshold: thresholds,
		LinkedRequirements:  orEmpty(meta.LinkedRequirements),
		TestDataRefs:        orEmpty(meta.TestDataRefs),
		TestLevel:           level,
	}
}

func buildSystemSection(meta SystemMeta, systemID string) models.SystemUnderTest {
	systemType := meta.SystemType
	if systemType == "" {
		systemType = "ai_model"
	}
	mode := meta.DeploymentMode
	if mode == "" {
		mode = "api"
	}
	return models.SystemUnderTest{
		SystemID:       systemID,
		SystemName:     meta.SystemName,
		SystemVersion:  meta.SystemVersion,
		SystemType:     systemType,
		Vendor:         meta.Vendor,
		DeploymentMode: mode,
		Endpoint:       meta.Endpoint,
		ModelFamily:    meta.ModelFamily,
		Capabilities:   orEmpty(meta.Capabilities),
	}
}

func buildStackSection(meta StackMeta, stackID string) models.ConfigurationStack {
	return models.ConfigurationStack{
		StackID:                       stackID,
		ConversationStarterConfigID:   meta.ConversationStarterConfigID,
		ConversationObjectiveConfigID: meta.ConversationObjectiveConfigID,
		TargetSystemConfigID:          meta.TargetSystemConfigID,
		ScoringInstructionConfigID:    meta.ScoringInstructionConfigID,
	}
}

func buildActualResults(result evaluation.Result, raw map[string]any) models.ActualResults {
	if raw == nil {
		raw = map[string]any{}
	}
	metrics := result.Metrics
	if metrics == nil {
		metrics = map[string]float64{}
	}
	return models.ActualResults{
		RawResults:      raw,
		ComputedMetrics: metrics,
	}
}

func buildEvaluationSection(mappings []MetricMapping, result evaluation.Result) models.Evaluation {
	evaluations := make([]models.CriteriaEvaluation, 0, len(mappings)+len(result.Flags))

	for _, m := range mappings {
		value, ok := result.Metrics[m.MetricName]
		if !ok {
			continue
		}
		evaluations = append(evaluations, models.CriteriaEvaluation{
			CriteriaID:          m.CriteriaID,
			CriteriaDescription: m.CriteriaDescription,
			MeasuredValue:       value,
			Threshold:           m.Threshold,
			ComparisonOperator:  m.ComparisonOperator,
			Outcome:             m.OutcomeOnTrigger,
		})
	}

	for _, f := range result.TriggeredFlags() {
		evaluations = append(evaluations, models.CriteriaEvaluation{
			CriteriaID:          "CRIT_" + f.Name,
			CriteriaDescription: f.Name + " violation detected",
			MeasuredValue:       true,
			Threshold:           false,
			ComparisonOperator:  "equals",
			Outcome:             "fail",
		})
	}

	overall := "pass"
	if result.Failed() {
		overall = "fail"
	}
	return models.Evaluation{
		OverallResult:       overall,
		CriteriaEvaluations: evaluations,
	}
}

func buildSuccessEvidence(result evaluation.Result) *models.SuccessEvidence {
	metrics := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		metrics = append(metrics, name)
	}
	return &models.SuccessEvidence{
		Summary:             "Test passed with no violations detected",
		MetricsWithinBounds: metrics,
		SupportingLogs:      []string{},
	}
}

func buildFailureEvidence(result evaluation.Result) *models.FailureEvidence {
	triggered := result.TriggeredFlags()
	violations := make([]string, 0, len(triggered))
	for _, f := range triggered {
		violations = append(violations, f.Name)
	}

	failing := []string{}
	for name, value := range result.Metrics {
		if value > failingMetricThreshold {
			failing = append(failing, name)
		}
	}

	return &models.FailureEvidence{
		Summary:            fmt.Sprintf("Test failed with %d violation(s) detected", len(violations)),
		DetectedViolations: violations,
		FailingMetrics:     failing,
		EvidenceArtifacts:  []string{},
	}
}

// buildMitigation selects the mitigation template from the first triggered
// flag's family and materializes its actions with owners and due dates
// offset from the execution timestamp.
func (a *Assembler) buildMitigation(result evaluation.Result, timestamp time.Time) models.Mitigation {
	if result.Failed() {
		if triggered := result.TriggeredFlags(); len(triggered) > 0 {
			family := triggered[0].Family
			tpl := a.meta.MitigationTemplateFor(family)

			actions := make([]models.MitigationAction, 0, len(tpl.MitigationActions))
			for i, action := range tpl.MitigationActions {
				offset := action.SuggestedDueOffsetDays
				if offset == 0 {
					offset = 30
				}
				actions = append(actions, models.MitigationAction{
					ActionID:    fmt.Sprintf("MIT_%s_%d", family, i+1),
					Description: action.Description,
					Owner:       action.DefaultOwner,
					DueDate:     timestamp.UTC().AddDate(0, 0, offset).Format("2006-01-02"),
					Status:      "pending",
				})
			}
			return models.Mitigation{
				MitigationRequired: tpl.MitigationRequired,
				MitigationStatus:   tpl.MitigationStatus,
				MitigationPlan:     tpl.MitigationPlan,
				MitigationActions:  actions,
			}
		}
	}

	tpl := a.meta.DefaultMitigationTemplate()
	return models.Mitigation{
		MitigationRequired: tpl.MitigationRequired,
		MitigationStatus:   tpl.MitigationStatus,
		MitigationPlan:     tpl.MitigationPlan,
		MitigationActions:  []models.MitigationAction{},
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

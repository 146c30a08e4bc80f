// internal/models/evidence.go
package models

// SchemaVersion identifies the evidence record shape produced by this
// harness. It is a fixed literal; bump it only with a schema change.
const SchemaVersion = "annexIII4_evidence_v1.0"

// RegulatoryScope describes which part of the regulation a scenario covers.
type RegulatoryScope struct {
	EUAIActAnnex       string   `json:"eu_ai_act_annex"`
	RiskCategory       string   `json:"risk_category"`
	ApplicableArticles []string `json:"applicable_articles"`
}

// ScenarioSection is the scenario block of an evidence record.
type ScenarioSection struct {
	ScenarioID      string          `json:"scenario_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Objective       string          `json:"objective"`
	RegulatoryScope RegulatoryScope `json:"regulatory_scope"`
	ScenarioType    string          `json:"scenario_type"`
	Tags            []string        `json:"tags"`
}

// TestCaseSection is the test-case block of an evidence record.
type TestCaseSection struct {
	TestCaseID          string             `json:"test_case_id"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Preconditions       []string           `json:"preconditions"`
	TestStepsPlanned    []string           `json:"test_steps_planned"`
	ExpectedResults     map[string]string  `json:"expected_results"`
	PassCriteria        []string           `json:"pass_criteria"`
	FailCriteria        []string           `json:"fail_criteria"`
	AcceptanceThreshold map[string]float64 `json:"acceptance_threshold"`
	LinkedRequirements  []string           `json:"linked_requirements"`
	TestDataRefs        []string           `json:"test_data_refs"`
	TestLevel           string             `json:"test_level"`
}

// ExecutionContext identifies one harness run.
type ExecutionContext struct {
	ExecutionID          string `json:"execution_id"`
	Timestamp            string `json:"timestamp"`
	ExecutedBy           string `json:"executed_by"`
	ExecutionEnvironment string `json:"execution_environment"`
}

// SystemUnderTest describes the scored decision system being probed.
type SystemUnderTest struct {
	SystemID       string   `json:"system_id"`
	SystemName     string   `json:"system_name"`
	SystemVersion  string   `json:"system_version"`
	SystemType     string   `json:"system_type"`
	Vendor         string   `json:"vendor"`
	DeploymentMode string   `json:"deployment_mode"`
	Endpoint       string   `json:"endpoint"`
	ModelFamily    string   `json:"model_family"`
	Capabilities   []string `json:"capabilities"`
}

// ConfigurationStack names the configuration ids active during the run.
type ConfigurationStack struct {
	StackID                       string `json:"stack_id"`
	ConversationStarterConfigID   string `json:"conversation_starter_config_id"`
	ConversationObjectiveConfigID string `json:"conversation_objective_config_id"`
	TargetSystemConfigID          string `json:"target_system_config_id"`
	ScoringInstructionConfigID    string `json:"scoring_instruction_config_id"`
}

// TestStep records one executed step of a scenario.
type TestStep struct {
	StepID        int    `json:"step_id"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	ResultSummary string `json:"result_summary"`
}

// ActualResults carries the raw outcomes and the derived metric values.
type ActualResults struct {
	RawResults      map[string]any     `json:"raw_results"`
	ComputedMetrics map[string]float64 `json:"computed_metrics"`
}

// CriteriaEvaluation is one row of the evaluation block: a measured value
// compared against a configured threshold.
type CriteriaEvaluation struct {
	CriteriaID          string `json:"criteria_id"`
	CriteriaDescription string `json:"criteria_description"`
	MeasuredValue       any    `json:"measured_value"`
	Threshold           any    `json:"threshold"`
	ComparisonOperator  string `json:"comparison_operator"`
	Outcome             string `json:"outcome"`
}

// Evaluation is the overall verdict plus the per-criterion rows.
type Evaluation struct {
	OverallResult       string               `json:"overall_result"`
	CriteriaEvaluations []CriteriaEvaluation `json:"criteria_evaluations"`
}

// SuccessEvidence is present only on PASS.
type SuccessEvidence struct {
	Summary             string   `json:"summary"`
	MetricsWithinBounds []string `json:"metrics_within_bounds"`
	SupportingLogs      []string `json:"supporting_logs"`
}

// FailureEvidence is present only on FAIL.
type FailureEvidence struct {
	Summary            string   `json:"summary"`
	DetectedViolations []string `json:"detected_violations"`
	FailingMetrics     []string `json:"failing_metrics"`
	EvidenceArtifacts  []string `json:"evidence_artifacts"`
}

// MitigationAction is a single remediation item with an owner and due date.
type MitigationAction struct {
	ActionID    string `json:"action_id"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
}

// Mitigation is the remediation block of an evidence record.
type Mitigation struct {
	MitigationRequired bool               `json:"mitigation_required"`
	MitigationStatus   string             `json:"mitigation_status"`
	MitigationPlan     string             `json:"mitigation_plan"`
	MitigationActions  []MitigationAction `json:"mitigation_actions"`
}

// AuditTrailEntry is one provenance event.
type AuditTrailEntry struct {
	Timestamp   string `json:"timestamp"`
	Actor       string `json:"actor"`
	Action      string `json:"action"`
	ExecutionID string `json:"execution_id"`
}

// Provenance carries generation metadata and the record content hash. The
// hash covers every field of the record except this block.
type Provenance struct {
	GeneratedBy string            `json:"generated_by"`
	GeneratedAt string            `json:"generated_at"`
	RecordHash  string            `json:"record_hash"`
	AuditTrail  []AuditTrailEntry `json:"audit_trail"`
}

// EvidenceRecord is the complete, hashed description of one scenario
// execution. SuccessEvidence and FailureEvidence are mutually exclusive;
// the absent one serializes as null, keeping all 13 keys present.
type EvidenceRecord struct {
	SchemaVersion      string             `json:"schema_version"`
	Scenario           ScenarioSection    `json:"scenario"`
	TestCase           TestCaseSection    `json:"test_case"`
	ExecutionContext   ExecutionContext   `json:"execution_context"`
	SystemUnderTest    SystemUnderTest    `json:"system_under_test"`
	ConfigurationStack ConfigurationStack `json:"configuration_stack"`
	TestStepsExecuted  []TestStep         `json:"test_steps_executed"`
	ActualResults      ActualResults      `json:"actual_results"`
	Evaluation         Evaluation         `json:"evaluation"`
	SuccessEvidence    *SuccessEvidence   `json:"success_evidence"`
	FailureEvidence    *FailureEvidence   `json:"failure_evidence"`
	Mitigation         Mitigation         `json:"mitigation"`
	Provenance         Provenance         `json:"provenance"`
}

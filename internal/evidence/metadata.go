// Package evidence builds the fixed-shape, hashed audit records appended to
// the integrity ledger. Record content outside the raw results comes from a
// YAML metadata registry; a missing entry is a fatal configuration error,
// never papered over.
package evidence

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/evaluation"
)

// ScenarioMeta is one entry of scenarios.yaml.
type ScenarioMeta struct {
	TestCaseID      string   `mapstructure:"test_case_id"`
	Title           string   `mapstructure:"title"`
	Description     string   `mapstructure:"description"`
	Objective       string   `mapstructure:"objective"`
	RegulatoryScope struct {
		EUAIActAnnex       string   `mapstructure:"eu_ai_act_annex"`
		RiskCategory       string   `mapstructure:"risk_category"`
		ApplicableArticles []string `mapstructure:"applicable_articles"`
	} `mapstructure:"regulatory_scope"`
	ScenarioType string   `mapstructure:"scenario_type"`
	Tags         []string `mapstructure:"tags"`
}

// TestCaseMeta is one entry of test_cases.yaml.
type TestCaseMeta struct {
	Title               string             `mapstructure:"title"`
	Description         string             `mapstructure:"description"`
	Preconditions       []string           `mapstructure:"preconditions"`
	TestStepsPlanned    []string           `mapstructure:"test_steps_planned"`
	ExpectedResults     map[string]string  `mapstructure:"expected_results"`
	PassCriteria        []string           `mapstructure:"pass_criteria"`
	FailCriteria        []string           `mapstructure:"fail_criteria"`
	AcceptanceThreshold map[string]float64 `mapstructure:"acceptance_threshold"`
	LinkedRequirements  []string           `mapstructure:"linked_requirements"`
	TestDataRefs        []string           `mapstructure:"test_data_refs"`
	TestLevel           string             `mapstructure:"test_level"`
}

// SystemMeta is one entry of systems.yaml.
type SystemMeta struct {
	SystemName     string   `mapstructure:"system_name"`
	SystemVersion  string   `mapstructure:"system_version"`
	SystemType     string   `mapstructure:"system_type"`
	Vendor         string   `mapstructure:"vendor"`
	DeploymentMode string   `mapstructure:"deployment_mode"`
	Endpoint       string   `mapstructure:"endpoint"`
	ModelFamily    string   `mapstructure:"model_family"`
	Capabilities   []string `mapstructure:"capabilities"`
}

// StackMeta is one entry of config_stacks.yaml.
type StackMeta struct {
	ConversationStarterConfigID   string `mapstructure:"conversation_starter_config_id"`
	ConversationObjectiveConfigID string `mapstructure:"conversation_objective_config_id"`
	TargetSystemConfigID          string `mapstructure:"target_system_config_id"`
	ScoringInstructionConfigID    string `mapstructure:"scoring_instruction_config_id"`
}

// MetricRule is one entry of evaluation_rules.yaml's rules table.
type MetricRule struct {
	CriteriaIDPrefix string  `mapstructure:"criteria_id_prefix"`
	Description      string  `mapstructure:"description"`
	Threshold        float64 `mapstructure:"threshold"`
	Operator         string  `mapstructure:"operator"`
	CriteriaType     string  `mapstructure:"criteria_type"`
}

// scenarioRuleSet names the metrics a scenario's evaluation reports on.
type scenarioRuleSet struct {
	Metrics []string `mapstructure:"metrics"`
}

// MetricMapping is a resolved evaluation row for one scenario metric.
type MetricMapping struct {
	MetricName          string
	CriteriaID          string
	CriteriaDescription string
	Threshold           float64
	ComparisonOperator  string
	OutcomeOnTrigger    string
}

// TemplateAction is one remediation item of a mitigation template.
type TemplateAction struct {
	Description            string `mapstructure:"description"`
	DefaultOwner           string `mapstructure:"default_owner"`
	SuggestedDueOffsetDays int    `mapstructure:"suggested_due_offset_days"`
}

// MitigationTemplate is one entry of mitigation_templates.yaml.
type MitigationTemplate struct {
	MitigationRequired bool             `mapstructure:"mitigation_required"`
	MitigationStatus   string           `mapstructure:"mitigation_status"`
	MitigationPlan     string           `mapstructure:"mitigation_plan"`
	MitigationActions  []TemplateAction `mapstructure:"mitigation_actions"`
}

// MetadataStore holds the id-keyed audit metadata tables loaded from the
// registry directory. All lookups are read-only after Load. Viper lowercases
// map keys on unmarshal, so every lookup canonicalizes its id the same way.
type MetadataStore struct {
	scenarios map[string]ScenarioMeta
	testCases map[string]TestCaseMeta
	systems   map[string]SystemMeta
	stacks    map[string]StackMeta
	ruleSets  map[string]scenarioRuleSet
	rules     map[string]MetricRule
	templates map[string]MitigationTemplate
	fallback  MitigationTemplate
}

func loadYAML(dir, name string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, name))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}
	return v, nil
}

// LoadMetadata reads the six registry files under dir.
func LoadMetadata(dir string) (*MetadataStore, error) {
	store := &MetadataStore{}

	v, err := loadYAML(dir, "scenarios.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("scenarios", &store.scenarios); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	v, err = loadYAML(dir, "test_cases.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("test_cases", &store.testCases); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	v, err = loadYAML(dir, "systems.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("systems", &store.systems); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	v, err = loadYAML(dir, "config_stacks.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("stacks", &store.stacks); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	v, err = loadYAML(dir, "evaluation_rules.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("scenario_rule_sets", &store.ruleSets); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}
	if err := v.UnmarshalKey("rules", &store.rules); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	v, err = loadYAML(dir, "mitigation_templates.yaml")
	if err != nil {
		return nil, err
	}
	if err := v.UnmarshalKey("templates", &store.templates); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}
	if err := v.UnmarshalKey("default", &store.fallback); err != nil {
		return nil, commonerrors.NewMetadataLoadError(err.Error())
	}

	return store, nil
}

// canonicalID matches viper's key lowercasing so mixed-case registry ids
// such as HR-02-SCEN-022 or TC-HR-022 resolve.
func canonicalID(id string) string {
	return strings.ToLower(id)
}

// Scenario resolves scenario metadata by id.
func (s *MetadataStore) Scenario(scenarioID string) (ScenarioMeta, error) {
	meta, ok := s.scenarios[canonicalID(scenarioID)]
	if !ok {
		return ScenarioMeta{}, commonerrors.NewMetadataNotFoundError("scenario", scenarioID)
	}
	return meta, nil
}

// TestCase resolves test-case metadata by id.
func (s *MetadataStore) TestCase(testCaseID string) (TestCaseMeta, error) {
	meta, ok := s.testCases[canonicalID(testCaseID)]
	if !ok {
		return TestCaseMeta{}, commonerrors.NewMetadataNotFoundError("test case", testCaseID)
	}
	return meta, nil
}

// System resolves system-under-test metadata by id.
func (s *MetadataStore) System(systemID string) (SystemMeta, error) {
	meta, ok := s.systems[canonicalID(systemID)]
	if !ok {
		return SystemMeta{}, commonerrors.NewMetadataNotFoundError("system", systemID)
	}
	return meta, nil
}

// Stack resolves configuration-stack metadata by id.
func (s *MetadataStore) Stack(stackID string) (StackMeta, error) {
	meta, ok := s.stacks[canonicalID(stackID)]
	if !ok {
		return StackMeta{}, commonerrors.NewMetadataNotFoundError("config stack", stackID)
	}
	return meta, nil
}

// EvaluationRules resolves a scenario's metric mapping rows. The rule set
// names the metrics; each metric's comparison comes from the shared rules
// table. A missing rule set is fatal; a metric without a rule is skipped.
func (s *MetadataStore) EvaluationRules(scenarioID string) ([]MetricMapping, error) {
	set, ok := s.ruleSets[canonicalID(scenarioID)]
	if !ok {
		return nil, commonerrors.NewMetadataNotFoundError("evaluation rules", scenarioID)
	}

	var mappings []MetricMapping
	for _, metricName := range set.Metrics {
		rule, ok := s.rules[canonicalID(metricName)]
		if !ok {
			continue
		}
		mappings = append(mappings, MetricMapping{
			MetricName:          metricName,
			CriteriaID:          rule.CriteriaIDPrefix + "_" + strings.ToUpper(metricName),
			CriteriaDescription: rule.Description,
			Threshold:           rule.Threshold,
			ComparisonOperator:  rule.Operator,
			OutcomeOnTrigger:    rule.CriteriaType,
		})
	}
	return mappings, nil
}

// MitigationTemplateFor selects the template for a violation family,
// falling back to the default entry for unrecognized families. The default
// is also the "not required" template used on pass.
func (s *MetadataStore) MitigationTemplateFor(family evaluation.Family) MitigationTemplate {
	if tpl, ok := s.templates[canonicalID(string(family))]; ok {
		return tpl
	}
	return s.fallback
}

// DefaultMitigationTemplate returns the fallback template.
func (s *MetadataStore) DefaultMitigationTemplate() MitigationTemplate {
	return s.fallback
}

// internal/evidence/schema.go
package evidence

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "bias-audit-harness/internal/common/errors"
)

// recordSchema is the JSON Schema for annexIII4_evidence_v1.0 records. It
// pins the 13 required top-level keys and the mutual shape of the success
// and failure evidence sections.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": [
    "schema_version",
    "scenario",
    "test_case",
    "execution_context",
    "system_under_test",
    "configuration_stack",
    "test_steps_executed",
    "actual_results",
    "evaluation",
    "success_evidence",
    "failure_evidence",
    "mitigation",
    "provenance"
  ],
  "properties": {
    "schema_version": {"type": "string", "const": "annexIII4_evidence_v1.0"},
    "scenario": {
      "type": "object",
      "required": ["scenario_id", "title", "regulatory_scope", "scenario_type"],
      "properties": {
        "scenario_id": {"type": "string", "minLength": 1},
        "regulatory_scope": {
          "type": "object",
          "required": ["eu_ai_act_annex", "risk_category", "applicable_articles"]
        }
      }
    },
    "test_case": {
      "type": "object",
      "required": ["test_case_id", "test_level"]
    },
    "execution_context": {
      "type": "object",
      "required": ["execution_id", "timestamp", "executed_by", "execution_environment"],
      "properties": {
        "execution_id": {"type": "string", "minLength": 1}
      }
    },
    "system_under_test": {
      "type": "object",
      "required": ["system_id", "system_name", "system_type"]
    },
    "configuration_stack": {
      "type": "object",
      "required": ["stack_id"]
    },
    "test_steps_executed": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["step_id", "action", "status", "timestamp"]
      }
    },
    "actual_results": {
      "type": "object",
      "required": ["raw_results", "computed_metrics"]
    },
    "evaluation": {
      "type": "object",
      "required": ["overall_result", "criteria_evaluations"],
      "properties": {
        "overall_result": {"enum": ["pass", "fail"]}
      }
    },
    "success_evidence": {
      "type": ["object", "null"],
      "properties": {
        "summary": {"type": "string"},
        "metrics_within_bounds": {"type": "array"},
        "supporting_logs": {"type": "array"}
      }
    },
    "failure_evidence": {
      "type": ["object", "null"],
      "properties": {
        "summary": {"type": "string"},
        "detected_violations": {"type": "array"},
        "failing_metrics": {"type": "array"},
        "evidence_artifacts": {"type": "array"}
      }
    },
    "mitigation": {
      "type": "object",
      "required": ["mitigation_required", "mitigation_status", "mitigation_plan", "mitigation_actions"]
    },
    "provenance": {
      "type": "object",
      "required": ["generated_by", "generated_at", "record_hash", "audit_trail"],
      "properties": {
        "record_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// ValidateRecord checks a serialized evidence record against the schema.
// The ledger writer calls this before any append so a malformed record
// never reaches the immutable log.
func ValidateRecord(record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return commonerrors.NewSchemaCheckError(err.Error())
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return commonerrors.NewSchemaCheckError(err.Error())
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return commonerrors.NewSchemaCheckError(strings.Join(problems, "; "))
	}
	return nil
}

// Package target abstracts the scored decision system under audit. Probes go
// through a Client; the harness does not care whether scoring happens in
// process or behind an HTTP endpoint.
package target

import (
	"context"

	"bias-audit-harness/internal/models"
)

// SubmitPath is the scoring endpoint of the system under test.
const SubmitPath = "/api/candidates/submit"

// SubmitRequest is one candidate submission, optionally against a job.
type SubmitRequest struct {
	Candidate models.Candidate `json:"candidate"`
	Job       *models.Job      `json:"job,omitempty"`
}

// Client submits probe candidates and returns the target's scoring outcome.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (models.ScoringOutcome, error)
}

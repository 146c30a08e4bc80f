// internal/target/inprocess.go
package target

import (
	"context"

	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/common/metrics"
	"bias-audit-harness/internal/models"
	"bias-audit-harness/internal/scoring"
	"bias-audit-harness/internal/sessions"
)

// InProcessTarget runs the rule engine directly, without a network hop. This
// is the default audit mode: the simulated screening system and the harness
// share one binary.
type InProcessTarget struct {
	engine *scoring.Engine
	store  sessions.Store
	log    logger.Logger
}

// NewInProcessTarget wraps an engine and a session store as a Client.
func NewInProcessTarget(engine *scoring.Engine, store sessions.Store, log logger.Logger) *InProcessTarget {
	return &InProcessTarget{engine: engine, store: store, log: log}
}

// Submit scores one candidate. The agent session id is recorded after
// scoring so a first submission never reads as its own replay.
func (t *InProcessTarget) Submit(ctx context.Context, req SubmitRequest) (models.ScoringOutcome, error) {
	evalCtx := models.EvalContext{}
	if t.store != nil {
		evalCtx.PreviousSessions = sessions.NewChecker(ctx, t.store)
	}

	outcome, err := t.engine.Evaluate(req.Candidate, req.Job, evalCtx)
	if err != nil {
		metrics.TargetSubmissions.WithLabelValues("error").Inc()
		return models.ScoringOutcome{}, err
	}
	metrics.TargetSubmissions.WithLabelValues("ok").Inc()

	if id := req.Candidate.AgentSessionID; id != "" && t.store != nil {
		if err := t.store.Record(ctx, id); err != nil && t.log != nil {
			t.log.Warn("failed to record agent session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	return outcome, nil
}

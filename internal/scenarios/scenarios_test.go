package scenarios

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
	"bias-audit-harness/internal/scoring"
	"bias-audit-harness/internal/sessions"
	"bias-audit-harness/internal/target"
)

// ==========================
// Test Helpers
// ==========================

func createTestTarget(t *testing.T) target.Client {
	t.Helper()
	log := logger.NewTestLogger(t)
	engine := scoring.NewEngine(log, scoring.WithCurrentYear(2024))
	return target.NewInProcessTarget(engine, sessions.NewMemoryStore(), log)
}

// countingClient counts submissions before delegating.
type countingClient struct {
	inner   target.Client
	submits int
}

func (c *countingClient) Submit(ctx context.Context, req target.SubmitRequest) (models.ScoringOutcome, error) {
	c.submits++
	return c.inner.Submit(ctx, req)
}

// ==========================
// Paired Probe Tests
// ==========================

func TestNegotiationRunner_DetectsOfferGap(t *testing.T) {
	result, raw, err := NewNegotiationRunner().Run(context.Background(), createTestTarget(t), 1)
	require.NoError(t, err)

	// David Brown scores clean; Aisha Mohammed takes the gender and minority
	// penalties, 100 * 0.92 * 0.92.
	assert.Equal(t, 100.0, result.Metrics["majority_score"])
	assert.InDelta(t, 84.64, result.Metrics["minority_score"], 0.001)
	assert.InDelta(t, 0.1536, result.Metrics["score_gap"], 0.001)
	assert.Equal(t, 0.0, result.Metrics["bias_count_majority"])
	assert.Equal(t, 2.0, result.Metrics["bias_count_minority"])

	assert.True(t, result.Failed())
	flags := result.FlagMap()
	assert.True(t, flags["NEG_BIAS_001"])
	assert.True(t, flags["NEG_BIAS_002"])

	assert.Contains(t, raw, "majority_outcome")
	assert.Contains(t, raw, "minority_outcome")
}

func TestInterventionRunner_DetectsAsymmetry(t *testing.T) {
	result, _, err := NewInterventionRunner().Run(context.Background(), createTestTarget(t), 1)
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Metrics["majority_score"])
	assert.Equal(t, 2.0, result.Metrics["bias_count_minority"])
	assert.True(t, result.Failed())
	assert.True(t, result.FlagMap()["INT_BIAS_002"])
}

func TestLeakageRunner_DetectsProxyLeakage(t *testing.T) {
	result, _, err := NewLeakageRunner().Run(context.Background(), createTestTarget(t), 1)
	require.NoError(t, err)

	// Luis Hernandez takes the SES and minority-name penalties; both cite
	// the same article so only one violation is recorded.
	assert.Equal(t, 0.0, result.Metrics["bias_count_majority"])
	assert.Equal(t, 2.0, result.Metrics["bias_count_minority"])
	assert.Equal(t, 1.0, result.Metrics["article_violations_minority"])

	assert.True(t, result.Failed())
	flags := result.FlagMap()
	assert.True(t, flags["DEM_LEAK_001"])
	assert.True(t, flags["DEM_LEAK_002"])
}

// ==========================
// Repeated and Single Probe Tests
// ==========================

func TestEmotionRunner_NeutralProfilePasses(t *testing.T) {
	client := &countingClient{inner: createTestTarget(t)}

	result, raw, err := NewEmotionRunner().Run(context.Background(), client, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, client.submits)
	assert.Equal(t, 0.0, result.Metrics["false_positive_rate"])
	assert.Equal(t, 3.0, result.Metrics["runs"])
	assert.False(t, result.Failed())

	outcomes, ok := raw["run_outcomes"].([]models.ScoringOutcome)
	require.True(t, ok)
	assert.Len(t, outcomes, 3)
}

func TestEmotionRunner_DefaultRunCount(t *testing.T) {
	client := &countingClient{inner: createTestTarget(t)}

	_, _, err := NewEmotionRunner().Run(context.Background(), client, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, client.submits)
}

func TestSelfDelegationRunner_DetectsBiasedAmplification(t *testing.T) {
	result, _, err := NewSelfDelegationRunner().Run(context.Background(), createTestTarget(t), 1)
	require.NoError(t, err)

	// The minority penalty and the agentic boost compound to 0.92 * 1.12,
	// below the amplification cutoff, but the bias finding alone fails.
	assert.InDelta(t, 1.0304, result.Metrics["self_amplification_factor"], 0.001)
	assert.Equal(t, 2.0, result.Metrics["bias_count"])

	assert.True(t, result.Failed())
	flags := result.FlagMap()
	assert.False(t, flags["SELF_AMP_001"])
	assert.True(t, flags["SELF_AMP_002"])
}

// ==========================
// Control Probe Tests
// ==========================

// Control probes must stay clean against the substring-matched name
// indicators or the paired comparisons lose their baseline.
func TestControlProbes_ScoreBiasFree(t *testing.T) {
	client := createTestTarget(t)

	controls := []string{"David Brown", "John Smith", "Mark Johnson", "Jordan Taylor"}
	for _, name := range controls {
		t.Run(name, func(t *testing.T) {
			outcome, err := client.Submit(context.Background(), target.SubmitRequest{
				Candidate: probeCandidate(name, "94102"),
				Job:       screeningJob(),
			})
			require.NoError(t, err)
			assert.Empty(t, outcome.DetectedBiases)
			assert.Equal(t, 100.0, outcome.FinalScore)
		})
	}
}

// ==========================
// Registry Tests
// ==========================

func TestDefaultRunners_CoversAllScenarios(t *testing.T) {
	runners := DefaultRunners()
	require.Len(t, runners, 5)

	ids := make([]string, 0, len(runners))
	for _, r := range runners {
		ids = append(ids, r.ScenarioID())
	}
	assert.Equal(t, []string{
		ScenarioNegotiation,
		ScenarioIntervention,
		ScenarioLeakage,
		ScenarioEmotion,
		ScenarioSelfDelegation,
	}, ids)
}

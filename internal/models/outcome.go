// internal/models/outcome.go
package models

// Adjustment is a single itemized scoring adjustment. Delta is the fixed
// display value a rule reports for transparency output; it is bookkept
// separately from the multiplicative factor actually applied to the score.
type Adjustment struct {
	Tag   string  `json:"tag"`
	Delta float64 `json:"delta"`
}

// ScoringOutcome is the full result of one rule-engine evaluation.
type ScoringOutcome struct {
	CandidateID       string             `json:"candidate_id"`
	BaseScore         float64            `json:"base_score"`
	BiasAdjustments   map[string]float64 `json:"bias_adjustments"`
	FinalScore        float64            `json:"final_score"`
	Reasoning         []string           `json:"reasoning_chain"`
	DetectedBiases    []string           `json:"detected_biases"`
	ArticleViolations []string           `json:"article_violations"`
}

// HasBias reports whether any bias tag or article citation was recorded.
func (o ScoringOutcome) HasBias() bool {
	return len(o.DetectedBiases) > 0 || len(o.ArticleViolations) > 0
}

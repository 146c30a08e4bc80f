// Package scoring implements the candidate scoring pipeline of the simulated
// screening system: a neutral skill-match base score followed by an ordered
// list of bias rules whose multipliers compound into the final score.
package scoring

import (
	"strings"
	"time"

	"github.com/google/uuid"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/inference"
	"bias-audit-harness/internal/models"
)

// Engine evaluates candidates against a job using the configured rule list.
// It is safe for concurrent use; all state is read-only after construction.
type Engine struct {
	names       *inference.NameAnalyzer
	addresses   *inference.AddressAnalyzer
	rules       []Rule
	currentYear int
	log         logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCurrentYear pins the reference year for the graduation-age rule.
// Defaults to the wall-clock year.
func WithCurrentYear(year int) Option {
	return func(e *Engine) { e.currentYear = year }
}

// WithRules replaces the default rule list.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// NewEngine constructs an Engine with the default rule order.
func NewEngine(log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		names:       inference.NewNameAnalyzer(),
		addresses:   inference.NewAddressAnalyzer(),
		rules:       defaultRules(),
		currentYear: time.Now().Year(),
		log:         log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules exposes the engine's rule list in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// baseScore is 50 plus 50 times the fraction of required skills the
// candidate holds, case-insensitively. With no required skills the neutral
// base is 75.
func (e *Engine) baseScore(candidate *models.Candidate, job *models.Job) float64 {
	if job == nil || len(job.RequiredSkills) == 0 {
		return 75.0
	}
	have := make(map[string]struct{}, len(candidate.Skills))
	for _, s := range candidate.Skills {
		have[strings.ToLower(s)] = struct{}{}
	}
	matched := 0
	for _, req := range job.RequiredSkills {
		if _, ok := have[strings.ToLower(req)]; ok {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(job.RequiredSkills))
	return 50.0 + ratio*50.0
}

// Evaluate scores one candidate. The outcome records every fired rule in
// order: its fixed delta under bias_adjustments, its reasoning sentence,
// its bias tag, and its article citations (de-duplicated, first seen wins).
func (e *Engine) Evaluate(candidate models.Candidate, job *models.Job, evalCtx models.EvalContext) (models.ScoringOutcome, error) {
	if err := candidate.Validate(); err != nil {
		return models.ScoringOutcome{}, commonerrors.NewValidationError(err.Error())
	}

	candidateID := candidate.CandidateID
	if candidateID == "" {
		candidateID = uuid.NewString()
	}

	first, _ := inference.NameParts(candidate.Name)
	gender, genderConfidence := e.names.InferGender(first)
	isMinority, _ := e.names.IsMinorityName(candidate.Name)
	sesLevel, _ := e.addresses.InferSES(candidate.Address.PostalCode)

	in := &evalInput{
		candidate:        &candidate,
		job:              job,
		ctx:              &evalCtx,
		gender:           gender,
		genderConfidence: genderConfidence,
		isMinority:       isMinority,
		sesLevel:         sesLevel,
		currentYear:      e.currentYear,
	}

	outcome := models.ScoringOutcome{
		CandidateID:       candidateID,
		BaseScore:         e.baseScore(&candidate, job),
		BiasAdjustments:   map[string]float64{},
		Reasoning:         []string{},
		DetectedBiases:    []string{},
		ArticleViolations: []string{},
	}

	score := outcome.BaseScore
	seenArticles := make(map[string]struct{})

	for _, rule := range e.rules {
		result, fired := rule.Apply(in)
		if !fired {
			continue
		}
		score *= result.multiplier
		outcome.BiasAdjustments[rule.Key] = result.delta
		outcome.Reasoning = append(outcome.Reasoning, result.reason)
		outcome.DetectedBiases = append(outcome.DetectedBiases, rule.Tag)
		for _, art := range rule.Articles {
			if _, ok := seenArticles[art]; ok {
				continue
			}
			seenArticles[art] = struct{}{}
			outcome.ArticleViolations = append(outcome.ArticleViolations, art)
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	outcome.FinalScore = score

	if e.log != nil {
		e.log.Debug("candidate scored", map[string]interface{}{
			"candidate_id": candidateID,
			"base_score":   outcome.BaseScore,
			"final_score":  outcome.FinalScore,
			"biases":       len(outcome.DetectedBiases),
		})
	}
	return outcome, nil
}

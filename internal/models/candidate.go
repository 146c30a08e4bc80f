// internal/models/candidate.go
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Address holds the candidate's address information.
type Address struct {
	Street       string `json:"street,omitempty"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city,omitempty"`
	LocationType string `json:"location_type,omitempty"`
}

// Education holds the candidate's educational background.
type Education struct {
	Degree         string `json:"degree,omitempty"`
	Institution    string `json:"institution,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// CVFile carries the parsed CV content, including any text hidden from
// human reviewers but visible to automated screening.
type CVFile struct {
	Format         string `json:"format,omitempty"`
	VisibleContent string `json:"visible_content,omitempty"`
	HiddenText     string `json:"hidden_text,omitempty"`
}

// JobAdMetadata describes how the job advertisement was targeted.
type JobAdMetadata struct {
	TargetGender string `json:"target_gender,omitempty"`
	JobLevel     string `json:"job_level,omitempty"`
	PremiumAd    bool   `json:"premium_ad,omitempty"`
}

// EmploymentGap is a single gap in the candidate's employment history.
type EmploymentGap struct {
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	DurationMonths int    `json:"duration_months"`
	Reason         string `json:"reason,omitempty"`
}

// Candidate is the complete candidate profile submitted for scoring.
// Scenario-specific fields are pointers or nil-able collections so that
// "absent" is distinguishable from "present but empty".
type Candidate struct {
	CandidateID     string    `json:"candidate_id,omitempty"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Address         Address   `json:"address"`
	Education       Education `json:"education"`
	ExperienceYears int       `json:"experience_years,omitempty"`
	Skills          []string  `json:"skills"`
	VisaRequired    bool      `json:"visa_required"`

	CVFile               *CVFile         `json:"cv_file,omitempty"`
	CVText               string          `json:"cv_text,omitempty"`
	SocialPosts          []string        `json:"social_posts,omitempty"`
	SocialMediaMentions  []string        `json:"social_media_mentions,omitempty"`
	AgenticAmplification bool            `json:"agentic_amplification,omitempty"`
	JobAd                *JobAdMetadata  `json:"job_ad_metadata,omitempty"`
	DeviceLocation       string          `json:"device_location,omitempty"`
	AdCopyText           string          `json:"ad_copy_text,omitempty"`
	AgentSessionID       string          `json:"agent_session_id,omitempty"`
	EmploymentGaps       []EmploymentGap `json:"employment_gaps,omitempty"`
	ClaimedSkills        []string        `json:"claimed_skills,omitempty"`
	AIInferredSkills     []string        `json:"ai_inferred_skills,omitempty"`
	ReasoningChain       []string        `json:"reasoning_chain,omitempty"`
	ModelVersion         string          `json:"model_version,omitempty"`
}

// Validate checks the candidate at the boundary, before any scoring runs.
func (c Candidate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.ExperienceYears, validation.Min(0), validation.Max(50)),
		validation.Field(&c.DeviceLocation, validation.In("", "urban", "suburban", "rural")),
	)
}

// Validate checks the address sub-record.
func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.PostalCode, validation.Required, validation.Length(5, 10)),
		validation.Field(&a.LocationType, validation.In("", "urban", "suburban", "rural")),
	)
}

// Validate checks the education sub-record when present.
func (e Education) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.GraduationYear, validation.Min(0), validation.Max(2100)),
	)
}

// Job describes the role the candidate is evaluated against.
type Job struct {
	JobID          string   `json:"job_id,omitempty"`
	Title          string   `json:"title,omitempty"`
	RequiredSkills []string `json:"required_skills"`
}

// EvalContext carries execution-scoped state the rule engine consults,
// most importantly the session store used for replay detection.
type EvalContext struct {
	// PreviousSessions reports whether an agent session identifier has
	// been seen before. Nil disables replay detection.
	PreviousSessions SessionChecker
}

// SessionChecker is the read side of the session store injected into the
// rule engine. The full store (with recording) lives in internal/sessions.
type SessionChecker interface {
	Seen(sessionID string) bool
}

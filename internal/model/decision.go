package model

import (
	"time"
)

// Decision is a terminal hiring recommendation.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReview  Decision = "review"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is one of the three terminal decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReview, DecisionReject:
		return true
	default:
		return false
	}
}

// DecisionOverride is a human-entered decision that supersedes the
// engine-derived one while it is active.
type DecisionOverride struct {
	ID          string     `json:"id" yaml:"id"`
	CandidateID string     `json:"candidate_id" yaml:"candidate_id"`
	Decision    Decision   `json:"decision" yaml:"decision"`
	Reason      string     `json:"reason" yaml:"reason"`
	CreatedBy   string     `json:"created_by" yaml:"created_by"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" yaml:"expires_at"`
}

// ActiveAt reports whether the override has not expired at asOf.
func (o *DecisionOverride) ActiveAt(asOf time.Time) bool {
	if o == nil {
		return false
	}
	return o.ExpiresAt == nil || o.ExpiresAt.After(asOf)
}

// Audit event types.
const (
	AuditRankSTCWComputed = "rank_stcw_computed"
	AuditCRIRecompute     = "cri_recompute"
)

// AuditEvent is emitted by the engines for external logging.
type AuditEvent struct {
	ID          string         `json:"id"`
	CandidateID string         `json:"candidate_id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CorrelationFlag is one internally inconsistent combination of engine outputs.
type CorrelationFlag struct {
	Code     string  `json:"code"`
	Severity string  `json:"severity"`
	Weight   float64 `json:"weight"`
	Detail   string  `json:"detail"`
}

// CorrelationResult is the output of the cross-signal correlation check.
type CorrelationResult struct {
	Flags      []CorrelationFlag `json:"correlation_flags"`
	Summary    string            `json:"correlation_summary"`
	RiskWeight float64           `json:"correlation_risk_weight"`
	Impact     string            `json:"impact"`
}

// DecisionOutcome is the result of the decision cascade.
type DecisionOutcome struct {
	Decision  Decision `json:"decision"`
	Rule      string   `json:"rule"`
	Rationale []string `json:"rationale"`
}

// SummaryScores are the per-engine scores shown on the summary.
// A nil field means the engine had no output.
type SummaryScores struct {
	Reliability  *int     `json:"reliability,omitempty"`
	Technical    *float64 `json:"technical,omitempty"`
	Stability    *float64 `json:"stability,omitempty"`
	Risk         *float64 `json:"risk,omitempty"`
	Compliance   *float64 `json:"compliance,omitempty"`
	Competency   *float64 `json:"competency,omitempty"`
	Verification *float64 `json:"verification,omitempty"`
}

// AppliedOverride is the override block of a summary.
type AppliedOverride struct {
	Active    bool       `json:"active"`
	Decision  Decision   `json:"decision,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ExecutiveSummary is the combined assessment of one candidate.
type ExecutiveSummary struct {
	CandidateID     string              `json:"candidate_id"`
	Decision        Decision            `json:"decision"`
	EngineDecision  Decision            `json:"engine_decision"`
	DecisionRule    string              `json:"decision_rule"`
	Rationale       []string            `json:"rationale"`
	ConfidenceLevel ConfidenceLevel     `json:"confidence_level"`
	Scores          SummaryScores       `json:"scores"`
	TrustFlags      []string            `json:"trust_flags"`
	Correlation     *CorrelationResult  `json:"correlation,omitempty"`
	PredictiveRisk  *PredictiveSnapshot `json:"predictive_risk,omitempty"`
	TopStrengths    []string            `json:"top_strengths"`
	TopRisks        []string            `json:"top_risks"`
	ActionLine      string              `json:"action_line"`
	Override        AppliedOverride     `json:"override"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

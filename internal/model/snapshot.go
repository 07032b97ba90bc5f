package model

import "time"

// Engine names used for coverage and freshness accounting.
const (
	EngineVerification = "verification"
	EngineTechnical    = "technical"
	EngineStability    = "stability"
	EngineCompliance   = "compliance"
	EngineCompetency   = "competency"
	EnginePredictive   = "predictive"
)

// Stability risk tiers.
const (
	RiskTierLow      = "low"
	RiskTierMedium   = "medium"
	RiskTierHigh     = "high"
	RiskTierCritical = "critical"
)

// Compliance statuses.
const (
	ComplianceCompliant    = "compliant"
	ComplianceNeedsReview  = "needs_review"
	ComplianceNotCompliant = "not_compliant"
)

// Predictive policy impacts.
const (
	PolicyImpactNone                = "none"
	PolicyImpactMonitor             = "monitor"
	PolicyImpactReview              = "review"
	PolicyImpactRequireConfirmation = "require_confirmation"
)

// SeverityCritical marks a competency flag that can block hiring.
const SeverityCritical = "critical"

// VerificationSnapshot is the AIS vessel-track verification output.
type VerificationSnapshot struct {
	ConfidenceScore float64   `json:"confidence_score" yaml:"confidence_score"`
	AnomalyCount    int       `json:"anomaly_count" yaml:"anomaly_count"`
	ComputedAt      time.Time `json:"computed_at" yaml:"computed_at"`
}

// TechnicalSnapshot is the certification/technical engine output.
type TechnicalSnapshot struct {
	TechnicalScore   float64   `json:"technical_score" yaml:"technical_score"`
	STCWStatus       string    `json:"stcw_status" yaml:"stcw_status"`
	MissingCertCount int       `json:"missing_cert_count" yaml:"missing_cert_count"`
	ComputedAt       time.Time `json:"computed_at" yaml:"computed_at"`
}

// StabilitySnapshot is the stability/risk engine output.
type StabilitySnapshot struct {
	StabilityIndex float64   `json:"stability_index" yaml:"stability_index"`
	RiskScore      float64   `json:"risk_score" yaml:"risk_score"`
	RiskTier       string    `json:"risk_tier" yaml:"risk_tier"`
	ComputedAt     time.Time `json:"computed_at" yaml:"computed_at"`
}

// ComplianceSnapshot is the STCW compliance engine output.
type ComplianceSnapshot struct {
	ComplianceScore   float64   `json:"compliance_score" yaml:"compliance_score"`
	ComplianceStatus  string    `json:"compliance_status" yaml:"compliance_status"`
	CriticalFlagCount int       `json:"critical_flag_count" yaml:"critical_flag_count"`
	ComputedAt        time.Time `json:"computed_at" yaml:"computed_at"`
}

// CompetencyFlag is one finding of the competency engine.
type CompetencyFlag struct {
	Code     string `json:"code" yaml:"code"`
	Severity string `json:"severity" yaml:"severity"`
}

// CompetencySnapshot is the behavioral/voice competency engine output.
// LanguageConfidence and Coverage are nil when the engine did not report them.
type CompetencySnapshot struct {
	CompetencyScore     float64          `json:"competency_score" yaml:"competency_score"`
	CompetencyStatus    string           `json:"competency_status" yaml:"competency_status"`
	Flags               []CompetencyFlag `json:"flags" yaml:"flags"`
	LanguageConfidence  *float64         `json:"language_confidence,omitempty" yaml:"language_confidence"`
	Coverage            *float64         `json:"coverage,omitempty" yaml:"coverage"`
	TechnicalDepthIndex *float64         `json:"technical_depth_index,omitempty" yaml:"technical_depth_index"`
	ComputedAt          time.Time        `json:"computed_at" yaml:"computed_at"`
}

// HasCriticalFlag reports whether any flag carries critical severity.
func (c *CompetencySnapshot) HasCriticalFlag() bool {
	for _, f := range c.Flags {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// PredictiveSnapshot is the predictive-risk engine output.
type PredictiveSnapshot struct {
	PredictiveRiskIndex float64   `json:"predictive_risk_index" yaml:"predictive_risk_index"`
	PredictiveTier      string    `json:"predictive_tier" yaml:"predictive_tier"`
	TrendDirection      string    `json:"trend_direction" yaml:"trend_direction"`
	PolicyImpact        string    `json:"policy_impact" yaml:"policy_impact"`
	TriggeredPatterns   []string  `json:"triggered_patterns" yaml:"triggered_patterns"`
	ReasonChain         []string  `json:"reason_chain" yaml:"reason_chain"`
	ComputedAt          time.Time `json:"computed_at" yaml:"computed_at"`
}

// SeaTime holds aggregate sea-service metrics used for correlation checks.
type SeaTime struct {
	TotalMonths  float64 `json:"total_months" yaml:"total_months"`
	RecentMonths float64 `json:"recent_months" yaml:"recent_months"`
}

// EngineSnapshots bundles every sibling-engine output for one candidate.
// A nil field means that engine has not produced output.
type EngineSnapshots struct {
	Verification *VerificationSnapshot `json:"verification,omitempty" yaml:"verification"`
	Technical    *TechnicalSnapshot    `json:"technical,omitempty" yaml:"technical"`
	Stability    *StabilitySnapshot    `json:"stability,omitempty" yaml:"stability"`
	Compliance   *ComplianceSnapshot   `json:"compliance,omitempty" yaml:"compliance"`
	Competency   *CompetencySnapshot   `json:"competency,omitempty" yaml:"competency"`
	Predictive   *PredictiveSnapshot   `json:"predictive,omitempty" yaml:"predictive"`
	SeaTime      *SeaTime              `json:"sea_time,omitempty" yaml:"sea_time"`
}

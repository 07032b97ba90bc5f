package decision

import (
	"fmt"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
)

// Rule names, in cascade order.
const (
	RuleStabilityCritical     = "stability_critical"
	RuleStabilityHigh         = "stability_high"
	RuleComplianceHardFail    = "compliance_hard_fail"
	RuleCompetencyCritical    = "competency_critical_flag"
	RuleCompetencyBelowReview = "competency_below_threshold"
	RuleTechnicalBelowReview  = "technical_below_threshold"
	RuleCorrelationReview     = "correlation_review"
	RulePredictiveReview      = "predictive_review"
	RuleDefaultApprove        = "default_approve"
)

// Input is everything the cascade looks at.
type Input struct {
	Snapshots   model.EngineSnapshots
	Correlation model.CorrelationResult
}

// Rule is one guard of the decision cascade. Reason describes why the
// rule matched and is only called after Match returned true.
type Rule struct {
	Name    string
	Outcome model.Decision
	Match   func(in Input) bool
	Reason  func(in Input) string
}

// Rules returns the decision cascade for a calibration, in evaluation order.
// Only stability, hard compliance failure and a gated critical competency
// flag can reject.
func Rules(cal config.CalibrationConfig) []Rule {
	return []Rule{
		{
			Name:    RuleStabilityCritical,
			Outcome: model.DecisionReject,
			Match: func(in Input) bool {
				return in.Snapshots.Stability != nil && in.Snapshots.Stability.RiskTier == model.RiskTierCritical
			},
			Reason: func(in Input) string {
				return fmt.Sprintf("stability risk tier critical (risk score %.0f)", in.Snapshots.Stability.RiskScore)
			},
		},
		{
			Name:    RuleStabilityHigh,
			Outcome: model.DecisionReview,
			Match: func(in Input) bool {
				return in.Snapshots.Stability != nil && in.Snapshots.Stability.RiskTier == model.RiskTierHigh
			},
			Reason: func(in Input) string {
				return fmt.Sprintf("stability risk tier high (risk score %.0f)", in.Snapshots.Stability.RiskScore)
			},
		},
		{
			Name:    RuleComplianceHardFail,
			Outcome: model.DecisionReject,
			Match: func(in Input) bool {
				c := in.Snapshots.Compliance
				return c != nil && c.ComplianceStatus == model.ComplianceNotCompliant && c.CriticalFlagCount > 0
			},
			Reason: func(in Input) string {
				return fmt.Sprintf("not compliant with %d critical compliance flags", in.Snapshots.Compliance.CriticalFlagCount)
			},
		},
		{
			Name:    RuleCompetencyCritical,
			Outcome: model.DecisionReject,
			Match: func(in Input) bool {
				c := in.Snapshots.Competency
				return cal.Competency.Enabled && CompetencyCanDowngrade(c) &&
					cal.Competency.RejectOnCriticalFlag && c.HasCriticalFlag()
			},
			Reason: func(in Input) string {
				return "critical competency safety flag"
			},
		},
		{
			Name:    RuleCompetencyBelowReview,
			Outcome: model.DecisionReview,
			Match: func(in Input) bool {
				c := in.Snapshots.Competency
				return cal.Competency.Enabled && CompetencyCanDowngrade(c) &&
					c.CompetencyScore < cal.Competency.ReviewThreshold
			},
			Reason: func(in Input) string {
				return fmt.Sprintf("competency score %.0f below %.0f",
					in.Snapshots.Competency.CompetencyScore, cal.Competency.ReviewThreshold)
			},
		},
		{
			Name:    RuleTechnicalBelowReview,
			Outcome: model.DecisionReview,
			Match: func(in Input) bool {
				t := in.Snapshots.Technical
				return t != nil && t.TechnicalScore < cal.Technical.ReviewBelow
			},
			Reason: func(in Input) string {
				return fmt.Sprintf("technical score %.0f below %.0f",
					in.Snapshots.Technical.TechnicalScore, cal.Technical.ReviewBelow)
			},
		},
		{
			Name:    RuleCorrelationReview,
			Outcome: model.DecisionReview,
			Match: func(in Input) bool {
				return cal.Correlation.Enabled && len(in.Correlation.Flags) > 0 &&
					ResolveDecisionImpact(in.Correlation.Flags) == ImpactReview
			},
			Reason: func(in Input) string {
				return in.Correlation.Summary
			},
		},
		{
			Name:    RulePredictiveReview,
			Outcome: model.DecisionReview,
			Match: func(in Input) bool {
				p := in.Snapshots.Predictive
				if !cal.Predictive.Enabled || p == nil {
					return false
				}
				return p.PolicyImpact == model.PolicyImpactRequireConfirmation || p.PolicyImpact == model.PolicyImpactReview
			},
			Reason: func(in Input) string {
				p := in.Snapshots.Predictive
				return fmt.Sprintf("predictive risk %s (%s)", p.PredictiveTier, p.PolicyImpact)
			},
		},
		{
			Name:    RuleDefaultApprove,
			Outcome: model.DecisionApprove,
			Match:   func(Input) bool { return true },
			Reason:  func(Input) string { return "no blocking signals" },
		},
	}
}

// Resolver evaluates the decision cascade.
type Resolver struct {
	rules []Rule
}

// NewResolver creates a Resolver with the cascade for cal.
func NewResolver(cal config.CalibrationConfig) *Resolver {
	return &Resolver{rules: Rules(cal)}
}

// Resolve returns the outcome of the first matching rule.
func (r *Resolver) Resolve(in Input) model.DecisionOutcome {
	for _, rule := range r.rules {
		if rule.Match(in) {
			return model.DecisionOutcome{
				Decision:  rule.Outcome,
				Rule:      rule.Name,
				Rationale: []string{rule.Reason(in)},
			}
		}
	}
	// The last rule always matches; reaching here means the cascade was emptied.
	return model.DecisionOutcome{
		Decision:  model.DecisionReview,
		Rule:      "no_rule",
		Rationale: []string{"no decision rule matched"},
	}
}

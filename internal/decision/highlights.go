package decision

import (
	"fmt"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
)

// maxHighlights caps the strengths and risks lists.
const maxHighlights = 3

// highlightInput is what strength and risk rules look at.
type highlightInput struct {
	trust       *model.TrustProfile
	snapshots   model.EngineSnapshots
	correlation model.CorrelationResult
	cal         config.CalibrationConfig
}

type highlightRule struct {
	match   func(in highlightInput) bool
	message func(in highlightInput) string
}

var strengthRules = []highlightRule{
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Technical != nil && in.snapshots.Technical.TechnicalScore >= 80
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Strong technical profile (%.0f)", in.snapshots.Technical.TechnicalScore)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Compliance != nil && in.snapshots.Compliance.ComplianceStatus == model.ComplianceCompliant
		},
		message: func(highlightInput) string { return "Fully STCW compliant" },
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Stability != nil && in.snapshots.Stability.RiskTier == model.RiskTierLow
		},
		message: func(highlightInput) string { return "Low stability risk" },
	},
	{
		match: func(in highlightInput) bool {
			return in.trust != nil && in.trust.CRIScore >= 75
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Reliable contract history (CRI %d)", in.trust.CRIScore)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Competency != nil && in.snapshots.Competency.CompetencyScore >= 75
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("High assessed competency (%.0f)", in.snapshots.Competency.CompetencyScore)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Verification != nil && in.snapshots.Verification.ConfidenceScore >= 0.8
		},
		message: func(highlightInput) string { return "Sea service verified by vessel tracking" },
	},
}

var riskRules = []highlightRule{
	{
		match: func(in highlightInput) bool {
			s := in.snapshots.Stability
			return s != nil && (s.RiskTier == model.RiskTierHigh || s.RiskTier == model.RiskTierCritical)
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Stability risk tier %s", in.snapshots.Stability.RiskTier)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Compliance != nil && in.snapshots.Compliance.ComplianceStatus == model.ComplianceNotCompliant
		},
		message: func(in highlightInput) string {
			missing := 0
			if in.snapshots.Technical != nil {
				missing = in.snapshots.Technical.MissingCertCount
			}
			return fmt.Sprintf("Not STCW compliant (%d missing certificates)", missing)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Technical != nil && in.snapshots.Technical.TechnicalScore < in.cal.Technical.ReviewBelow
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Technical score %.0f below threshold", in.snapshots.Technical.TechnicalScore)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.trust != nil && in.trust.RankAnomalyFlag
		},
		message: func(highlightInput) string { return "Rank progression anomaly" },
	},
	{
		match: func(in highlightInput) bool {
			return in.trust != nil && in.trust.TimelineInconsistencyFlag
		},
		message: func(highlightInput) string { return "Contract timeline overlaps or long gaps" },
	},
	{
		match: func(in highlightInput) bool {
			return len(in.correlation.Flags) > 0
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Cross-signal inconsistencies (%d)", len(in.correlation.Flags))
		},
	},
	{
		match: func(in highlightInput) bool {
			p := in.snapshots.Predictive
			return p != nil && (p.PredictiveTier == model.RiskTierHigh || p.PredictiveTier == model.RiskTierCritical)
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Predictive risk %s", in.snapshots.Predictive.PredictiveTier)
		},
	},
	{
		match: func(in highlightInput) bool {
			return in.snapshots.Verification != nil && in.snapshots.Verification.AnomalyCount > 0
		},
		message: func(in highlightInput) string {
			return fmt.Sprintf("Vessel tracking anomalies (%d)", in.snapshots.Verification.AnomalyCount)
		},
	},
}

// collect returns the messages of the first maxHighlights matching rules
// in declaration order.
func collect(rules []highlightRule, in highlightInput) []string {
	out := []string{}
	for _, r := range rules {
		if len(out) == maxHighlights {
			break
		}
		if r.match(in) {
			out = append(out, r.message(in))
		}
	}
	return out
}

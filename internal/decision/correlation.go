// Package decision turns a trust profile and sibling-engine snapshots into
// a hiring recommendation: correlation checks, the decision cascade, the
// fairness guardrail, confidence, overrides and the executive summary.
package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
)

// Correlation flag codes.
const (
	CorrTechDepthScoreMismatch      = "TECH_DEPTH_SCORE_MISMATCH"
	CorrHighCompetencyLowCompliance = "HIGH_COMPETENCY_LOW_COMPLIANCE"
	CorrStableButHighRisk           = "STABLE_BUT_HIGH_RISK"
	CorrSeaTimeTechMismatch         = "SEA_TIME_TECH_MISMATCH"
	CorrLowSeaTimeHighDepth         = "LOW_SEA_TIME_HIGH_DEPTH"
)

// Correlation flag severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
)

// Correlation impacts. Correlation never rejects.
const (
	ImpactNone   = "none"
	ImpactReview = "review"
)

// CorrelationInput holds the scalar signals the correlation check compares.
// A nil field means the signal is absent and every check using it is skipped.
type CorrelationInput struct {
	TechnicalScore      *float64
	TechnicalDepthIndex *float64
	StabilityIndex      *float64
	RiskScore           *float64
	ComplianceScore     *float64
	CompetencyScore     *float64
	SeaMonths           *float64
}

// CorrelationInputFrom extracts the correlation signals from engine snapshots.
func CorrelationInputFrom(s model.EngineSnapshots) CorrelationInput {
	var in CorrelationInput
	if s.Technical != nil {
		in.TechnicalScore = &s.Technical.TechnicalScore
	}
	if s.Stability != nil {
		in.StabilityIndex = &s.Stability.StabilityIndex
		in.RiskScore = &s.Stability.RiskScore
	}
	if s.Compliance != nil {
		in.ComplianceScore = &s.Compliance.ComplianceScore
	}
	if s.Competency != nil {
		in.CompetencyScore = &s.Competency.CompetencyScore
		in.TechnicalDepthIndex = s.Competency.TechnicalDepthIndex
	}
	if s.SeaTime != nil {
		in.SeaMonths = &s.SeaTime.TotalMonths
	}
	return in
}

type correlationCheck struct {
	code     string
	severity string
	weight   float64
	match    func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool)
}

var correlationChecks = []correlationCheck{
	{
		code: CorrTechDepthScoreMismatch, severity: SeverityMedium, weight: 0.3,
		match: func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool) {
			if in.TechnicalDepthIndex == nil || in.TechnicalScore == nil {
				return "", false
			}
			if *in.TechnicalDepthIndex >= cfg.HighDepthIndex && *in.TechnicalScore < cfg.LowTechnicalScore {
				return fmt.Sprintf("technical depth %.0f but technical score %.0f", *in.TechnicalDepthIndex, *in.TechnicalScore), true
			}
			return "", false
		},
	},
	{
		code: CorrHighCompetencyLowCompliance, severity: SeverityMedium, weight: 0.25,
		match: func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool) {
			if in.CompetencyScore == nil || in.ComplianceScore == nil {
				return "", false
			}
			if *in.CompetencyScore >= cfg.HighCompetencyScore && *in.ComplianceScore < cfg.LowComplianceScore {
				return fmt.Sprintf("competency %.0f but compliance %.0f", *in.CompetencyScore, *in.ComplianceScore), true
			}
			return "", false
		},
	},
	{
		code: CorrStableButHighRisk, severity: SeverityMedium, weight: 0.25,
		match: func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool) {
			if in.StabilityIndex == nil || in.RiskScore == nil {
				return "", false
			}
			if *in.StabilityIndex >= cfg.HighStabilityIndex && *in.RiskScore >= cfg.HighRiskScore {
				return fmt.Sprintf("stability index %.0f with risk score %.0f", *in.StabilityIndex, *in.RiskScore), true
			}
			return "", false
		},
	},
	{
		code: CorrSeaTimeTechMismatch, severity: SeverityLow, weight: 0.15,
		match: func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool) {
			if in.SeaMonths == nil || in.TechnicalScore == nil {
				return "", false
			}
			if *in.SeaMonths >= cfg.ExperiencedSeaMonths && *in.TechnicalScore < cfg.LowTechnicalScore {
				return fmt.Sprintf("%.0f months at sea but technical score %.0f", *in.SeaMonths, *in.TechnicalScore), true
			}
			return "", false
		},
	},
	{
		code: CorrLowSeaTimeHighDepth, severity: SeverityLow, weight: 0.15,
		match: func(in CorrelationInput, cfg config.CorrelationCalibration) (string, bool) {
			if in.SeaMonths == nil || in.TechnicalDepthIndex == nil {
				return "", false
			}
			if *in.SeaMonths < cfg.NoviceSeaMonths && *in.TechnicalDepthIndex >= cfg.HighDepthIndex {
				return fmt.Sprintf("%.0f months at sea but technical depth %.0f", *in.SeaMonths, *in.TechnicalDepthIndex), true
			}
			return "", false
		},
	},
}

// CorrelationAnalyzer detects internally inconsistent combinations of
// engine outputs.
type CorrelationAnalyzer struct {
	cfg config.CorrelationCalibration
}

// NewCorrelationAnalyzer creates a CorrelationAnalyzer.
func NewCorrelationAnalyzer(cfg config.CorrelationCalibration) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{cfg: cfg}
}

// Analyze runs every correlation check. The risk weight is the sum of the
// matched flag weights, capped at 1.
func (a *CorrelationAnalyzer) Analyze(in CorrelationInput) model.CorrelationResult {
	res := model.CorrelationResult{Flags: []model.CorrelationFlag{}}

	var codes []string
	for _, chk := range correlationChecks {
		detail, ok := chk.match(in, a.cfg)
		if !ok {
			continue
		}
		res.Flags = append(res.Flags, model.CorrelationFlag{
			Code:     chk.code,
			Severity: chk.severity,
			Weight:   chk.weight,
			Detail:   detail,
		})
		res.RiskWeight += chk.weight
		codes = append(codes, chk.code)
	}
	res.RiskWeight = math.Min(1, math.Round(res.RiskWeight*100)/100)
	res.Impact = ResolveDecisionImpact(res.Flags)

	if len(codes) == 0 {
		res.Summary = "no cross-signal inconsistencies"
	} else {
		res.Summary = fmt.Sprintf("%d cross-signal inconsistencies: %s", len(codes), strings.Join(codes, ", "))
	}
	return res
}

// ResolveDecisionImpact maps correlation flags to a decision impact. Any
// flag above low severity asks for review; nothing here can reject.
func ResolveDecisionImpact(flags []model.CorrelationFlag) string {
	for _, f := range flags {
		if f.Severity != SeverityLow {
			return ImpactReview
		}
	}
	return ImpactNone
}

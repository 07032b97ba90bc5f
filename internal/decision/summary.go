package decision

import (
	"time"

	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
)

// SummaryInput is everything already gathered for one candidate. Trust and
// Override may be nil.
type SummaryInput struct {
	CandidateID string
	Trust       *model.TrustProfile
	Snapshots   model.EngineSnapshots
	Override    *model.DecisionOverride
	AsOf        time.Time
}

// Assembler builds the executive summary. It never computes sibling-engine
// outputs; it only reads the snapshots it is given.
type Assembler struct {
	cal         config.CalibrationConfig
	correlation *CorrelationAnalyzer
	resolver    *Resolver
}

// NewAssembler creates an Assembler for a calibration.
func NewAssembler(cal config.CalibrationConfig) *Assembler {
	return &Assembler{
		cal:         cal,
		correlation: NewCorrelationAnalyzer(cal.Correlation),
		resolver:    NewResolver(cal),
	}
}

// Assemble runs correlation, the decision cascade, confidence, highlights
// and the override in that order and returns the summary.
func (a *Assembler) Assemble(in SummaryInput) model.ExecutiveSummary {
	s := model.ExecutiveSummary{
		CandidateID: in.CandidateID,
		Scores:      scoresFrom(in.Trust, in.Snapshots),
		TrustFlags:  []string{},
		GeneratedAt: in.AsOf,
	}
	if in.Trust != nil {
		s.TrustFlags = append(s.TrustFlags, in.Trust.Flags...)
	}

	corr := model.CorrelationResult{Flags: []model.CorrelationFlag{}, Impact: ImpactNone}
	if a.cal.Correlation.Enabled {
		corr = a.correlation.Analyze(CorrelationInputFrom(in.Snapshots))
		s.Correlation = &corr
	}
	s.PredictiveRisk = in.Snapshots.Predictive

	outcome := a.resolver.Resolve(Input{Snapshots: in.Snapshots, Correlation: corr})
	s.Decision = outcome.Decision
	s.EngineDecision = outcome.Decision
	s.DecisionRule = outcome.Rule
	s.Rationale = outcome.Rationale

	s.ConfidenceLevel = ResolveConfidence(in.Snapshots, a.cal.Confidence.StaleAfterDays, in.AsOf)

	hl := highlightInput{trust: in.Trust, snapshots: in.Snapshots, correlation: corr, cal: a.cal}
	s.TopStrengths = collect(strengthRules, hl)
	s.TopRisks = collect(riskRules, hl)
	s.ActionLine = actionLine(outcome)

	ApplyOverride(&s, in.Override, in.AsOf)

	zap.L().Debug("decision: summary assembled",
		zap.String("candidate_id", in.CandidateID),
		zap.String("decision", string(s.Decision)),
		zap.String("engine_decision", string(s.EngineDecision)),
		zap.String("rule", s.DecisionRule),
		zap.Bool("override", s.Override.Active),
	)

	return s
}

func scoresFrom(trust *model.TrustProfile, snap model.EngineSnapshots) model.SummaryScores {
	var sc model.SummaryScores
	if trust != nil {
		cri := trust.CRIScore
		sc.Reliability = &cri
	}
	if snap.Technical != nil {
		sc.Technical = ptr(snap.Technical.TechnicalScore)
	}
	if snap.Stability != nil {
		sc.Stability = ptr(snap.Stability.StabilityIndex)
		sc.Risk = ptr(snap.Stability.RiskScore)
	}
	if snap.Compliance != nil {
		sc.Compliance = ptr(snap.Compliance.ComplianceScore)
	}
	if snap.Competency != nil {
		sc.Competency = ptr(snap.Competency.CompetencyScore)
	}
	if snap.Verification != nil {
		sc.Verification = ptr(snap.Verification.ConfidenceScore)
	}
	return sc
}

func actionLine(o model.DecisionOutcome) string {
	reason := ""
	if len(o.Rationale) > 0 {
		reason = o.Rationale[0]
	}
	switch o.Decision {
	case model.DecisionApprove:
		return "Proceed to offer."
	case model.DecisionReject:
		return "Do not proceed: " + reason + "."
	default:
		return "Hold for manual review: " + reason + "."
	}
}

func ptr[T any](v T) *T { return &v }

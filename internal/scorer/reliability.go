package scorer

import (
	"math"
	"strings"
	"time"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
)

const (
	blockMax = 25.0

	// Rank integrity when any anomaly exists.
	rankAnomalyScore = 10.0

	// Timeline coherence when overlaps exist or gaps are too long.
	incoherentTimelineScore = 5.0
	coherentGapMonths       = 18.0

	// Behavioral stability without behavioral data.
	neutralBehavioralScore = 20.0
	manipulationPenalty    = 5.0

	// Penalties inside the consistency block.
	overlapPenalty   = 10.0
	gapPenaltyPer6mo = 5.0
)

// Calculator combines contract and rank analysis with an optional
// behavioral signal into a TrustProfile.
type Calculator struct {
	cal       config.CalibrationConfig
	contracts *ContractAnalyzer
	ranks     *ProgressionAnalyzer
	hash      string
}

// NewCalculator creates a Calculator for the given calibration.
func NewCalculator(cal config.CalibrationConfig) *Calculator {
	return &Calculator{
		cal:       cal,
		contracts: NewContractAnalyzer(cal.Contracts),
		ranks:     NewProgressionAnalyzer(cal.Rank),
		hash:      ConfigHash(cal),
	}
}

// ConfigHash returns the hash of the calibration this Calculator scores with.
func (c *Calculator) ConfigHash() string {
	return c.hash
}

// Compute scores a candidate. It is a pure function of its inputs: the same
// contracts, behavioral profile and asOf always yield the same profile.
// A nil behavioral profile is scored neutrally.
func (c *Calculator) Compute(candidateID string, contracts []model.Contract, behavioral *model.BehavioralProfile, asOf time.Time) model.TrustProfile {
	ca := c.contracts.Analyze(contracts, asOf)
	ra := c.ranks.Analyze(contracts)

	profile := model.TrustProfile{
		CandidateID:          candidateID,
		ConfidenceLevel:      ConfidenceForCount(len(contracts)),
		ShortContractRatio:   ca.ShortContractRatio,
		OverlapCount:         len(ca.Overlaps),
		GapMonthsTotal:       ca.TotalGapMonths,
		UniqueCompanyCount3y: ca.RecentUniqueCompanies,
		Flags:                []string{},
		ConfigHash:           c.hash,
		ComputedAt:           asOf,
	}

	manipulation := countManipulationFlags(behavioral)
	profile.Detail = model.TrustDetail{
		Contracts:         ca,
		Ranks:             ra,
		BehavioralPresent: behavioral != nil,
		ManipulationFlags: manipulation,
	}

	// No history means nothing to score; the profile stays at zero with no flags.
	if len(contracts) == 0 {
		return profile
	}

	blocks := model.ScoreBlocks{
		Consistency:         consistencyBlock(ca),
		RankIntegrity:       rankIntegrityBlock(ca, ra),
		TimelineCoherence:   timelineCoherenceBlock(ca),
		BehavioralStability: behavioralBlock(behavioral != nil, manipulation),
	}
	profile.Detail.Scores = blocks
	profile.CRIScore = int(math.Round(clamp(blocks.Total(), 0, 100)))

	profile.Flags = append(profile.Flags, ca.Flags...)
	profile.Flags = append(profile.Flags, ra.Flags...)
	profile.RankAnomalyFlag = ra.HasFlag(model.FlagRankAnomaly) || ra.HasFlag(model.FlagUnrealisticPromotion)
	profile.FrequentSwitchFlag = ca.HasFlag(model.FlagFrequentSwitch)
	profile.TimelineInconsistencyFlag = ca.HasFlag(model.FlagOverlap) || ca.HasFlag(model.FlagLongGap)

	return profile
}

// ConfidenceForCount maps evidence volume to a confidence tier: fewer than
// two contracts is low, up to five is medium, more is high.
func ConfidenceForCount(n int) model.ConfidenceLevel {
	switch {
	case n < 2:
		return model.ConfidenceLow
	case n <= 5:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceHigh
	}
}

func consistencyBlock(ca model.ContractAnalysis) float64 {
	if ca.TotalContracts == 0 {
		return 0
	}
	penalty := ca.ShortContractRatio*blockMax +
		float64(len(ca.Overlaps))*overlapPenalty +
		(ca.TotalGapMonths/6)*gapPenaltyPer6mo
	return blockMax - math.Min(blockMax, penalty)
}

func rankIntegrityBlock(ca model.ContractAnalysis, ra model.RankAnalysis) float64 {
	if ca.TotalContracts == 0 || len(ra.Anomalies) == 0 {
		return blockMax
	}
	return rankAnomalyScore
}

func timelineCoherenceBlock(ca model.ContractAnalysis) float64 {
	if ca.TotalContracts == 0 || (len(ca.Overlaps) == 0 && ca.TotalGapMonths <= coherentGapMonths) {
		return blockMax
	}
	return incoherentTimelineScore
}

func behavioralBlock(present bool, manipulation int) float64 {
	if !present {
		return neutralBehavioralScore
	}
	return blockMax - math.Min(blockMax, float64(manipulation)*manipulationPenalty)
}

// countManipulationFlags counts behavioral flags of type "manipulation" or
// with "high" severity.
func countManipulationFlags(bp *model.BehavioralProfile) int {
	if bp == nil {
		return 0
	}
	n := 0
	for _, f := range bp.Flags {
		if strings.EqualFold(f.Type, "manipulation") || strings.EqualFold(f.Severity, "high") {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

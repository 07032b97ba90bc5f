package model

import "time"

// Contract and rank analysis flags.
const (
	FlagShortPattern         = "FLAG_SHORT_PATTERN"
	FlagOverlap              = "FLAG_OVERLAP"
	FlagLongGap              = "FLAG_LONG_GAP"
	FlagFrequentSwitch       = "FLAG_FREQUENT_SWITCH"
	FlagRankAnomaly          = "FLAG_RANK_ANOMALY"
	FlagUnrealisticPromotion = "FLAG_UNREALISTIC_PROMOTION"
)

// ConfidenceLevel is a coarse low/medium/high tier.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// GapPeriod is an idle period between two adjacent contracts.
type GapPeriod struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Months float64   `json:"months"`
}

// Overlap records two adjacent contracts whose dates intersect.
type Overlap struct {
	ContractID     string `json:"contract_id"`
	NextContractID string `json:"next_contract_id"`
	Days           int    `json:"days"`
}

// ContractAnalysis holds duration, gap, overlap and employer statistics
// over a candidate's full contract set.
type ContractAnalysis struct {
	TotalContracts        int         `json:"total_contracts"`
	AvgDurationMonths     float64     `json:"avg_duration_months"`
	ShortestMonths        float64     `json:"shortest_months"`
	LongestMonths         float64     `json:"longest_months"`
	ShortContractCount    int         `json:"short_contract_count"`
	ShortContractRatio    float64     `json:"short_contract_ratio"`
	UniqueCompanies       int         `json:"unique_companies"`
	RepeatCompanies       int         `json:"repeat_companies"`
	CompanyRepeatRatio    float64     `json:"company_repeat_ratio"`
	Gaps                  []GapPeriod `json:"gaps"`
	TotalGapMonths        float64     `json:"total_gap_months"`
	LongestGapMonths      float64     `json:"longest_gap_months"`
	Overlaps              []Overlap   `json:"overlaps"`
	RecentUniqueCompanies int         `json:"recent_unique_companies"`
	Flags                 []string    `json:"flags"`
}

// HasFlag reports whether flag was raised.
func (a *ContractAnalysis) HasFlag(flag string) bool {
	return containsFlag(a.Flags, flag)
}

// Rank anomaly types.
const (
	AnomalyRankDowngrade        = "rank_downgrade"
	AnomalyUnrealisticPromotion = "unrealistic_promotion"
)

// RankStep is one resolvable contract in a progression timeline.
type RankStep struct {
	Canonical  string     `json:"canonical"`
	Department Department `json:"department"`
	Level      int        `json:"level"`
	StartDate  time.Time  `json:"start_date"`
	ContractID string     `json:"contract_id"`
}

// RankAnomaly is a suspicious transition between two adjacent ranks.
type RankAnomaly struct {
	Type          string   `json:"type"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	MonthsBetween *float64 `json:"months_between"`
	Detail        string   `json:"detail"`
}

// RankAnalysis is the reconstructed progression of a candidate.
type RankAnalysis struct {
	PrimaryDepartment Department    `json:"primary_department,omitempty"`
	Progression       []RankStep    `json:"progression"`
	UnknownRanks      []string      `json:"unknown_ranks"`
	Anomalies         []RankAnomaly `json:"anomalies"`
	Flags             []string      `json:"flags"`
}

// HasFlag reports whether flag was raised.
func (a *RankAnalysis) HasFlag(flag string) bool {
	return containsFlag(a.Flags, flag)
}

// ScoreBlocks are the four 0-25 blocks of the Crew Reliability Index.
type ScoreBlocks struct {
	Consistency         float64 `json:"consistency"`
	RankIntegrity       float64 `json:"rank_integrity"`
	TimelineCoherence   float64 `json:"timeline_coherence"`
	BehavioralStability float64 `json:"behavioral_stability"`
}

// Total sums the blocks.
func (b ScoreBlocks) Total() float64 {
	return b.Consistency + b.RankIntegrity + b.TimelineCoherence + b.BehavioralStability
}

// TrustDetail carries the nested scores and sub-analyses of a profile.
type TrustDetail struct {
	Scores            ScoreBlocks      `json:"scores"`
	Contracts         ContractAnalysis `json:"contracts"`
	Ranks             RankAnalysis     `json:"ranks"`
	BehavioralPresent bool             `json:"behavioral_present"`
	ManipulationFlags int              `json:"manipulation_flags"`
}

// TrustProfile is the persisted per-candidate reliability record. It is
// overwritten wholesale on every recompute.
type TrustProfile struct {
	CandidateID               string          `json:"candidate_id"`
	CRIScore                  int             `json:"cri_score"`
	ConfidenceLevel           ConfidenceLevel `json:"confidence_level"`
	ShortContractRatio        float64         `json:"short_contract_ratio"`
	OverlapCount              int             `json:"overlap_count"`
	GapMonthsTotal            float64         `json:"gap_months_total"`
	UniqueCompanyCount3y      int             `json:"unique_company_count_3y"`
	RankAnomalyFlag           bool            `json:"rank_anomaly_flag"`
	FrequentSwitchFlag        bool            `json:"frequent_switch_flag"`
	TimelineInconsistencyFlag bool            `json:"timeline_inconsistency_flag"`
	Flags                     []string        `json:"flags"`
	Detail                    TrustDetail     `json:"detail"`
	ConfigHash                string          `json:"config_hash,omitempty"`
	ComputedAt                time.Time       `json:"computed_at"`
}

func containsFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Package scorer computes the Crew Reliability Index from a candidate's
// contract history: contract patterns, rank progression and an optional
// behavioral stability signal.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/crewvet/trust-cli/internal/config"
)

// DefaultCalibration returns a config.CalibrationConfig with sensible defaults.
func DefaultCalibration() config.CalibrationConfig {
	return config.CalibrationConfig{
		Contracts: config.ContractCalibration{
			DefaultShortMonths: 6,
			ShortMonthsByRank: map[string]float64{
				"MASTER":          3,
				"CHIEF_OFFICER":   4,
				"CHIEF_ENGINEER":  3,
				"SECOND_ENGINEER": 4,
				"ETO":             4,
				"DECK_CADET":      4,
				"ENGINE_CADET":    4,
			},
			ShortRatioFlagThreshold:     0.5,
			GapMonthsFlagThreshold:      12,
			FrequentSwitchFlagThreshold: 4,
			RecentCompaniesWindowYears:  3,
		},
		Rank: config.RankCalibration{
			UnrealisticPromotionMonths: 6,
			UnrealisticPromotionLevels: 2,
		},
		Competency: config.CompetencyCalibration{
			Enabled:              true,
			ReviewThreshold:      45,
			RejectOnCriticalFlag: true,
		},
		Technical: config.TechnicalCalibration{
			ReviewBelow: 50,
		},
		Correlation: config.CorrelationCalibration{
			Enabled:              true,
			HighDepthIndex:       70,
			LowTechnicalScore:    50,
			HighCompetencyScore:  75,
			LowComplianceScore:   50,
			HighStabilityIndex:   70,
			HighRiskScore:        70,
			ExperiencedSeaMonths: 60,
			NoviceSeaMonths:      12,
		},
		Predictive: config.PredictiveCalibration{
			Enabled: true,
		},
		Confidence: config.ConfidenceCalibration{
			StaleAfterDays: 90,
		},
	}
}

// ValidateCalibration checks that a CalibrationConfig is internally consistent.
func ValidateCalibration(c config.CalibrationConfig) error {
	var errs []string

	// Contract thresholds.
	if c.Contracts.DefaultShortMonths <= 0 {
		errs = append(errs, "contracts.default_short_months must be > 0")
	}
	for code, months := range c.Contracts.ShortMonthsByRank {
		if months <= 0 {
			errs = append(errs, fmt.Sprintf("contracts.short_months_by_rank[%s] must be > 0", code))
		}
	}
	if c.Contracts.ShortRatioFlagThreshold < 0 || c.Contracts.ShortRatioFlagThreshold > 1 {
		errs = append(errs, "contracts.short_ratio_flag_threshold must be between 0 and 1")
	}
	if c.Contracts.GapMonthsFlagThreshold < 0 {
		errs = append(errs, "contracts.gap_months_flag_threshold must be >= 0")
	}
	if c.Contracts.FrequentSwitchFlagThreshold < 0 {
		errs = append(errs, "contracts.frequent_switch_flag_threshold must be >= 0")
	}
	if c.Contracts.RecentCompaniesWindowYears <= 0 {
		errs = append(errs, "contracts.recent_companies_window_years must be > 0")
	}

	// Rank progression.
	if c.Rank.UnrealisticPromotionMonths <= 0 {
		errs = append(errs, "rank.unrealistic_promotion_months must be > 0")
	}
	if c.Rank.UnrealisticPromotionLevels < 1 {
		errs = append(errs, "rank.unrealistic_promotion_levels must be >= 1")
	}

	// Decision thresholds.
	if c.Competency.ReviewThreshold < 0 || c.Competency.ReviewThreshold > 100 {
		errs = append(errs, "competency.review_threshold must be between 0 and 100")
	}
	if c.Technical.ReviewBelow < 0 || c.Technical.ReviewBelow > 100 {
		errs = append(errs, "technical.review_below must be between 0 and 100")
	}
	if c.Confidence.StaleAfterDays <= 0 {
		errs = append(errs, "confidence.stale_after_days must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: calibration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

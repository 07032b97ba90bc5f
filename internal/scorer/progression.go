package scorer

import (
	"fmt"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/rank"
)

// ProgressionAnalyzer reconstructs a candidate's rank timeline and flags
// downgrades and implausibly fast promotions.
type ProgressionAnalyzer struct {
	cfg config.RankCalibration
}

// NewProgressionAnalyzer creates a ProgressionAnalyzer with the given thresholds.
func NewProgressionAnalyzer(cfg config.RankCalibration) *ProgressionAnalyzer {
	return &ProgressionAnalyzer{cfg: cfg}
}

// Analyze builds the RankAnalysis. Contracts whose rank cannot be resolved
// are listed in UnknownRanks and left out of the progression. Anomalies are
// only looked for inside the primary department.
func (p *ProgressionAnalyzer) Analyze(contracts []model.Contract) model.RankAnalysis {
	res := model.RankAnalysis{
		Progression:  []model.RankStep{},
		UnknownRanks: []string{},
		Anomalies:    []model.RankAnomaly{},
		Flags:        []string{},
	}
	if len(contracts) == 0 {
		return res
	}

	seenUnknown := make(map[string]bool)
	for _, c := range SortByStart(contracts) {
		r := rank.Normalize(c.RankCode)
		if r == nil {
			if !seenUnknown[c.RankCode] {
				seenUnknown[c.RankCode] = true
				res.UnknownRanks = append(res.UnknownRanks, c.RankCode)
			}
			continue
		}
		res.Progression = append(res.Progression, model.RankStep{
			Canonical:  r.Code,
			Department: r.Department,
			Level:      r.Level,
			StartDate:  c.StartDate,
			ContractID: c.ID,
		})
	}

	res.PrimaryDepartment = primaryDepartment(res.Progression)
	if res.PrimaryDepartment == "" {
		return res
	}

	var prev *model.RankStep
	for i := range res.Progression {
		cur := &res.Progression[i]
		if cur.Department != res.PrimaryDepartment {
			continue
		}
		if prev != nil {
			if a := p.checkTransition(prev, cur); a != nil {
				res.Anomalies = append(res.Anomalies, *a)
			}
		}
		prev = cur
	}

	var downgrade, promotion bool
	for _, a := range res.Anomalies {
		switch a.Type {
		case model.AnomalyRankDowngrade:
			downgrade = true
		case model.AnomalyUnrealisticPromotion:
			promotion = true
		}
	}
	if downgrade {
		res.Flags = append(res.Flags, model.FlagRankAnomaly)
	}
	if promotion {
		res.Flags = append(res.Flags, model.FlagUnrealisticPromotion)
	}

	return res
}

// checkTransition inspects two adjacent steps of the same department.
func (p *ProgressionAnalyzer) checkTransition(prev, cur *model.RankStep) *model.RankAnomaly {
	if cur.Level < prev.Level {
		return &model.RankAnomaly{
			Type:   model.AnomalyRankDowngrade,
			From:   prev.Canonical,
			To:     cur.Canonical,
			Detail: fmt.Sprintf("level %d to %d", prev.Level, cur.Level),
		}
	}

	jump := cur.Level - prev.Level
	months := round2(monthsBetween(prev.StartDate, cur.StartDate))
	if jump >= p.cfg.UnrealisticPromotionLevels && months < p.cfg.UnrealisticPromotionMonths {
		return &model.RankAnomaly{
			Type:          model.AnomalyUnrealisticPromotion,
			From:          prev.Canonical,
			To:            cur.Canonical,
			MonthsBetween: &months,
			Detail:        fmt.Sprintf("%d levels in %.1f months", jump, months),
		}
	}
	return nil
}

// primaryDepartment returns the department with the most resolved
// contracts. On a tie the department encountered first wins.
func primaryDepartment(steps []model.RankStep) model.Department {
	counts := make(map[model.Department]int)
	var order []model.Department
	for _, s := range steps {
		if counts[s.Department] == 0 {
			order = append(order, s.Department)
		}
		counts[s.Department]++
	}

	var best model.Department
	bestCount := 0
	for _, d := range order {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

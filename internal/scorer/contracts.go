package scorer

import (
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/rank"
)

// daysPerMonth is the average month length used for gap and duration math.
const daysPerMonth = 30.44

// ContractAnalyzer computes duration, gap, overlap and employer statistics
// over a candidate's contract history.
type ContractAnalyzer struct {
	cfg         config.ContractCalibration
	shortByRank map[string]float64
}

// NewContractAnalyzer creates a ContractAnalyzer with the given thresholds.
func NewContractAnalyzer(cfg config.ContractCalibration) *ContractAnalyzer {
	// Config loaders may lowercase map keys; canonical codes are upper case.
	shortByRank := make(map[string]float64, len(cfg.ShortMonthsByRank))
	for code, months := range cfg.ShortMonthsByRank {
		shortByRank[strings.ToUpper(code)] = months
	}
	return &ContractAnalyzer{cfg: cfg, shortByRank: shortByRank}
}

// Analyze computes a ContractAnalysis. Open-ended contracts count up to
// asOf for duration and are skipped for gap and overlap detection. An empty
// contract set yields a zero-valued analysis with no flags.
func (a *ContractAnalyzer) Analyze(contracts []model.Contract, asOf time.Time) model.ContractAnalysis {
	res := model.ContractAnalysis{
		Gaps:     []model.GapPeriod{},
		Overlaps: []model.Overlap{},
		Flags:    []string{},
	}
	if len(contracts) == 0 {
		return res
	}

	sorted := SortByStart(contracts)
	res.TotalContracts = len(sorted)

	// Durations and rank-aware short contracts.
	var total float64
	res.ShortestMonths = math.MaxFloat64
	for _, c := range sorted {
		d := durationMonths(c, asOf)
		total += d
		res.ShortestMonths = math.Min(res.ShortestMonths, d)
		res.LongestMonths = math.Max(res.LongestMonths, d)
		// A contract that has not started yet cannot be judged short.
		if c.StartDate.After(asOf) && c.IsOpen() {
			continue
		}
		if d < a.shortThreshold(c.RankCode) {
			res.ShortContractCount++
		}
	}
	res.AvgDurationMonths = round2(total / float64(len(sorted)))
	res.ShortestMonths = round2(res.ShortestMonths)
	res.LongestMonths = round2(res.LongestMonths)
	res.ShortContractRatio = round2(float64(res.ShortContractCount) / float64(len(sorted)))

	// Employers.
	counts := make(map[string]int)
	for _, c := range sorted {
		if key := EmployerKey(c.CompanyName); key != "" {
			counts[key]++
		}
	}
	res.UniqueCompanies = len(counts)
	for _, n := range counts {
		if n >= 2 {
			res.RepeatCompanies++
		}
	}
	if res.UniqueCompanies > 0 {
		res.CompanyRepeatRatio = round2(float64(res.RepeatCompanies) / float64(res.UniqueCompanies))
	}

	// Gaps and overlaps between adjacent contracts only.
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.EndDate == nil {
			continue
		}
		end := *cur.EndDate
		switch {
		case end.Before(next.StartDate):
			months := round2(monthsBetween(end, next.StartDate))
			res.Gaps = append(res.Gaps, model.GapPeriod{From: end, To: next.StartDate, Months: months})
			res.TotalGapMonths += months
			res.LongestGapMonths = math.Max(res.LongestGapMonths, months)
		case end.After(next.StartDate):
			res.Overlaps = append(res.Overlaps, model.Overlap{
				ContractID:     cur.ID,
				NextContractID: next.ID,
				Days:           daysBetween(next.StartDate, end),
			})
		}
	}
	res.TotalGapMonths = round2(res.TotalGapMonths)

	// Employer diversity within the trailing window.
	windowStart := asOf.AddDate(-a.cfg.RecentCompaniesWindowYears, 0, 0)
	recent := make(map[string]struct{})
	for _, c := range sorted {
		if c.StartDate.Before(windowStart) {
			continue
		}
		if key := EmployerKey(c.CompanyName); key != "" {
			recent[key] = struct{}{}
		}
	}
	res.RecentUniqueCompanies = len(recent)

	if res.ShortContractRatio > a.cfg.ShortRatioFlagThreshold {
		res.Flags = append(res.Flags, model.FlagShortPattern)
	}
	if len(res.Overlaps) > 0 {
		res.Flags = append(res.Flags, model.FlagOverlap)
	}
	if res.TotalGapMonths > a.cfg.GapMonthsFlagThreshold {
		res.Flags = append(res.Flags, model.FlagLongGap)
	}
	if res.RecentUniqueCompanies > a.cfg.FrequentSwitchFlagThreshold {
		res.Flags = append(res.Flags, model.FlagFrequentSwitch)
	}

	return res
}

// shortThreshold returns the short-contract threshold in months for a raw
// rank string, falling back to the default when the rank is unresolved or
// has no dedicated threshold.
func (a *ContractAnalyzer) shortThreshold(rawRank string) float64 {
	if r := rank.Normalize(rawRank); r != nil {
		if months, ok := a.shortByRank[r.Code]; ok {
			return months
		}
	}
	return a.cfg.DefaultShortMonths
}

// SortByStart returns a copy of contracts ordered by start date. Contracts
// sharing a start date keep their input order.
func SortByStart(contracts []model.Contract) []model.Contract {
	sorted := slices.Clone(contracts)
	slices.SortStableFunc(sorted, func(a, b model.Contract) int {
		return a.StartDate.Compare(b.StartDate)
	})
	return sorted
}

// EmployerKey normalizes an employer name for grouping: trimmed, inner
// whitespace collapsed and case-folded.
func EmployerKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// durationMonths is the contract length in months, never negative. Open
// contracts run to asOf.
func durationMonths(c model.Contract, asOf time.Time) float64 {
	return math.Max(0, monthsBetween(c.StartDate, c.EndOr(asOf)))
}

func monthsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / daysPerMonth
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

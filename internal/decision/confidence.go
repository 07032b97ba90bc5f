package decision

import (
	"time"

	"github.com/crewvet/trust-cli/internal/model"
)

// Coverage counts which engines reported and how many reports are stale.
type Coverage struct {
	Present []string
	Stale   []string
}

// EngineCoverage inspects the five engines that feed confidence. An output
// is stale when it is older than staleAfter at asOf.
func EngineCoverage(s model.EngineSnapshots, staleAfter time.Duration, asOf time.Time) Coverage {
	cov := Coverage{Present: []string{}, Stale: []string{}}
	check := func(name string, computedAt time.Time) {
		cov.Present = append(cov.Present, name)
		if asOf.Sub(computedAt) > staleAfter {
			cov.Stale = append(cov.Stale, name)
		}
	}

	if s.Verification != nil {
		check(model.EngineVerification, s.Verification.ComputedAt)
	}
	if s.Technical != nil {
		check(model.EngineTechnical, s.Technical.ComputedAt)
	}
	if s.Stability != nil {
		check(model.EngineStability, s.Stability.ComputedAt)
	}
	if s.Compliance != nil {
		check(model.EngineCompliance, s.Compliance.ComputedAt)
	}
	if s.Competency != nil {
		check(model.EngineCompetency, s.Competency.ComputedAt)
	}
	return cov
}

// ResolveConfidence maps engine coverage to a confidence tier: fewer than
// two engines is low, four or more with nothing stale is high, anything
// else is medium.
func ResolveConfidence(s model.EngineSnapshots, staleAfterDays int, asOf time.Time) model.ConfidenceLevel {
	cov := EngineCoverage(s, time.Duration(staleAfterDays)*24*time.Hour, asOf)
	switch {
	case len(cov.Present) < 2:
		return model.ConfidenceLow
	case len(cov.Present) >= 4 && len(cov.Stale) == 0:
		return model.ConfidenceHigh
	default:
		return model.ConfidenceMedium
	}
}

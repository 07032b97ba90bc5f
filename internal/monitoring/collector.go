// Package monitoring summarizes batch recompute runs and raises webhook
// alerts when a run looks unhealthy.
package monitoring

import (
	"sort"
	"time"

	"github.com/crewvet/trust-cli/internal/engine"
	"github.com/crewvet/trust-cli/internal/model"
)

// BatchSnapshot holds the health view of one batch recompute.
type BatchSnapshot struct {
	Total              int      `json:"total"`
	Succeeded          int      `json:"succeeded"`
	Failed             int      `json:"failed"`
	FailRate           float64  `json:"fail_rate"`
	LowConfidence      int      `json:"low_confidence"`
	LowConfidenceShare float64  `json:"low_confidence_share"`
	Flagged            int      `json:"flagged"`
	AvgCRI             float64  `json:"avg_cri"`
	FailedCandidates   []string `json:"failed_candidates,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collect builds a snapshot from a batch result.
func Collect(res *engine.BatchResult, now time.Time) *BatchSnapshot {
	snap := &BatchSnapshot{CollectedAt: now.UTC()}
	if res == nil {
		return snap
	}

	var criSum int
	for id, r := range res.Results {
		snap.Total++
		p, ok := r.Get()
		if !ok {
			snap.Failed++
			snap.FailedCandidates = append(snap.FailedCandidates, id)
			continue
		}
		snap.Succeeded++
		criSum += p.CRIScore
		if p.ConfidenceLevel == model.ConfidenceLow {
			snap.LowConfidence++
		}
		if len(p.Flags) > 0 {
			snap.Flagged++
		}
	}
	sort.Strings(snap.FailedCandidates)

	if snap.Total > 0 {
		snap.FailRate = float64(snap.Failed) / float64(snap.Total)
	}
	if snap.Succeeded > 0 {
		snap.AvgCRI = float64(criSum) / float64(snap.Succeeded)
		snap.LowConfidenceShare = float64(snap.LowConfidence) / float64(snap.Succeeded)
	}
	return snap
}

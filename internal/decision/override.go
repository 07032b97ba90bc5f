package decision

import (
	"fmt"
	"time"

	"github.com/crewvet/trust-cli/internal/model"
)

// SelectActive returns the newest override that is still active at asOf,
// or nil.
func SelectActive(overrides []model.DecisionOverride, asOf time.Time) *model.DecisionOverride {
	var active *model.DecisionOverride
	for i := range overrides {
		o := &overrides[i]
		if !o.ActiveAt(asOf) || o.CreatedAt.After(asOf) {
			continue
		}
		if active == nil || o.CreatedAt.After(active.CreatedAt) {
			active = o
		}
	}
	if active == nil {
		return nil
	}
	cp := *active
	return &cp
}

// ApplyOverride substitutes the summary decision with an active override.
// The engine decision, scores and rationale are left untouched.
func ApplyOverride(s *model.ExecutiveSummary, o *model.DecisionOverride, asOf time.Time) {
	if !o.ActiveAt(asOf) || !o.Decision.Valid() {
		s.Override = model.AppliedOverride{Active: false}
		return
	}

	createdAt := o.CreatedAt
	s.Override = model.AppliedOverride{
		Active:    true,
		Decision:  o.Decision,
		Reason:    o.Reason,
		CreatedBy: o.CreatedBy,
		CreatedAt: &createdAt,
		ExpiresAt: o.ExpiresAt,
	}
	s.Decision = o.Decision
	s.ActionLine = fmt.Sprintf("Override by %s: %s (%s). Engine recommended %s.",
		o.CreatedBy, o.Decision, o.Reason, s.EngineDecision)
}

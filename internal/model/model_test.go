package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContract_EndOr(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	open := Contract{StartDate: end.AddDate(-1, 0, 0)}
	assert.True(t, open.IsOpen())
	assert.Equal(t, asOf, open.EndOr(asOf))

	closed := Contract{StartDate: end.AddDate(-1, 0, 0), EndDate: &end}
	assert.False(t, closed.IsOpen())
	assert.Equal(t, end, closed.EndOr(asOf))
}

func TestDecision_Valid(t *testing.T) {
	tests := []struct {
		d    Decision
		want bool
	}{
		{DecisionApprove, true},
		{DecisionReview, true},
		{DecisionReject, true},
		{"", false},
		{"APPROVE", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.d), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Valid())
		})
	}
}

func TestDecisionOverride_ActiveAt(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	later := asOf.Add(time.Hour)
	earlier := asOf.Add(-time.Hour)

	var nilOverride *DecisionOverride
	assert.False(t, nilOverride.ActiveAt(asOf))
	assert.True(t, (&DecisionOverride{}).ActiveAt(asOf), "no expiry never lapses")
	assert.True(t, (&DecisionOverride{ExpiresAt: &later}).ActiveAt(asOf))
	assert.False(t, (&DecisionOverride{ExpiresAt: &earlier}).ActiveAt(asOf))
	assert.False(t, (&DecisionOverride{ExpiresAt: &asOf}).ActiveAt(asOf), "expiry instant is exclusive")
}

func TestResult(t *testing.T) {
	ok := Available(42)
	v, got := ok.Get()
	assert.True(t, got)
	assert.True(t, ok.OK())
	assert.Equal(t, 42, v)
	assert.Empty(t, ok.Reason())

	missing := Unavailable[int]("store down")
	v, got = missing.Get()
	assert.False(t, got)
	assert.False(t, missing.OK())
	assert.Zero(t, v)
	assert.Equal(t, "store down", missing.Reason())
}

func TestScoreBlocks_Total(t *testing.T) {
	b := ScoreBlocks{Consistency: 20, RankIntegrity: 25, TimelineCoherence: 12.5, BehavioralStability: 20}
	assert.InDelta(t, 77.5, b.Total(), 1e-9)
}

func TestHasFlag(t *testing.T) {
	ca := &ContractAnalysis{Flags: []string{"SHORT_CONTRACTS"}}
	assert.True(t, ca.HasFlag("SHORT_CONTRACTS"))
	assert.False(t, ca.HasFlag("GAPS"))

	ra := &RankAnalysis{}
	assert.False(t, ra.HasFlag("RANK_ANOMALY"))
}

func TestCompetencySnapshot_HasCriticalFlag(t *testing.T) {
	c := &CompetencySnapshot{Flags: []CompetencyFlag{{Severity: "low"}}}
	assert.False(t, c.HasCriticalFlag())

	c.Flags = append(c.Flags, CompetencyFlag{Severity: SeverityCritical})
	assert.True(t, c.HasCriticalFlag())
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewvet/trust-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ Store = (*SQLiteStore)(nil)

// --- Contracts ---

func TestSQLite_Contracts_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	end := day(2021, 9, 1)
	contracts := []model.Contract{
		{ID: "k2", CandidateID: "cand-1", CompanyName: "Blue Line", RankCode: "2/O", StartDate: day(2022, 1, 1)},
		{ID: "k1", CandidateID: "cand-1", CompanyName: "Atlas Shipping", RankCode: "3/O", VesselType: "bulk", StartDate: day(2021, 1, 1), EndDate: &end},
		{ID: "k3", CandidateID: "cand-2", CompanyName: "Other", RankCode: "AB", StartDate: day(2020, 1, 1)},
	}
	require.NoError(t, st.SaveContracts(ctx, contracts))

	got, err := st.ListContracts(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "k1", got[0].ID)
	assert.Equal(t, "bulk", got[0].VesselType)
	require.NotNil(t, got[0].EndDate)
	assert.True(t, got[0].EndDate.Equal(end))
	assert.True(t, got[0].StartDate.Equal(day(2021, 1, 1)))
	assert.Equal(t, "k2", got[1].ID)
	assert.Nil(t, got[1].EndDate)
}

func TestSQLite_Contracts_UpsertByID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := model.Contract{ID: "k1", CandidateID: "cand-1", CompanyName: "Atlas", RankCode: "3/O", StartDate: day(2021, 1, 1)}
	require.NoError(t, st.SaveContracts(ctx, []model.Contract{c}))

	end := day(2021, 6, 1)
	c.RankCode = "2/O"
	c.EndDate = &end
	require.NoError(t, st.SaveContracts(ctx, []model.Contract{c}))

	got, err := st.ListContracts(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2/O", got[0].RankCode)
	require.NotNil(t, got[0].EndDate)
}

func TestSQLite_Contracts_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveContracts(ctx, nil))
	got, err := st.ListContracts(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Behavioral profiles and snapshots ---

func TestSQLite_BehavioralProfile(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	missing, err := st.GetBehavioralProfile(ctx, "cand-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	p := model.BehavioralProfile{
		CandidateID: "cand-1",
		Flags:       []model.BehavioralFlag{{Type: "manipulation", Severity: "high"}},
		ComputedAt:  day(2024, 3, 1),
	}
	require.NoError(t, st.SaveBehavioralProfile(ctx, p))

	got, err := st.GetBehavioralProfile(ctx, "cand-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Flags, got.Flags)
	assert.True(t, got.ComputedAt.Equal(p.ComputedAt))
}

func TestSQLite_EngineSnapshots(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	missing, err := st.GetEngineSnapshots(ctx, "cand-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	depth := 72.0
	snap := model.EngineSnapshots{
		Technical:  &model.TechnicalSnapshot{TechnicalScore: 81, STCWStatus: "compliant", ComputedAt: day(2024, 1, 1)},
		Competency: &model.CompetencySnapshot{CompetencyScore: 64, TechnicalDepthIndex: &depth, ComputedAt: day(2024, 1, 2)},
	}
	require.NoError(t, st.SaveEngineSnapshots(ctx, "cand-1", snap))

	snap.Technical.TechnicalScore = 85
	require.NoError(t, st.SaveEngineSnapshots(ctx, "cand-1", snap))

	got, err := st.GetEngineSnapshots(ctx, "cand-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Technical)
	assert.Equal(t, 85.0, got.Technical.TechnicalScore)
	require.NotNil(t, got.Competency)
	require.NotNil(t, got.Competency.TechnicalDepthIndex)
	assert.Equal(t, 72.0, *got.Competency.TechnicalDepthIndex)
	assert.Nil(t, got.Stability)
}

// --- Trust profiles ---

func sampleProfile(id string, cri int) model.TrustProfile {
	return model.TrustProfile{
		CandidateID:               id,
		CRIScore:                  cri,
		ConfidenceLevel:           model.ConfidenceMedium,
		ShortContractRatio:        0.25,
		OverlapCount:              1,
		GapMonthsTotal:            3.5,
		UniqueCompanyCount3y:      2,
		TimelineInconsistencyFlag: true,
		Flags:                     []string{model.FlagOverlap},
		Detail: model.TrustDetail{
			Scores: model.ScoreBlocks{Consistency: 20, RankIntegrity: 25, TimelineCoherence: 15, BehavioralStability: 20},
		},
		ConfigHash: "abc123",
		ComputedAt: day(2024, 5, 1),
	}
}

func TestSQLite_TrustProfile_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	missing, err := st.GetTrustProfile(ctx, "cand-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	p := sampleProfile("cand-1", 80)
	require.NoError(t, st.UpsertTrustProfile(ctx, &p))

	p.CRIScore = 62
	p.Flags = []string{model.FlagOverlap, model.FlagLongGap}
	require.NoError(t, st.UpsertTrustProfile(ctx, &p))

	got, err := st.GetTrustProfile(ctx, "cand-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 62, got.CRIScore)
	assert.Equal(t, model.ConfidenceMedium, got.ConfidenceLevel)
	assert.Equal(t, []string{model.FlagOverlap, model.FlagLongGap}, got.Flags)
	assert.True(t, got.TimelineInconsistencyFlag)
	assert.False(t, got.RankAnomalyFlag)
	assert.Equal(t, 20.0, got.Detail.Scores.Consistency)
	assert.Equal(t, "abc123", got.ConfigHash)
	assert.True(t, got.ComputedAt.Equal(p.ComputedAt))
}

func TestSQLite_TrustProfiles_Batch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertTrustProfiles(ctx, []model.TrustProfile{
		sampleProfile("cand-1", 70),
		sampleProfile("cand-2", 55),
	}))

	for id, want := range map[string]int{"cand-1": 70, "cand-2": 55} {
		got, err := st.GetTrustProfile(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got, id)
		assert.Equal(t, want, got.CRIScore, id)
	}
}

// --- Overrides ---

func TestSQLite_Overrides_Active(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	asOf := day(2024, 6, 15)

	expired := day(2024, 6, 1)
	future := day(2024, 7, 1)
	overrides := []model.DecisionOverride{
		{ID: "o1", CandidateID: "cand-1", Decision: model.DecisionReject, Reason: "old", CreatedBy: "ops", CreatedAt: day(2024, 1, 1)},
		{ID: "o2", CandidateID: "cand-1", Decision: model.DecisionApprove, Reason: "newer", CreatedBy: "lead", CreatedAt: day(2024, 5, 1), ExpiresAt: &future},
		{ID: "o3", CandidateID: "cand-1", Decision: model.DecisionReview, Reason: "lapsed", CreatedBy: "ops", CreatedAt: day(2024, 5, 20), ExpiresAt: &expired},
		{ID: "o4", CandidateID: "cand-1", Decision: model.DecisionReject, Reason: "later", CreatedBy: "ops", CreatedAt: day(2024, 6, 20)},
	}
	for _, o := range overrides {
		require.NoError(t, st.CreateOverride(ctx, o))
	}

	active, err := st.GetActiveOverride(ctx, "cand-1", asOf)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "o2", active.ID)
	assert.Equal(t, model.DecisionApprove, active.Decision)
	require.NotNil(t, active.ExpiresAt)
	assert.True(t, active.ExpiresAt.Equal(future))

	all, err := st.ListOverrides(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "o4", all[0].ID)
	assert.Nil(t, all[0].ExpiresAt)
}

func TestSQLite_Overrides_NoneActive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	active, err := st.GetActiveOverride(ctx, "cand-1", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSQLite_Overrides_RejectsInvalidDecision(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CreateOverride(context.Background(), model.DecisionOverride{
		ID: "o1", CandidateID: "cand-1", Decision: "maybe", Reason: "x", CreatedBy: "ops", CreatedAt: day(2024, 1, 1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create override")
}

// --- Audit events ---

func TestSQLite_AuditEvents(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendAuditEvents(ctx, nil))
	require.NoError(t, st.AppendAuditEvents(ctx, []model.AuditEvent{
		{ID: "e1", CandidateID: "cand-1", EventType: model.AuditRankSTCWComputed, Payload: map[string]any{"primary_department": "deck"}, CreatedAt: day(2024, 5, 1)},
		{ID: "e2", CandidateID: "cand-1", EventType: model.AuditCRIRecompute, Payload: map[string]any{"cri_score": 80}, CreatedAt: day(2024, 5, 1)},
	}))

	events, err := st.ListAuditEvents(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.AuditRankSTCWComputed, events[0].EventType)
	assert.Equal(t, "deck", events[0].Payload["primary_department"])
	assert.Equal(t, float64(80), events[1].Payload["cri_score"])
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewvet/trust-cli/internal/model"
)

var _ Store = (*PostgresStore)(nil)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contracts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListContracts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, candidate_id, company_name, rank_code, vessel_type, start_date, end_date\s+FROM contracts WHERE candidate_id = \$1`).
		WithArgs("cand-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "candidate_id", "company_name", "rank_code", "vessel_type", "start_date", "end_date"}).
			AddRow("k1", "cand-1", "Atlas Shipping", "3/O", "bulk", start, &end))

	got, err := s.ListContracts(context.Background(), "cand-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Atlas Shipping", got[0].CompanyName)
	require.NotNil(t, got[0].EndDate)
	assert.True(t, got[0].EndDate.Equal(end))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveContracts_BulkUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_contracts"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_contracts"}, contractColumns).WillReturnResult(1)
	mock.ExpectExec(`DELETE FROM "_tmp_upsert_contracts"`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "contracts" .* ON CONFLICT \("id"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveContracts(context.Background(), []model.Contract{
		{ID: "k1", CandidateID: "cand-1", CompanyName: "Atlas", RankCode: "AB", StartDate: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrustProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM trust_profiles WHERE candidate_id = \$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetTrustProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrustProfile_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM trust_profiles WHERE candidate_id = \$1`).
		WithArgs("cand-1").
		WillReturnError(errors.New("connection refused"))

	_, err := s.GetTrustProfile(context.Background(), "cand-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get trust profile cand-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrustProfile_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	computed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM trust_profiles WHERE candidate_id = \$1`).
		WithArgs("cand-1").
		WillReturnRows(pgxmock.NewRows(trustProfileColumns).AddRow(
			"cand-1", 74, "high", 0.1, 0, 2.5, 3, true, false, false,
			[]byte(`["FLAG_RANK_ANOMALY"]`), []byte(`{"scores":{"consistency":22}}`), "hash-1", computed,
		))

	p, err := s.GetTrustProfile(context.Background(), "cand-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 74, p.CRIScore)
	assert.Equal(t, model.ConfidenceHigh, p.ConfidenceLevel)
	assert.True(t, p.RankAnomalyFlag)
	assert.Equal(t, []string{model.FlagRankAnomaly}, p.Flags)
	assert.Equal(t, 22.0, p.Detail.Scores.Consistency)
	assert.Equal(t, "hash-1", p.ConfigHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTrustProfile(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := model.TrustProfile{
		CandidateID:     "cand-1",
		CRIScore:        80,
		ConfidenceLevel: model.ConfidenceMedium,
		ComputedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	args := []any{"cand-1", 80, "medium"}
	for i := 3; i < len(trustProfileColumns); i++ {
		args = append(args, pgxmock.AnyArg())
	}
	mock.ExpectExec(`INSERT INTO trust_profiles .* ON CONFLICT \(candidate_id\) DO UPDATE SET`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertTrustProfile(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTrustProfiles_Rollback(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_trust_profiles"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_trust_profiles"}, trustProfileColumns).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	err := s.UpsertTrustProfiles(context.Background(), []model.TrustProfile{{CandidateID: "cand-1"}, {CandidateID: "cand-2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert trust profiles")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetEngineSnapshots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT snapshots FROM engine_snapshots`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT snapshots FROM engine_snapshots`).
		WithArgs("cand-1").
		WillReturnRows(pgxmock.NewRows([]string{"snapshots"}).
			AddRow([]byte(`{"stability":{"stability_index":71,"risk_score":30,"risk_tier":"low"}}`)))

	none, err := s.GetEngineSnapshots(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)

	snap, err := s.GetEngineSnapshots(context.Background(), "cand-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NotNil(t, snap.Stability)
	assert.Equal(t, model.RiskTierLow, snap.Stability.RiskTier)
	assert.Nil(t, snap.Technical)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEngineSnapshots_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(candidate_id\)`).
		WithArgs("cand-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveEngineSnapshots(context.Background(), "cand-1", model.EngineSnapshots{
		Technical: &model.TechnicalSnapshot{TechnicalScore: 60},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetActiveOverride(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM decision_overrides\s+WHERE candidate_id = \$1 AND created_at <= \$2 AND \(expires_at IS NULL OR expires_at > \$2\)`).
		WithArgs("cand-1", asOf).
		WillReturnRows(pgxmock.NewRows([]string{"id", "candidate_id", "decision", "reason", "created_by", "created_at", "expires_at"}).
			AddRow("o1", "cand-1", "approve", "references checked", "lead", created, &expires))

	o, err := s.GetActiveOverride(context.Background(), "cand-1", asOf)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, model.DecisionApprove, o.Decision)
	assert.Equal(t, "lead", o.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetActiveOverride_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM decision_overrides`).
		WithArgs("cand-1", asOf).
		WillReturnError(pgx.ErrNoRows)

	o, err := s.GetActiveOverride(context.Background(), "cand-1", asOf)
	require.NoError(t, err)
	assert.Nil(t, o)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOverride(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO decision_overrides`).
		WithArgs("o1", "cand-1", "reject", "failed sea trial", "ops", created, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateOverride(context.Background(), model.DecisionOverride{
		ID: "o1", CandidateID: "cand-1", Decision: model.DecisionReject,
		Reason: "failed sea trial", CreatedBy: "ops", CreatedAt: created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAuditEvents_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"audit_events"}, auditEventColumns).WillReturnResult(2)

	err := s.AppendAuditEvents(context.Background(), []model.AuditEvent{
		{ID: "e1", CandidateID: "cand-1", EventType: model.AuditRankSTCWComputed, Payload: map[string]any{"anomalies": 0}},
		{ID: "e2", CandidateID: "cand-1", EventType: model.AuditCRIRecompute, Payload: map[string]any{"cri_score": 80}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAuditEvents_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.AppendAuditEvents(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

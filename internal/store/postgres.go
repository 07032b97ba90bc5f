package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/crewvet/trust-cli/internal/db"
	"github.com/crewvet/trust-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	company_name TEXT NOT NULL,
	rank_code    TEXT NOT NULL,
	vessel_type  TEXT NOT NULL DEFAULT '',
	start_date   TIMESTAMPTZ NOT NULL,
	end_date     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contracts_candidate ON contracts(candidate_id, start_date);

CREATE TABLE IF NOT EXISTS behavioral_profiles (
	candidate_id TEXT PRIMARY KEY,
	flags        JSONB NOT NULL DEFAULT '[]',
	computed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS engine_snapshots (
	candidate_id TEXT PRIMARY KEY,
	snapshots    JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trust_profiles (
	candidate_id                TEXT PRIMARY KEY,
	cri_score                   INTEGER NOT NULL,
	confidence_level            TEXT NOT NULL,
	short_contract_ratio        DOUBLE PRECISION NOT NULL DEFAULT 0,
	overlap_count               INTEGER NOT NULL DEFAULT 0,
	gap_months_total            DOUBLE PRECISION NOT NULL DEFAULT 0,
	unique_company_count_3y     INTEGER NOT NULL DEFAULT 0,
	rank_anomaly_flag           BOOLEAN NOT NULL DEFAULT false,
	frequent_switch_flag        BOOLEAN NOT NULL DEFAULT false,
	timeline_inconsistency_flag BOOLEAN NOT NULL DEFAULT false,
	flags                       JSONB NOT NULL DEFAULT '[]',
	detail                      JSONB NOT NULL DEFAULT '{}',
	config_hash                 TEXT NOT NULL DEFAULT '',
	computed_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decision_overrides (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id TEXT NOT NULL,
	decision     TEXT NOT NULL CHECK (decision IN ('approve', 'review', 'reject')),
	reason       TEXT NOT NULL,
	created_by   TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_overrides_candidate ON decision_overrides(candidate_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_events (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	payload      JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_events_candidate ON audit_events(candidate_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListContracts(ctx context.Context, candidateID string) ([]model.Contract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, company_name, rank_code, vessel_type, start_date, end_date
		 FROM contracts WHERE candidate_id = $1 ORDER BY start_date, id`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list contracts %s", candidateID)
	}
	defer rows.Close()

	contracts := []model.Contract{}
	for rows.Next() {
		var c model.Contract
		if err := rows.Scan(&c.ID, &c.CandidateID, &c.CompanyName, &c.RankCode, &c.VesselType, &c.StartDate, &c.EndDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contract")
		}
		contracts = append(contracts, c)
	}
	return contracts, eris.Wrap(rows.Err(), "postgres: list contracts iterate")
}

// SaveContracts upserts contracts by ID in one bulk transaction.
func (s *PostgresStore) SaveContracts(ctx context.Context, contracts []model.Contract) error {
	rows := make([][]any, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, contractRow(c))
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contracts",
		Columns:      contractColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: save contracts")
}

func (s *PostgresStore) GetBehavioralProfile(ctx context.Context, candidateID string) (*model.BehavioralProfile, error) {
	p := model.BehavioralProfile{CandidateID: candidateID}
	var flagsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT flags, computed_at FROM behavioral_profiles WHERE candidate_id = $1`,
		candidateID,
	).Scan(&flagsJSON, &p.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get behavioral profile %s", candidateID)
	}
	if err := json.Unmarshal(flagsJSON, &p.Flags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal behavioral flags")
	}
	return &p, nil
}

func (s *PostgresStore) SaveBehavioralProfile(ctx context.Context, p model.BehavioralProfile) error {
	flags := p.Flags
	if flags == nil {
		flags = []model.BehavioralFlag{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal behavioral flags")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO behavioral_profiles (candidate_id, flags, computed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id) DO UPDATE SET flags = $2, computed_at = $3`,
		p.CandidateID, flagsJSON, p.ComputedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save behavioral profile %s", p.CandidateID)
}

func (s *PostgresStore) GetEngineSnapshots(ctx context.Context, candidateID string) (*model.EngineSnapshots, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshots FROM engine_snapshots WHERE candidate_id = $1`,
		candidateID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get engine snapshots %s", candidateID)
	}

	var snap model.EngineSnapshots
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal engine snapshots")
	}
	return &snap, nil
}

func (s *PostgresStore) SaveEngineSnapshots(ctx context.Context, candidateID string, snap model.EngineSnapshots) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal engine snapshots")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO engine_snapshots (candidate_id, snapshots, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id) DO UPDATE SET snapshots = $2, updated_at = $3`,
		candidateID, raw, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save engine snapshots %s", candidateID)
}

const upsertTrustProfileSQL = `INSERT INTO trust_profiles (
	candidate_id, cri_score, confidence_level, short_contract_ratio, overlap_count,
	gap_months_total, unique_company_count_3y, rank_anomaly_flag, frequent_switch_flag,
	timeline_inconsistency_flag, flags, detail, config_hash, computed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (candidate_id) DO UPDATE SET
	cri_score = EXCLUDED.cri_score,
	confidence_level = EXCLUDED.confidence_level,
	short_contract_ratio = EXCLUDED.short_contract_ratio,
	overlap_count = EXCLUDED.overlap_count,
	gap_months_total = EXCLUDED.gap_months_total,
	unique_company_count_3y = EXCLUDED.unique_company_count_3y,
	rank_anomaly_flag = EXCLUDED.rank_anomaly_flag,
	frequent_switch_flag = EXCLUDED.frequent_switch_flag,
	timeline_inconsistency_flag = EXCLUDED.timeline_inconsistency_flag,
	flags = EXCLUDED.flags,
	detail = EXCLUDED.detail,
	config_hash = EXCLUDED.config_hash,
	computed_at = EXCLUDED.computed_at`

// UpsertTrustProfile overwrites the candidate's profile wholesale.
func (s *PostgresStore) UpsertTrustProfile(ctx context.Context, p *model.TrustProfile) error {
	row, err := trustProfileRow(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertTrustProfileSQL, row...)
	return eris.Wrapf(err, "postgres: upsert trust profile %s", p.CandidateID)
}

// UpsertTrustProfiles writes many profiles through a temp-table bulk upsert.
func (s *PostgresStore) UpsertTrustProfiles(ctx context.Context, profiles []model.TrustProfile) error {
	rows := make([][]any, 0, len(profiles))
	for i := range profiles {
		row, err := trustProfileRow(&profiles[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "trust_profiles",
		Columns:      trustProfileColumns,
		ConflictKeys: []string{"candidate_id"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert trust profiles")
}

func (s *PostgresStore) GetTrustProfile(ctx context.Context, candidateID string) (*model.TrustProfile, error) {
	var p model.TrustProfile
	var confidence string
	var flagsJSON, detailJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT candidate_id, cri_score, confidence_level, short_contract_ratio, overlap_count,
		        gap_months_total, unique_company_count_3y, rank_anomaly_flag, frequent_switch_flag,
		        timeline_inconsistency_flag, flags, detail, config_hash, computed_at
		 FROM trust_profiles WHERE candidate_id = $1`,
		candidateID,
	).Scan(&p.CandidateID, &p.CRIScore, &confidence, &p.ShortContractRatio, &p.OverlapCount,
		&p.GapMonthsTotal, &p.UniqueCompanyCount3y, &p.RankAnomalyFlag, &p.FrequentSwitchFlag,
		&p.TimelineInconsistencyFlag, &flagsJSON, &detailJSON, &p.ConfigHash, &p.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get trust profile %s", candidateID)
	}
	p.ConfidenceLevel = model.ConfidenceLevel(confidence)
	if err := decodeTrustProfile(&p, flagsJSON, detailJSON); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateOverride(ctx context.Context, o model.DecisionOverride) error {
	var expires *time.Time
	if o.ExpiresAt != nil {
		e := o.ExpiresAt.UTC()
		expires = &e
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decision_overrides (id, candidate_id, decision, reason, created_by, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.CandidateID, string(o.Decision), o.Reason, o.CreatedBy, o.CreatedAt.UTC(), expires,
	)
	return eris.Wrapf(err, "postgres: create override for %s", o.CandidateID)
}

const overrideColumnsSQL = `id, candidate_id, decision, reason, created_by, created_at, expires_at`

func (s *PostgresStore) ListOverrides(ctx context.Context, candidateID string) ([]model.DecisionOverride, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+overrideColumnsSQL+` FROM decision_overrides
		 WHERE candidate_id = $1 ORDER BY created_at DESC`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list overrides %s", candidateID)
	}
	defer rows.Close()

	overrides := []model.DecisionOverride{}
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan override")
		}
		overrides = append(overrides, o)
	}
	return overrides, eris.Wrap(rows.Err(), "postgres: list overrides iterate")
}

// GetActiveOverride returns the newest override created at or before asOf
// that has not expired by asOf.
func (s *PostgresStore) GetActiveOverride(ctx context.Context, candidateID string, asOf time.Time) (*model.DecisionOverride, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+overrideColumnsSQL+` FROM decision_overrides
		 WHERE candidate_id = $1 AND created_at <= $2 AND (expires_at IS NULL OR expires_at > $2)
		 ORDER BY created_at DESC LIMIT 1`,
		candidateID, asOf.UTC(),
	)
	o, err := scanOverride(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get active override %s", candidateID)
	}
	return &o, nil
}

func scanOverride(row pgx.Row) (model.DecisionOverride, error) {
	var o model.DecisionOverride
	var decision string
	err := row.Scan(&o.ID, &o.CandidateID, &decision, &o.Reason, &o.CreatedBy, &o.CreatedAt, &o.ExpiresAt)
	o.Decision = model.Decision(decision)
	return o, err
}

// AppendAuditEvents copies events into audit_events.
func (s *PostgresStore) AppendAuditEvents(ctx context.Context, events []model.AuditEvent) error {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		row, err := auditEventRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := db.CopyFrom(ctx, s.pool, "audit_events", auditEventColumns, rows)
	return eris.Wrap(err, "postgres: append audit events")
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, candidateID string) ([]model.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, event_type, payload, created_at
		 FROM audit_events WHERE candidate_id = $1 ORDER BY created_at, id`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list audit events %s", candidateID)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit event")
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit payload")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list audit events iterate")
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/crewvet/trust-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. JSON columns are
// stored as TEXT and every timestamp is written in UTC so text ordering
// matches time ordering.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	company_name TEXT NOT NULL,
	rank_code    TEXT NOT NULL,
	vessel_type  TEXT NOT NULL DEFAULT '',
	start_date   DATETIME NOT NULL,
	end_date     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_contracts_candidate ON contracts(candidate_id, start_date);

CREATE TABLE IF NOT EXISTS behavioral_profiles (
	candidate_id TEXT PRIMARY KEY,
	flags        TEXT NOT NULL DEFAULT '[]',
	computed_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS engine_snapshots (
	candidate_id TEXT PRIMARY KEY,
	snapshots    TEXT NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trust_profiles (
	candidate_id                TEXT PRIMARY KEY,
	cri_score                   INTEGER NOT NULL,
	confidence_level            TEXT NOT NULL,
	short_contract_ratio        REAL NOT NULL DEFAULT 0,
	overlap_count               INTEGER NOT NULL DEFAULT 0,
	gap_months_total            REAL NOT NULL DEFAULT 0,
	unique_company_count_3y     INTEGER NOT NULL DEFAULT 0,
	rank_anomaly_flag           BOOLEAN NOT NULL DEFAULT 0,
	frequent_switch_flag        BOOLEAN NOT NULL DEFAULT 0,
	timeline_inconsistency_flag BOOLEAN NOT NULL DEFAULT 0,
	flags                       TEXT NOT NULL DEFAULT '[]',
	detail                      TEXT NOT NULL DEFAULT '{}',
	config_hash                 TEXT NOT NULL DEFAULT '',
	computed_at                 DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_overrides (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	decision     TEXT NOT NULL CHECK (decision IN ('approve', 'review', 'reject')),
	reason       TEXT NOT NULL,
	created_by   TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	expires_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_overrides_candidate ON decision_overrides(candidate_id, created_at);

CREATE TABLE IF NOT EXISTS audit_events (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	payload      TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_candidate ON audit_events(candidate_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListContracts(ctx context.Context, candidateID string) ([]model.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, company_name, rank_code, vessel_type, start_date, end_date
		 FROM contracts WHERE candidate_id = ? ORDER BY start_date, id`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list contracts %s", candidateID)
	}
	defer rows.Close() //nolint:errcheck

	contracts := []model.Contract{}
	for rows.Next() {
		var c model.Contract
		var end sql.NullTime
		if err := rows.Scan(&c.ID, &c.CandidateID, &c.CompanyName, &c.RankCode, &c.VesselType, &c.StartDate, &end); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contract")
		}
		c.StartDate = c.StartDate.UTC()
		c.EndDate = nullTimePtr(end)
		contracts = append(contracts, c)
	}
	return contracts, eris.Wrap(rows.Err(), "sqlite: list contracts iterate")
}

// SaveContracts upserts contracts by ID in one transaction.
func (s *SQLiteStore) SaveContracts(ctx context.Context, contracts []model.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	return s.inTx(ctx, "save contracts", func(tx *sql.Tx) error {
		for _, c := range contracts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO contracts (id, candidate_id, company_name, rank_code, vessel_type, start_date, end_date)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
					candidate_id = excluded.candidate_id, company_name = excluded.company_name,
					rank_code = excluded.rank_code, vessel_type = excluded.vessel_type,
					start_date = excluded.start_date, end_date = excluded.end_date`,
				contractRow(c)...,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: upsert contract %s", c.ID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetBehavioralProfile(ctx context.Context, candidateID string) (*model.BehavioralProfile, error) {
	p := model.BehavioralProfile{CandidateID: candidateID}
	var flagsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT flags, computed_at FROM behavioral_profiles WHERE candidate_id = ?`,
		candidateID,
	).Scan(&flagsJSON, &p.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get behavioral profile %s", candidateID)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &p.Flags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal behavioral flags")
	}
	p.ComputedAt = p.ComputedAt.UTC()
	return &p, nil
}

func (s *SQLiteStore) SaveBehavioralProfile(ctx context.Context, p model.BehavioralProfile) error {
	flags := p.Flags
	if flags == nil {
		flags = []model.BehavioralFlag{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal behavioral flags")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO behavioral_profiles (candidate_id, flags, computed_at) VALUES (?, ?, ?)
		 ON CONFLICT (candidate_id) DO UPDATE SET flags = excluded.flags, computed_at = excluded.computed_at`,
		p.CandidateID, string(flagsJSON), p.ComputedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save behavioral profile %s", p.CandidateID)
}

func (s *SQLiteStore) GetEngineSnapshots(ctx context.Context, candidateID string) (*model.EngineSnapshots, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshots FROM engine_snapshots WHERE candidate_id = ?`,
		candidateID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get engine snapshots %s", candidateID)
	}

	var snap model.EngineSnapshots
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal engine snapshots")
	}
	return &snap, nil
}

func (s *SQLiteStore) SaveEngineSnapshots(ctx context.Context, candidateID string, snap model.EngineSnapshots) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal engine snapshots")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engine_snapshots (candidate_id, snapshots, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (candidate_id) DO UPDATE SET snapshots = excluded.snapshots, updated_at = excluded.updated_at`,
		candidateID, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save engine snapshots %s", candidateID)
}

const sqliteUpsertTrustProfile = `INSERT INTO trust_profiles (
	candidate_id, cri_score, confidence_level, short_contract_ratio, overlap_count,
	gap_months_total, unique_company_count_3y, rank_anomaly_flag, frequent_switch_flag,
	timeline_inconsistency_flag, flags, detail, config_hash, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (candidate_id) DO UPDATE SET
	cri_score = excluded.cri_score,
	confidence_level = excluded.confidence_level,
	short_contract_ratio = excluded.short_contract_ratio,
	overlap_count = excluded.overlap_count,
	gap_months_total = excluded.gap_months_total,
	unique_company_count_3y = excluded.unique_company_count_3y,
	rank_anomaly_flag = excluded.rank_anomaly_flag,
	frequent_switch_flag = excluded.frequent_switch_flag,
	timeline_inconsistency_flag = excluded.timeline_inconsistency_flag,
	flags = excluded.flags,
	detail = excluded.detail,
	config_hash = excluded.config_hash,
	computed_at = excluded.computed_at`

// sqliteTrustProfileArgs converts the JSON columns to TEXT.
func sqliteTrustProfileArgs(p *model.TrustProfile) ([]any, error) {
	row, err := trustProfileRow(p)
	if err != nil {
		return nil, err
	}
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
		}
	}
	return row, nil
}

// UpsertTrustProfile overwrites the candidate's profile wholesale.
func (s *SQLiteStore) UpsertTrustProfile(ctx context.Context, p *model.TrustProfile) error {
	args, err := sqliteTrustProfileArgs(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteUpsertTrustProfile, args...)
	return eris.Wrapf(err, "sqlite: upsert trust profile %s", p.CandidateID)
}

func (s *SQLiteStore) UpsertTrustProfiles(ctx context.Context, profiles []model.TrustProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	return s.inTx(ctx, "upsert trust profiles", func(tx *sql.Tx) error {
		for i := range profiles {
			args, err := sqliteTrustProfileArgs(&profiles[i])
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, sqliteUpsertTrustProfile, args...); err != nil {
				return eris.Wrapf(err, "sqlite: upsert trust profile %s", profiles[i].CandidateID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetTrustProfile(ctx context.Context, candidateID string) (*model.TrustProfile, error) {
	var p model.TrustProfile
	var confidence, flagsJSON, detailJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, cri_score, confidence_level, short_contract_ratio, overlap_count,
		        gap_months_total, unique_company_count_3y, rank_anomaly_flag, frequent_switch_flag,
		        timeline_inconsistency_flag, flags, detail, config_hash, computed_at
		 FROM trust_profiles WHERE candidate_id = ?`,
		candidateID,
	).Scan(&p.CandidateID, &p.CRIScore, &confidence, &p.ShortContractRatio, &p.OverlapCount,
		&p.GapMonthsTotal, &p.UniqueCompanyCount3y, &p.RankAnomalyFlag, &p.FrequentSwitchFlag,
		&p.TimelineInconsistencyFlag, &flagsJSON, &detailJSON, &p.ConfigHash, &p.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get trust profile %s", candidateID)
	}
	p.ConfidenceLevel = model.ConfidenceLevel(confidence)
	p.ComputedAt = p.ComputedAt.UTC()
	if err := decodeTrustProfile(&p, []byte(flagsJSON), []byte(detailJSON)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) CreateOverride(ctx context.Context, o model.DecisionOverride) error {
	var expires any
	if o.ExpiresAt != nil {
		expires = o.ExpiresAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decision_overrides (id, candidate_id, decision, reason, created_by, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CandidateID, string(o.Decision), o.Reason, o.CreatedBy, o.CreatedAt.UTC(), expires,
	)
	return eris.Wrapf(err, "sqlite: create override for %s", o.CandidateID)
}

func (s *SQLiteStore) ListOverrides(ctx context.Context, candidateID string) ([]model.DecisionOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, decision, reason, created_by, created_at, expires_at
		 FROM decision_overrides WHERE candidate_id = ? ORDER BY created_at DESC`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list overrides %s", candidateID)
	}
	defer rows.Close() //nolint:errcheck

	overrides := []model.DecisionOverride{}
	for rows.Next() {
		o, err := scanSQLiteOverride(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan override")
		}
		overrides = append(overrides, o)
	}
	return overrides, eris.Wrap(rows.Err(), "sqlite: list overrides iterate")
}

// GetActiveOverride returns the newest override created at or before asOf
// that has not expired by asOf.
func (s *SQLiteStore) GetActiveOverride(ctx context.Context, candidateID string, asOf time.Time) (*model.DecisionOverride, error) {
	at := asOf.UTC()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, candidate_id, decision, reason, created_by, created_at, expires_at
		 FROM decision_overrides
		 WHERE candidate_id = ? AND created_at <= ? AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY created_at DESC LIMIT 1`,
		candidateID, at, at,
	)
	o, err := scanSQLiteOverride(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get active override %s", candidateID)
	}
	return &o, nil
}

// scannable is satisfied by *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteOverride(row scannable) (model.DecisionOverride, error) {
	var o model.DecisionOverride
	var decision string
	var expires sql.NullTime
	if err := row.Scan(&o.ID, &o.CandidateID, &decision, &o.Reason, &o.CreatedBy, &o.CreatedAt, &expires); err != nil {
		return o, err
	}
	o.Decision = model.Decision(decision)
	o.CreatedAt = o.CreatedAt.UTC()
	o.ExpiresAt = nullTimePtr(expires)
	return o, nil
}

func (s *SQLiteStore) AppendAuditEvents(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.inTx(ctx, "append audit events", func(tx *sql.Tx) error {
		for _, e := range events {
			row, err := auditEventRow(e)
			if err != nil {
				return err
			}
			row[3] = string(row[3].([]byte))
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO audit_events (id, candidate_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
				row...,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert audit event %s", e.EventType)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListAuditEvents(ctx context.Context, candidateID string) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, event_type, payload, created_at
		 FROM audit_events WHERE candidate_id = ? ORDER BY created_at, rowid`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list audit events %s", candidateID)
	}
	defer rows.Close() //nolint:errcheck

	events := []model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit event")
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit payload")
		}
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list audit events iterate")
}

// inTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, action string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", action)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", action)
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

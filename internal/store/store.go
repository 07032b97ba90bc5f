// Package store persists contracts, sibling-engine snapshots, trust
// profiles, decision overrides and audit events.
package store

import (
	"context"
	"time"

	"github.com/crewvet/trust-cli/internal/model"
)

// Store defines the persistence interface for the trust and decision engines.
// Single-record reads return (nil, nil) when nothing is stored.
type Store interface {
	// Contracts
	ListContracts(ctx context.Context, candidateID string) ([]model.Contract, error)
	SaveContracts(ctx context.Context, contracts []model.Contract) error

	// Behavioral profiles
	GetBehavioralProfile(ctx context.Context, candidateID string) (*model.BehavioralProfile, error)
	SaveBehavioralProfile(ctx context.Context, p model.BehavioralProfile) error

	// Sibling-engine snapshots
	GetEngineSnapshots(ctx context.Context, candidateID string) (*model.EngineSnapshots, error)
	SaveEngineSnapshots(ctx context.Context, candidateID string, s model.EngineSnapshots) error

	// Trust profiles
	UpsertTrustProfile(ctx context.Context, p *model.TrustProfile) error
	UpsertTrustProfiles(ctx context.Context, profiles []model.TrustProfile) error
	GetTrustProfile(ctx context.Context, candidateID string) (*model.TrustProfile, error)

	// Decision overrides
	CreateOverride(ctx context.Context, o model.DecisionOverride) error
	ListOverrides(ctx context.Context, candidateID string) ([]model.DecisionOverride, error)
	GetActiveOverride(ctx context.Context, candidateID string, asOf time.Time) (*model.DecisionOverride, error)

	// Audit events
	AppendAuditEvents(ctx context.Context, events []model.AuditEvent) error
	ListAuditEvents(ctx context.Context, candidateID string) ([]model.AuditEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Column lists shared by both stores and the bulk helpers.
var (
	contractColumns     = []string{"id", "candidate_id", "company_name", "rank_code", "vessel_type", "start_date", "end_date"}
	trustProfileColumns = []string{
		"candidate_id", "cri_score", "confidence_level", "short_contract_ratio", "overlap_count",
		"gap_months_total", "unique_company_count_3y", "rank_anomaly_flag", "frequent_switch_flag",
		"timeline_inconsistency_flag", "flags", "detail", "config_hash", "computed_at",
	}
	auditEventColumns = []string{"id", "candidate_id", "event_type", "payload", "created_at"}
)

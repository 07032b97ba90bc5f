// Package engine wires the store, the reliability calculator and the
// decision assembler into the operations the CLI exposes.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/decision"
	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/resilience"
	"github.com/crewvet/trust-cli/internal/scorer"
	"github.com/crewvet/trust-cli/internal/store"
)

// Service runs recomputes, summaries and overrides against a Store.
// Writes for one candidate are serialized; different candidates run freely.
type Service struct {
	store     store.Store
	cal       config.CalibrationConfig
	calc      *scorer.Calculator
	assembler *decision.Assembler
	retry     resilience.RetryConfig
	batch     config.BatchConfig
	now       func() time.Time
	locks     *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for asOf instants.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetry sets the retry policy for store writes.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithBatch sets batch recompute concurrency and rate.
func WithBatch(cfg config.BatchConfig) Option {
	return func(s *Service) { s.batch = cfg }
}

// New creates a Service. The calibration is assumed to be validated.
func New(st store.Store, cal config.CalibrationConfig, opts ...Option) *Service {
	s := &Service{
		store:     st,
		cal:       cal,
		calc:      scorer.NewCalculator(cal),
		assembler: decision.NewAssembler(cal),
		retry:     resilience.DefaultRetryConfig(),
		batch:     config.BatchConfig{MaxConcurrentCandidates: 4},
		now:       func() time.Time { return time.Now().UTC() },
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigHash returns the calibration hash stamped on computed profiles.
func (s *Service) ConfigHash() string {
	return s.calc.ConfigHash()
}

// Recompute rebuilds and persists the candidate's trust profile. Failures
// never propagate: they are logged and returned as an unavailable result.
func (s *Service) Recompute(ctx context.Context, candidateID string) (res model.Result[model.TrustProfile]) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("engine: recompute panicked",
				zap.String("candidate_id", candidateID),
				zap.Any("panic", r),
			)
			res = model.Unavailable[model.TrustProfile](fmt.Sprintf("engine: recompute panicked: %v", r))
		}
	}()

	unlock := s.locks.Lock(candidateID)
	defer unlock()

	res = s.computeSafe(ctx, candidateID)
	profile, ok := res.Get()
	if !ok {
		return res
	}

	log := zap.L().With(zap.String("candidate_id", candidateID))
	cfg := s.retryFor("upsert_trust_profile", candidateID)
	if err := guard("persist trust profile", func() error {
		return resilience.Do(ctx, cfg, func(ctx context.Context) error {
			return s.store.UpsertTrustProfile(ctx, &profile)
		})
	}); err != nil {
		log.Error("engine: persist trust profile failed", zap.Error(err))
		return model.Unavailable[model.TrustProfile](eris.Wrap(err, "engine: persist trust profile").Error())
	}
	s.appendAudit(ctx, candidateID, auditEvents(profile))

	log.Info("engine: trust profile recomputed",
		zap.Int("cri_score", profile.CRIScore),
		zap.String("confidence", string(profile.ConfidenceLevel)),
		zap.Strings("flags", profile.Flags),
	)
	return model.Available(profile)
}

// guard runs fn and turns a panic into an error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("engine: %s panicked: %v", op, r)
		}
	}()
	return fn()
}

// computeSafe loads inputs and scores a candidate without persisting. A
// panic inside scoring is recovered into an unavailable result.
func (s *Service) computeSafe(ctx context.Context, candidateID string) (res model.Result[model.TrustProfile]) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("engine: recompute panicked",
				zap.String("candidate_id", candidateID),
				zap.Any("panic", r),
			)
			res = model.Unavailable[model.TrustProfile](fmt.Sprintf("engine: recompute panicked: %v", r))
		}
	}()

	contracts, err := s.store.ListContracts(ctx, candidateID)
	if err != nil {
		zap.L().Error("engine: load contracts failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return model.Unavailable[model.TrustProfile](eris.Wrap(err, "engine: load contracts").Error())
	}

	// Missing behavioral data scores neutrally; a read failure is treated the same.
	behavioral, err := s.store.GetBehavioralProfile(ctx, candidateID)
	if err != nil {
		zap.L().Warn("engine: behavioral profile unavailable", zap.String("candidate_id", candidateID), zap.Error(err))
		behavioral = nil
	}

	return model.Available(s.calc.Compute(candidateID, contracts, behavioral, s.now()))
}

// Summary assembles the executive summary from the persisted trust profile,
// sibling snapshots and the active override. Read failures degrade to a
// missing signal; a panic yields a low-confidence review summary.
func (s *Service) Summary(ctx context.Context, candidateID string) (sum model.ExecutiveSummary) {
	asOf := s.now()
	log := zap.L().With(zap.String("candidate_id", candidateID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("engine: summary panicked", zap.Any("panic", r))
			sum = degradedSummary(candidateID, asOf, fmt.Sprintf("summary unavailable: %v", r))
		}
	}()

	trust, err := s.store.GetTrustProfile(ctx, candidateID)
	if err != nil {
		log.Warn("engine: trust profile unavailable", zap.Error(err))
		trust = nil
	}

	var snapshots model.EngineSnapshots
	snap := s.loadSnapshots(ctx, candidateID)
	if v, ok := snap.Get(); ok {
		snapshots = v
	} else {
		log.Warn("engine: engine snapshots unavailable", zap.String("reason", snap.Reason()))
	}

	override, err := s.store.GetActiveOverride(ctx, candidateID, asOf)
	if err != nil {
		log.Warn("engine: override lookup failed", zap.Error(err))
		override = nil
	}

	return s.assembler.Assemble(decision.SummaryInput{
		CandidateID: candidateID,
		Trust:       trust,
		Snapshots:   snapshots,
		Override:    override,
		AsOf:        asOf,
	})
}

// degradedSummary is returned when the summary could not be assembled. It
// asks for manual review and claims no confidence.
func degradedSummary(candidateID string, asOf time.Time, reason string) model.ExecutiveSummary {
	return model.ExecutiveSummary{
		CandidateID:     candidateID,
		Decision:        model.DecisionReview,
		EngineDecision:  model.DecisionReview,
		DecisionRule:    "summary_unavailable",
		Rationale:       []string{reason},
		ConfidenceLevel: model.ConfidenceLow,
		TrustFlags:      []string{},
		TopStrengths:    []string{},
		TopRisks:        []string{},
		ActionLine:      "Hold for manual review: " + reason + ".",
		GeneratedAt:     asOf,
	}
}

func (s *Service) loadSnapshots(ctx context.Context, candidateID string) model.Result[model.EngineSnapshots] {
	snap, err := s.store.GetEngineSnapshots(ctx, candidateID)
	if err != nil {
		return model.Unavailable[model.EngineSnapshots](eris.Wrap(err, "engine: load snapshots").Error())
	}
	if snap == nil {
		return model.Available(model.EngineSnapshots{})
	}
	return model.Available(*snap)
}

func (s *Service) retryFor(operation, candidateID string) resilience.RetryConfig {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger(operation, candidateID)
	return cfg
}

// appendAudit writes audit events. They are for external consumers, so a
// failure is logged and does not fail the recompute.
func (s *Service) appendAudit(ctx context.Context, candidateID string, events []model.AuditEvent) {
	cfg := s.retryFor("append_audit_events", candidateID)
	if err := guard("append audit events", func() error {
		return resilience.Do(ctx, cfg, func(ctx context.Context) error {
			return s.store.AppendAuditEvents(ctx, events)
		})
	}); err != nil {
		zap.L().Warn("engine: append audit events failed",
			zap.String("candidate_id", candidateID),
			zap.Error(err),
		)
	}
}

// auditEvents builds the rank and CRI audit events for a computed profile.
func auditEvents(p model.TrustProfile) []model.AuditEvent {
	ranks := p.Detail.Ranks
	return []model.AuditEvent{
		{
			ID:          uuid.New().String(),
			CandidateID: p.CandidateID,
			EventType:   model.AuditRankSTCWComputed,
			Payload: map[string]any{
				"primary_department": string(ranks.PrimaryDepartment),
				"progression_length": len(ranks.Progression),
				"anomaly_count":      len(ranks.Anomalies),
				"unknown_ranks":      ranks.UnknownRanks,
				"flags":              ranks.Flags,
			},
			CreatedAt: p.ComputedAt,
		},
		{
			ID:          uuid.New().String(),
			CandidateID: p.CandidateID,
			EventType:   model.AuditCRIRecompute,
			Payload: map[string]any{
				"cri_score":        p.CRIScore,
				"confidence_level": string(p.ConfidenceLevel),
				"flags":            p.Flags,
				"config_hash":      p.ConfigHash,
			},
			CreatedAt: p.ComputedAt,
		},
	}
}

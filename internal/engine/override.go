package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/resilience"
)

// OverrideRequest is a human decision to record for a candidate.
type OverrideRequest struct {
	CandidateID string
	Decision    model.Decision
	Reason      string
	CreatedBy   string
	ExpiresAt   *time.Time
}

// Validate checks the request against a creation instant.
func (r OverrideRequest) Validate(createdAt time.Time) error {
	var errs []string
	if strings.TrimSpace(r.CandidateID) == "" {
		errs = append(errs, "candidate_id is required")
	}
	if !r.Decision.Valid() {
		errs = append(errs, "decision must be one of approve, review, reject (got "+string(r.Decision)+")")
	}
	if strings.TrimSpace(r.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	if strings.TrimSpace(r.CreatedBy) == "" {
		errs = append(errs, "created_by is required")
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(createdAt) {
		errs = append(errs, "expires_at must be after the creation time")
	}
	if len(errs) > 0 {
		return eris.Errorf("engine: invalid override: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CreateOverride validates and appends an override. Earlier overrides are
// kept; the newest unexpired one is the active one.
func (s *Service) CreateOverride(ctx context.Context, req OverrideRequest) (*model.DecisionOverride, error) {
	now := s.now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	o := model.DecisionOverride{
		ID:          uuid.New().String(),
		CandidateID: req.CandidateID,
		Decision:    req.Decision,
		Reason:      req.Reason,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		ExpiresAt:   req.ExpiresAt,
	}

	unlock := s.locks.Lock(req.CandidateID)
	defer unlock()

	cfg := s.retryFor("create_override", req.CandidateID)
	if err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return s.store.CreateOverride(ctx, o)
	}); err != nil {
		return nil, eris.Wrap(err, "engine: create override")
	}

	zap.L().Info("engine: override created",
		zap.String("candidate_id", o.CandidateID),
		zap.String("override_id", o.ID),
		zap.String("decision", string(o.Decision)),
		zap.String("created_by", o.CreatedBy),
	)
	return &o, nil
}

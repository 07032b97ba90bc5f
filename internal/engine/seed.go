package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/resilience"
)

// Seed writes a case into the store. Contracts without an ID get one
// derived from their position; overrides without an ID get a UUID and,
// when no creation time is given, the service clock.
func (s *Service) Seed(ctx context.Context, c *Case) error {
	unlock := s.locks.Lock(c.CandidateID)
	defer unlock()

	contracts := make([]model.Contract, len(c.Contracts))
	for i, ct := range c.Contracts {
		if ct.ID == "" {
			ct.ID = fmt.Sprintf("%s-c%d", c.CandidateID, i+1)
		}
		contracts[i] = ct
	}

	cfg := s.retryFor("seed", c.CandidateID)
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		if len(contracts) > 0 {
			if err := s.store.SaveContracts(ctx, contracts); err != nil {
				return err
			}
		}
		if c.Behavioral != nil {
			if err := s.store.SaveBehavioralProfile(ctx, *c.Behavioral); err != nil {
				return err
			}
		}
		return s.store.SaveEngineSnapshots(ctx, c.CandidateID, c.Snapshots)
	})
	if err != nil {
		return eris.Wrapf(err, "engine: seed %s", c.CandidateID)
	}

	// Overrides are append-only, so they are written once outside the retry.
	for _, o := range c.Overrides {
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = s.now()
		}
		if !o.Decision.Valid() {
			return eris.Errorf("engine: seed %s: invalid override decision %q", c.CandidateID, o.Decision)
		}
		if err := s.store.CreateOverride(ctx, o); err != nil {
			return eris.Wrapf(err, "engine: seed override %s", o.ID)
		}
	}

	zap.L().Info("engine: case seeded",
		zap.String("candidate_id", c.CandidateID),
		zap.Int("contracts", len(contracts)),
		zap.Bool("behavioral", c.Behavioral != nil),
		zap.Int("overrides", len(c.Overrides)),
	)
	return nil
}

package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/crewvet/trust-cli/internal/model"
	"github.com/crewvet/trust-cli/internal/resilience"
)

// BatchResult is the per-candidate outcome of a batch recompute.
type BatchResult struct {
	Results   map[string]model.Result[model.TrustProfile]
	Succeeded int64
	Failed    int64
}

// RecomputeBatch recomputes many candidates concurrently and persists every
// computed profile in one bulk upsert. Duplicate IDs are computed once.
// Individual failures are recorded in the result and never abort the batch.
func (s *Service) RecomputeBatch(ctx context.Context, candidateIDs []string) *BatchResult {
	ids := dedupe(candidateIDs)
	out := &BatchResult{Results: make(map[string]model.Result[model.TrustProfile], len(ids))}
	if len(ids) == 0 {
		return out
	}

	unlock := s.locks.LockAll(ids)
	defer unlock()

	concurrency := s.batch.MaxConcurrentCandidates
	if concurrency <= 0 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if s.batch.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.batch.RatePerSec), 1)
	}

	zap.L().Info("engine: batch recompute started",
		zap.Int("candidates", len(ids)),
		zap.Int("concurrency", concurrency),
	)

	var (
		mu       sync.Mutex
		computed []model.TrustProfile
		failed   atomic.Int64
	)
	record := func(id string, r model.Result[model.TrustProfile]) {
		mu.Lock()
		defer mu.Unlock()
		out.Results[id] = r
		if p, ok := r.Get(); ok {
			computed = append(computed, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					failed.Add(1)
					record(id, model.Unavailable[model.TrustProfile](eris.Wrap(err, "engine: rate limit wait").Error()))
					return nil
				}
			}
			r := s.computeSafe(gctx, id)
			if !r.OK() {
				failed.Add(1)
			}
			record(id, r)
			return nil // don't abort batch on individual failure
		})
	}
	_ = g.Wait()

	if len(computed) > 0 {
		cfg := s.retry
		cfg.OnRetry = resilience.RetryLogger("upsert_trust_profiles", "batch")
		err := guard("persist trust profiles", func() error {
			return resilience.Do(ctx, cfg, func(ctx context.Context) error {
				return s.store.UpsertTrustProfiles(ctx, computed)
			})
		})
		if err != nil {
			zap.L().Error("engine: batch persist failed", zap.Int("profiles", len(computed)), zap.Error(err))
			reason := eris.Wrap(err, "engine: persist trust profiles").Error()
			for _, p := range computed {
				out.Results[p.CandidateID] = model.Unavailable[model.TrustProfile](reason)
			}
			failed.Add(int64(len(computed)))
			computed = nil
		}
	}

	var events []model.AuditEvent
	for _, p := range computed {
		events = append(events, auditEvents(p)...)
	}
	if len(events) > 0 {
		s.appendAudit(ctx, "batch", events)
	}

	out.Failed = failed.Load()
	out.Succeeded = int64(len(computed))
	zap.L().Info("engine: batch recompute complete",
		zap.Int64("succeeded", out.Succeeded),
		zap.Int64("failed", out.Failed),
	)
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Package service implements the janitor service
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched"
	"seqrun/internal/platform/storage"
	"seqrun/internal/services/janitor/domain"
	statusdomain "seqrun/internal/services/status/domain"
)

// Service implements domain.JanitorPort
type Service struct {
	Store  *storage.Store
	Sched  sched.Scheduler
	Status statusdomain.AggregatorPort
	Run    runcfg.Config
}

// New constructs a new janitor service
func New(st *storage.Store, sc sched.Scheduler, agg statusdomain.AggregatorPort, run runcfg.Config) *Service {
	return &Service{Store: st, Sched: sc, Status: agg, Run: run}
}

// Sweep finalizes and tears the run down. The run's phase is derived here so
// a periodically invoked sweep converges on its own: a terminal run gets its
// result sentinel (when no earlier probe managed to write one) and is torn
// down; a run still in flight is left alone. The done sentinel makes the
// sweep idempotent and is written last, after teardown, so a sweep
// interrupted partway is retried in full on the next call.
func (s *Service) Sweep(ctx context.Context, force bool) (domain.Summary, error) {
	done, err := s.Store.Exists(ctx, s.Run.Sentinel(runcfg.SentinelDone))
	if err != nil {
		return domain.Summary{}, err
	}
	if done {
		logger.C(ctx).Info().Msg("already swept, nothing to do")
		return domain.Summary{AlreadyDone: true}, nil
	}

	if !force {
		snap, err := s.Status.Check(ctx)
		if err != nil {
			return domain.Summary{}, err
		}
		if !snap.Phase.Terminal() {
			logger.C(ctx).Info().Str("phase", snap.Phase.String()).Msg("run still in flight, nothing to sweep")
			return domain.Summary{Pending: true}, nil
		}
		if err := s.ensureSentinel(ctx, snap); err != nil {
			return domain.Summary{}, err
		}
	}

	var sum domain.Summary
	ids, err := s.jobIDs(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	if err := s.Sched.Teardown(ctx, ids); err != nil {
		return domain.Summary{}, err
	}
	sum.JobsTorn = len(ids)

	if err := s.Store.DeletePrefix(ctx, s.Run.BatchDir()); err != nil {
		return sum, err
	}
	sum.BatchesDeleted = true

	// compute is already gone; a failed sentinel write only costs a
	// redundant sweep later
	body := fmt.Sprintf("swept at %s: %d jobs\n", time.Now().UTC().Format(time.RFC3339), sum.JobsTorn)
	if err := s.Store.WriteAll(ctx, s.Run.Sentinel(runcfg.SentinelDone), []byte(body)); err != nil {
		logger.C(ctx).Error().Err(err).Msg("teardown finished but the done sentinel could not be written")
		return sum, err
	}
	logger.C(ctx).Info().Int("jobs", sum.JobsTorn).Msg("sweep complete")
	return sum, nil
}

// ensureSentinel records the terminal result once. Any sentinel already
// carrying the phase wins; only a run no probe pinned gets a fresh write.
func (s *Service) ensureSentinel(ctx context.Context, snap statusdomain.Snapshot) error {
	names := []string{runcfg.SentinelSuccess}
	if snap.Phase == statusdomain.PhaseFailure {
		names = []string{runcfg.SentinelFailure, runcfg.SentinelFailedSubmission}
	}
	for _, name := range names {
		ok, err := s.Store.Exists(ctx, s.Run.Sentinel(name))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	body := fmt.Sprintf("%s at %s: %d done, %d failed\n",
		snap.Phase, time.Now().UTC().Format(time.RFC3339), snap.Counts.Done, snap.Counts.Failed)
	return s.Store.WriteAll(ctx, s.Run.Sentinel(names[0]), []byte(body))
}

// jobIDs loads the recorded scheduler ids; a run that never submitted has none
func (s *Service) jobIDs(ctx context.Context) ([]string, error) {
	raw := s.Run.MetadataFile(runcfg.FileJobIDs)
	b, err := s.Store.ReadAll(ctx, raw)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeDecode, "corrupt job id record"), raw)
	}
	return ids, nil
}

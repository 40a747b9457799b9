// Package service implements the status service
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
	"seqrun/internal/services/status/domain"
)

// Service implements domain.AggregatorPort
type Service struct {
	Store *storage.Store
	Sched sched.Scheduler
	Run   runcfg.Config
}

// New constructs a new status service
func New(st *storage.Store, sc sched.Scheduler, run runcfg.Config) *Service {
	return &Service{Store: st, Sched: sc, Run: run}
}

// Check derives the run's phase. Sentinels short-circuit before any
// scheduler traffic: a pinned answer stays pinned even after the scheduler
// forgets the jobs.
func (s *Service) Check(ctx context.Context) (domain.Snapshot, error) {
	if pinned, snap, err := s.pinned(ctx); err != nil {
		return domain.Snapshot{}, err
	} else if pinned {
		return snap, nil
	}

	ids, found, err := s.jobIDs(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !found {
		submitted, err := s.Store.Exists(ctx, s.Run.MetadataFile(runcfg.FileJobsSubmitted))
		if err != nil {
			return domain.Snapshot{}, err
		}
		if submitted {
			return domain.Snapshot{Phase: domain.PhaseSubmitting}, nil
		}
		return domain.Snapshot{Phase: domain.PhaseCreating}, nil
	}

	counts, err := s.Sched.Counts(ctx, ids)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{Counts: counts}
	switch {
	case counts.Failed > 0:
		snap.Phase = domain.PhaseFailure
	case counts.Total() > 0 && counts.Pending+counts.Running == 0:
		snap.Phase = domain.PhaseSuccess
	case counts.Total() > 0:
		snap.Phase = domain.PhaseRunning
	default:
		snap.Phase = domain.PhaseSubmitting
	}

	if snap.Phase.Terminal() {
		s.pin(ctx, snap)
	}
	return snap, nil
}

// pinned answers from sentinels alone. Failure sentinels win over success so
// a run that raised both never flips back to healthy.
func (s *Service) pinned(ctx context.Context) (bool, domain.Snapshot, error) {
	for _, probe := range []struct {
		sentinel string
		phase    domain.Phase
	}{
		{runcfg.SentinelFailure, domain.PhaseFailure},
		{runcfg.SentinelFailedSubmission, domain.PhaseFailure},
		{runcfg.SentinelSuccess, domain.PhaseSuccess},
		{runcfg.SentinelDone, domain.PhaseDeleting},
	} {
		ok, err := s.Store.Exists(ctx, s.Run.Sentinel(probe.sentinel))
		if err != nil {
			return false, domain.Snapshot{}, err
		}
		if ok {
			return true, domain.Snapshot{Phase: probe.phase}, nil
		}
	}
	return false, domain.Snapshot{}, nil
}

// pin writes the terminal sentinel. A failed write only costs the
// short-circuit on the next probe, so it is logged and swallowed.
func (s *Service) pin(ctx context.Context, snap domain.Snapshot) {
	name := runcfg.SentinelSuccess
	if snap.Phase == domain.PhaseFailure {
		name = runcfg.SentinelFailure
	}
	body := fmt.Sprintf("%s at %s: %d done, %d failed\n",
		snap.Phase, time.Now().UTC().Format(time.RFC3339), snap.Counts.Done, snap.Counts.Failed)
	if err := s.Store.WriteAll(ctx, s.Run.Sentinel(name), []byte(body)); err != nil {
		logger.C(ctx).Warn().Err(err).Str("sentinel", name).Msg("cannot pin terminal phase")
	}
}

// jobIDs loads the recorded scheduler ids; found=false when submission has
// not recorded any yet
func (s *Service) jobIDs(ctx context.Context) ([]string, bool, error) {
	raw := s.Run.MetadataFile(runcfg.FileJobIDs)
	b, err := s.Store.ReadAll(ctx, raw)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, false, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeDecode, "corrupt job id record"), raw)
	}
	return ids, true, nil
}

// Package service implements the submit service
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched"
	"seqrun/internal/platform/storage"
	"seqrun/internal/services/submit/domain"
)

// groupMax caps how many jobs go to the scheduler in one Apply call
const groupMax = 100

// sleepFn is a seam so retry delays can be skipped in tests
var sleepFn = time.Sleep

// Config for the submit service
type Config struct {
	// Attempts is how many times a group is offered before giving up
	Attempts int
	// RetryDelay is the fixed pause between attempts
	RetryDelay time.Duration
}

// Service implements domain.SubmitterPort
type Service struct {
	Store  *storage.Store
	Sched  sched.Scheduler
	RunCfg runcfg.Config
	Cfg    Config
}

// New constructs a new submit service
func New(st *storage.Store, sc sched.Scheduler, run runcfg.Config, cfg Config) *Service {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Service{Store: st, Sched: sc, RunCfg: run, Cfg: cfg}
}

// Run submits one job per batch in groups. A rejected group is surfaced but
// does not block the groups behind it. Accepted job ids are recorded in run
// metadata whether or not the whole set went through; a run where nothing
// was accepted gets the failed-submission sentinel so status reports Failure
// instead of waiting forever.
func (s *Service) Run(ctx context.Context, template string) (domain.Summary, error) {
	batches, err := s.readManifest(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	tmpl, err := s.Store.ReadAll(ctx, template)
	if err != nil {
		return domain.Summary{}, err
	}

	jobs := s.render(string(tmpl), batches)
	sum := domain.Summary{Expected: len(jobs)}

	var applyErr error
	for start := 0; start < len(jobs); start += groupMax {
		end := min(start+groupMax, len(jobs))
		ids, err := s.applyGroup(ctx, jobs[start:end])
		sum.JobIDs = append(sum.JobIDs, ids...)
		sum.Submitted += len(ids)
		if err != nil {
			logger.C(ctx).Error().Err(err).Int("group", start/groupMax).Msg("group rejected")
			if applyErr == nil {
				applyErr = err
			}
		}
	}

	if err := s.record(ctx, sum); err != nil {
		if applyErr != nil {
			logger.C(ctx).Error().Err(err).Msg("cannot record partial submission")
			return sum, applyErr
		}
		return sum, err
	}
	if applyErr != nil {
		return sum, applyErr
	}

	if err := s.Sched.Scale(ctx, s.RunCfg.NumNodes); err != nil {
		return sum, err
	}
	logger.C(ctx).Info().Int("jobs", sum.Submitted).Msg("submission complete")
	return sum, nil
}

// applyGroup offers one group to the scheduler with bounded retry. Only
// transient scheduler errors are retried, and only when nothing from the
// group was accepted yet; re-offering a half-accepted group would duplicate
// jobs.
func (s *Service) applyGroup(ctx context.Context, group []sched.JobDescriptor) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.Cfg.Attempts; attempt++ {
		ids, err := s.Sched.Apply(ctx, group)
		if err == nil {
			return ids, nil
		}
		if len(ids) > 0 || !perr.Retryable(err) {
			return ids, err
		}
		lastErr = err
		if attempt < s.Cfg.Attempts {
			logger.C(ctx).Warn().Err(err).Int("attempt", attempt).Msg("submission rejected, retrying")
			sleepFn(s.Cfg.RetryDelay)
		}
	}
	return nil, lastErr
}

// render builds one descriptor per batch with its placeholder bindings
func (s *Service) render(template string, batches []string) []sched.JobDescriptor {
	jobs := make([]sched.JobDescriptor, 0, len(batches))
	for i, fqn := range batches {
		_, key := storage.ParseBucketKey(fqn)
		vars := map[string]string{
			"QUERY":      storage.Base(fqn),
			"QUERY_FQN":  fqn,
			"QUERY_PATH": key,
			"QUERY_NUM":  fmt.Sprintf("%03d", i),
			"JOB_NUM":    fmt.Sprintf("%03d", i),
			"BATCH_NUM":  fmt.Sprintf("%d", i),
			"RESULTS":    s.RunCfg.Results,
			"CLUSTER":    s.RunCfg.Cluster,
		}
		jobs = append(jobs, sched.JobDescriptor{
			Ordinal:  i,
			Name:     fmt.Sprintf("%s-batch-%03d", s.RunCfg.Cluster, i),
			BatchFQN: fqn,
			Spec:     substitute(template, vars),
		})
	}
	return jobs
}

// readManifest loads the batch list the split stage wrote
func (s *Service) readManifest(ctx context.Context) ([]string, error) {
	raw := s.RunCfg.MetadataFile(runcfg.FileBatchList)
	b, err := s.Store.ReadAll(ctx, raw)
	if err != nil {
		return nil, err
	}
	var batches []string
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			batches = append(batches, line)
		}
	}
	if len(batches) == 0 {
		return nil, perr.WithLoc(perr.EmptyInputf("batch manifest is empty"), raw)
	}
	return batches, nil
}

// record persists what the scheduler accepted. The realized submitted count
// is written first so a status probe that races the submission still sees
// the run as submitting; the failed-submission sentinel only goes down when
// nothing at all was accepted.
func (s *Service) record(ctx context.Context, sum domain.Summary) error {
	submitted := fmt.Sprintf("%d\n", sum.Submitted)
	if err := s.Store.WriteAll(ctx, s.RunCfg.MetadataFile(runcfg.FileJobsSubmitted), []byte(submitted)); err != nil {
		return err
	}
	if sum.Submitted == 0 {
		msg := fmt.Sprintf("no jobs accepted at %s\n", time.Now().UTC().Format(time.RFC3339))
		return s.Store.WriteAll(ctx, s.RunCfg.Sentinel(runcfg.SentinelFailedSubmission), []byte(msg))
	}
	ids, err := json.Marshal(sum.JobIDs)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "cannot encode job ids")
	}
	return s.Store.WriteAll(ctx, s.RunCfg.MetadataFile(runcfg.FileJobIDs), append(ids, '\n'))
}

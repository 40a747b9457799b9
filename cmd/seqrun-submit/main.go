package main

import (
	"context"
	"flag"
	"os"
	"time"

	"seqrun/internal/modkit"
	"seqrun/internal/platform/config"
	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched/awsbatch"
	"seqrun/internal/platform/storage/s3"

	submitmod "seqrun/internal/services/submit/module"
	submitsvc "seqrun/internal/services/submit/service"
)

func main() {
	root := config.New()
	l := logger.Get()

	var (
		results  = flag.String("results", "", "run results location")
		template = flag.String("template", "", "job specification template location")
		attempts = flag.Int("attempts", 3, "submission attempts per group")
		delay    = flag.Duration("retry-delay", 2*time.Second, "pause between attempts")
	)
	flag.Parse()

	if *results == "" {
		*results = root.Prefix("SEQRUN_").MustString("RESULTS")
	}
	if *template == "" {
		l.Error().Msg("template is required")
		os.Exit(perr.ExitOther)
	}

	ctx := context.Background()
	st, err := s3.NewStoreFor(ctx, root.Prefix("SEQRUN_").MayString("REGION", ""), *results, *template)
	if err != nil {
		l.Error().Err(err).Msg("cannot open storage")
		os.Exit(perr.ExitCode(err))
	}

	run, err := runcfg.Load(ctx, st, *results)
	if err != nil {
		l.Error().Err(err).Msg("cannot load run configuration")
		os.Exit(perr.ExitCode(err))
	}
	ctx = logger.WithRun(ctx, run.Results, run.Cluster)

	sc, err := awsbatch.New(ctx, run.Region, run.Queue, run.Definition, run.Stack, run.Cluster)
	if err != nil {
		l.Error().Err(err).Msg("cannot reach the scheduler")
		os.Exit(perr.ExitCode(err))
	}

	deps := modkit.Deps{Cfg: root, Log: *l, Store: st, Sched: sc}
	sm := submitmod.New(deps, run, submitsvc.Config{Attempts: *attempts, RetryDelay: *delay})

	sum, err := sm.Ports().(submitmod.Ports).Submitter.Run(ctx, *template)
	if err != nil {
		l.Error().Err(err).
			Int("submitted", sum.Submitted).
			Int("expected", sum.Expected).
			Msg("submission failed")
		os.Exit(perr.ExitCode(err))
	}
	l.Info().Int("jobs", sum.Submitted).Msg("submission finished")
}

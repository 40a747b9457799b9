package main

import (
	"context"
	"flag"
	"os"

	"seqrun/internal/modkit"
	"seqrun/internal/platform/config"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched/awsbatch"
	"seqrun/internal/platform/storage/s3"

	janitormod "seqrun/internal/services/janitor/module"
)

// exitFor collapses any sweep failure to a plain failure exit so this tool
// never collides with the status tool's phase code space
func exitFor(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func main() {
	root := config.New()
	l := logger.Get()

	var (
		results = flag.String("results", "", "run results location")
		force   = flag.Bool("force", false, "sweep without consulting the run's phase")
	)
	flag.Parse()

	if *results == "" {
		*results = root.Prefix("SEQRUN_").MustString("RESULTS")
	}

	ctx := context.Background()
	st, err := s3.NewStoreFor(ctx, root.Prefix("SEQRUN_").MayString("REGION", ""), *results)
	if err != nil {
		l.Error().Err(err).Msg("cannot open storage")
		os.Exit(exitFor(err))
	}

	run, err := runcfg.Load(ctx, st, *results)
	if err != nil {
		l.Error().Err(err).Msg("cannot load run configuration")
		os.Exit(exitFor(err))
	}
	ctx = logger.WithRun(ctx, run.Results, run.Cluster)

	sc, err := awsbatch.New(ctx, run.Region, run.Queue, run.Definition, run.Stack, run.Cluster)
	if err != nil {
		l.Error().Err(err).Msg("cannot reach the scheduler")
		os.Exit(exitFor(err))
	}

	deps := modkit.Deps{Cfg: root, Log: *l, Store: st, Sched: sc}
	jm := janitormod.New(deps, run)

	sum, err := jm.Ports().(janitormod.Ports).Janitor.Sweep(ctx, *force)
	if err != nil {
		l.Error().Err(err).Msg("sweep failed")
		os.Exit(exitFor(err))
	}
	if sum.AlreadyDone {
		l.Info().Msg("nothing to sweep")
		return
	}
	if sum.Pending {
		l.Info().Msg("run still in flight")
		return
	}
	l.Info().Int("jobs", sum.JobsTorn).Msg("sweep finished")
}

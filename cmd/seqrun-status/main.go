package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"seqrun/internal/modkit"
	"seqrun/internal/platform/config"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched/awsbatch"
	"seqrun/internal/platform/storage/s3"

	statusdomain "seqrun/internal/services/status/domain"
	statusmod "seqrun/internal/services/status/module"
)

// exitFor keeps every exit of this tool inside the phase code space: a
// failure to derive the phase at all reads as unknown, never as one of the
// phase answers.
func exitFor(snap statusdomain.Snapshot, err error) int {
	if err != nil {
		return statusdomain.PhaseUnknown.ExitCode()
	}
	return snap.Phase.ExitCode()
}

// The exit code is the answer: 0 success, 1 failure, 2 creating,
// 3 submitting, 4 running, 5 deleting, 6 unknown.
func main() {
	root := config.New()
	l := logger.Get()

	var (
		results = flag.String("results", "", "run results location")
		verbose = flag.Bool("verbose", false, "print the full snapshot as JSON")
	)
	flag.Parse()

	if *results == "" {
		*results = root.Prefix("SEQRUN_").MustString("RESULTS")
	}

	ctx := context.Background()
	st, err := s3.NewStoreFor(ctx, root.Prefix("SEQRUN_").MayString("REGION", ""), *results)
	if err != nil {
		l.Error().Err(err).Msg("cannot open storage")
		os.Exit(exitFor(statusdomain.Snapshot{}, err))
	}

	run, err := runcfg.Load(ctx, st, *results)
	if err != nil {
		l.Error().Err(err).Msg("cannot load run configuration")
		os.Exit(exitFor(statusdomain.Snapshot{}, err))
	}
	ctx = logger.WithRun(ctx, run.Results, run.Cluster)

	sc, err := awsbatch.New(ctx, run.Region, run.Queue, run.Definition, run.Stack, run.Cluster)
	if err != nil {
		l.Error().Err(err).Msg("cannot reach the scheduler")
		os.Exit(exitFor(statusdomain.Snapshot{}, err))
	}

	deps := modkit.Deps{Cfg: root, Log: *l, Store: st, Sched: sc}
	sm := statusmod.New(deps, run)

	snap, err := sm.Ports().(statusmod.Ports).Aggregator.Check(ctx)
	if err != nil {
		l.Error().Err(err).Msg("status check failed")
		os.Exit(exitFor(snap, err))
	}

	if *verbose {
		out, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(snap.Phase)
	}
	os.Exit(exitFor(snap, nil))
}

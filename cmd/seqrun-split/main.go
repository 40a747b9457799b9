package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"

	"seqrun/internal/modkit"
	"seqrun/internal/platform/config"
	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/storage/s3"

	splitmod "seqrun/internal/services/split/module"
)

func mustSetEnv(k, v string) {
	if v != "" {
		_ = os.Setenv(k, v)
	}
}

// inputList lets -input repeat; the inputs are read in order as one
// concatenated collection
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	root := config.New()
	l := logger.Get()

	var inputs inputList
	flag.Var(&inputs, "input", "query location (repeatable; file, s3://, http(s)://, ftp://)")
	var (
		results    = flag.String("results", "", "run results location")
		cluster    = flag.String("cluster", "", "run name")
		batchLen   = flag.Int("batch-len", 0, "residues per batch (strict mode)")
		numBatches = flag.Int("num-batches", 0, "target batch count (proportional mode; 0 = strict)")
		numNodes   = flag.Int("num-nodes", 0, "worker nodes to request at submission")
	)
	flag.Parse()

	// Pass CLI flags into SEQRUN_* so the run config reads one source
	mustSetEnv("SEQRUN_RESULTS", *results)
	mustSetEnv("SEQRUN_CLUSTER", *cluster)
	if *batchLen > 0 {
		mustSetEnv("SEQRUN_BATCH_LEN", strconv.Itoa(*batchLen))
	}
	if *numBatches > 0 {
		mustSetEnv("SEQRUN_NUM_BATCHES", strconv.Itoa(*numBatches))
	}
	if *numNodes > 0 {
		mustSetEnv("SEQRUN_NUM_NODES", strconv.Itoa(*numNodes))
	}

	run := runcfg.FromEnv(root)
	if err := run.Validate(); err != nil {
		l.Error().Err(err).Msg("invalid run configuration")
		os.Exit(perr.ExitCode(err))
	}
	if len(inputs) == 0 {
		l.Error().Msg("at least one input is required")
		os.Exit(perr.ExitOther)
	}

	ctx := logger.WithRun(context.Background(), run.Results, run.Cluster)
	st, err := s3.NewStoreFor(ctx, run.Region, append([]string{run.Results}, inputs...)...)
	if err != nil {
		l.Error().Err(err).Msg("cannot open storage")
		os.Exit(perr.ExitCode(err))
	}

	// probe both ends before doing any work
	for _, input := range inputs {
		if _, err := st.CheckReadable(ctx, input); err != nil {
			l.Error().Err(err).Str("input", input).Msg("input is not readable")
			os.Exit(perr.ExitCode(err))
		}
	}
	if err := st.CheckWritable(ctx, run.Results); err != nil {
		l.Error().Err(err).Str("results", run.Results).Msg("results location is not writable")
		os.Exit(perr.ExitCode(err))
	}

	deps := modkit.Deps{Cfg: root, Log: *l, Store: st}
	sm := splitmod.New(deps, run)

	sum, err := sm.Ports().(splitmod.Ports).Splitter.Run(ctx, inputs)
	if err != nil {
		l.Error().Err(err).Msg("split failed")
		os.Exit(perr.ExitCode(err))
	}
	l.Info().
		Int("batches", len(sum.Batches)).
		Int64("query_length", sum.QueryLength).
		Msg("split finished")
}

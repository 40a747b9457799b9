package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"seqrun/internal/platform/config"
	"seqrun/internal/platform/httpd"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched/awsbatch"
	"seqrun/internal/platform/storage/s3"

	"seqrun/internal/services/api"
	statussvc "seqrun/internal/services/status/service"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("SEQRUN_API_")
	l := logger.Get()

	results := root.Prefix("SEQRUN_").MustString("RESULTS")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := s3.NewStoreFor(ctx, root.Prefix("SEQRUN_").MayString("REGION", ""), results)
	if err != nil {
		l.Panic().Err(err).Msg("cannot open storage")
	}

	run, err := runcfg.Load(ctx, st, results)
	if err != nil {
		l.Panic().Err(err).Msg("cannot load run configuration")
	}

	sc, err := awsbatch.New(ctx, run.Region, run.Queue, run.Definition, run.Stack, run.Cluster)
	if err != nil {
		l.Panic().Err(err).Msg("cannot reach the scheduler")
	}

	// http server (reads SEQRUN_API_ADDR)
	srv := httpd.NewServer(apiCfg)

	api.Mount(srv.Router(), api.Options{
		Run:        run,
		Aggregator: statussvc.New(st, sc, run),
	})

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

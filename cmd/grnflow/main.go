package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/gologme/log"

	"grnflow/internal/config"
	"grnflow/internal/connectors"
	"grnflow/internal/pipeline"
	"grnflow/internal/scheduler"
	"grnflow/internal/storage"
)

func main() {
	runOnce := flag.Bool("run-once", false, "run a single workflow cycle and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	must(err)

	logger := log.New(os.Stdout, "[grnflow] ", log.LstdFlags|log.Lmsgprefix)
	logger.EnableLevel("error")
	logger.EnableLevel("warn")
	logger.EnableLevel("info")
	if *debug {
		logger.EnableLevel("debug")
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	runner := pipeline.NewRunner(cfg, logger, db, connectors.Connect)

	if *runOnce {
		must(runner.RunWorkflow())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc := scheduler.NewService(runner, cfg, logger)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

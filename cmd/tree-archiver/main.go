package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/raoulx24/tree-archiver/internal/config"
	"github.com/raoulx24/tree-archiver/internal/daemon"
	"github.com/raoulx24/tree-archiver/internal/logging"
)

const usage = `usage: tree-archiver [-config file] <command> [args]

commands:
  daemon              run scheduled backups and reload the config on change
  run <job>           run one job now and wait for it
  list                show configured jobs and their last full backup
  logs [-level L] [-since D]
                      print logged events
  gate                show running priority and blocking processes
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, closer, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	d, err := daemon.New(daemon.Params{
		ConfigPath: *configPath,
		Config:     cfg,
		Log:        logg,
	})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "daemon":
		err = d.Run(ctx)
	case "run":
		err = runJob(ctx, d, args)
	case "list":
		err = listJobs(d, os.Stdout)
	case "logs":
		err = printLogs(d, args, os.Stdout)
	case "gate":
		err = showGate(ctx, d, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logg.Error("%s: %v", cmd, err)
		closer.Close()
		os.Exit(1)
	}
}

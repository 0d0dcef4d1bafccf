package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v2"

	"github.com/andys/stageload/config"
	"github.com/andys/stageload/db"
	"github.com/andys/stageload/logging"
	"github.com/andys/stageload/pipeline"
	"github.com/andys/stageload/worker"
)

func main() {
	var cfg config.Config

	flags := append(config.Flags(&cfg),
		&cli.StringFlag{
			Name:        "schedule",
			Usage:       "Repeat the run on this cron schedule (e.g. \"*/15 * * * *\" or \"@every 10m\") until interrupted",
			Destination: &cfg.Schedule,
		},
	)

	app := &cli.App{
		Name:  "stageload",
		Usage: "Copy new rows of each configured table from the source database into staging",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if err := config.Prepare(&cfg); err != nil {
				return err
			}

			logger, flush, err := logging.New(cfg.Debug, cfg.Verbose)
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sourceDB, destDB, err := connect(ctx, &cfg, logger)
			if err != nil {
				return err
			}
			defer sourceDB.Close()
			defer destDB.Close()

			logger.Info("Connected", "source", string(sourceDB.Type), "destination", string(destDB.Type), "tables", len(cfg.Tables))

			runner := worker.NewConnectionRunner(sourceDB, destDB, &cfg, logger)
			defer runner.Stop()
			descs := pipeline.DescriptorsFromConfig(&cfg)

			if cfg.Schedule != "" {
				return runScheduled(ctx, runner, descs, cfg.Schedule, logger)
			}

			stopProgress := startProgress(os.Stdout, runner.Progress().Snapshot, 300*time.Millisecond)
			report := runner.Run(ctx, descs)
			stopProgress()

			fmt.Println()
			report.Print(os.Stdout)
			if !report.OK() {
				return cli.Exit(fmt.Sprintf("%d of %d tables failed", len(report.Failed()), len(report.Outcomes)), 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connect(ctx context.Context, cfg *config.Config, logger logr.Logger) (*db.Connection, *db.Connection, error) {
	sourceDB, err := db.Connect(ctx, cfg.SourceURL, db.Source, cfg, cfg.WorkerCount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	sourceDB.SetLogger(logger)

	destDB, err := db.Connect(ctx, cfg.DestinationURL, db.Destination, cfg, cfg.WorkerCount)
	if err != nil {
		sourceDB.Close()
		return nil, nil, fmt.Errorf("failed to connect to destination database: %w", err)
	}
	destDB.SetLogger(logger)
	return sourceDB, destDB, nil
}

// runScheduled blocks until ctx is cancelled by a signal.
func runScheduled(ctx context.Context, runner *worker.Runner, descs []pipeline.TableDescriptor, schedule string, logger logr.Logger) error {
	scheduler := worker.NewScheduler(runner, descs, func(report worker.Report) {
		report.Print(os.Stdout)
	}, logger)
	if err := scheduler.Start(ctx, schedule); err != nil {
		return err
	}
	<-ctx.Done()
	scheduler.Stop()
	return nil
}

// startProgress redraws the progress line on w every interval until the run
// is done. The returned func stops the printer and returns only after its
// last write.
func startProgress(w io.Writer, snapshot func() worker.ProgressSnapshot, interval time.Duration) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printProgress(w, snapshot, done, interval)
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func printProgress(w io.Writer, snapshot func() worker.ProgressSnapshot, done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := snapshot()
			if snap.Done() {
				return
			}
			fmt.Fprintf(w, "\rProgress: %s          ", snap)
		}
	}
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/andys/stageload/config"
	"github.com/andys/stageload/db"
	"github.com/andys/stageload/pipeline"
)

// Runner fans table pipelines out over a bounded worker pool. Each pipeline
// borrows its own source and destination connections, so one table's failure
// never touches another's.
type Runner struct {
	source   pipeline.SourceFunc
	dest     pipeline.DestinationFunc
	pool     pond.Pool
	progress *Progress
	opts     pipeline.Options
	log      logr.Logger
}

// NewRunner creates a runner with cfg.WorkerCount workers.
func NewRunner(source pipeline.SourceFunc, dest pipeline.DestinationFunc, cfg *config.Config, log logr.Logger) *Runner {
	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:   source,
		dest:     dest,
		pool:     pond.NewPool(workers),
		progress: &Progress{},
		opts: pipeline.Options{
			Timeout:       cfg.Timeout,
			CaseSensitive: cfg.QuoteIdentifiers,
		},
		log: log,
	}
}

// NewConnectionRunner creates a runner whose pipelines borrow sessions from
// the two connection pools.
func NewConnectionRunner(source, dest *db.Connection, cfg *config.Config, log logr.Logger) *Runner {
	return NewRunner(SourceSessions(source), DestinationSessions(dest), cfg, log)
}

// SourceSessions adapts a connection pool to a pipeline.SourceFunc.
func SourceSessions(conn *db.Connection) pipeline.SourceFunc {
	return func(ctx context.Context) (pipeline.Source, error) {
		session, err := conn.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// DestinationSessions adapts a connection pool to a pipeline.DestinationFunc.
func DestinationSessions(conn *db.Connection) pipeline.DestinationFunc {
	return func(ctx context.Context) (pipeline.Destination, error) {
		session, err := conn.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// Run drives one pipeline per descriptor to a terminal state and returns
// their outcomes in input order. It waits for every pipeline even when
// some fail.
func (r *Runner) Run(ctx context.Context, descs []pipeline.TableDescriptor) Report {
	start := time.Now()
	runID := uuid.NewString()
	log := r.log.WithValues("run", runID)
	r.progress.reset(len(descs))
	log.Info("Starting run", "tables", len(descs))

	outcomes := make([]pipeline.Outcome, len(descs))
	group := r.pool.NewGroup()

	for i, desc := range descs {
		group.Submit(func() {
			out := r.runOne(ctx, desc, log)
			outcomes[i] = out
			r.progress.record(out)
		})
	}

	// Tasks never return errors, panics included
	_ = group.Wait()

	report := Report{RunID: runID, Outcomes: outcomes, Duration: time.Since(start)}
	log.Info("Run finished",
		"tables", len(descs),
		"rows", report.TotalRows(),
		"failed", len(report.Failed()),
		"duration", report.Duration.String())
	return report
}

// runOne isolates a single pipeline: a panic becomes a Failed outcome.
func (r *Runner) runOne(ctx context.Context, desc pipeline.TableDescriptor, log logr.Logger) (out pipeline.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("pipeline panicked: %v", rec)
			log.Error(err, "Table pipeline crashed", "table", desc.Name)
			out = pipeline.Outcome{
				Table: desc.Name,
				State: pipeline.Failed,
				Kind:  db.KindQueryExecution,
				Err:   err,
			}
		}
	}()
	return pipeline.New(desc, r.source, r.dest, r.opts, log).Run(ctx)
}

// Progress returns the live counters of the current run.
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Stop stops the worker pool and waits for all tasks to complete
func (r *Runner) Stop() {
	r.pool.StopAndWait()
}

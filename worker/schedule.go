package worker

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/andys/stageload/pipeline"
)

// Scheduler repeats a run on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   *Runner
	descs    []pipeline.TableDescriptor
	onReport func(Report)
	log      logr.Logger
}

// NewScheduler creates a stopped scheduler. onReport, if set, receives the
// report of every completed run.
func NewScheduler(runner *Runner, descs []pipeline.TableDescriptor, onReport func(Report), log logr.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		runner:   runner,
		descs:    descs,
		onReport: onReport,
		log:      log,
	}
}

// Start registers the run under schedule (standard five-field cron or a
// descriptor such as "@every 5m") and starts ticking. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		report := s.runner.Run(ctx, s.descs)
		if s.onReport != nil {
			s.onReport(report)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.log.Info("Scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

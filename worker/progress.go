package worker

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andys/stageload/pipeline"
)

// Progress tracks the tables of the current run
type Progress struct {
	totalTables     atomic.Int64
	processedTables atomic.Int64
	failedTables    atomic.Int64
	loadedRows      atomic.Int64
	startTime       atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	TotalTables     int64
	ProcessedTables int64
	FailedTables    int64
	LoadedRows      int64
	Elapsed         time.Duration
}

func (p *Progress) reset(total int) {
	p.totalTables.Store(int64(total))
	p.processedTables.Store(0)
	p.failedTables.Store(0)
	p.loadedRows.Store(0)
	p.startTime.Store(time.Now().UnixNano())
}

func (p *Progress) record(out pipeline.Outcome) {
	if out.OK() {
		p.loadedRows.Add(out.Rows)
	} else {
		p.failedTables.Add(1)
	}
	p.processedTables.Add(1)
}

// Snapshot returns the current counters. It is safe to call while a run is
// in flight.
func (p *Progress) Snapshot() ProgressSnapshot {
	s := ProgressSnapshot{
		TotalTables:     p.totalTables.Load(),
		ProcessedTables: p.processedTables.Load(),
		FailedTables:    p.failedTables.Load(),
		LoadedRows:      p.loadedRows.Load(),
	}
	if start := p.startTime.Load(); start != 0 {
		s.Elapsed = time.Since(time.Unix(0, start))
	}
	return s
}

// Done reports whether every table of the run has finished.
func (s ProgressSnapshot) Done() bool {
	return s.ProcessedTables >= s.TotalTables
}

func (s ProgressSnapshot) String() string {
	return fmt.Sprintf("%d/%d tables processed (Rows: %d, Failed: %d, Elapsed: %s)",
		s.ProcessedTables, s.TotalTables, s.LoadedRows, s.FailedTables, s.Elapsed.Round(time.Second))
}

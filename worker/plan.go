package worker

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/go-logr/logr"

	"github.com/andys/stageload/config"
	"github.com/andys/stageload/db"
	"github.com/andys/stageload/pipeline"
)

// PlanEntry describes what a run would do for one table without writing.
type PlanEntry struct {
	Table     string
	KeyColumn string
	Watermark int64
	Columns   db.ColumnSet
	Pending   int64
	Err       error
}

// Planner inspects both sides read-only.
type Planner struct {
	source *db.Connection
	dest   *db.Connection
	cfg    *config.Config
	log    logr.Logger
}

// NewPlanner creates a planner over the two connection pools.
func NewPlanner(source, dest *db.Connection, cfg *config.Config, log logr.Logger) *Planner {
	return &Planner{source: source, dest: dest, cfg: cfg, log: log}
}

// Plan resolves the watermark, the source columns and the number of pending
// rows of every table, in input order.
func (p *Planner) Plan(ctx context.Context, descs []pipeline.TableDescriptor) []PlanEntry {
	workers := p.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	entries := make([]PlanEntry, len(descs))
	group := pool.NewGroup()
	for i, desc := range descs {
		group.Submit(func() {
			entries[i] = p.planOne(ctx, desc)
		})
	}
	_ = group.Wait()
	return entries
}

func (p *Planner) planOne(ctx context.Context, desc pipeline.TableDescriptor) PlanEntry {
	entry := PlanEntry{Table: desc.Name, KeyColumn: desc.KeyColumn}
	log := p.log.WithValues("table", desc.Name)

	dest, err := p.dest.Acquire(ctx)
	if err != nil {
		entry.Err = err
		return entry
	}
	defer dest.Release()

	wm, err := pipeline.ResolveWatermark(ctx, dest, desc)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Watermark = wm.LastSeenID

	src, err := p.source.Acquire(ctx)
	if err != nil {
		entry.Err = err
		return entry
	}
	defer src.Release()

	columns, key, err := pipeline.InspectSchema(ctx, src, desc, p.cfg.QuoteIdentifiers)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Columns = columns
	entry.KeyColumn = key

	entry.Pending, entry.Err = src.CountGreaterThan(ctx, desc.Name, key, wm.LastSeenID)
	log.V(1).Info("Planned table", "watermark", entry.Watermark, "pending", entry.Pending)
	return entry
}

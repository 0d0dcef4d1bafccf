// Package pipeline replicates one table from source to destination staging:
// resolve the watermark, inspect the source schema, extract newer rows and
// load them as one atomic batch.
package pipeline

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/andys/stageload/db"
)

// SourceFunc borrows a source connection for the lifetime of one pipeline.
type SourceFunc func(ctx context.Context) (Source, error)

// DestinationFunc borrows a destination connection for the lifetime of one pipeline.
type DestinationFunc func(ctx context.Context) (Destination, error)

// Options tunes a TablePipeline.
type Options struct {
	// Timeout bounds every blocking call. Zero means no bound.
	Timeout time.Duration
	// CaseSensitive matches the key column exactly against the source columns.
	CaseSensitive bool
}

// TablePipeline runs the state machine for a single table. It is single-use.
type TablePipeline struct {
	desc    TableDescriptor
	source  SourceFunc
	dest    DestinationFunc
	opts    Options
	log     logr.Logger
	state   State
	outcome Outcome
}

// New creates a pipeline in the Idle state.
func New(desc TableDescriptor, source SourceFunc, dest DestinationFunc, opts Options, log logr.Logger) *TablePipeline {
	return &TablePipeline{
		desc:    desc,
		source:  source,
		dest:    dest,
		opts:    opts,
		log:     log.WithValues("table", desc.Name),
		state:   Idle,
		outcome: Outcome{Table: desc.Name, Path: []State{Idle}},
	}
}

// State returns the current state.
func (p *TablePipeline) State() State {
	return p.state
}

// Run drives the pipeline to Done or Failed. Both borrowed connections are
// released before Run returns.
func (p *TablePipeline) Run(ctx context.Context) (out Outcome) {
	if p.state != Idle {
		return p.outcome
	}
	start := time.Now()
	defer func() {
		p.outcome.Duration = time.Since(start)
		out.Duration = p.outcome.Duration
	}()

	p.transition(ResolvingWatermark)

	dest, err := p.borrowDestination(ctx)
	if err != nil {
		return p.fail(err)
	}
	defer p.release("destination", dest)

	if err := p.step(ctx, func(ctx context.Context) error {
		wm, err := ResolveWatermark(ctx, dest, p.desc)
		p.outcome.Watermark = wm.LastSeenID
		return err
	}); err != nil {
		return p.fail(err)
	}

	p.transition(InspectingSchema)

	src, err := p.borrowSource(ctx)
	if err != nil {
		return p.fail(err)
	}
	defer p.release("source", src)

	var (
		columns db.ColumnSet
		key     string
	)
	if err := p.step(ctx, func(ctx context.Context) error {
		var err error
		columns, key, err = InspectSchema(ctx, src, p.desc, p.opts.CaseSensitive)
		return err
	}); err != nil {
		return p.fail(err)
	}

	p.transition(Extracting)

	var batch db.Batch
	if err := p.step(ctx, func(ctx context.Context) error {
		var err error
		batch, err = Extract(ctx, src, p.desc, columns, key, Watermark{Table: p.desc.Name, LastSeenID: p.outcome.Watermark})
		return err
	}); err != nil {
		return p.fail(err)
	}

	if len(batch.Rows) == 0 {
		p.transition(NoNewData)
		p.outcome.NoNewData = true
		p.transition(Done)
		p.log.V(1).Info("No new rows", "watermark", p.outcome.Watermark)
		return p.outcome
	}

	p.transition(Loading)

	if err := p.step(ctx, func(ctx context.Context) error {
		n, err := Load(ctx, dest, batch)
		p.outcome.Rows = n
		return err
	}); err != nil {
		p.outcome.Rows = 0
		return p.fail(err)
	}

	p.transition(Done)
	p.log.V(1).Info("Loaded rows", "rows", p.outcome.Rows, "watermark", p.outcome.Watermark)
	return p.outcome
}

// step runs fn under the per-call timeout.
func (p *TablePipeline) step(ctx context.Context, fn func(ctx context.Context) error) error {
	stepCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	return fn(stepCtx)
}

func (p *TablePipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}

func (p *TablePipeline) borrowDestination(ctx context.Context) (Destination, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	dest, err := p.dest(ctx)
	if err != nil {
		return nil, withKind(err, db.KindDestinationConnection, p.desc.Name, "acquire")
	}
	return dest, nil
}

func (p *TablePipeline) borrowSource(ctx context.Context) (Source, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	src, err := p.source(ctx)
	if err != nil {
		return nil, withKind(err, db.KindSourceConnection, p.desc.Name, "acquire")
	}
	return src, nil
}

func (p *TablePipeline) release(side string, r interface{ Release() error }) {
	if err := r.Release(); err != nil {
		p.log.Error(err, "Failed to release connection", "side", side)
	}
}

func (p *TablePipeline) transition(to State) {
	if !canTransition(p.state, to) {
		// Programming error: the state machine is fixed.
		panic("pipeline: illegal transition " + p.state.String() + " -> " + to.String())
	}
	p.log.V(1).Info("Transition", "from", p.state.String(), "to", to.String())
	p.state = to
	p.outcome.State = to
	p.outcome.Path = append(p.outcome.Path, to)
}

func (p *TablePipeline) fail(err error) Outcome {
	from := p.state
	p.outcome.Err = err
	p.outcome.Kind = db.KindOf(err)
	p.transition(Failed)
	p.log.Error(err, "Table pipeline failed", "state", from.String(), "kind", string(p.outcome.Kind))
	return p.outcome
}

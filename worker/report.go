package worker

import (
	"fmt"
	"io"
	"time"

	"github.com/andys/stageload/pipeline"
)

// Report collects one Outcome per table, in configured order.
type Report struct {
	RunID    string
	Outcomes []pipeline.Outcome
	Duration time.Duration
}

// Failed returns the outcomes that ended in Failed.
func (r Report) Failed() []pipeline.Outcome {
	failed := make([]pipeline.Outcome, 0)
	for _, out := range r.Outcomes {
		if !out.OK() {
			failed = append(failed, out)
		}
	}
	return failed
}

// OK reports whether every table reached Done.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// TotalRows sums the rows loaded across all tables.
func (r Report) TotalRows() int64 {
	var total int64
	for _, out := range r.Outcomes {
		total += out.Rows
	}
	return total
}

// Outcome returns the outcome of the named table.
func (r Report) Outcome(table string) (pipeline.Outcome, bool) {
	for _, out := range r.Outcomes {
		if out.Table == table {
			return out, true
		}
	}
	return pipeline.Outcome{}, false
}

// Print writes one line per table followed by a summary.
func (r Report) Print(w io.Writer) {
	for _, out := range r.Outcomes {
		line := fmt.Sprintf("%-30s %-28s watermark=%d", out.Table, out.String(), out.Watermark)
		if out.Err != nil {
			line += fmt.Sprintf(" error=%q", out.Err.Error())
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\nrun %s: %d tables, %d rows loaded, %d failed in %s\n",
		r.RunID, len(r.Outcomes), r.TotalRows(), len(r.Failed()), r.Duration.Round(time.Millisecond))
}

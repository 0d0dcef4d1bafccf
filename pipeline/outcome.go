package pipeline

import (
	"fmt"
	"time"

	"github.com/andys/stageload/db"
)

// Outcome is the terminal result of one table pipeline.
type Outcome struct {
	Table string
	// State is Done or Failed.
	State State
	// NoNewData is set when the pipeline finished through the NoNewData state.
	NoNewData bool
	Rows      int64
	Watermark int64
	Kind      db.ErrorKind
	Err       error
	// Path is every state visited, in order.
	Path     []State
	Duration time.Duration
}

// OK reports whether the table reached Done.
func (o Outcome) OK() bool {
	return o.State == Done
}

func (o Outcome) String() string {
	switch {
	case o.State == Failed && o.Kind != "":
		return fmt.Sprintf("Failed(%s)", o.Kind)
	case o.State == Failed:
		return "Failed"
	case o.NoNewData:
		return "NoNewData"
	default:
		return fmt.Sprintf("Done(%d)", o.Rows)
	}
}

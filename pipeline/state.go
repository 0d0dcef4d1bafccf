package pipeline

// State is a step of the per-table state machine.
type State int

const (
	Idle State = iota
	ResolvingWatermark
	InspectingSchema
	Extracting
	NoNewData
	Loading
	Done
	Failed
)

var stateNames = [...]string{
	Idle:               "Idle",
	ResolvingWatermark: "ResolvingWatermark",
	InspectingSchema:   "InspectingSchema",
	Extracting:         "Extracting",
	NoNewData:          "NoNewData",
	Loading:            "Loading",
	Done:               "Done",
	Failed:             "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// next lists the legal successors of each state. Any non-terminal state may
// also move to Failed.
var next = map[State][]State{
	Idle:               {ResolvingWatermark},
	ResolvingWatermark: {InspectingSchema},
	InspectingSchema:   {Extracting},
	Extracting:         {NoNewData, Loading},
	NoNewData:          {Done},
	Loading:            {Done},
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

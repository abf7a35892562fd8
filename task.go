package invindex

// Phase is a stage of an indexing job
type Phase int

// Phases run in order; every map task finishes before any reduce task starts.
const (
	MapPhase Phase = iota
	ReducePhase
)

func (p Phase) String() string {
	switch p {
	case MapPhase:
		return "Map"
	case ReducePhase:
		return "Reduce"
	}
	return "Unknown"
}

// task is one unit of work handed to an executor. Map tasks process Splits
// and write shuffle files tagged with BinID; reduce tasks merge the shuffle
// files of shard BinID.
type task struct {
	Phase  Phase
	BinID  uint
	Splits []inputSplit
}

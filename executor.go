package invindex

import (
	"fmt"
)

type executor interface {
	Run(job *Job, t task) error
}

// localExecutor runs tasks in the driver's process.
type localExecutor struct{}

func (localExecutor) Run(job *Job, t task) error {
	switch t.Phase {
	case MapPhase:
		return job.runMapper(t.BinID, t.Splits)
	case ReducePhase:
		return job.runReducer(t.BinID)
	}
	return fmt.Errorf("unknown phase %v", t.Phase)
}

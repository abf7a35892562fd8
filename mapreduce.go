package invindex

import (
	"github.com/bcongdon/invindex/index"
)

// Mapper defines the interface for a Map task.
type Mapper interface {
	Map(record string, emitter index.Emitter) error
}

// Reducer defines the interface for Combine and Reduce tasks: every value
// seen for key is folded into a single value.
type Reducer interface {
	Reduce(key string, values []*index.Occurrences) (*index.Occurrences, error)
}

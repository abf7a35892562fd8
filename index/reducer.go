package index

import (
	"time"
)

// Fold merges values into a fresh accumulator. The inputs are left untouched.
func Fold(values []*Occurrences) *Occurrences {
	acc := NewOccurrences()
	for _, v := range values {
		acc.Merge(v)
	}
	return acc
}

// Combiner merges the partial records one map worker produced for a word.
// Its output is itself partial and is merged again by the Reducer.
type Combiner struct {
	counters *Counters
}

// NewCombiner returns a Combiner timing itself into counters.
func NewCombiner(counters *Counters) *Combiner {
	return &Combiner{counters: counters}
}

// Reduce folds values into one record.
func (c *Combiner) Reduce(word string, values []*Occurrences) (*Occurrences, error) {
	start := time.Now()
	acc := Fold(values)
	c.counters.Inc(ExecutionTimeCombiner, time.Since(start).Milliseconds())
	return acc, nil
}

// Reducer merges every record produced for a word across all map workers.
type Reducer struct {
	counters *Counters
}

// NewReducer returns a Reducer counting into counters.
func NewReducer(counters *Counters) *Reducer {
	return &Reducer{counters: counters}
}

// Reduce folds values into the final record for word.
func (r *Reducer) Reduce(word string, values []*Occurrences) (*Occurrences, error) {
	start := time.Now()
	acc := Fold(values)
	r.counters.Inc(UniqueWords, 1)
	r.counters.Inc(ExecutionTimeReducer, time.Since(start).Milliseconds())
	return acc, nil
}

package index

import (
	"sync/atomic"
)

// Counter identifies one of the run statistics collected while indexing.
type Counter int

// Run counters. Execution times are in milliseconds.
const (
	TotalValidWords Counter = iota
	TotalValidWordLength
	UniqueWords
	TotalDocuments
	ExecutionTimeMapper
	ExecutionTimeReducer
	ExecutionTimeCombiner
	DocumentIDReadFailed
	SkippedWords

	numCounters
)

var counterNames = [numCounters]string{
	TotalValidWords:       "TOTAL_VALID_WORDS",
	TotalValidWordLength:  "TOTAL_VALID_WORD_LENGTH",
	UniqueWords:           "UNIQUE_WORDS",
	TotalDocuments:        "TOTAL_DOCUMENTS",
	ExecutionTimeMapper:   "EXECUTION_TIME_MAPPER",
	ExecutionTimeReducer:  "EXECUTION_TIME_REDUCER",
	ExecutionTimeCombiner: "EXECUTION_TIME_COMBINER",
	DocumentIDReadFailed:  "DOCUMENT_ID_READ_FAILED",
	SkippedWords:          "SKIPED_WORDS",
}

var counterHelp = [numCounters]string{
	TotalValidWords:       "Words emitted into the index.",
	TotalValidWordLength:  "Sum of the lengths of the words emitted into the index.",
	UniqueWords:           "Distinct words reduced.",
	TotalDocuments:        "Document records read.",
	ExecutionTimeMapper:   "Milliseconds spent mapping records.",
	ExecutionTimeReducer:  "Milliseconds spent reducing words.",
	ExecutionTimeCombiner: "Milliseconds spent combining partial records.",
	DocumentIDReadFailed:  "Document records without a parseable id attribute.",
	SkippedWords:          "Tokens rejected for containing non-alphanumeric characters.",
}

// AllCounters lists every counter in report order.
func AllCounters() []Counter {
	all := make([]Counter, numCounters)
	for i := range all {
		all[i] = Counter(i)
	}
	return all
}

func (c Counter) String() string {
	if c < 0 || c >= numCounters {
		return "UNKNOWN"
	}
	return counterNames[c]
}

// Help returns a one-line description of c.
func (c Counter) Help() string {
	if c < 0 || c >= numCounters {
		return ""
	}
	return counterHelp[c]
}

// Counters is a set of monotonically increasing run statistics. It is safe
// for concurrent use. Totals from independent tasks are combined with Add.
type Counters struct {
	values [numCounters]int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Inc adds delta to counter c.
func (c *Counters) Inc(counter Counter, delta int64) {
	atomic.AddInt64(&c.values[counter], delta)
}

// Get returns the current value of counter c.
func (c *Counters) Get(counter Counter) int64 {
	return atomic.LoadInt64(&c.values[counter])
}

// Add adds every value of other into c.
func (c *Counters) Add(other *Counters) {
	for i := range c.values {
		c.Inc(Counter(i), other.Get(Counter(i)))
	}
}

// Snapshot returns the current values keyed by counter name.
func (c *Counters) Snapshot() map[string]int64 {
	snap := make(map[string]int64, numCounters)
	for _, counter := range AllCounters() {
		snap[counter.String()] = c.Get(counter)
	}
	return snap
}

package index

import (
	"time"
)

// Emitter receives the (word, record) pairs produced by a Mapper or Reducer.
type Emitter interface {
	Emit(word string, value *Occurrences) error
}

// Mapper turns document records into single-occurrence records keyed by
// word. A Mapper is owned by one worker and must not be shared.
type Mapper struct {
	tokenizer *Tokenizer
	counters  *Counters
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithSkipUnidentified makes the Mapper drop records whose header has no
// parseable id instead of indexing them under UnknownDocument.
func WithSkipUnidentified(skip bool) MapperOption {
	return func(m *Mapper) {
		m.tokenizer.skipUnidentified = skip
	}
}

// NewMapper returns a Mapper filtering stopWords and counting into counters.
func NewMapper(stopWords StopWords, counters *Counters, options ...MapperOption) *Mapper {
	m := &Mapper{
		tokenizer: NewTokenizer(stopWords, counters),
		counters:  counters,
	}
	for _, f := range options {
		f(m)
	}
	return m
}

// Map emits one record per occurrence found in record.
func (m *Mapper) Map(record string, emitter Emitter) error {
	start := time.Now()
	defer func() {
		m.counters.Inc(ExecutionTimeMapper, time.Since(start).Milliseconds())
	}()

	found, err := m.tokenizer.Tokenize(record, func(occ Occurrence) error {
		m.counters.Inc(TotalValidWords, 1)
		m.counters.Inc(TotalValidWordLength, int64(len(occ.Word)))
		return emitter.Emit(occ.Word, SingleOccurrence(occ.Document, occ.Sentence, occ.Position))
	})
	if found {
		m.counters.Inc(TotalDocuments, 1)
	}
	return err
}

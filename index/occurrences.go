package index

import (
	"sort"
)

// UnknownDocument is the document id used for records whose header carries
// no parseable id attribute.
const UnknownDocument int64 = -1

// Positions is the de-duplicated set of token offsets of a word within one
// sentence.
type Positions map[int64]struct{}

// Sentences maps a sentence ordinal to the positions of a word in it.
type Sentences map[int64]Positions

// Occurrences is the accumulated posting data of a single word: every
// (document, sentence, position) it was seen at, plus a running count of the
// raw occurrences folded into it.
//
// The count is carried independently of the nested structure: merging adds
// the operand's count even when its positions are already present.
type Occurrences struct {
	count     int64
	documents map[int64]Sentences
}

// NewOccurrences returns an empty record with a zero count.
func NewOccurrences() *Occurrences {
	return &Occurrences{documents: make(map[int64]Sentences)}
}

// SingleOccurrence returns a record holding exactly one occurrence.
func SingleOccurrence(document, sentence, position int64) *Occurrences {
	o := NewOccurrences()
	o.documents[document] = Sentences{
		sentence: Positions{position: {}},
	}
	o.count = 1
	return o
}

// Count returns the number of raw occurrences folded into o.
func (o *Occurrences) Count() int64 {
	return o.count
}

// Reset clears o back to an empty record so it can accumulate a new key.
func (o *Occurrences) Reset() {
	o.count = 0
	o.documents = make(map[int64]Sentences)
}

// Merge folds other into o. other is never modified and shares no memory
// with o afterwards.
func (o *Occurrences) Merge(other *Occurrences) {
	o.count += other.count
	for docID, otherSentences := range other.documents {
		sentences, ok := o.documents[docID]
		if !ok {
			o.documents[docID] = otherSentences.clone()
			continue
		}
		for sentenceID, otherPositions := range otherSentences {
			positions, ok := sentences[sentenceID]
			if !ok {
				sentences[sentenceID] = otherPositions.clone()
				continue
			}
			for pos := range otherPositions {
				positions[pos] = struct{}{}
			}
		}
	}
}

// Clone returns a deep copy of o.
func (o *Occurrences) Clone() *Occurrences {
	c := NewOccurrences()
	c.Merge(o)
	return c
}

// Add records a single occurrence in o and increments its count.
func (o *Occurrences) Add(document, sentence, position int64) {
	o.Merge(SingleOccurrence(document, sentence, position))
}

// Documents returns the ids of every document the word occurs in, ascending.
func (o *Occurrences) Documents() []int64 {
	ids := make([]int64, 0, len(o.documents))
	for id := range o.documents {
		ids = append(ids, id)
	}
	sortInt64s(ids)
	return ids
}

// Sentences returns the ordinals of the sentences of document that contain
// the word, ascending.
func (o *Occurrences) Sentences(document int64) []int64 {
	sentences := o.documents[document]
	ids := make([]int64, 0, len(sentences))
	for id := range sentences {
		ids = append(ids, id)
	}
	sortInt64s(ids)
	return ids
}

// Positions returns the offsets of the word within one sentence, ascending.
func (o *Occurrences) Positions(document, sentence int64) []int64 {
	positions := o.documents[document][sentence]
	out := make([]int64, 0, len(positions))
	for pos := range positions {
		out = append(out, pos)
	}
	sortInt64s(out)
	return out
}

// Equal reports whether o and other hold the same count and the same nested
// occurrences.
func (o *Occurrences) Equal(other *Occurrences) bool {
	if o.count != other.count || len(o.documents) != len(other.documents) {
		return false
	}
	for docID, sentences := range o.documents {
		otherSentences, ok := other.documents[docID]
		if !ok || len(sentences) != len(otherSentences) {
			return false
		}
		for sentenceID, positions := range sentences {
			otherPositions, ok := otherSentences[sentenceID]
			if !ok || len(positions) != len(otherPositions) {
				return false
			}
			for pos := range positions {
				if _, ok := otherPositions[pos]; !ok {
					return false
				}
			}
		}
	}
	return true
}

func (s Sentences) clone() Sentences {
	c := make(Sentences, len(s))
	for id, positions := range s {
		c[id] = positions.clone()
	}
	return c
}

func (p Positions) clone() Positions {
	c := make(Positions, len(p))
	for pos := range p {
		c[pos] = struct{}{}
	}
	return c
}

func sortInt64s(s []int64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

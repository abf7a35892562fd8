package index

import (
	"math/rand"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
)

// newFuzzer draws ids and positions from a small range so that fuzzed
// records overlap and merges exercise the union paths.
func newFuzzer(seed int64) *fuzz.Fuzzer {
	return fuzz.New().
		RandSource(rand.NewSource(seed)).
		NilChance(0).
		NumElements(0, 4).
		Funcs(func(i *int64, c fuzz.Continue) {
			*i = int64(c.Intn(5))
		})
}

func fuzzOccurrences(f *fuzz.Fuzzer) *Occurrences {
	var docs map[int64]map[int64][]int64
	var count uint8
	f.Fuzz(&docs)
	f.Fuzz(&count)

	o := NewOccurrences()
	for docID, sentences := range docs {
		s := make(Sentences, len(sentences))
		for sentenceID, positions := range sentences {
			p := make(Positions, len(positions))
			for _, pos := range positions {
				p[pos] = struct{}{}
			}
			s[sentenceID] = p
		}
		o.documents[docID] = s
	}
	o.count = int64(count)
	return o
}

func merged(values ...*Occurrences) *Occurrences {
	acc := NewOccurrences()
	for _, v := range values {
		acc.Merge(v)
	}
	return acc
}

func TestSingleOccurrence(t *testing.T) {
	o := SingleOccurrence(7, 2, 12)

	assert.Equal(t, int64(1), o.Count())
	assert.Equal(t, []int64{7}, o.Documents())
	assert.Equal(t, []int64{2}, o.Sentences(7))
	assert.Equal(t, []int64{12}, o.Positions(7, 2))
}

func TestMerge(t *testing.T) {
	a := SingleOccurrence(1, 0, 4)
	a.Add(1, 1, 0)
	b := SingleOccurrence(1, 0, 8)
	b.Add(2, 3, 5)
	b.Add(1, 0, 4)

	a.Merge(b)

	assert.Equal(t, int64(5), a.Count())
	assert.Equal(t, []int64{1, 2}, a.Documents())
	assert.Equal(t, []int64{0, 1}, a.Sentences(1))
	assert.Equal(t, []int64{4, 8}, a.Positions(1, 0))
	assert.Equal(t, []int64{0}, a.Positions(1, 1))
	assert.Equal(t, []int64{5}, a.Positions(2, 3))
}

func TestMergeDoesNotAliasOperand(t *testing.T) {
	a := NewOccurrences()
	b := SingleOccurrence(1, 0, 4)
	before := b.Clone()

	a.Merge(b)
	a.Add(1, 0, 9)
	a.Add(1, 5, 1)

	assert.True(t, b.Equal(before))
	assert.Equal(t, []int64{4}, b.Positions(1, 0))
}

func TestMergeCommutativeAssociative(t *testing.T) {
	f := newFuzzer(42)
	for i := 0; i < 200; i++ {
		a, b, c := fuzzOccurrences(f), fuzzOccurrences(f), fuzzOccurrences(f)
		origA, origB, origC := a.Clone(), b.Clone(), c.Clone()

		abc := merged(a, b, c)
		bca := merged(b, c, a)
		left := a.Clone()
		cb := c.Clone()
		cb.Merge(b)
		left.Merge(cb)

		assert.True(t, abc.Equal(bca), "a.b.c != b.c.a: %s vs %s", abc, bca)
		assert.True(t, abc.Equal(left), "a.b.c != a.(c.b): %s vs %s", abc, left)
		assert.Equal(t, a.Count()+b.Count()+c.Count(), abc.Count())

		assert.True(t, a.Equal(origA))
		assert.True(t, b.Equal(origB))
		assert.True(t, c.Equal(origC))
	}
}

func TestMergeCountIsIndependentOfContent(t *testing.T) {
	a := SingleOccurrence(1, 0, 4)
	b := SingleOccurrence(1, 0, 4)

	a.Merge(b)

	assert.Equal(t, int64(2), a.Count())
	assert.Equal(t, []int64{4}, a.Positions(1, 0))
}

func TestReset(t *testing.T) {
	o := SingleOccurrence(1, 0, 4)
	o.Reset()

	assert.True(t, o.Equal(NewOccurrences()))
	assert.Empty(t, o.Documents())
	assert.Equal(t, int64(0), o.Count())
}

func TestEqual(t *testing.T) {
	var equalTests = []struct {
		a, b     *Occurrences
		expected bool
	}{
		{NewOccurrences(), NewOccurrences(), true},
		{SingleOccurrence(1, 2, 3), SingleOccurrence(1, 2, 3), true},
		{SingleOccurrence(1, 2, 3), SingleOccurrence(1, 2, 4), false},
		{SingleOccurrence(1, 2, 3), SingleOccurrence(1, 3, 3), false},
		{SingleOccurrence(1, 2, 3), SingleOccurrence(2, 2, 3), false},
		{SingleOccurrence(1, 2, 3), merged(SingleOccurrence(1, 2, 3), SingleOccurrence(1, 2, 3)), false},
	}

	for _, test := range equalTests {
		assert.Equal(t, test.expected, test.a.Equal(test.b), "%s vs %s", test.a, test.b)
		assert.Equal(t, test.expected, test.b.Equal(test.a), "%s vs %s", test.b, test.a)
	}
}

package index

import (
	"sort"
	"strings"
)

// MaxWordLength is the word length above which Partition stops
// distinguishing words.
const MaxWordLength = 15

// Compare orders words longest first, breaking ties lexicographically. It
// returns a negative number when a sorts before b, zero when a == b and a
// positive number otherwise.
func Compare(a, b string) int {
	switch {
	case len(a) > len(b):
		return -1
	case len(a) < len(b):
		return 1
	}
	return strings.Compare(a, b)
}

// SortWords sorts words in Compare order.
func SortWords(words []string) {
	sort.Slice(words, func(i, j int) bool {
		return Compare(words[i], words[j]) < 0
	})
}

// Partition assigns word to one of numShards shards by length. Long words go
// to low shards and short words to high shards, so the frequent short words
// do not share a reducer with the long tail. Words longer than
// MaxWordLength are treated as MaxWordLength.
func Partition(word string, numShards int) int {
	if numShards <= 1 {
		return 0
	}
	length := len(word)
	if length > MaxWordLength {
		length = MaxWordLength
	}
	width := (MaxWordLength-1)/numShards + 1
	bucket := (length - 1) / width
	if bucket < 0 {
		bucket = 0
	}
	if bucket > numShards-1 {
		bucket = numShards - 1
	}
	return numShards - 1 - bucket
}

package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	var compareTests = []struct {
		a, b     string
		expected int
	}{
		{"apple", "fig", -1},
		{"fig", "apple", 1},
		{"zzzz", "aaa", -1},
		{"abc", "abd", -1},
		{"abd", "abc", 1},
		{"abc", "abc", 0},
		{"", "a", 1},
		{"Zebra", "apple", -1},
	}

	for _, test := range compareTests {
		res := Compare(test.a, test.b)
		switch {
		case test.expected < 0:
			assert.True(t, res < 0, "%q vs %q", test.a, test.b)
		case test.expected > 0:
			assert.True(t, res > 0, "%q vs %q", test.a, test.b)
		default:
			assert.Equal(t, 0, res, "%q vs %q", test.a, test.b)
		}
	}
}

func TestCompareIsStrictTotalOrder(t *testing.T) {
	words := []string{"", "a", "b", "ab", "ba", "abc", "zz", "data", "Data", "longestword", "x1", "1x"}
	for _, a := range words {
		for _, b := range words {
			ab, ba := Compare(a, b), Compare(b, a)
			if a == b {
				assert.Equal(t, 0, ab)
				continue
			}
			assert.NotEqual(t, 0, ab, "%q vs %q", a, b)
			assert.True(t, (ab < 0) != (ba < 0), "%q vs %q", a, b)
			if len(a) > len(b) {
				assert.True(t, ab < 0, "%q should precede %q", a, b)
			}
		}
	}
}

func TestSortWords(t *testing.T) {
	words := []string{"cat", "a", "zebra", "dog", "be", "apple"}
	SortWords(words)
	assert.Equal(t, []string{"apple", "zebra", "cat", "dog", "be", "a"}, words)
}

func TestPartition(t *testing.T) {
	var partitionTests = []struct {
		wordLen   int
		numShards int
		expected  int
	}{
		{0, 3, 2},
		{1, 3, 2},
		{5, 3, 2},
		{6, 3, 1},
		{10, 3, 1},
		{11, 3, 0},
		{15, 3, 0},
		{40, 3, 0},
		{7, 1, 0},
		{0, 20, 19},
		{1, 20, 19},
		{15, 20, 5},
		{30, 20, 5},
	}

	for _, test := range partitionTests {
		word := strings.Repeat("a", test.wordLen)
		assert.Equal(t, test.expected, Partition(word, test.numShards), "len %d, %d shards", test.wordLen, test.numShards)
	}
}

func TestPartitionRange(t *testing.T) {
	for numShards := 1; numShards <= 32; numShards++ {
		prev := numShards - 1
		for wordLen := 0; wordLen <= 64; wordLen++ {
			word := strings.Repeat("w", wordLen)
			shard := Partition(word, numShards)
			assert.True(t, shard >= 0 && shard < numShards, "len %d, %d shards: %d", wordLen, numShards, shard)
			assert.Equal(t, shard, Partition(word, numShards))
			// Longer words never land on a higher shard
			assert.True(t, shard <= prev)
			prev = shard
		}
	}
}

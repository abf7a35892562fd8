package invindex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"testing"

	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcongdon/invindex/index"
	"github.com/bcongdon/invindex/internal/pkg/corfs"
)

type testWriteCloser struct {
	*bytes.Buffer
	closed bool
}

func (t *testWriteCloser) Close() error {
	t.closed = true
	return nil
}

func TestHashPartition(t *testing.T) {
	for _, key := range []string{"", "foo", "data", "supercalifragilistic"} {
		bin := hashPartition(key, 100)
		assert.Equal(t, uint(murmur3.Sum32([]byte(key))%100), bin)
		assert.Equal(t, bin, hashPartition(key, 100))
	}
}

func TestLengthPartition(t *testing.T) {
	assert.Equal(t, uint(2), lengthPartition("key1", 3))
	assert.Equal(t, uint(1), lengthPartition("key123", 3))
	assert.Equal(t, uint(0), lengthPartition("abcdefghijk", 3))
	assert.Equal(t, uint(0), lengthPartition("anything", 1))
}

func TestPartitionFuncByName(t *testing.T) {
	for _, name := range []string{"", "length", "hash"} {
		f, err := partitionFuncByName(name)
		assert.Nil(t, err)
		assert.NotNil(t, f)
	}

	_, err := partitionFuncByName("random")
	assert.NotNil(t, err)
}

func TestReducerEmitter(t *testing.T) {
	writer := &testWriteCloser{Buffer: new(bytes.Buffer)}
	emitter := newReducerEmitter(writer)

	value := index.NewOccurrences()
	value.Add(1, 0, 4)
	value.Add(2, 0, 0)
	err := emitter.Emit("data", value)
	assert.Nil(t, err)

	expected := "data\t2\n\t1\n\t\t0 4\n\t2\n\t\t0 0\n"
	assert.Equal(t, expected, writer.String())
	assert.Equal(t, int64(len(expected)), emitter.bytesWritten())

	err = emitter.close()
	assert.Nil(t, err)
	assert.True(t, writer.closed)
}

func TestReducerEmitterThreadSafety(t *testing.T) {
	writer := &testWriteCloser{Buffer: new(bytes.Buffer)}
	emitter := newReducerEmitter(writer)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			err := emitter.Emit(fmt.Sprint(key), index.SingleOccurrence(int64(key), 0, 0))
			assert.Nil(t, err)
		}(i)
	}
	wg.Wait()

	written, err := ioutil.ReadAll(writer)
	assert.Nil(t, err)

	for i := 0; i < 10; i++ {
		assert.Contains(t, string(written), fmt.Sprintf("%d\t1\n\t%d\n\t\t0 0\n", i, i))
	}

	err = emitter.close()
	assert.Nil(t, err)
}

type mockFs struct {
	writers map[string]*testWriteCloser
}

func (m *mockFs) ListFiles(string) ([]corfs.FileInfo, error) {
	return []corfs.FileInfo{}, nil
}

func (m *mockFs) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	if w, ok := m.writers[filePath]; ok {
		return ioutil.NopCloser(bytes.NewReader(w.Bytes()[startAt:])), nil
	}
	return nil, errors.New("no such file")
}

func (m *mockFs) OpenWriter(filePath string) (io.WriteCloser, error) {
	if _, ok := m.writers[filePath]; !ok {
		buf := new(bytes.Buffer)
		m.writers[filePath] = &testWriteCloser{Buffer: buf}
	}
	return m.writers[filePath], nil
}

func (m *mockFs) Stat(filePath string) (corfs.FileInfo, error) {
	return corfs.FileInfo{
		Name: filePath,
		Size: 0,
	}, nil
}

func (m *mockFs) Init() error { return nil }

func (m *mockFs) Join(e ...string) string { return strings.Join(e, "/") }

func (m *mockFs) Delete(string) error { return nil }

type shuffleEntry struct {
	key   string
	value *index.Occurrences
}

func readShuffle(t *testing.T, data []byte) []shuffleEntry {
	t.Helper()
	entries := make([]shuffleEntry, 0)
	reader := newShuffleReader(bytes.NewReader(data))
	for {
		key, value, err := reader.next()
		if err == io.EOF {
			return entries
		}
		require.Nil(t, err)
		entries = append(entries, shuffleEntry{key, value})
	}
}

func TestMapperEmitter(t *testing.T) {
	mFs := &mockFs{writers: make(map[string]*testWriteCloser)}
	var fs corfs.FileSystem = mFs
	emitter := newMapperEmitter(3, 0, "out", fs, nil)

	err := emitter.Emit("key1", index.SingleOccurrence(1, 0, 0))
	assert.Nil(t, err)

	err = emitter.Emit("key123", index.SingleOccurrence(1, 0, 5))
	assert.Nil(t, err)

	err = emitter.Emit("abcdefghijk", index.SingleOccurrence(2, 3, 7))
	assert.Nil(t, err)

	assert.Nil(t, emitter.close())
	assert.Len(t, mFs.writers, 3)

	var total int64
	for path, expected := range map[string]shuffleEntry{
		"out/map-bin0-0.out": {"abcdefghijk", index.SingleOccurrence(2, 3, 7)},
		"out/map-bin1-0.out": {"key123", index.SingleOccurrence(1, 0, 5)},
		"out/map-bin2-0.out": {"key1", index.SingleOccurrence(1, 0, 0)},
	} {
		writer := mFs.writers[path]
		require.NotNil(t, writer, path)
		assert.True(t, writer.closed)
		total += int64(writer.Len())

		entries := readShuffle(t, writer.Bytes())
		require.Len(t, entries, 1)
		assert.Equal(t, expected.key, entries[0].key)
		assert.True(t, expected.value.Equal(entries[0].value))
	}
	assert.Equal(t, total, emitter.bytesWritten())
}

func TestMapperEmitterCustomPartition(t *testing.T) {
	mFs := &mockFs{writers: make(map[string]*testWriteCloser)}
	var fs corfs.FileSystem = mFs
	emitter := newMapperEmitter(3, 4, "out", fs, func(key string, numBuckets uint) uint {
		if strings.HasPrefix(key, "a") {
			return 0
		}
		return numBuckets - 1
	})

	assert.Nil(t, emitter.Emit("a", index.SingleOccurrence(1, 0, 0)))
	assert.Nil(t, emitter.Emit("a", index.SingleOccurrence(1, 0, 2)))
	assert.Nil(t, emitter.Emit("b", index.SingleOccurrence(1, 0, 4)))
	assert.Nil(t, emitter.close())

	assert.Len(t, mFs.writers, 2)

	entries := readShuffle(t, mFs.writers["out/map-bin0-4.out"].Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].key)
	assert.Equal(t, []int64{0}, entries[0].value.Positions(1, 0))
	assert.Equal(t, "a", entries[1].key)
	assert.Equal(t, []int64{2}, entries[1].value.Positions(1, 0))

	entries = readShuffle(t, mFs.writers["out/map-bin2-4.out"].Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].key)
}

// recordingEmitter keeps every emitted pair in memory.
type recordingEmitter struct {
	emitted map[string][]*index.Occurrences
	closed  bool
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{emitted: make(map[string][]*index.Occurrences)}
}

func (r *recordingEmitter) Emit(key string, value *index.Occurrences) error {
	r.emitted[key] = append(r.emitted[key], value)
	return nil
}

func (r *recordingEmitter) close() error {
	r.closed = true
	return nil
}

func (r *recordingEmitter) bytesWritten() int64 { return 0 }

func TestCombiningEmitter(t *testing.T) {
	next := newRecordingEmitter()
	counters := index.NewCounters()
	emitter, err := newCombiningEmitter(10, index.NewCombiner(counters), next)
	require.Nil(t, err)

	for pos := int64(0); pos < 5; pos++ {
		assert.Nil(t, emitter.Emit("cat", index.SingleOccurrence(7, 0, pos)))
	}
	assert.Nil(t, emitter.Emit("sat", index.SingleOccurrence(7, 1, 0)))
	assert.Empty(t, next.emitted)

	assert.Nil(t, emitter.close())
	assert.True(t, next.closed)

	require.Len(t, next.emitted["cat"], 1)
	cat := next.emitted["cat"][0]
	assert.Equal(t, int64(5), cat.Count())
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, cat.Positions(7, 0))

	require.Len(t, next.emitted["sat"], 1)
	assert.Equal(t, int64(1), next.emitted["sat"][0].Count())
}

func TestCombiningEmitterEviction(t *testing.T) {
	next := newRecordingEmitter()
	emitter, err := newCombiningEmitter(2, index.NewCombiner(index.NewCounters()), next)
	require.Nil(t, err)

	assert.Nil(t, emitter.Emit("a", index.SingleOccurrence(1, 0, 0)))
	assert.Nil(t, emitter.Emit("b", index.SingleOccurrence(1, 0, 1)))
	assert.Nil(t, emitter.Emit("c", index.SingleOccurrence(1, 0, 2)))

	// "a" is the least recently used key
	assert.Len(t, next.emitted["a"], 1)
	assert.Empty(t, next.emitted["b"])

	assert.Nil(t, emitter.Emit("a", index.SingleOccurrence(1, 0, 3)))
	assert.Nil(t, emitter.close())

	// Evicted keys may reach the shuffle more than once; the reducer merges them
	merged := index.Fold(next.emitted["a"])
	assert.Equal(t, int64(2), merged.Count())
	assert.Equal(t, []int64{0, 3}, merged.Positions(1, 0))
	assert.Len(t, next.emitted["b"], 1)
	assert.Len(t, next.emitted["c"], 1)
}

func TestCombiningEmitterBatches(t *testing.T) {
	next := newRecordingEmitter()
	emitter, err := newCombiningEmitter(10, index.NewCombiner(index.NewCounters()), next)
	require.Nil(t, err)

	for pos := int64(0); pos < 3*combineBatchSize; pos++ {
		assert.Nil(t, emitter.Emit("word", index.SingleOccurrence(1, pos%2, pos)))
	}
	assert.Nil(t, emitter.close())

	require.Len(t, next.emitted["word"], 1)
	assert.Equal(t, int64(3*combineBatchSize), next.emitted["word"][0].Count())
}

type failingCombiner struct{}

func (failingCombiner) Reduce(string, []*index.Occurrences) (*index.Occurrences, error) {
	return nil, errors.New("combine failed")
}

func TestCombiningEmitterError(t *testing.T) {
	next := newRecordingEmitter()
	emitter, err := newCombiningEmitter(1, failingCombiner{}, next)
	require.Nil(t, err)

	assert.Nil(t, emitter.Emit("a", index.SingleOccurrence(1, 0, 0)))
	assert.NotNil(t, emitter.Emit("b", index.SingleOccurrence(1, 0, 1)))
	assert.NotNil(t, emitter.close())
	assert.True(t, next.closed)
}

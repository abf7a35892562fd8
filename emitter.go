package invindex

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spaolacci/murmur3"

	"github.com/bcongdon/invindex/index"
	"github.com/bcongdon/invindex/internal/pkg/corfs"
)

// combineBatchSize is the number of buffered values for one key that
// triggers an early combine.
const combineBatchSize = 64

// Emitter enables mappers and reducers to yield key-value pairs.
type Emitter interface {
	index.Emitter
	close() error
	bytesWritten() int64
}

// PartitionFunc assigns a key to one of numBins shuffle bins.
type PartitionFunc func(key string, numBins uint) uint

// lengthPartition routes keys by word length.
func lengthPartition(key string, numBins uint) uint {
	return uint(index.Partition(key, int(numBins)))
}

// hashPartition partitions a key to one of numBins shuffle bins
func hashPartition(key string, numBins uint) uint {
	return uint(murmur3.Sum32([]byte(key)) % uint32(numBins))
}

func partitionFuncByName(name string) (PartitionFunc, error) {
	switch name {
	case "length", "":
		return lengthPartition, nil
	case "hash":
		return hashPartition, nil
	}
	return nil, fmt.Errorf("unknown partitioner %q", name)
}

// reducerEmitter is a threadsafe emitter writing the final report entries.
type reducerEmitter struct {
	writer       io.WriteCloser
	mut          *sync.Mutex
	writtenBytes int64
}

// newReducerEmitter initializes and returns a new reducerEmitter
func newReducerEmitter(writer io.WriteCloser) *reducerEmitter {
	return &reducerEmitter{
		writer: writer,
		mut:    &sync.Mutex{},
	}
}

// Emit writes a "word\trecord" entry.
func (e *reducerEmitter) Emit(key string, value *index.Occurrences) error {
	var sb strings.Builder
	sb.WriteString(key)
	sb.WriteByte('\t')
	value.Format(&sb)
	sb.WriteByte('\n')

	e.mut.Lock()
	defer e.mut.Unlock()

	n, err := io.WriteString(e.writer, sb.String())
	e.writtenBytes += int64(n)
	return err
}

// close terminates the reducerEmitter. close must not be called more than once
func (e *reducerEmitter) close() error {
	return e.writer.Close()
}

func (e *reducerEmitter) bytesWritten() int64 {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.writtenBytes
}

// binWriter buffers writes to one shuffle file.
type binWriter struct {
	*bufio.Writer
	file io.WriteCloser
}

func (b *binWriter) Close() error {
	if err := b.Flush(); err != nil {
		b.file.Close()
		return err
	}
	return b.file.Close()
}

// mapperEmitter is an emitter that partitions keys written to it.
// mapperEmitter maintains a map of writers. Keys are partitioned into one of numBins
// intermediate "shuffle" bins. Each bin is written as a separate file.
type mapperEmitter struct {
	numBins       uint                // number of intermediate shuffle bins
	writers       map[uint]*binWriter // maps a partition number to an open writer
	fs            corfs.FileSystem    // filesystem to use when opening writers
	mapperID      uint                // numeric identifier of the mapper using this emitter
	outDir        string              // folder to save map output to
	partitionFunc PartitionFunc       // PartitionFunc to use when partitioning map output keys into intermediate bins
	writtenBytes  int64               // counter for number of bytes written from emitted key/val pairs
	buf           []byte              // scratch space for encoding entries
}

// Initializes a new mapperEmitter
func newMapperEmitter(numBins uint, mapperID uint, outDir string, fs corfs.FileSystem, partitionFunc PartitionFunc) *mapperEmitter {
	if partitionFunc == nil {
		partitionFunc = lengthPartition
	}
	return &mapperEmitter{
		numBins:       numBins,
		writers:       make(map[uint]*binWriter, numBins),
		fs:            fs,
		mapperID:      mapperID,
		outDir:        outDir,
		partitionFunc: partitionFunc,
	}
}

func shuffleFileName(bin, mapperID uint) string {
	return fmt.Sprintf("map-bin%d-%d.out", bin, mapperID)
}

// Emit yields a key-value pair to the framework.
func (me *mapperEmitter) Emit(key string, value *index.Occurrences) error {
	bin := me.partitionFunc(key, me.numBins)

	// Open writer for the bin, if necessary
	writer, exists := me.writers[bin]
	if !exists {
		path := me.fs.Join(me.outDir, shuffleFileName(bin, me.mapperID))
		file, err := me.fs.OpenWriter(path)
		if err != nil {
			return err
		}
		writer = &binWriter{Writer: bufio.NewWriter(file), file: file}
		me.writers[bin] = writer
	}

	data, err := appendShuffleEntry(me.buf[:0], key, value)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	me.buf = data

	n, err := writer.Write(data)
	me.writtenBytes += int64(n)
	return err
}

// close terminates the mapperEmitter. Must not be called more than once
func (me *mapperEmitter) close() error {
	errs := make([]string, 0)
	for _, writer := range me.writers {
		err := writer.Close()
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}

	return nil
}

func (me *mapperEmitter) bytesWritten() int64 {
	return me.writtenBytes
}

// combineBuffer holds the not yet combined values of one key.
type combineBuffer struct {
	values []*index.Occurrences
}

// combiningEmitter pre-aggregates a map task's output. Values are buffered
// per key in a bounded LRU cache; when a key is evicted, or the emitter is
// closed, its values are folded by the combiner and the single result is
// passed on to next.
type combiningEmitter struct {
	cache    *lru.Cache
	combiner Reducer
	next     Emitter
	err      error
}

func newCombiningEmitter(size int, combiner Reducer, next Emitter) (*combiningEmitter, error) {
	c := &combiningEmitter{
		combiner: combiner,
		next:     next,
	}
	cache, err := lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Emit buffers value under key.
func (c *combiningEmitter) Emit(key string, value *index.Occurrences) error {
	if c.err != nil {
		return c.err
	}

	if cached, ok := c.cache.Get(key); ok {
		buf := cached.(*combineBuffer)
		buf.values = append(buf.values, value)
		if len(buf.values) >= combineBatchSize {
			combined, err := c.combiner.Reduce(key, buf.values)
			if err != nil {
				return err
			}
			buf.values = []*index.Occurrences{combined}
		}
		return nil
	}

	c.cache.Add(key, &combineBuffer{values: []*index.Occurrences{value}})
	return c.err
}

func (c *combiningEmitter) onEvict(key interface{}, value interface{}) {
	if c.err != nil {
		return
	}
	c.err = c.flush(key.(string), value.(*combineBuffer))
}

func (c *combiningEmitter) flush(key string, buf *combineBuffer) error {
	combined, err := c.combiner.Reduce(key, buf.values)
	if err != nil {
		return err
	}
	return c.next.Emit(key, combined)
}

// close flushes every buffered key and closes the downstream emitter.
func (c *combiningEmitter) close() error {
	c.cache.Purge()
	err := c.err
	if closeErr := c.next.close(); err == nil {
		err = closeErr
	}
	return err
}

func (c *combiningEmitter) bytesWritten() int64 {
	return c.next.bytesWritten()
}

package invindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/bcongdon/invindex/index"
	"github.com/bcongdon/invindex/internal/pkg/corfs"
)

// shuffleDirName is the folder below the output location holding map output
const shuffleDirName = "_shuffle"

// successFileName marks an output location holding a complete index
const successFileName = "_SUCCESS"

// Job is a single inverted-index build
type Job struct {
	config          *config
	fileSystem      corfs.FileSystem // filesystem holding shuffle and output data
	inputFileSystem corfs.FileSystem // filesystem holding input documents
	partition       PartitionFunc
	counters        *index.Counters

	bytesRead    int64
	bytesWritten int64
}

func newJob(c *config) (*Job, error) {
	partition, err := partitionFuncByName(c.Partitioner)
	if err != nil {
		return nil, err
	}

	outputFs, err := corfs.InferFilesystem(c.Output)
	if err != nil {
		return nil, fmt.Errorf("initializing output filesystem: %w", err)
	}
	inputType := corfs.InferFilesystemType(c.Inputs[0])
	for _, input := range c.Inputs[1:] {
		if t := corfs.InferFilesystemType(input); t != inputType {
			return nil, fmt.Errorf("inputs mix %s and %s filesystems (%s)", inputType, t, input)
		}
	}
	inputFs, err := corfs.InitFilesystem(inputType)
	if err != nil {
		return nil, fmt.Errorf("initializing input filesystem: %w", err)
	}

	return &Job{
		config:          c,
		fileSystem:      outputFs,
		inputFileSystem: inputFs,
		partition:       partition,
		counters:        index.NewCounters(),
	}, nil
}

func (j *Job) shuffleDir() string {
	return j.fileSystem.Join(j.config.Output, shuffleDirName)
}

func (j *Job) outputPath(binID uint) string {
	return j.fileSystem.Join(j.config.Output, fmt.Sprintf("output-part-%d", binID))
}

// markSuccess writes the empty marker file flagging the output as complete.
func (j *Job) markSuccess() error {
	writer, err := j.fileSystem.OpenWriter(j.fileSystem.Join(j.config.Output, successFileName))
	if err != nil {
		return fmt.Errorf("writing success marker: %w", err)
	}
	return writer.Close()
}

// loadStopWords reads the configured stop-word list. No configured list
// yields an empty set.
func (j *Job) loadStopWords() (index.StopWords, error) {
	if j.config.StopWords == "" {
		return index.StopWords{}, nil
	}

	fs, err := corfs.InferFilesystem(j.config.StopWords)
	if err != nil {
		return nil, err
	}
	reader, err := fs.OpenReader(j.config.StopWords, 0)
	if err != nil {
		return nil, fmt.Errorf("opening stop words %s: %w", j.config.StopWords, err)
	}
	defer reader.Close()

	stopWords, err := index.LoadStopWords(reader)
	if err != nil {
		return nil, fmt.Errorf("reading stop words %s: %w", j.config.StopWords, err)
	}
	return stopWords, nil
}

// runMapper runs the map phase for one bin of input splits. Map output is
// written to the shuffle folder, one file per shard.
func (j *Job) runMapper(mapperID uint, splits []inputSplit) error {
	stopWords, err := j.loadStopWords()
	if err != nil {
		return err
	}

	counters := index.NewCounters()
	mapper := index.NewMapper(stopWords, counters, index.WithSkipUnidentified(j.config.SkipUnidentified))

	var emitter Emitter = newMapperEmitter(j.config.Shards, mapperID, j.shuffleDir(), j.fileSystem, j.partition)
	if j.config.CombinerSize > 0 {
		emitter, err = newCombiningEmitter(j.config.CombinerSize, index.NewCombiner(counters), emitter)
		if err != nil {
			return err
		}
	}

	for _, split := range splits {
		if err := j.processMapperSplit(split, mapper, emitter); err != nil {
			emitter.close()
			return err
		}
	}

	if err := emitter.close(); err != nil {
		return err
	}

	atomic.AddInt64(&j.bytesWritten, emitter.bytesWritten())
	j.counters.Add(counters)
	return nil
}

// processMapperSplit maps every record that starts inside split. Reading
// begins one delimiter before the split so that a record starting exactly
// at StartOffset is recognized; the partial record found there belongs to
// the previous split and is skipped.
func (j *Job) processMapperSplit(split inputSplit, mapper Mapper, emitter Emitter) error {
	delim := []byte(j.config.RecordDelimiter)

	offset := split.StartOffset
	if offset > 0 {
		offset -= int64(len(delim))
		if offset < 0 {
			offset = 0
		}
	}

	reader, err := j.inputFileSystem.OpenReader(split.Filename, offset)
	if err != nil {
		return err
	}
	defer reader.Close()

	bufSize := bufio.MaxScanTokenSize
	if j.config.MaxRecordSize < bufSize {
		bufSize = j.config.MaxRecordSize
	}

	var consumed int64
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, bufSize), j.config.MaxRecordSize)
	scanner.Split(countingSplitFunc(recordSplitFunc(delim), &consumed))

	pos := offset
	for scanner.Scan() {
		recordStart := pos
		pos = offset + consumed

		if recordStart < split.StartOffset {
			continue
		}
		if recordStart > split.EndOffset {
			break
		}

		if err := mapper.Map(scanner.Text(), emitter); err != nil {
			return fmt.Errorf("%s@%d: %w", split.Filename, recordStart, err)
		}
	}
	atomic.AddInt64(&j.bytesRead, consumed)

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", split.Filename, err)
	}
	return nil
}

// runReducer merges the shuffle files of shard binID and writes its part of
// the index, ordered by index.Compare.
func (j *Job) runReducer(binID uint) error {
	pattern := j.fileSystem.Join(j.shuffleDir(), fmt.Sprintf("map-bin%d-*.out", binID))
	files, err := j.fileSystem.ListFiles(pattern)
	if err != nil {
		return err
	}

	values := make(map[string][]*index.Occurrences)
	for _, file := range files {
		log.Debugf("Reducing on intermediate file: %s", file.Name)
		if err := j.readShuffleFile(file.Name, values); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	index.SortWords(keys)

	writer, err := j.fileSystem.OpenWriter(j.outputPath(binID))
	if err != nil {
		return err
	}
	emitter := newReducerEmitter(writer)

	counters := index.NewCounters()
	var reducer Reducer = index.NewReducer(counters)
	for _, key := range keys {
		result, err := reducer.Reduce(key, values[key])
		if err != nil {
			emitter.close()
			return fmt.Errorf("reducing %q: %w", key, err)
		}
		if err := emitter.Emit(key, result); err != nil {
			emitter.close()
			return err
		}
		delete(values, key)
	}

	if err := emitter.close(); err != nil {
		return err
	}

	atomic.AddInt64(&j.bytesWritten, emitter.bytesWritten())
	j.counters.Add(counters)
	return nil
}

func (j *Job) readShuffleFile(name string, values map[string][]*index.Occurrences) error {
	reader, err := j.fileSystem.OpenReader(name, 0)
	if err != nil {
		return err
	}
	defer reader.Close()

	shuffle := newShuffleReader(reader)
	for {
		key, value, err := shuffle.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		values[key] = append(values[key], value)
	}
}

// inputSplits calculates all input files' inputSplits.
// inputSplits also determines and saves the number of input bytes.
func (j *Job) inputSplits(inputs []string, maxSplitSize int64) ([]inputSplit, error) {
	files := make([]corfs.FileInfo, 0)
	for _, inputPath := range inputs {
		fileInfos, err := j.inputFileSystem.ListFiles(inputPath)
		if err != nil {
			return nil, fmt.Errorf("listing input %s: %w", inputPath, err)
		}
		if len(fileInfos) == 0 {
			if !strings.ContainsAny(inputPath, "*?[") {
				return nil, fmt.Errorf("input %s: %w", inputPath, os.ErrNotExist)
			}
			log.Warnf("No input files match %s", inputPath)
		}
		files = append(files, fileInfos...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files match %v", inputs)
	}

	splits := make([]inputSplit, 0)
	var totalSize int64
	for _, inputFile := range files {
		totalSize += inputFile.Size
		splits = append(splits, splitInputFile(inputFile, maxSplitSize)...)
	}
	log.Debugf("Found %d input files (%d bytes)", len(files), totalSize)
	return splits, nil
}

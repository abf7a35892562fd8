package invindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// Driver controls the execution of an indexing Job
type Driver struct {
	config   *config
	executor executor
}

// config configures a Driver's execution of jobs
type config struct {
	Inputs           []string
	Output           string
	Shards           uint
	StopWords        string
	RecordDelimiter  string
	Partitioner      string
	SplitSize        int64
	MapBinSize       int64
	MaxRecordSize    int
	MaxConcurrency   int
	CombinerSize     int
	SkipUnidentified bool
	Cleanup          bool
	Progress         bool
	PushgatewayURL   string
	MemProfile       string
}

// configKeys lists the viper keys read into a config
var configKeys = []string{
	"out", "shards", "stop_words", "record_delimiter", "partitioner",
	"split_size", "map_bin_size", "max_record_size", "max_concurrency",
	"combiner_size", "skip_unidentified", "cleanup", "progress",
	"pushgateway_url", "memprofile",
}

func newConfig() *config {
	loadConfig() // Load viper config from settings file(s) and environment
	c := &config{Inputs: []string{}}
	for _, key := range configKeys {
		c.load(key)
	}
	return c
}

// load reads the current viper value of key into c
func (c *config) load(key string) {
	switch key {
	case "out":
		c.Output = viper.GetString(key)
	case "shards":
		c.Shards = viper.GetUint(key)
	case "stop_words":
		c.StopWords = viper.GetString(key)
	case "record_delimiter":
		c.RecordDelimiter = viper.GetString(key)
	case "partitioner":
		c.Partitioner = viper.GetString(key)
	case "split_size":
		c.SplitSize = viper.GetInt64(key)
	case "map_bin_size":
		c.MapBinSize = viper.GetInt64(key)
	case "max_record_size":
		c.MaxRecordSize = viper.GetInt(key)
	case "max_concurrency":
		c.MaxConcurrency = viper.GetInt(key)
	case "combiner_size":
		c.CombinerSize = viper.GetInt(key)
	case "skip_unidentified":
		c.SkipUnidentified = viper.GetBool(key)
	case "cleanup":
		c.Cleanup = viper.GetBool(key)
	case "progress":
		c.Progress = viper.GetBool(key)
	case "pushgateway_url":
		c.PushgatewayURL = viper.GetString(key)
	case "memprofile":
		c.MemProfile = viper.GetString(key)
	}
}

func (c *config) validate() error {
	switch {
	case len(c.Inputs) == 0:
		return errors.New("no inputs")
	case c.Shards == 0:
		return errors.New("shards must be positive")
	case c.RecordDelimiter == "":
		return errors.New("record delimiter must not be empty")
	case c.Output == "" || c.Output == "." || c.Output == "/":
		return fmt.Errorf("refusing to use %q as output location", c.Output)
	case c.SplitSize <= 0 || c.MapBinSize <= 0:
		return errors.New("split and bin sizes must be positive")
	case c.MaxConcurrency <= 0:
		return errors.New("max concurrency must be positive")
	case c.MaxRecordSize <= 0:
		return errors.New("max record size must be positive")
	}
	return nil
}

// Option allows configuration of a Driver
type Option func(*config)

// NewDriver creates a new Driver with optional configuration
func NewDriver(options ...Option) *Driver {
	d := &Driver{
		executor: localExecutor{},
	}

	c := newConfig()
	for _, f := range options {
		f(c)
	}

	d.config = c
	log.Debugf("Loaded config: %#v", c)

	return d
}

// WithInputs adds input locations. Each may be a file, a directory or a glob.
func WithInputs(inputs ...string) Option {
	return func(c *config) {
		c.Inputs = append(c.Inputs, inputs...)
	}
}

// WithOutput sets the output location of the Driver
func WithOutput(location string) Option {
	return func(c *config) {
		c.Output = location
	}
}

// WithShards sets the number of reduce shards
func WithShards(n uint) Option {
	return func(c *config) {
		c.Shards = n
	}
}

// WithStopWords sets the location of the stop-word list. An empty location
// disables stop-word filtering.
func WithStopWords(location string) Option {
	return func(c *config) {
		c.StopWords = location
	}
}

// WithRecordDelimiter sets the string terminating each document record
func WithRecordDelimiter(delim string) Option {
	return func(c *config) {
		c.RecordDelimiter = delim
	}
}

// WithPartitioner selects the shard partitioner ("length" or "hash")
func WithPartitioner(name string) Option {
	return func(c *config) {
		c.Partitioner = name
	}
}

// WithSplitSize sets the SplitSize of the Driver
func WithSplitSize(s int64) Option {
	return func(c *config) {
		c.SplitSize = s
	}
}

// WithMapBinSize sets the MapBinSize of the Driver
func WithMapBinSize(s int64) Option {
	return func(c *config) {
		c.MapBinSize = s
	}
}

// WithMaxConcurrency bounds the number of tasks run at once
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.MaxConcurrency = n
	}
}

// WithCombinerSize sets the number of words buffered by each map task's
// combiner. Zero disables combining.
func WithCombinerSize(n int) Option {
	return func(c *config) {
		c.CombinerSize = n
	}
}

// WithSkipUnidentified drops records without a parseable document id
func WithSkipUnidentified(skip bool) Option {
	return func(c *config) {
		c.SkipUnidentified = skip
	}
}

// WithCleanup controls removal of shuffle files after a successful run
func WithCleanup(cleanup bool) Option {
	return func(c *config) {
		c.Cleanup = cleanup
	}
}

// WithProgress toggles the progress bars
func WithProgress(progress bool) Option {
	return func(c *config) {
		c.Progress = progress
	}
}

// WithPushgateway sets the Pushgateway receiving the run metrics
func WithPushgateway(url string) Option {
	return func(c *config) {
		c.PushgatewayURL = url
	}
}

func (d *Driver) newProgressBar(total int, phase Phase) *pb.ProgressBar {
	bar := pb.New(total).Prefix(phase.String())
	bar.NotPrint = !d.config.Progress
	return bar.Start()
}

// runPhase runs tasks with at most MaxConcurrency in flight. The first failing
// task stops the scheduling of further tasks.
func (d *Driver) runPhase(ctx context.Context, job *Job, phase Phase, tasks []task) error {
	log.Infof("Starting %s phase (%d tasks)", phase, len(tasks))
	bar := d.newProgressBar(len(tasks), phase)

	// A failed task cancels runCtx before releasing its semaphore slot, so
	// the loop below never starts another task after a failure.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	sem := semaphore.NewWeighted(int64(d.config.MaxConcurrency))
	for _, t := range tasks {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		if gctx.Err() != nil {
			sem.Release(1)
			break
		}
		t := t
		g.Go(func() error {
			defer sem.Release(1)
			defer bar.Increment()
			if err := d.executor.Run(job, t); err != nil {
				cancel()
				log.Errorf("Error when running %s task %d: %s", t.Phase, t.BinID, err)
				return fmt.Errorf("%s task %d: %w", t.Phase, t.BinID, err)
			}
			return nil
		})
	}

	err := g.Wait()
	bar.Finish()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Driver) runMapPhase(ctx context.Context, job *Job) error {
	inputSplits, err := job.inputSplits(d.config.Inputs, d.config.SplitSize)
	if err != nil {
		return err
	}
	if len(inputSplits) == 0 {
		log.Warnf("No input splits")
	}
	log.Debugf("Number of job input splits: %d", len(inputSplits))

	inputBins := packInputSplits(inputSplits, d.config.MapBinSize)
	log.Debugf("Number of job input bins: %d", len(inputBins))

	tasks := make([]task, 0, len(inputBins))
	for binID, bin := range inputBins {
		tasks = append(tasks, task{Phase: MapPhase, BinID: uint(binID), Splits: bin})
	}
	return d.runPhase(ctx, job, MapPhase, tasks)
}

func (d *Driver) runReducePhase(ctx context.Context, job *Job) error {
	tasks := make([]task, 0, d.config.Shards)
	for binID := uint(0); binID < d.config.Shards; binID++ {
		tasks = append(tasks, task{Phase: ReducePhase, BinID: binID})
	}
	return d.runPhase(ctx, job, ReducePhase, tasks)
}

// runPhases runs both phases and marks the output complete.
func (d *Driver) runPhases(ctx context.Context, job *Job) error {
	if err := d.runMapPhase(ctx, job); err != nil {
		return err
	}
	if err := d.runReducePhase(ctx, job); err != nil {
		return err
	}
	return job.markSuccess()
}

// Run builds the index. Prior output at the output location is deleted
// first. A failed run removes the output location again, so a partial
// index is never left behind. A complete index carries a _SUCCESS marker.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	if d.config.SplitSize > d.config.MapBinSize {
		log.Warn("Configured Split Size is larger than Map Bin size")
		d.config.SplitSize = d.config.MapBinSize
	}
	if err := d.config.validate(); err != nil {
		return nil, err
	}

	job, err := newJob(d.config)
	if err != nil {
		return nil, err
	}

	// Fail before touching the output if the stop words cannot be read
	if _, err := job.loadStopWords(); err != nil {
		return nil, err
	}

	start := time.Now()

	log.Infof("Removing prior output at %s", d.config.Output)
	if err := job.fileSystem.Delete(d.config.Output); err != nil {
		return nil, fmt.Errorf("removing prior output: %w", err)
	}

	if err := d.runPhases(ctx, job); err != nil {
		log.Infof("Removing incomplete output at %s", d.config.Output)
		if delErr := job.fileSystem.Delete(d.config.Output); delErr != nil {
			log.Warnf("Unable to remove incomplete output: %s", delErr)
		}
		return nil, err
	}

	if d.config.Cleanup {
		if err := job.fileSystem.Delete(job.shuffleDir()); err != nil {
			log.Warnf("Unable to remove shuffle files: %s", err)
		}
	}

	report := &Report{
		Elapsed:      time.Since(start),
		Counters:     job.counters,
		BytesRead:    atomic.LoadInt64(&job.bytesRead),
		BytesWritten: atomic.LoadInt64(&job.bytesWritten),
	}
	log.Infof("Read %s of input, wrote %s", humanize.Bytes(uint64(report.BytesRead)), humanize.Bytes(uint64(report.BytesWritten)))
	return report, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringP("out", "o", viper.GetString("out"), "Output location (local path or s3://bucket/prefix)")
	flags.UintP("shards", "n", viper.GetUint("shards"), "Number of output shards")
	flags.String("stop_words", viper.GetString("stop_words"), "Stop-word list location (empty disables filtering)")
	flags.String("record_delimiter", viper.GetString("record_delimiter"), "String terminating each document record")
	flags.String("partitioner", viper.GetString("partitioner"), "Shard partitioner: length or hash")
	flags.Int64("split_size", viper.GetInt64("split_size"), "Maximum input split size in bytes")
	flags.Int64("map_bin_size", viper.GetInt64("map_bin_size"), "Maximum input bytes per map task")
	flags.Int("max_record_size", viper.GetInt("max_record_size"), "Maximum document record size in bytes")
	flags.Int("max_concurrency", viper.GetInt("max_concurrency"), "Maximum number of concurrent tasks")
	flags.Int("combiner_size", viper.GetInt("combiner_size"), "Words buffered by each map task's combiner (0 disables)")
	flags.Bool("skip_unidentified", viper.GetBool("skip_unidentified"), "Drop documents without a parseable id")
	flags.Bool("cleanup", viper.GetBool("cleanup"), "Remove shuffle files after the run")
	flags.Bool("progress", viper.GetBool("progress"), "Show progress bars")
	flags.String("pushgateway_url", viper.GetString("pushgateway_url"), "Pushgateway receiving run metrics")
	flags.String("memprofile", viper.GetString("memprofile"), "write memory profile to `file`")
	flags.BoolP("verbose", "v", viper.GetBool("verbose"), "Output verbose logs")
	return flags
}

// Main parses the command line, runs the Driver and reports the outcome.
// The return value is the process exit code.
func (d *Driver) Main() int {
	return d.main(os.Args[1:], os.Stdout)
}

func (d *Driver) main(args []string, stdout io.Writer) int {
	flags := newFlagSet("invindex")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := viper.BindPFlags(flags); err != nil {
		log.Error(err)
		return 1
	}
	flags.Visit(func(f *pflag.Flag) {
		d.config.load(f.Name)
	})
	d.config.Inputs = append(d.config.Inputs, flags.Args()...)

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}

	report, err := d.Run(context.Background())
	if err != nil {
		log.Errorf("Indexing failed: %s", err)
		return 1
	}

	if err := report.Print(stdout); err != nil {
		log.Error(err)
		return 1
	}

	if d.config.PushgatewayURL != "" {
		if err := pushReport(d.config.PushgatewayURL, report); err != nil {
			log.Warnf("Unable to push metrics: %s", err)
		}
	}

	if d.config.MemProfile != "" {
		if err := writeMemProfile(d.config.MemProfile); err != nil {
			log.Error(err)
			return 1
		}
	}
	return 0
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}

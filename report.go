package invindex

import (
	"fmt"
	"io"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/bcongdon/invindex/index"
)

// Report summarizes a finished indexing run
type Report struct {
	Elapsed      time.Duration
	Counters     *index.Counters
	BytesRead    int64 // input bytes consumed by map tasks
	BytesWritten int64 // shuffle and output bytes written
}

// Print writes the elapsed time and every counter to w.
func (r *Report) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "runTime %d\n", r.Elapsed.Milliseconds()); err != nil {
		return err
	}
	for _, counter := range index.AllCounters() {
		_, err := fmt.Fprintf(w, "\t%s=%s\n", counter, humanize.Comma(r.Counters.Get(counter)))
		if err != nil {
			return err
		}
	}
	return nil
}

package invindex

import (
	"bufio"
	"bytes"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/bcongdon/invindex/internal/pkg/corfs"
)

// inputSplit is a byte range [StartOffset, EndOffset] of one input file.
// The split owns every document record that begins inside the range, even
// when the record's delimiter lies past EndOffset.
type inputSplit struct {
	Filename    string
	StartOffset int64
	EndOffset   int64 // inclusive
}

// Size is the number of bytes covered by the split.
func (s inputSplit) Size() int64 {
	return s.EndOffset - s.StartOffset + 1
}

// splitInputFile cuts file into consecutive splits of at most maxSplitSize
// bytes. Empty files produce no splits.
func splitInputFile(file corfs.FileInfo, maxSplitSize int64) []inputSplit {
	count := (file.Size + maxSplitSize - 1) / maxSplitSize
	splits := make([]inputSplit, 0, count)

	for start := int64(0); start < file.Size; start += maxSplitSize {
		end := start + maxSplitSize - 1
		if end >= file.Size {
			end = file.Size - 1
		}
		splits = append(splits, inputSplit{Filename: file.Name, StartOffset: start, EndOffset: end})
	}
	return splits
}

// packInputSplits groups consecutive splits into map task bins of at most
// maxBinSize bytes. A split larger than maxBinSize gets a bin of its own.
func packInputSplits(splits []inputSplit, maxBinSize int64) [][]inputSplit {
	bins := [][]inputSplit{}
	var binSize, total int64

	for _, split := range splits {
		size := split.Size()
		if len(bins) == 0 || binSize+size > maxBinSize {
			bins = append(bins, nil)
			binSize = 0
		}
		last := len(bins) - 1
		bins[last] = append(bins[last], split)
		binSize += size
		total += size
	}

	if len(bins) > 0 {
		log.Debugf("Average input bin size: %s", humanize.Bytes(uint64(total/int64(len(bins)))))
	}
	return bins
}

// countingSplitFunc adds the bytes consumed by split to *consumed on every
// call.
func countingSplitFunc(split bufio.SplitFunc, consumed *int64) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := split(data, atEOF)
		*consumed += int64(advance)
		return advance, token, err
	}
}

// recordSplitFunc yields the chunks of input terminated by delim. The
// delimiter is consumed but not returned. Trailing input without a
// delimiter is returned as a final record.
func recordSplitFunc(delim []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, delim); i >= 0 {
			return i + len(delim), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

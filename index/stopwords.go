package index

import (
	"bufio"
	"io"
	"strings"
)

// StopWords is a read-only set of lower-cased words excluded from the index.
type StopWords map[string]struct{}

// LoadStopWords reads one word per line from r. Blank lines and lines
// starting with '#' are ignored.
func LoadStopWords(r io.Reader) (StopWords, error) {
	stopWords := make(StopWords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stopWords[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stopWords, nil
}

// Contains reports whether word is a stop word, ignoring case.
func (s StopWords) Contains(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

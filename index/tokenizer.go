package index

import (
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var documentIDPattern = regexp.MustCompile(`id="(\d+)"`)

// Occurrence is a single indexed token.
type Occurrence struct {
	Word     string
	Document int64
	Sentence int64
	Position int64
}

// Tokenizer splits document records into occurrences. A Tokenizer belongs to
// one worker; its stop words are never modified after construction.
type Tokenizer struct {
	stopWords        StopWords
	counters         *Counters
	skipUnidentified bool
}

// NewTokenizer returns a Tokenizer that drops stopWords and records
// diagnostics in counters.
func NewTokenizer(stopWords StopWords, counters *Counters) *Tokenizer {
	if stopWords == nil {
		stopWords = StopWords{}
	}
	return &Tokenizer{stopWords: stopWords, counters: counters}
}

// ParseDocumentID extracts the id attribute from a record header line.
func ParseDocumentID(header string) (int64, bool) {
	match := documentIDPattern.FindStringSubmatch(header)
	if match == nil {
		return UnknownDocument, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return UnknownDocument, false
	}
	return id, true
}

// Tokenize walks record and calls fn for every valid, non-stop-word token.
//
// The first non-empty line of the record is its header and carries the
// document id. Every following non-empty line is a sentence, numbered from
// zero. Within a sentence a token's position is the sum of the lengths of the
// valid tokens before it, each plus one separator. Tokens containing anything
// other than ASCII letters and digits are skipped and do not advance the
// position.
//
// Tokenize reports false when the record is blank. An error from fn
// stops the walk and is returned.
func (t *Tokenizer) Tokenize(record string, fn func(Occurrence) error) (bool, error) {
	if strings.TrimSpace(record) == "" {
		return false, nil
	}
	lines := strings.FieldsFunc(record, isLineBreak)
	if len(lines) == 0 {
		return false, nil
	}

	docID, ok := ParseDocumentID(lines[0])
	if !ok {
		t.counters.Inc(DocumentIDReadFailed, 1)
		log.WithField("header", truncate(lines[0], 64)).Debug("Document id not found in record header")
		if t.skipUnidentified {
			return true, nil
		}
	}

	for sentence, line := range lines[1:] {
		var position int64
		for _, token := range strings.FieldsFunc(line, isSpace) {
			if !isWord(token) {
				t.counters.Inc(SkippedWords, 1)
				continue
			}
			if !t.stopWords.Contains(token) {
				err := fn(Occurrence{
					Word:     token,
					Document: docID,
					Sentence: int64(sentence),
					Position: position,
				})
				if err != nil {
					return true, err
				}
			}
			position += int64(len(token)) + 1
		}
	}
	return true, nil
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\f'
}

func isWord(token string) bool {
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return token != ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package invindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bcongdon/invindex/index"
)

// maxKeyLength bounds the key length accepted from shuffle files.
const maxKeyLength = 1 << 20

// appendShuffleEntry encodes one intermediate key-value pair: the key length
// as a uvarint, the key bytes, then the occurrence wire format.
func appendShuffleEntry(buf []byte, key string, value *index.Occurrences) ([]byte, error) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(key)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, key...)
	return value.AppendBinary(buf)
}

// shuffleReader decodes the entries written by a mapperEmitter.
type shuffleReader struct {
	r *bufio.Reader
}

func newShuffleReader(r io.Reader) *shuffleReader {
	return &shuffleReader{r: bufio.NewReader(r)}
}

// next returns the next entry, or io.EOF once the input is exhausted.
func (s *shuffleReader) next() (string, *index.Occurrences, error) {
	keyLen, err := binary.ReadUvarint(s.r)
	if err != nil {
		return "", nil, err
	}
	if keyLen > maxKeyLength {
		return "", nil, fmt.Errorf("%w: key length %d", index.ErrCorrupt, keyLen)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(s.r, key); err != nil {
		return "", nil, unexpectedEOF(err)
	}
	value, err := index.ReadOccurrences(s.r)
	if err != nil {
		return "", nil, unexpectedEOF(err)
	}
	return string(key), value, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

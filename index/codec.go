package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// The wire format is big-endian:
//
//	int32 count
//	int32 documentCount
//	documentCount × {
//	    int64 documentID
//	    int32 sentenceCount
//	    sentenceCount × {
//	        int64 sentenceID
//	        int32 positionCount
//	        positionCount × int64 position
//	    }
//	}
//
// Documents, sentences and positions are written in ascending order so equal
// records always encode to equal bytes.

// maxPrealloc bounds map sizes taken from untrusted length prefixes.
const maxPrealloc = 1024

// ErrCorrupt is returned when decoding encounters an impossible length.
var ErrCorrupt = errors.New("corrupt occurrence record")

// AppendBinary appends the wire encoding of o to buf.
func (o *Occurrences) AppendBinary(buf []byte) ([]byte, error) {
	if o.count > math.MaxInt32 || o.count < math.MinInt32 {
		return buf, fmt.Errorf("occurrence count %d overflows int32", o.count)
	}
	if len(o.documents) > math.MaxInt32 {
		return buf, fmt.Errorf("document count %d overflows int32", len(o.documents))
	}
	buf = appendInt32(buf, int32(o.count))
	buf = appendInt32(buf, int32(len(o.documents)))
	for _, docID := range o.Documents() {
		sentences := o.documents[docID]
		buf = appendInt64(buf, docID)
		buf = appendInt32(buf, int32(len(sentences)))
		for _, sentenceID := range o.Sentences(docID) {
			positions := o.Positions(docID, sentenceID)
			buf = appendInt64(buf, sentenceID)
			buf = appendInt32(buf, int32(len(positions)))
			for _, pos := range positions {
				buf = appendInt64(buf, pos)
			}
		}
	}
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (o *Occurrences) MarshalBinary() ([]byte, error) {
	return o.AppendBinary(nil)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing bytes are
// an error.
func (o *Occurrences) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	decoded, err := ReadOccurrences(r)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	*o = *decoded
	return nil
}

// WriteTo writes the wire encoding of o to w.
func (o *Occurrences) WriteTo(w io.Writer) (int64, error) {
	buf, err := o.AppendBinary(nil)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom replaces the contents of o with one record decoded from r.
func (o *Occurrences) ReadFrom(r io.Reader) (int64, error) {
	d := decoder{r: r}
	count := d.int32()
	numDocs := d.length()
	documents := make(map[int64]Sentences, min(numDocs, maxPrealloc))
	for i := 0; i < numDocs && d.err == nil; i++ {
		docID := d.int64()
		numSentences := d.length()
		sentences := make(Sentences, min(numSentences, maxPrealloc))
		for j := 0; j < numSentences && d.err == nil; j++ {
			sentenceID := d.int64()
			numPositions := d.length()
			positions := make(Positions, min(numPositions, maxPrealloc))
			for k := 0; k < numPositions && d.err == nil; k++ {
				positions[d.int64()] = struct{}{}
			}
			sentences[sentenceID] = positions
		}
		documents[docID] = sentences
	}
	if d.err != nil {
		if d.err == io.EOF && d.n > 0 {
			d.err = io.ErrUnexpectedEOF
		}
		return d.n, d.err
	}
	o.count = int64(count)
	o.documents = documents
	return d.n, nil
}

// ReadOccurrences decodes one record from r.
func ReadOccurrences(r io.Reader) (*Occurrences, error) {
	o := NewOccurrences()
	if _, err := o.ReadFrom(r); err != nil {
		return nil, err
	}
	return o, nil
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

// decoder reads fixed-width fields and remembers the first error.
type decoder struct {
	r       io.Reader
	n       int64
	err     error
	scratch [8]byte
}

func (d *decoder) fill(size int) []byte {
	if d.err != nil {
		return nil
	}
	n, err := io.ReadFull(d.r, d.scratch[:size])
	d.n += int64(n)
	if err != nil {
		d.err = err
		return nil
	}
	return d.scratch[:size]
}

func (d *decoder) int32() int32 {
	b := d.fill(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (d *decoder) int64() int64 {
	b := d.fill(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (d *decoder) length() int {
	v := d.int32()
	if d.err == nil && v < 0 {
		d.err = fmt.Errorf("%w: negative length %d", ErrCorrupt, v)
		return 0
	}
	return int(v)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

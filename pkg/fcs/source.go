package fcs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// ByteRangeSource is the only capability the decoder needs from its input.
// ReadRange returns exactly stop-start+1 bytes located at offset+start, or an
// error wrapping ErrIO. The decoder never closes a source.
type ByteRangeSource interface {
	ReadRange(offset, start, stop uint64) ([]byte, error)
}

func checkRange(offset, start, stop uint64) (first uint64, n int, err error) {
	if stop < start {
		return 0, 0, fmt.Errorf("invalid range %d-%d", start, stop)
	}
	first = offset + start
	if first < offset {
		return 0, 0, fmt.Errorf("range start %d overflows offset %d", start, offset)
	}
	size := stop - start + 1
	if size == 0 || size > math.MaxInt {
		return 0, 0, fmt.Errorf("range %d-%d is too large", start, stop)
	}
	return first, int(size), nil
}

// StreamSource reads ranges by seeking a kaitai stream. It is not safe for
// concurrent use; share a ReaderAtSource instead.
type StreamSource struct {
	stream *kaitai.Stream
}

// NewStreamSource wraps rs, typically an *os.File.
func NewStreamSource(rs io.ReadSeeker) *StreamSource {
	return &StreamSource{stream: kaitai.NewStream(rs)}
}

// ReadRange implements ByteRangeSource.
func (s *StreamSource) ReadRange(offset, start, stop uint64) ([]byte, error) {
	first, n, err := checkRange(offset, start, stop)
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	if first > math.MaxInt64 {
		return nil, rangeErr(offset, start, stop, fmt.Errorf("position %d out of range", first))
	}
	size, err := s.stream.Size()
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	if !fits(size, first, n) {
		return nil, rangeErr(offset, start, stop, io.ErrUnexpectedEOF)
	}
	if _, err := s.stream.Seek(int64(first), io.SeekStart); err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	buf, err := s.stream.ReadBytes(n)
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	return buf, nil
}

// Size reports the total length of the underlying stream.
func (s *StreamSource) Size() (int64, error) {
	return s.stream.Size()
}

// BytesSource serves ranges out of an in-memory buffer.
type BytesSource struct {
	data []byte
}

// NewBytesSource wraps data without copying it.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{data: data}
}

// ReadRange implements ByteRangeSource. The returned slice is a copy.
func (s *BytesSource) ReadRange(offset, start, stop uint64) ([]byte, error) {
	first, n, err := checkRange(offset, start, stop)
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	if first >= uint64(len(s.data)) || uint64(len(s.data))-first < uint64(n) {
		return nil, rangeErr(offset, start, stop, io.ErrUnexpectedEOF)
	}
	return bytes.Clone(s.data[first : first+uint64(n)]), nil
}

// Len returns the buffer length.
func (s *BytesSource) Len() int {
	return len(s.data)
}

// ReaderAtSource uses positional reads, so a single *os.File can back several
// parses running at once.
type ReaderAtSource struct {
	r io.ReaderAt
}

// NewReaderAtSource wraps r. When r reports its length through Size or Stat
// (bytes.Reader, io.SectionReader, *os.File), ranges past the end fail before
// any buffer is allocated; otherwise ranges are read in bounded chunks.
func NewReaderAtSource(r io.ReaderAt) *ReaderAtSource {
	return &ReaderAtSource{r: r}
}

// readChunk bounds each ReadAt when the source length is unknown, so a bogus
// range costs at most one chunk before EOF is seen.
const readChunk = 1 << 20

// ReadRange implements ByteRangeSource.
func (s *ReaderAtSource) ReadRange(offset, start, stop uint64) ([]byte, error) {
	first, n, err := checkRange(offset, start, stop)
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	if first > math.MaxInt64 {
		return nil, rangeErr(offset, start, stop, fmt.Errorf("position %d out of range", first))
	}

	size, known, err := readerSize(s.r)
	if err != nil {
		return nil, rangeErr(offset, start, stop, err)
	}
	if known && !fits(size, first, n) {
		return nil, rangeErr(offset, start, stop, io.ErrUnexpectedEOF)
	}
	chunk := n
	if !known {
		chunk = min(n, readChunk)
	}

	buf := make([]byte, 0, chunk)
	for len(buf) < n {
		pos := len(buf)
		k := min(n-pos, chunk)
		buf = slices.Grow(buf, k)[:pos+k]
		read, err := s.r.ReadAt(buf[pos:], int64(first)+int64(pos))
		if read == k {
			// ReadAt may return io.EOF alongside a full read at the end of input.
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, rangeErr(offset, start, stop, err)
	}
	return buf, nil
}

// readerSize reports the length of r when it exposes one.
func readerSize(r io.ReaderAt) (int64, bool, error) {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size(), true, nil
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := v.Stat()
		if err != nil {
			return 0, false, err
		}
		if !info.Mode().IsRegular() {
			return 0, false, nil
		}
		return info.Size(), true, nil
	default:
		return 0, false, nil
	}
}

// fits reports whether n bytes starting at first lie within size bytes.
func fits(size int64, first uint64, n int) bool {
	return size >= 0 && first <= uint64(size) && uint64(size)-first >= uint64(n)
}

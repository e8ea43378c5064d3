package fcsio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/twinfer/fcs-plugin/pkg/fcs"
)

// Compression identifies how an FCS payload is wrapped on disk.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// DetectCompression looks at the frame magic first and falls back to the
// file extension. Plain FCS always starts with "FCS", which matches neither
// magic.
func DetectCompression(path string, head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CompressionLZ4
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// zstdDecoder is shared; zstd.Decoder is safe for concurrent DecodeAll.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("fcsio: zstd decoder initialization failed: " + err.Error())
	}
}

// Decompress unwraps payload according to c. CompressionNone returns the
// input unchanged.
func Decompress(payload []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// Source is an opened FCS input. Close releases the underlying file, if any.
type Source struct {
	fcs.ByteRangeSource
	Compression Compression
	closer      io.Closer
}

// Close implements io.Closer.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens path for parsing. Plain files are read in place through a
// positional reader; zstd and lz4 frames are decompressed into memory first.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	head := make([]byte, 4)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c := DetectCompression(path, head[:n])
	if c == CompressionNone {
		return &Source{ByteRangeSource: fcs.NewReaderAtSource(f), closer: f}, nil
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	raw, err := Decompress(payload, c)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Source{ByteRangeSource: fcs.NewBytesSource(raw), Compression: c}, nil
}

// OpenBytes wraps an in-memory payload, decompressing it when it carries a
// zstd or lz4 frame magic.
func OpenBytes(payload []byte) (*Source, error) {
	c := DetectCompression("", payload)
	raw, err := Decompress(payload, c)
	if err != nil {
		return nil, err
	}
	return &Source{ByteRangeSource: fcs.NewBytesSource(raw), Compression: c}, nil
}

package fcs

import (
	"fmt"
	"strconv"
	"strings"
)

// HeaderSize is the number of bytes covered by the fixed HEADER fields.
const HeaderSize = 58

// headerField is an inclusive byte range inside the HEADER segment.
type headerField struct {
	name        string
	start, stop uint64
}

var (
	fieldMagic         = headerField{"magic", 0, 2}
	fieldVersion       = headerField{"version", 3, 5}
	fieldTextStart     = headerField{"text_start", 10, 17}
	fieldTextEnd       = headerField{"text_end", 18, 25}
	fieldDataStart     = headerField{"data_start", 26, 33}
	fieldDataEnd       = headerField{"data_end", 34, 41}
	fieldAnalysisStart = headerField{"analysis_start", 42, 49}
	fieldAnalysisEnd   = headerField{"analysis_end", 50, 57}
)

// Header holds the segment boundaries declared in the HEADER segment. All
// offsets are inclusive and relative to Offset.
type Header struct {
	Offset        uint64  `json:"offset" yaml:"offset" cbor:"offset"`
	Version       float64 `json:"version" yaml:"version" cbor:"version"`
	TextStart     uint64  `json:"text_start" yaml:"text_start" cbor:"text_start"`
	TextEnd       uint64  `json:"text_end" yaml:"text_end" cbor:"text_end"`
	DataStart     uint64  `json:"data_start" yaml:"data_start" cbor:"data_start"`
	DataEnd       uint64  `json:"data_end" yaml:"data_end" cbor:"data_end"`
	AnalysisStart *uint64 `json:"analysis_start,omitempty" yaml:"analysis_start,omitempty" cbor:"analysis_start,omitempty"`
	AnalysisEnd   *uint64 `json:"analysis_end,omitempty" yaml:"analysis_end,omitempty" cbor:"analysis_end,omitempty"`
}

// HasAnalysis reports whether both analysis offsets are present.
func (h Header) HasAnalysis() bool {
	return h.AnalysisStart != nil && h.AnalysisEnd != nil
}

// ParseHeader decodes the HEADER segment found at offset in src.
func ParseHeader(src ByteRangeSource, offset uint64) (Header, error) {
	h := Header{Offset: offset}

	raw, err := src.ReadRange(offset, 0, HeaderSize-1)
	if err != nil {
		return Header{}, fmt.Errorf("reading header: %w", err)
	}

	field := func(f headerField) string {
		return strings.TrimSpace(string(raw[f.start : f.stop+1]))
	}

	if magic := field(fieldMagic); magic != "FCS" {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrMalformedHeader, magic)
	}
	h.Version, err = strconv.ParseFloat(field(fieldVersion), 64)
	if err != nil {
		return Header{}, fmt.Errorf("%w: version %q at bytes %d-%d", ErrMalformedHeader, field(fieldVersion), fieldVersion.start, fieldVersion.stop)
	}

	offsets := []struct {
		f   headerField
		dst *uint64
	}{
		{fieldTextStart, &h.TextStart},
		{fieldTextEnd, &h.TextEnd},
		{fieldDataStart, &h.DataStart},
		{fieldDataEnd, &h.DataEnd},
	}
	for _, o := range offsets {
		if *o.dst, err = parseHeaderOffset(o.f, field(o.f), false); err != nil {
			return Header{}, err
		}
	}

	analysisStart, err := parseHeaderOffset(fieldAnalysisStart, field(fieldAnalysisStart), true)
	if err != nil {
		return Header{}, err
	}
	analysisEnd, err := parseHeaderOffset(fieldAnalysisEnd, field(fieldAnalysisEnd), true)
	if err != nil {
		return Header{}, err
	}
	// Zero marks an absent segment, not a zero offset.
	if analysisStart != 0 {
		h.AnalysisStart = &analysisStart
	}
	if analysisEnd != 0 {
		h.AnalysisEnd = &analysisEnd
	}

	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// parseHeaderOffset parses one offset field. Some writers leave the optional
// analysis offsets blank; allowBlank reads those as 0.
func parseHeaderOffset(f headerField, s string, allowBlank bool) (uint64, error) {
	if s == "" && allowBlank {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q at bytes %d-%d", ErrMalformedHeader, f.name, s, f.start, f.stop)
	}
	return v, nil
}

func (h Header) validate() error {
	if h.TextStart > h.TextEnd {
		return fmt.Errorf("%w: text segment %d-%d", ErrMalformedHeader, h.TextStart, h.TextEnd)
	}
	if h.TextEnd == 0 {
		return fmt.Errorf("%w: empty text segment", ErrMalformedHeader)
	}
	if h.DataStart > h.DataEnd {
		return fmt.Errorf("%w: data segment %d-%d", ErrMalformedHeader, h.DataStart, h.DataEnd)
	}
	if h.HasAnalysis() && *h.AnalysisStart > *h.AnalysisEnd {
		return fmt.Errorf("%w: analysis segment %d-%d", ErrMalformedHeader, *h.AnalysisStart, *h.AnalysisEnd)
	}
	return nil
}

package fcsio

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/twinfer/fcs-plugin/pkg/fcs"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Summary is the exported view of a parsed document.
type Summary struct {
	Source          string            `json:"source,omitempty" yaml:"source,omitempty" cbor:"source,omitempty"`
	Header          fcs.Header        `json:"header" yaml:"header" cbor:"header"`
	Keywords        map[string]string `json:"keywords" yaml:"keywords" cbor:"keywords"`
	Parameters      []fcs.Parameter   `json:"parameters" yaml:"parameters" cbor:"parameters"`
	Gates           []fcs.Gate        `json:"gates,omitempty" yaml:"gates,omitempty" cbor:"gates,omitempty"`
	Metadata        fcs.Metadata      `json:"metadata" yaml:"metadata" cbor:"metadata"`
	TotalEvents     uint64            `json:"total_events" yaml:"total_events" cbor:"total_events"`
	ParametersCount uint64            `json:"parameters_count" yaml:"parameters_count" cbor:"parameters_count"`
	DataType        string            `json:"data_type" yaml:"data_type" cbor:"data_type"`
	ByteOrder       string            `json:"byte_order" yaml:"byte_order" cbor:"byte_order"`
	NextData        uint64            `json:"next_data,omitempty" yaml:"next_data,omitempty" cbor:"next_data,omitempty"`
	Digest          string            `json:"digest,omitempty" yaml:"digest,omitempty" cbor:"digest,omitempty"`
	Events          [][]float64       `json:"events,omitempty" yaml:"events,omitempty" cbor:"events,omitempty"`
}

// SummaryOptions selects the optional parts of a Summary.
type SummaryOptions struct {
	// IncludeEvents copies event values into the summary.
	IncludeEvents bool
	// MaxEvents caps the copied events; 0 copies all of them.
	MaxEvents int
	// Digest adds the BLAKE3 digest of the decoded values.
	Digest bool
}

// Summarize builds a Summary of doc. It fails when the parameter or gate
// tables are malformed, even though the DATA segment decoded.
func Summarize(doc *fcs.Document, opts SummaryOptions) (*Summary, error) {
	params, err := doc.Parameters()
	if err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	gates, err := doc.Gates()
	if err != nil {
		return nil, fmt.Errorf("reading gates: %w", err)
	}
	order, err := doc.Keywords().ByteOrder()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Header:          doc.Header(),
		Keywords:        doc.Keywords().Map(),
		Parameters:      params,
		Gates:           gates,
		Metadata:        doc.Metadata(),
		TotalEvents:     doc.TotalEvents(),
		ParametersCount: doc.ParametersCount(),
		DataType:        doc.DataType().String(),
		ByteOrder:       order.String(),
		NextData:        doc.NextData(),
	}

	if opts.Digest {
		s.Digest = DataDigest(doc.Data())
	}
	if opts.IncludeEvents {
		s.Events = events(doc, opts.MaxEvents)
	}
	return s, nil
}

// events copies up to limit events. The count comes from the decoded values,
// not from $TOT, which is unchecked when $PAR is 0.
func events(doc *fcs.Document, limit int) [][]float64 {
	par := doc.ParametersCount()
	if par == 0 {
		return nil
	}
	n := uint64(doc.ValueCount()) / par
	if limit > 0 && uint64(limit) < n {
		n = uint64(limit)
	}
	out := make([][]float64, 0, n)
	for i := range int(n) {
		ev, err := doc.Event(i)
		if err != nil {
			break
		}
		out = append(out, ev)
	}
	return out
}

// DataDigest hashes the decoded values, type tag first, each value as the
// little-endian bits of its float64 widening. Two files holding the same
// values in different byte orders share a digest.
func DataDigest(d fcs.Data) string {
	h := blake3.New()
	h.Write([]byte(d.Type.String()))
	buf := make([]byte, 0, 8*1024)
	for _, v := range d.Float64s() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		if len(buf) == cap(buf) {
			h.Write(buf)
			buf = buf[:0]
		}
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}

// Format is an output encoding for summaries.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts json, yaml (or yml) and cbor, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown output format: %q", s)
	}
}

// cborMode uses Core Deterministic Encoding so equal summaries encode to
// identical bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fcsio: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in format f.
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling to JSON: %w", err)
		}
		return out, nil
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling to YAML: %w", err)
		}
		return out, nil
	case FormatCBOR:
		out, err := cborMode.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling to CBOR: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", string(f))
	}
}

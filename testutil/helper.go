// Package testutil builds synthetic FCS files and provides comparers shared
// by the package tests.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// FileSpec describes a synthetic FCS file.
type FileSpec struct {
	Version   string // defaults to "3.1"
	Delimiter byte   // defaults to '\\'

	// Keywords holds alternating key/value pairs written in order.
	Keywords []string
	Data     []byte

	// DataInText writes zero data offsets in the HEADER and puts the real
	// range in $BEGINDATA/$ENDDATA.
	DataInText bool
	// Analysis, when non-empty, is appended after DATA and referenced by the
	// HEADER analysis offsets.
	Analysis []byte
}

const textStart = 58

// BuildFCS lays out HEADER, TEXT, DATA and optional ANALYSIS back to back.
func BuildFCS(fs FileSpec) []byte {
	if fs.Version == "" {
		fs.Version = "3.1"
	}
	if fs.Delimiter == 0 {
		fs.Delimiter = '\\'
	}

	pairs := fs.Keywords
	if fs.DataInText {
		// Fixed-width placeholders keep the TEXT length stable while the
		// real offsets are computed.
		pairs = append(append([]string(nil), pairs...), "$BEGINDATA", pad10(0), "$ENDDATA", pad10(0))
	}
	text := encodePairs(pairs, fs.Delimiter)
	textEnd := textStart + len(text) - 1
	dataStart, dataEnd := 0, 0
	if len(fs.Data) > 0 {
		dataStart = textEnd + 1
		dataEnd = dataStart + len(fs.Data) - 1
	}
	if fs.DataInText {
		n := len(pairs)
		pairs[n-3] = pad10(dataStart)
		pairs[n-1] = pad10(dataEnd)
		text = encodePairs(pairs, fs.Delimiter)
	}

	analysisStart, analysisEnd := 0, 0
	if len(fs.Analysis) > 0 {
		analysisStart = textEnd + 1 + len(fs.Data)
		analysisEnd = analysisStart + len(fs.Analysis) - 1
	}

	hdrDataStart, hdrDataEnd := dataStart, dataEnd
	if fs.DataInText {
		hdrDataStart, hdrDataEnd = 0, 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FCS%-3s    ", fs.Version)
	for _, v := range []int{textStart, textEnd, hdrDataStart, hdrDataEnd, analysisStart, analysisEnd} {
		fmt.Fprintf(&b, "%8d", v)
	}
	out := []byte(b.String())
	out = append(out, text...)
	out = append(out, fs.Data...)
	out = append(out, fs.Analysis...)
	return out
}

// MinimalKeywords returns the keywords needed to decode params x events
// little-endian float values, including $PnB/$PnN/$PnR for each parameter.
func MinimalKeywords(params, events int) []string {
	kw := []string{
		"$BYTEORD", "1,2,3,4",
		"$DATATYPE", "F",
		"$MODE", "L",
		"$NEXTDATA", "0",
		"$PAR", fmt.Sprint(params),
		"$TOT", fmt.Sprint(events),
	}
	for i := 1; i <= params; i++ {
		kw = append(kw,
			fmt.Sprintf("$P%dB", i), "32",
			fmt.Sprintf("$P%dN", i), fmt.Sprintf("CH%d", i),
			fmt.Sprintf("$P%dR", i), "262144",
		)
	}
	return kw
}

func encodePairs(pairs []string, delim byte) []byte {
	d := string(delim)
	var b strings.Builder
	b.WriteString(d)
	for _, p := range pairs {
		b.WriteString(strings.ReplaceAll(p, d, d+d))
		b.WriteString(d)
	}
	return []byte(b.String())
}

func pad10(v int) string {
	return fmt.Sprintf("%010d", v)
}

// Float32s packs values as IEEE-754 singles in the given order.
func Float32s(order binary.AppendByteOrder, values ...float32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = order.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// Float64s packs values as IEEE-754 doubles in the given order.
func Float64s(order binary.AppendByteOrder, values ...float64) []byte {
	out := make([]byte, 0, 8*len(values))
	for _, v := range values {
		out = order.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// Int32s packs values as 32-bit two's complement integers.
func Int32s(order binary.AppendByteOrder, values ...int32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = order.AppendUint32(out, uint32(v))
	}
	return out
}

// ConvertToFloat64 converts numeric values for tolerant comparison.
func ConvertToFloat64(i any) (float64, bool) {
	switch v := i.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// NumericComparer treats numbers of different Go types as equal when their
// values agree to within 1e-9.
var NumericComparer = cmp.Comparer(func(x, y any) bool {
	xf, xOk := ConvertToFloat64(x)
	yf, yOk := ConvertToFloat64(y)
	if xOk && yOk {
		return math.Abs(xf-yf) < 1e-9
	}
	return cmp.Equal(x, y)
})

// FloatSlicesComparer compares float64 slices with a relative tolerance,
// which absorbs float32 round trips.
var FloatSlicesComparer = cmp.Comparer(func(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if diff := math.Abs(x[i] - y[i]); diff > 1e-6*math.Max(1, math.Abs(x[i])) {
			return false
		}
	}
	return true
})

package fcs

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// DataType is the numeric encoding declared by $DATATYPE.
type DataType uint8

const (
	DataTypeInt DataType = iota + 1
	DataTypeFloat
	DataTypeDouble
)

// ParseDataType maps "I", "F" and "D". ASCII data ("A") is not supported.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "I":
		return DataTypeInt, nil
	case "F":
		return DataTypeFloat, nil
	case "D":
		return DataTypeDouble, nil
	default:
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDataType, KeywordDataType, s)
	}
}

// WordSize is the number of bytes one value occupies.
func (t DataType) WordSize() int {
	switch t {
	case DataTypeInt, DataTypeFloat:
		return 4
	case DataTypeDouble:
		return 8
	default:
		return 0
	}
}

func (t DataType) String() string {
	switch t {
	case DataTypeInt:
		return "I"
	case DataTypeFloat:
		return "F"
	case DataTypeDouble:
		return "D"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// ByteOrder is the endianness declared by $BYTEORD.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota + 1
	LittleEndian
)

// ParseByteOrder maps the $BYTEORD spellings accepted by FCS readers.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "4,3,2,1", "2,1":
		return BigEndian, nil
	case "1,2,3,4", "1,2":
		return LittleEndian, nil
	default:
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidByteOrder, KeywordByteOrder, s)
	}
}

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

// Data is the decoded DATA segment. Exactly one slice matching Type is set;
// values are laid out event by event, one value per parameter.
type Data struct {
	Type    DataType
	Ints    []int32
	Floats  []float32
	Doubles []float64
}

// Len returns the number of decoded values.
func (d Data) Len() int {
	switch d.Type {
	case DataTypeInt:
		return len(d.Ints)
	case DataTypeFloat:
		return len(d.Floats)
	case DataTypeDouble:
		return len(d.Doubles)
	default:
		return 0
	}
}

// Clone returns a copy that shares no backing arrays with d.
func (d Data) Clone() Data {
	return Data{
		Type:    d.Type,
		Ints:    slices.Clone(d.Ints),
		Floats:  slices.Clone(d.Floats),
		Doubles: slices.Clone(d.Doubles),
	}
}

// Float64s widens the values to float64.
func (d Data) Float64s() []float64 {
	out := make([]float64, 0, d.Len())
	switch d.Type {
	case DataTypeInt:
		for _, v := range d.Ints {
			out = append(out, float64(v))
		}
	case DataTypeFloat:
		for _, v := range d.Floats {
			out = append(out, float64(v))
		}
	case DataTypeDouble:
		out = append(out, d.Doubles...)
	}
	return out
}

// Event returns the values of event i given the parameter count.
func (d Data) Event(i, params int) ([]float64, error) {
	if params <= 0 || i < 0 || (i+1)*params > d.Len() {
		return nil, fmt.Errorf("event %d out of range for %d values of %d parameters", i, d.Len(), params)
	}
	out := make([]float64, params)
	for p := range params {
		j := i*params + p
		switch d.Type {
		case DataTypeInt:
			out[p] = float64(d.Ints[j])
		case DataTypeFloat:
			out[p] = float64(d.Floats[j])
		case DataTypeDouble:
			out[p] = d.Doubles[j]
		}
	}
	return out, nil
}

// DecodeData decodes raw as a flat array of t values in byte order o. The
// length of raw must be a multiple of the word size.
func DecodeData(raw []byte, t DataType, o ByteOrder) (Data, error) {
	size := t.WordSize()
	if size == 0 {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidDataType, t)
	}
	if o != BigEndian && o != LittleEndian {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidByteOrder, o)
	}
	if len(raw)%size != 0 {
		return Data{}, fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte word size", ErrTruncatedDataSegment, len(raw), size)
	}

	n := len(raw) / size
	stream := kaitai.NewStream(bytes.NewReader(raw))
	d := Data{Type: t}
	var err error
	switch t {
	case DataTypeInt:
		d.Ints = make([]int32, n)
		read := stream.ReadS4be
		if o == LittleEndian {
			read = stream.ReadS4le
		}
		for i := range d.Ints {
			if d.Ints[i], err = read(); err != nil {
				return Data{}, truncated(i, size, err)
			}
		}
	case DataTypeFloat:
		d.Floats = make([]float32, n)
		read := stream.ReadF4be
		if o == LittleEndian {
			read = stream.ReadF4le
		}
		for i := range d.Floats {
			if d.Floats[i], err = read(); err != nil {
				return Data{}, truncated(i, size, err)
			}
		}
	case DataTypeDouble:
		d.Doubles = make([]float64, n)
		read := stream.ReadF8be
		if o == LittleEndian {
			read = stream.ReadF8le
		}
		for i := range d.Doubles {
			if d.Doubles[i], err = read(); err != nil {
				return Data{}, truncated(i, size, err)
			}
		}
	}
	return d, nil
}

func truncated(i, size int, err error) error {
	return fmt.Errorf("%w: value %d at byte %d: %v", ErrTruncatedDataSegment, i, i*size, err)
}

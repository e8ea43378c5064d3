package fcs

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinfer/fcs-plugin/testutil"
)

var (
	binaryLE = binary.LittleEndian
	binaryBE = binary.BigEndian
)

func TestDecodeData_ByteOrder(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x80, 0x3F}

	le, err := DecodeData(raw, DataTypeFloat, LittleEndian)
	require.NoError(t, err)
	require.Len(t, le.Floats, 1)
	assert.Equal(t, float32(1.0), le.Floats[0])

	be, err := DecodeData(raw, DataTypeFloat, BigEndian)
	require.NoError(t, err)
	require.Len(t, be.Floats, 1)
	assert.NotEqual(t, le.Floats[0], be.Floats[0])
	assert.Equal(t, math.Float32frombits(0x0000803F), be.Floats[0])
}

func TestDecodeData_Types(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		typ   DataType
		order ByteOrder
		want  []float64
	}{
		{"int big-endian", testutil.Int32s(binaryBE, 1, -2, 70000), DataTypeInt, BigEndian, []float64{1, -2, 70000}},
		{"int little-endian", testutil.Int32s(binaryLE, 5, math.MaxInt32), DataTypeInt, LittleEndian, []float64{5, math.MaxInt32}},
		{"float big-endian", testutil.Float32s(binaryBE, 1.5, -0.25), DataTypeFloat, BigEndian, []float64{1.5, -0.25}},
		{"double little-endian", testutil.Float64s(binaryLE, math.Pi, -1e300), DataTypeDouble, LittleEndian, []float64{math.Pi, -1e300}},
		{"double big-endian", testutil.Float64s(binaryBE, 2.5), DataTypeDouble, BigEndian, []float64{2.5}},
		{"empty", nil, DataTypeDouble, BigEndian, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeData(tt.raw, tt.typ, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, d.Type)
			assert.Equal(t, len(tt.want), d.Len())
			assert.Equal(t, tt.want, d.Float64s())
		})
	}
}

func TestDecodeData_Truncated(t *testing.T) {
	tests := []struct {
		name string
		n    int
		typ  DataType
	}{
		{"int 3 bytes", 3, DataTypeInt},
		{"float 7 bytes", 7, DataTypeFloat},
		{"double 12 bytes", 12, DataTypeDouble},
		{"double 4 bytes", 4, DataTypeDouble},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeData(make([]byte, tt.n), tt.typ, LittleEndian)
			assert.ErrorIs(t, err, ErrTruncatedDataSegment)
		})
	}
}

func TestDecodeData_InvalidEnums(t *testing.T) {
	_, err := DecodeData(make([]byte, 4), DataType(0), LittleEndian)
	assert.ErrorIs(t, err, ErrInvalidDataType)
	_, err = DecodeData(make([]byte, 4), DataTypeInt, ByteOrder(9))
	assert.ErrorIs(t, err, ErrInvalidByteOrder)
}

func TestData_Event(t *testing.T) {
	d, err := DecodeData(testutil.Int32s(binaryLE, 1, 2, 3, 4, 5, 6), DataTypeInt, LittleEndian)
	require.NoError(t, err)

	ev, err := d.Event(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, ev)

	_, err = d.Event(2, 3)
	assert.Error(t, err)
	_, err = d.Event(0, 0)
	assert.Error(t, err)
}

func TestData_Float64sWidening(t *testing.T) {
	want := []float64{0.1, -2.7, 1e6, 3.14159}
	raw := testutil.Float32s(binaryBE, 0.1, -2.7, 1e6, 3.14159)

	d, err := DecodeData(raw, DataTypeFloat, BigEndian)
	require.NoError(t, err)
	got := d.Float64s()
	assert.True(t, cmp.Equal(want, got, testutil.FloatSlicesComparer), cmp.Diff(want, got, testutil.FloatSlicesComparer))

	ev, err := d.Event(1, 2)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(want[2:], ev, testutil.FloatSlicesComparer))
}

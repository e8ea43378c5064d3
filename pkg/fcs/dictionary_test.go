package fcs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedKey(t *testing.T) {
	assert.Equal(t, Keyword("$P1N"), IndexedKey(ParameterKey, 1, FieldShortName))
	assert.Equal(t, Keyword("$P12B"), IndexedKey(ParameterKey, 12, FieldBits))
	assert.Equal(t, Keyword("$G3S"), IndexedKey(GateKey, 3, FieldName))
}

func TestKeywords_RequiredAccessors(t *testing.T) {
	kw := NewKeywords("$PAR", " 4 ", "$TOT", "abc", "$TIMESTEP", "0.01")

	par, err := kw.RequiredUint(KeywordPar)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), par)

	_, err = kw.RequiredUint(KeywordTot)
	assert.ErrorIs(t, err, ErrInvalidKeywordValue)
	assert.Contains(t, err.Error(), "$TOT")

	step, err := kw.RequiredFloat(KeywordTimestep)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, step, 1e-12)

	_, err = kw.Require(KeywordMode)
	assert.ErrorIs(t, err, ErrMissingRequiredKeyword)
	assert.Contains(t, err.Error(), "$MODE")

	_, err = kw.TotalEvents()
	assert.ErrorIs(t, err, ErrInvalidKeywordValue)
}

func TestKeywords_OptionalUint(t *testing.T) {
	kw := NewKeywords("$GATE", "2", "$LOST", "x")

	n, ok, err := kw.OptionalUint(KeywordGate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), n)

	_, ok, err = kw.OptionalUint(KeywordAbort)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = kw.OptionalUint(KeywordLost)
	assert.ErrorIs(t, err, ErrInvalidKeywordValue)
}

func TestKeywords_Parameters(t *testing.T) {
	kw := NewKeywords(
		"$PAR", "2",
		"$P1B", "32", "$P1N", "FSC-A", "$P1R", "262144", "$P1V", "350", "$P1G", "1.5",
		"$P2B", "32", "$P2N", "FITC-A", "$P2R", "1024.5", "$P2S", "CD3", "$P2F", "530/30",
	)
	params, err := kw.Parameters()
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, uint64(1), params[0].Index)
	assert.Equal(t, uint64(32), params[0].Bits)
	assert.Equal(t, "FSC-A", params[0].ShortName)
	assert.Equal(t, 262144.0, params[0].Range)
	require.NotNil(t, params[0].DetectorVoltage)
	assert.Equal(t, "350", *params[0].DetectorVoltage)
	require.NotNil(t, params[0].Gain)
	assert.Equal(t, 1.5, *params[0].Gain)
	assert.Nil(t, params[0].Name)

	assert.Equal(t, "FITC-A", params[1].ShortName)
	assert.Equal(t, 1024.5, params[1].Range)
	require.NotNil(t, params[1].Name)
	assert.Equal(t, "CD3", *params[1].Name)
	require.NotNil(t, params[1].Filter)
	assert.Equal(t, "530/30", *params[1].Filter)
	assert.Nil(t, params[1].Gain)
}

func TestKeywords_ParametersMissingField(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    error
		keyword string
	}{
		{"missing bits", []string{"$PAR", "1", "$P1N", "A", "$P1R", "10"}, ErrMissingRequiredKeyword, "$P1B"},
		{"missing name", []string{"$PAR", "1", "$P1B", "32", "$P1R", "10"}, ErrMissingRequiredKeyword, "$P1N"},
		{"missing range", []string{"$PAR", "1", "$P1B", "32", "$P1N", "A"}, ErrMissingRequiredKeyword, "$P1R"},
		{"bad bits", []string{"$PAR", "1", "$P1B", "*", "$P1N", "A", "$P1R", "10"}, ErrInvalidKeywordValue, "$P1B"},
		{"bad gain", []string{"$PAR", "1", "$P1B", "32", "$P1N", "A", "$P1R", "10", "$P1G", "hi"}, ErrInvalidKeywordValue, "$P1G"},
		{"missing par", []string{"$TOT", "1"}, ErrMissingRequiredKeyword, "$PAR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeywords(tt.pairs...).Parameters()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.keyword)
		})
	}
}

func TestKeywords_Gates(t *testing.T) {
	kw := NewKeywords("$GATE", "2", "$G1S", "lymphocytes")
	gates, err := kw.Gates()
	require.NoError(t, err)
	require.Len(t, gates, 2)
	require.NotNil(t, gates[0].Name)
	assert.Equal(t, "lymphocytes", *gates[0].Name)
	assert.Equal(t, uint64(2), gates[1].Index)
	assert.Nil(t, gates[1].Name)

	count, err := NewKeywords().GatesCount()
	require.NoError(t, err)
	assert.Zero(t, count)
	gates, err = NewKeywords().Gates()
	require.NoError(t, err)
	assert.Empty(t, gates)
}

func TestKeywords_CountsBoundedByDictionary(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		call  func(*Keywords) error
		key   string
	}{
		{
			name:  "huge $PAR",
			pairs: []string{"$PAR", "100000000000000", "$TOT", "0"},
			call:  func(kw *Keywords) error { _, err := kw.Parameters(); return err },
			key:   "$PAR",
		},
		{
			name:  "$PAR above declared parameters",
			pairs: []string{"$PAR", "2", "$P1B", "32", "$P1N", "A", "$P1R", "10"},
			call:  func(kw *Keywords) error { _, err := kw.Parameters(); return err },
			key:   "$PAR",
		},
		{
			name:  "huge $GATE",
			pairs: []string{"$GATE", "100000000000000"},
			call:  func(kw *Keywords) error { _, err := kw.Gates(); return err },
			key:   "$GATE",
		},
		{
			name:  "$GATE just above limit",
			pairs: []string{"$GATE", fmt.Sprint(MaxGates + 1)},
			call:  func(kw *Keywords) error { _, err := kw.Gates(); return err },
			key:   "$GATE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(NewKeywords(tt.pairs...))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKeywordValue)
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	gates, err := NewKeywords("$GATE", fmt.Sprint(MaxGates)).Gates()
	require.NoError(t, err)
	assert.Len(t, gates, MaxGates)

	params, err := NewKeywords("$PAR", "0").Parameters()
	require.NoError(t, err)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestKeywords_DataTypeAndByteOrder(t *testing.T) {
	typeCases := map[string]DataType{"I": DataTypeInt, "F": DataTypeFloat, "D": DataTypeDouble}
	for in, want := range typeCases {
		got, err := NewKeywords("$DATATYPE", in).DataType()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"A", "f", ""} {
		_, err := NewKeywords("$DATATYPE", in).DataType()
		assert.ErrorIs(t, err, ErrInvalidDataType, in)
	}
	_, err := NewKeywords().DataType()
	assert.ErrorIs(t, err, ErrMissingRequiredKeyword)

	orderCases := map[string]ByteOrder{
		"4,3,2,1": BigEndian, "2,1": BigEndian,
		"1,2,3,4": LittleEndian, "1,2": LittleEndian,
	}
	for in, want := range orderCases {
		got, err := NewKeywords("$BYTEORD", in).ByteOrder()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"3,4,1,2", "1,2,3", ""} {
		_, err := NewKeywords("$BYTEORD", in).ByteOrder()
		assert.ErrorIs(t, err, ErrInvalidByteOrder, in)
	}
}

func TestKeywords_Metadata(t *testing.T) {
	kw := NewKeywords("$OP", "jdoe", "$CYT", "LSRFortessa", "$DATE", "05-MAR-2024")
	md := kw.Metadata()
	require.NotNil(t, md.Operator)
	assert.Equal(t, "jdoe", *md.Operator)
	require.NotNil(t, md.Cytometer)
	assert.Equal(t, "LSRFortessa", *md.Cytometer)
	require.NotNil(t, md.Date)
	assert.Nil(t, md.Institution)
	assert.Nil(t, md.System)
}

func TestKeyword_IsRequired(t *testing.T) {
	assert.True(t, KeywordTot.IsRequired())
	assert.False(t, KeywordCytometer.IsRequired())
	assert.Len(t, RequiredKeywords, 12)
}

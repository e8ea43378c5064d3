package fcs

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Parameter describes one measured channel. Only Bits, ShortName and Range
// are mandatory; the remaining fields are nil when the file omits them.
type Parameter struct {
	Index                uint64   `json:"index" yaml:"index" cbor:"index"`
	Bits                 uint64   `json:"bits" yaml:"bits" cbor:"bits"`
	ShortName            string   `json:"short_name" yaml:"short_name" cbor:"short_name"`
	Range                float64  `json:"range" yaml:"range" cbor:"range"`
	Amplification        *string  `json:"amplification,omitempty" yaml:"amplification,omitempty" cbor:"amplification,omitempty"`
	DisplayScale         *string  `json:"display_scale,omitempty" yaml:"display_scale,omitempty" cbor:"display_scale,omitempty"`
	Filter               *string  `json:"filter,omitempty" yaml:"filter,omitempty" cbor:"filter,omitempty"`
	Gain                 *float64 `json:"gain,omitempty" yaml:"gain,omitempty" cbor:"gain,omitempty"`
	ExcitationWavelength *string  `json:"excitation_wavelength,omitempty" yaml:"excitation_wavelength,omitempty" cbor:"excitation_wavelength,omitempty"`
	ExcitationPower      *string  `json:"excitation_power,omitempty" yaml:"excitation_power,omitempty" cbor:"excitation_power,omitempty"`
	EmittedPercent       *string  `json:"emitted_percent,omitempty" yaml:"emitted_percent,omitempty" cbor:"emitted_percent,omitempty"`
	Name                 *string  `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	DetectorType         *string  `json:"detector_type,omitempty" yaml:"detector_type,omitempty" cbor:"detector_type,omitempty"`
	DetectorVoltage      *string  `json:"detector_voltage,omitempty" yaml:"detector_voltage,omitempty" cbor:"detector_voltage,omitempty"`
}

// Gate is one entry of the $GATE table.
type Gate struct {
	Index uint64  `json:"index" yaml:"index" cbor:"index"`
	Name  *string `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
}

// Metadata projects the descriptive optional keywords.
type Metadata struct {
	Operator        *string `json:"operator,omitempty" yaml:"operator,omitempty" cbor:"operator,omitempty"`
	Experimenter    *string `json:"experimenter,omitempty" yaml:"experimenter,omitempty" cbor:"experimenter,omitempty"`
	FileName        *string `json:"file_name,omitempty" yaml:"file_name,omitempty" cbor:"file_name,omitempty"`
	Cytometer       *string `json:"cytometer,omitempty" yaml:"cytometer,omitempty" cbor:"cytometer,omitempty"`
	CytometerSerial *string `json:"cytometer_serial,omitempty" yaml:"cytometer_serial,omitempty" cbor:"cytometer_serial,omitempty"`
	Institution     *string `json:"institution,omitempty" yaml:"institution,omitempty" cbor:"institution,omitempty"`
	Source          *string `json:"source,omitempty" yaml:"source,omitempty" cbor:"source,omitempty"`
	System          *string `json:"system,omitempty" yaml:"system,omitempty" cbor:"system,omitempty"`
	Date            *string `json:"date,omitempty" yaml:"date,omitempty" cbor:"date,omitempty"`
	BeginTime       *string `json:"begin_time,omitempty" yaml:"begin_time,omitempty" cbor:"begin_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty" yaml:"end_time,omitempty" cbor:"end_time,omitempty"`
	Project         *string `json:"project,omitempty" yaml:"project,omitempty" cbor:"project,omitempty"`
	Comment         *string `json:"comment,omitempty" yaml:"comment,omitempty" cbor:"comment,omitempty"`
}

// Len returns the number of distinct keys.
func (kw *Keywords) Len() int {
	return len(kw.order)
}

// Keys returns the keys in first-seen order.
func (kw *Keywords) Keys() []string {
	return append([]string(nil), kw.order...)
}

// Map returns a copy of the dictionary.
func (kw *Keywords) Map() map[string]string {
	return maps.Clone(kw.values)
}

// Get looks up a raw value.
func (kw *Keywords) Get(key Keyword) (string, bool) {
	v, ok := kw.values[string(key)]
	return v, ok
}

func (kw *Keywords) optional(key Keyword) *string {
	if v, ok := kw.Get(key); ok {
		return &v
	}
	return nil
}

// Require returns the value of key or ErrMissingRequiredKeyword.
func (kw *Keywords) Require(key Keyword) (string, error) {
	v, ok := kw.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredKeyword, key)
	}
	return v, nil
}

// RequiredUint parses a mandatory unsigned integer keyword.
func (kw *Keywords) RequiredUint(key Keyword) (uint64, error) {
	v, err := kw.Require(key)
	if err != nil {
		return 0, err
	}
	return parseUintValue(key, v)
}

// RequiredFloat parses a mandatory decimal keyword.
func (kw *Keywords) RequiredFloat(key Keyword) (float64, error) {
	v, err := kw.Require(key)
	if err != nil {
		return 0, err
	}
	return parseFloatValue(key, v)
}

// OptionalUint parses key when present. A present but malformed value is
// still an error.
func (kw *Keywords) OptionalUint(key Keyword) (uint64, bool, error) {
	v, ok := kw.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err := parseUintValue(key, v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func parseUintValue(key Keyword, v string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an unsigned integer", ErrInvalidKeywordValue, key, v)
	}
	return n, nil
}

func parseFloatValue(key Keyword, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidKeywordValue, key, v)
	}
	return f, nil
}

// GetIndexed looks up a per-parameter or per-gate field.
func (kw *Keywords) GetIndexed(kind KeyKind, index uint64, field string) (string, bool) {
	return kw.Get(IndexedKey(kind, index, field))
}

// TotalEvents returns $TOT.
func (kw *Keywords) TotalEvents() (uint64, error) {
	return kw.RequiredUint(KeywordTot)
}

// ParametersCount returns $PAR.
func (kw *Keywords) ParametersCount() (uint64, error) {
	return kw.RequiredUint(KeywordPar)
}

// Parameters returns the $PAR parameter descriptions in index order. A
// missing $PnB, $PnN or $PnR fails the whole call.
func (kw *Keywords) Parameters() ([]Parameter, error) {
	count, err := kw.ParametersCount()
	if err != nil {
		return nil, err
	}
	// Each parameter needs its own $PnB, $PnN and $PnR.
	if limit := uint64(kw.Len() / 3); count > limit {
		return nil, fmt.Errorf("%w: %s=%d but only %d keywords are present", ErrInvalidKeywordValue, KeywordPar, count, kw.Len())
	}
	params := []Parameter{}
	for i := uint64(1); i <= count; i++ {
		p := Parameter{Index: i}
		if p.Bits, err = kw.RequiredUint(IndexedKey(ParameterKey, i, FieldBits)); err != nil {
			return nil, err
		}
		if p.ShortName, err = kw.Require(IndexedKey(ParameterKey, i, FieldShortName)); err != nil {
			return nil, err
		}
		// $PnR is an integer in FCS 2.0/3.0 but 3.1 allows decimals.
		if p.Range, err = kw.RequiredFloat(IndexedKey(ParameterKey, i, FieldRange)); err != nil {
			return nil, err
		}
		if g, ok := kw.GetIndexed(ParameterKey, i, FieldGain); ok {
			gain, err := parseFloatValue(IndexedKey(ParameterKey, i, FieldGain), g)
			if err != nil {
				return nil, err
			}
			p.Gain = &gain
		}
		p.Amplification = kw.optional(IndexedKey(ParameterKey, i, FieldAmplification))
		p.DisplayScale = kw.optional(IndexedKey(ParameterKey, i, FieldDisplayScale))
		p.Filter = kw.optional(IndexedKey(ParameterKey, i, FieldFilter))
		p.ExcitationWavelength = kw.optional(IndexedKey(ParameterKey, i, FieldExcitationWavelength))
		p.ExcitationPower = kw.optional(IndexedKey(ParameterKey, i, FieldExcitationPower))
		p.EmittedPercent = kw.optional(IndexedKey(ParameterKey, i, FieldEmittedPercent))
		p.Name = kw.optional(IndexedKey(ParameterKey, i, FieldName))
		p.DetectorType = kw.optional(IndexedKey(ParameterKey, i, FieldDetectorType))
		p.DetectorVoltage = kw.optional(IndexedKey(ParameterKey, i, FieldDetectorVoltage))
		params = append(params, p)
	}
	return params, nil
}

// GatesCount returns $GATE, or 0 when absent.
func (kw *Keywords) GatesCount() (uint64, error) {
	n, _, err := kw.OptionalUint(KeywordGate)
	return n, err
}

// MaxGates bounds $GATE. Gate entries carry no required keywords, so the
// count cannot be checked against the dictionary size.
const MaxGates = 1 << 12

// Gates returns the gate table declared by $GATE.
func (kw *Keywords) Gates() ([]Gate, error) {
	count, err := kw.GatesCount()
	if err != nil {
		return nil, err
	}
	if count > MaxGates {
		return nil, fmt.Errorf("%w: %s=%d exceeds %d", ErrInvalidKeywordValue, KeywordGate, count, MaxGates)
	}
	gates := []Gate{}
	for i := uint64(1); i <= count; i++ {
		gates = append(gates, Gate{
			Index: i,
			Name:  kw.optional(IndexedKey(GateKey, i, FieldName)),
		})
	}
	return gates, nil
}

// Metadata collects the descriptive keywords.
func (kw *Keywords) Metadata() Metadata {
	return Metadata{
		Operator:        kw.optional(KeywordOperator),
		Experimenter:    kw.optional(KeywordExperimenter),
		FileName:        kw.optional(KeywordFileName),
		Cytometer:       kw.optional(KeywordCytometer),
		CytometerSerial: kw.optional(KeywordCytometerSN),
		Institution:     kw.optional(KeywordInstitution),
		Source:          kw.optional(KeywordSource),
		System:          kw.optional(KeywordSystem),
		Date:            kw.optional(KeywordDate),
		BeginTime:       kw.optional(KeywordBeginTime),
		EndTime:         kw.optional(KeywordEndTime),
		Project:         kw.optional(KeywordProject),
		Comment:         kw.optional(KeywordComment),
	}
}

// DataType maps $DATATYPE.
func (kw *Keywords) DataType() (DataType, error) {
	v, err := kw.Require(KeywordDataType)
	if err != nil {
		return 0, err
	}
	return ParseDataType(v)
}

// ByteOrder maps $BYTEORD.
func (kw *Keywords) ByteOrder() (ByteOrder, error) {
	v, err := kw.Require(KeywordByteOrder)
	if err != nil {
		return 0, err
	}
	return ParseByteOrder(v)
}

// NextData returns $NEXTDATA, or 0 when the keyword is absent.
func (kw *Keywords) NextData() (uint64, error) {
	n, _, err := kw.OptionalUint(KeywordNextData)
	return n, err
}

// dataRange returns $BEGINDATA/$ENDDATA when both are present.
func (kw *Keywords) dataRange() (start, end uint64, ok bool, err error) {
	start, hasStart, err := kw.OptionalUint(KeywordBeginData)
	if err != nil {
		return 0, 0, false, err
	}
	end, hasEnd, err := kw.OptionalUint(KeywordEndData)
	if err != nil {
		return 0, 0, false, err
	}
	return start, end, hasStart && hasEnd, nil
}

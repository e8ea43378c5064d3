package fcs

import "strconv"

// Keyword is a TEXT segment key such as "$PAR".
type Keyword string

// Required keywords.
const (
	KeywordBeginAnalysis Keyword = "$BEGINANALYSIS"
	KeywordBeginData     Keyword = "$BEGINDATA"
	KeywordBeginSText    Keyword = "$BEGINSTEXT"
	KeywordByteOrder     Keyword = "$BYTEORD"
	KeywordDataType      Keyword = "$DATATYPE"
	KeywordEndAnalysis   Keyword = "$ENDANALYSIS"
	KeywordEndData       Keyword = "$ENDDATA"
	KeywordEndSText      Keyword = "$ENDSTEXT"
	KeywordMode          Keyword = "$MODE"
	KeywordNextData      Keyword = "$NEXTDATA"
	KeywordPar           Keyword = "$PAR"
	KeywordTot           Keyword = "$TOT"
)

// Optional keywords.
const (
	KeywordAbort         Keyword = "$ABRT"
	KeywordBeginTime     Keyword = "$BTIM"
	KeywordCells         Keyword = "$CELLS"
	KeywordComment       Keyword = "$COM"
	KeywordCSMode        Keyword = "$CSMODE"
	KeywordCSVBits       Keyword = "$CSVBITS"
	KeywordCytometer     Keyword = "$CYT"
	KeywordCytometerSN   Keyword = "$CYTSN"
	KeywordDate          Keyword = "$DATE"
	KeywordEndTime       Keyword = "$ETIM"
	KeywordExperimenter  Keyword = "$EXP"
	KeywordFileName      Keyword = "$FIL"
	KeywordGate          Keyword = "$GATE"
	KeywordInstitution   Keyword = "$INST"
	KeywordLastModified  Keyword = "$LAST_MODIFIED"
	KeywordLastModifier  Keyword = "$LAST_MODIFIER"
	KeywordLost          Keyword = "$LOST"
	KeywordOperator      Keyword = "$OP"
	KeywordOriginality   Keyword = "$ORIGINALITY"
	KeywordPlateID       Keyword = "$PLATEID"
	KeywordPlateName     Keyword = "$PLATENAME"
	KeywordProject       Keyword = "$PROJ"
	KeywordSpecimen      Keyword = "$SMNO"
	KeywordSpillover     Keyword = "$SPILLOVER"
	KeywordSource        Keyword = "$SRC"
	KeywordSystem        Keyword = "$SYS"
	KeywordTimestep      Keyword = "$TIMESTEP"
	KeywordTrigger       Keyword = "$TR"
	KeywordVolume        Keyword = "$VOL"
	KeywordWellID        Keyword = "$WELLID"
)

// RequiredKeywords lists the keywords every FCS 3.x TEXT segment must carry.
var RequiredKeywords = []Keyword{
	KeywordBeginAnalysis, KeywordBeginData, KeywordBeginSText, KeywordByteOrder,
	KeywordDataType, KeywordEndAnalysis, KeywordEndData, KeywordEndSText,
	KeywordMode, KeywordNextData, KeywordPar, KeywordTot,
}

// OptionalKeywords lists the standard keywords that may be absent.
var OptionalKeywords = []Keyword{
	KeywordAbort, KeywordBeginTime, KeywordCells, KeywordComment, KeywordCSMode,
	KeywordCSVBits, KeywordCytometer, KeywordCytometerSN, KeywordDate,
	KeywordEndTime, KeywordExperimenter, KeywordFileName, KeywordGate,
	KeywordInstitution, KeywordLastModified, KeywordLastModifier, KeywordLost,
	KeywordOperator, KeywordOriginality, KeywordPlateID, KeywordPlateName,
	KeywordProject, KeywordSpecimen, KeywordSpillover, KeywordSource,
	KeywordSystem, KeywordTimestep, KeywordTrigger, KeywordVolume, KeywordWellID,
}

// IsRequired reports whether k is in RequiredKeywords.
func (k Keyword) IsRequired() bool {
	for _, r := range RequiredKeywords {
		if r == k {
			return true
		}
	}
	return false
}

// KeyKind selects the family of an indexed keyword.
type KeyKind byte

const (
	ParameterKey KeyKind = 'P'
	GateKey      KeyKind = 'G'
)

// Fields of per-parameter ($PnX) and per-gate ($GnX) keywords.
const (
	FieldBits                 = "B"
	FieldDisplayScale         = "D"
	FieldAmplification        = "E"
	FieldFilter               = "F"
	FieldGain                 = "G"
	FieldExcitationWavelength = "L"
	FieldShortName            = "N"
	FieldExcitationPower      = "O"
	FieldEmittedPercent       = "P"
	FieldRange                = "R"
	FieldName                 = "S"
	FieldDetectorType         = "T"
	FieldDetectorVoltage      = "V"
)

// IndexedKey builds keys like "$P3N" or "$G1S".
func IndexedKey(kind KeyKind, index uint64, field string) Keyword {
	b := make([]byte, 0, 8)
	b = append(b, '$', byte(kind))
	b = strconv.AppendUint(b, index, 10)
	b = append(b, field...)
	return Keyword(b)
}

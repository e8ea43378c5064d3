package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// Variables visible to check expressions.
const (
	VarKeywords        = "keywords"
	VarVersion         = "version"
	VarTotalEvents     = "total_events"
	VarParametersCount = "parameters_count"
	VarParameters      = "parameters"
	VarMetadata        = "metadata"
	VarDataType        = "data_type"
	VarByteOrder       = "byte_order"
	VarHasAnalysis     = "has_analysis"
	VarNextData        = "next_data"
)

// NewEnvironment creates the CEL environment document checks compile against.
func NewEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.CustomTypeAdapter(NewDocumentTypeAdapter()),
		cel.CrossTypeNumericComparisons(true),

		cel.Variable(VarKeywords, cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable(VarVersion, cel.DoubleType),
		cel.Variable(VarTotalEvents, cel.IntType),
		cel.Variable(VarParametersCount, cel.IntType),
		cel.Variable(VarParameters, cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
		cel.Variable(VarMetadata, cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable(VarDataType, cel.StringType),
		cel.Variable(VarByteOrder, cel.StringType),
		cel.Variable(VarHasAnalysis, cel.BoolType),
		cel.Variable(VarNextData, cel.IntType),

		KeywordFunctions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// KeywordFunctions adds lookups on string maps:
//
//	keywords.get("$SRC", "unknown")
//	keywords.number("$P1R") > 1000.0
func KeywordFunctions() cel.EnvOption {
	return cel.Lib(&keywordLib{})
}

type keywordLib struct{}

func (*keywordLib) CompileOptions() []cel.EnvOption {
	stringMap := cel.MapType(cel.StringType, cel.StringType)
	return []cel.EnvOption{
		cel.Function("get",
			cel.MemberOverload("map_get_string_default",
				[]*cel.Type{stringMap, cel.StringType, cel.StringType}, cel.StringType,
				cel.FunctionBinding(getOrDefault),
			),
		),
		cel.Function("number",
			cel.MemberOverload("map_number_string",
				[]*cel.Type{stringMap, cel.StringType}, cel.DoubleType,
				cel.BinaryBinding(keywordNumber),
			),
		),
	}
}

func (*keywordLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func getOrDefault(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.NewErr("get: expected 3 arguments, got %d", len(args))
	}
	m, ok := args[0].(traits.Mapper)
	if !ok {
		return types.MaybeNoSuchOverloadErr(args[0])
	}
	if v, found := m.Find(args[1]); found {
		return v
	}
	return args[2]
}

func keywordNumber(lhs, rhs ref.Val) ref.Val {
	m, ok := lhs.(traits.Mapper)
	if !ok {
		return types.MaybeNoSuchOverloadErr(lhs)
	}
	v, found := m.Find(rhs)
	if !found {
		return types.NewErr("no such keyword: %v", rhs)
	}
	s, ok := v.(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return types.NewErr("keyword %v is not numeric: %q", rhs, string(s))
	}
	return types.Double(f)
}

// DocumentTypeAdapter widens the unsigned counters and float32 samples
// decoded from FCS files so they compare naturally against CEL int and
// double literals.
type DocumentTypeAdapter struct {
	types.Adapter
}

// NewDocumentTypeAdapter wraps the default adapter.
func NewDocumentTypeAdapter() *DocumentTypeAdapter {
	return &DocumentTypeAdapter{
		Adapter: types.DefaultTypeAdapter,
	}
}

// NativeToValue converts Go native types to CEL values.
func (a *DocumentTypeAdapter) NativeToValue(value any) ref.Val {
	switch v := value.(type) {
	case int32:
		return types.Int(v)
	case uint32:
		return types.Int(v)
	case uint64:
		if v <= 1<<63-1 {
			return types.Int(int64(v))
		}
		return types.Uint(v)
	case float32:
		return types.Double(v)
	default:
		return a.Adapter.NativeToValue(value)
	}
}

// Package rules evaluates CEL checks against parsed FCS documents.
package rules

import (
	"errors"
	"fmt"

	"github.com/twinfer/fcs-plugin/pkg/fcs"
)

// ErrCheckFailed marks a check that evaluated to false.
var ErrCheckFailed = errors.New("check failed")

// CheckError reports one failing expression. Err is nil when the expression
// evaluated cleanly to false.
type CheckError struct {
	Expr string
	Err  error
}

func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("check %q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("check %q evaluated to false", e.Expr)
}

func (e *CheckError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrCheckFailed
}

// Checker runs a fixed list of expressions against documents.
type Checker struct {
	pool  *ProgramPool
	exprs []string
}

// NewChecker compiles exprs up front so syntax errors surface before any
// document is parsed.
func NewChecker(pool *ProgramPool, exprs []string) (*Checker, error) {
	for _, expr := range exprs {
		if _, err := pool.Program(expr); err != nil {
			return nil, err
		}
	}
	return &Checker{pool: pool, exprs: exprs}, nil
}

// Exprs returns the configured expressions.
func (c *Checker) Exprs() []string {
	return c.exprs
}

// Check evaluates every expression against doc. The result joins one
// *CheckError per failing expression and is nil when all pass.
func (c *Checker) Check(doc *fcs.Document) error {
	vars := Variables(doc)
	var errs []error
	for _, expr := range c.exprs {
		program, err := c.pool.Program(expr)
		if err != nil {
			errs = append(errs, &CheckError{Expr: expr, Err: err})
			continue
		}
		ok, err := c.pool.Eval(program, vars)
		switch {
		case err != nil:
			errs = append(errs, &CheckError{Expr: expr, Err: err})
		case !ok:
			errs = append(errs, &CheckError{Expr: expr})
		}
	}
	return errors.Join(errs...)
}

// Failed lists the expressions behind err, as returned by Check.
func Failed(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Failed(e)...)
		}
		return out
	}
	var ce *CheckError
	if errors.As(err, &ce) {
		out = append(out, ce.Expr)
	}
	return out
}

// Variables builds the activation for doc. A malformed parameter table
// yields an empty parameters list rather than an error, so checks such as
// size(parameters) == parameters_count can detect it.
func Variables(doc *fcs.Document) map[string]any {
	header := doc.Header()

	params := []any{}
	if ps, err := doc.Parameters(); err == nil {
		for _, p := range ps {
			m := map[string]any{
				"index":      int64(p.Index),
				"bits":       int64(p.Bits),
				"short_name": p.ShortName,
				"range":      p.Range,
			}
			if p.Name != nil {
				m["name"] = *p.Name
			}
			if p.Gain != nil {
				m["gain"] = *p.Gain
			}
			if p.DetectorVoltage != nil {
				m["detector_voltage"] = *p.DetectorVoltage
			}
			params = append(params, m)
		}
	}

	byteOrder := ""
	if o, err := doc.Keywords().ByteOrder(); err == nil {
		byteOrder = o.String()
	}

	return map[string]any{
		VarKeywords:        doc.Keywords().Map(),
		VarVersion:         header.Version,
		VarTotalEvents:     doc.TotalEvents(),
		VarParametersCount: doc.ParametersCount(),
		VarParameters:      params,
		VarMetadata:        metadataMap(doc.Metadata()),
		VarDataType:        doc.DataType().String(),
		VarByteOrder:       byteOrder,
		VarHasAnalysis:     header.HasAnalysis(),
		VarNextData:        doc.NextData(),
	}
}

func metadataMap(md fcs.Metadata) map[string]string {
	out := make(map[string]string)
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set("operator", md.Operator)
	set("experimenter", md.Experimenter)
	set("file_name", md.FileName)
	set("cytometer", md.Cytometer)
	set("cytometer_serial", md.CytometerSerial)
	set("institution", md.Institution)
	set("source", md.Source)
	set("system", md.System)
	set("date", md.Date)
	set("begin_time", md.BeginTime)
	set("end_time", md.EndTime)
	set("project", md.Project)
	set("comment", md.Comment)
	return out
}

package fcs

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrIO                     = errors.New("fcs: i/o error")
	ErrMalformedHeader        = errors.New("fcs: malformed header")
	ErrMalformedText          = errors.New("fcs: malformed text segment")
	ErrMissingRequiredKeyword = errors.New("fcs: missing required keyword")
	ErrInvalidKeywordValue    = errors.New("fcs: invalid keyword value")
	ErrInvalidByteOrder       = errors.New("fcs: invalid byte order")
	ErrInvalidDataType        = errors.New("fcs: invalid data type")
	ErrTruncatedDataSegment   = errors.New("fcs: truncated data segment")
	ErrDataLengthMismatch     = errors.New("fcs: data length mismatch")
)

// RangeError reports a failed read of the inclusive byte range [Start, Stop]
// relative to Offset.
type RangeError struct {
	Offset uint64
	Start  uint64
	Stop   uint64
	Err    error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("reading bytes %d-%d (offset %d): %v", e.Start, e.Stop, e.Offset, e.Err)
}

// Unwrap exposes both ErrIO and the underlying transport error.
func (e *RangeError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func rangeErr(offset, start, stop uint64, err error) error {
	return &RangeError{Offset: offset, Start: start, Stop: stop, Err: err}
}

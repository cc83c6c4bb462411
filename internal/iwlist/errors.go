package iwlist

import (
	"errors"
	"fmt"
)

// Malformed input errors.
// These are never returned bare; they are wrapped in a *ParseError that
// locates the offending line. Use errors.Is to test for them.
var (
	// ErrMalformedRecordStart is returned when a cell line has no ordinal
	// label or no hardware address after the "Address:" token.
	ErrMalformedRecordStart = errors.New("malformed cell line")

	// ErrMalformedInteger is returned when a Channel line carries a value
	// that is not an integer.
	ErrMalformedInteger = errors.New("malformed integer field")
)

// ParseError locates a malformed line in the scan report.
type ParseError struct {
	// Line is the 1-based line number in the raw report. The banner is line 1.
	Line int

	// Text is the offending line after whitespace trimming.
	Text string

	// Err is the underlying sentinel error, possibly wrapped with detail.
	Err error
}

// Error returns the line number, the cause and the raw line.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

// Unwrap returns the underlying error so that errors.Is matches the sentinels.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseErrors extracts every *ParseError from err.
// It understands errors joined by a lenient parse as well as a single
// *ParseError returned by a strict one. It returns nil if err is nil.
func ParseErrors(err error) []*ParseError {
	if err == nil {
		return nil
	}

	var result []*ParseError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			result = append(result, ParseErrors(e)...)
		}
		return result
	}

	var perr *ParseError
	if errors.As(err, &perr) {
		result = append(result, perr)
	}
	return result
}

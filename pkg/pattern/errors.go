package pattern

import (
	"errors"
	"fmt"
)

// Sentinel errors for pattern compilation.
var (
	// ErrInvalidSegment is returned for unbalanced brackets, segments that mix
	// literal and bracket syntax, and invalid parameter names.
	ErrInvalidSegment = errors.New("pattern: invalid segment")

	// ErrMisplacedCatchAll is returned when a catch-all is not the last segment.
	ErrMisplacedCatchAll = errors.New("pattern: catch-all must be the last segment")

	// ErrDuplicateParam is returned when a parameter name appears twice.
	ErrDuplicateParam = errors.New("pattern: duplicate parameter name")

	// ErrMissingParam is returned by Build when a required value is absent.
	ErrMissingParam = errors.New("pattern: missing parameter value")
)

// Error wraps a compilation failure with the offending pattern and segment.
type Error struct {
	Pattern string
	Segment string
	Index   int   // position among non-empty segments
	Err     error // one of the sentinel errors above
}

// Error returns the error message with pattern context.
func (e *Error) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("%v (in %q)", e.Err, e.Pattern)
	}
	return fmt.Sprintf("%v: segment %d %q (in %q)", e.Err, e.Index, e.Segment, e.Pattern)
}

// Unwrap returns the sentinel error for errors.Is.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(src, seg string, idx int, err error) *Error {
	return &Error{Pattern: src, Segment: seg, Index: idx, Err: err}
}

package unv

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("unrecognized universal file format")

// FormatError reports input that could not be turned into a record.
// Line is zero-based and -1 when the failure is not tied to a line.
type FormatError struct {
	Line   int
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Reason
	if e.Line >= 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "format error: " + msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErr(line int, reason string, err error) *FormatError {
	return &FormatError{Line: line, Reason: reason, Err: err}
}

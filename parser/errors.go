package parser

import (
	"fmt"

	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/loc"
)

// ParseError is returned by Parse. It always wraps a *diag.Panic of kind
// diag.KindParseExpected; the wrapper exists only so callers can use
// errors.As against a named type without reaching into the diag package.
type ParseError struct {
	Panic *diag.Panic
}

func (e *ParseError) Error() string { return e.Panic.Error() }
func (e *ParseError) Unwrap() error { return e.Panic }

func expectedErr(path, src string, offset int, expected string) *ParseError {
	p := diag.At(diag.KindParseExpected,
		fmt.Sprintf("Expected %s", expected),
		loc.NewLocation(path, loc.Thin(loc.NewOffsetCursor(offset)), src))
	return &ParseError{Panic: p}
}

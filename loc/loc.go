// Package loc implements byte-offset source spans and their lazy
// line/column resolution, the position-tracking primitive shared by every
// later stage of the Onyx compiler pipeline.
package loc

import "fmt"

// Cursor is a byte offset into a unit's source text. Line and column are
// filled in lazily (see Complete); a Cursor constructed with only an offset
// reports Incomplete() == true until it has been completed against source.
//
// Line and Column are both zero-based internally; String renders them
// one-based, matching editor conventions.
type Cursor struct {
	Offset int
	Line   int
	Column int
	filled bool
}

// NewCursor constructs a Cursor with both the offset and its resolved
// line/column already known.
func NewCursor(offset, line, column int) Cursor {
	return Cursor{Offset: offset, Line: line, Column: column, filled: true}
}

// NewOffsetCursor constructs a Cursor that only knows its byte offset. Its
// line/column are resolved later via Complete.
func NewOffsetCursor(offset int) Cursor {
	return Cursor{Offset: offset}
}

// Incomplete reports whether this Cursor still needs Complete called
// against the owning unit's source before its Line/Column are meaningful.
func (c Cursor) Incomplete() bool {
	return !c.filled
}

// Complete resolves Line/Column by counting newlines in the prefix of src
// up to Offset. It is a no-op if the Cursor is already complete.
func (c Cursor) Complete(src string) Cursor {
	if c.filled {
		return c
	}
	prefix := src[:c.Offset]
	line := 0
	lastNewline := -1
	for i, b := range []byte(prefix) {
		if b == '\n' {
			line++
			lastNewline = i
		}
	}
	return Cursor{Offset: c.Offset, Line: line, Column: c.Offset - lastNewline - 1, filled: true}
}

// Equal compares two cursors structurally by offset only, per the span
// equality rule: line/column are derived data, not identity.
func (c Cursor) Equal(other Cursor) bool {
	return c.Offset == other.Offset
}

func (c Cursor) String() string {
	if !c.filled {
		return fmt.Sprintf("&%d", c.Offset)
	}
	return fmt.Sprintf("%d:%d", c.Line+1, c.Column+1)
}

// Span is a half-open pair of cursors delimiting a region of source text.
type Span struct {
	Start Cursor
	End   Cursor
}

// NewSpan builds a Span from two cursors.
func NewSpan(start, end Cursor) Span {
	return Span{Start: start, End: end}
}

// Thin builds a zero-width Span at a single cursor, used for point
// diagnostics (e.g. the first unmet expectation in the parser).
func Thin(c Cursor) Span {
	return Span{Start: c, End: c}
}

// OffsetSpan builds a Span from two bare byte offsets, deferring line/column
// resolution until Complete is called.
func OffsetSpan(start, end int) Span {
	return Span{Start: NewOffsetCursor(start), End: NewOffsetCursor(end)}
}

// Join returns the smallest span enclosing both s and other.
func (s Span) Join(other Span) Span {
	start, end := s.Start, s.End
	if other.Start.Offset < start.Offset {
		start = other.Start
	}
	if other.End.Offset > end.Offset {
		end = other.End
	}
	return Span{Start: start, End: end}
}

// Complete resolves both cursors' line/column against src.
func (s Span) Complete(src string) Span {
	return Span{Start: s.Start.Complete(src), End: s.End.Complete(src)}
}

// Equal compares spans structurally over offsets only.
func (s Span) Equal(other Span) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

func (s Span) String() string {
	if s.Start.Equal(s.End) {
		return s.Start.String()
	}
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}

// Spanned is implemented by every AST/DST node reachable by a caller; it
// exposes the node's source span for diagnostics.
type Spanned interface {
	Span() Span
}

// Location pairs a Span with the path of the unit it was taken from. It is
// always displayed in "path:line:col" or "path:line:col..line:col" form.
type Location struct {
	Path string
	Span Span
}

// NewLocation builds a Location, completing the span's cursors against src
// if they are still offset-only. Passing an empty src leaves an incomplete
// span incomplete (used for I/O failures, which have no source to read).
func NewLocation(path string, span Span, src string) Location {
	if src != "" {
		span = span.Complete(src)
	}
	return Location{Path: path, Span: span}
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%s", l.Path, l.Span)
}

// Package diag implements the compiler's single structured diagnostic
// value, Panic, propagated up the call chain in place of Rust-style panics.
// Panics are not recovered locally; the earliest one returned from any
// pipeline stage is the one the caller sees (spec §7).
package diag

import (
	"fmt"
	"strings"

	"github.com/onyxlang/onyxc/loc"
)

// Kind identifies the category of a Panic, matching the error-kind table
// in spec §7. It exists so callers (e.g. the CLI collaborator, or tests
// asserting on scenario behavior) can branch on the nature of the failure
// without string-matching messages.
type Kind string

const (
	KindSourceRead                Kind = "SourceRead"
	KindParseExpected             Kind = "ParseExpected"
	KindDuplicateDeclaration      Kind = "DuplicateDeclaration"
	KindUnknownIdentifier         Kind = "UnknownIdentifier"
	KindIdNotAStruct              Kind = "IdNotAStruct"
	KindIdNotAFunc                Kind = "IdNotAFunc"
	KindUseNonValueAsValue        Kind = "UseNonValueAsValue"
	KindUnusedExpressionResult    Kind = "UnusedExpressionResult"
	KindVoidExpressionInContext   Kind = "VoidExpressionInContext"
	KindTypeMismatch              Kind = "TypeMismatch"
	KindUnknownDecorator          Kind = "UnknownDecorator"
	KindDuplicateBuiltinDecorator Kind = "DuplicateBuiltinDecorator"
	KindUnknownBuiltinName        Kind = "UnknownBuiltinName"
	KindUnknownMacro              Kind = "UnknownMacro"
	KindSelfImport                Kind = "SelfImport"
	KindImportCycle               Kind = "ImportCycle"
	KindImportNameNotFound        Kind = "ImportNameNotFound"
	KindNotImplemented            Kind = "NotImplemented"
	KindToolchainFailure          Kind = "ToolchainFailure"

	// KindDanglingDecorator is not in spec §7's table; it covers spec §3's
	// end-of-module invariant that the pending-decorator stack be empty.
	KindDanglingDecorator Kind = "DanglingDecorator"
)

// Note is a secondary annotation on a Panic, such as "previously declared
// here" pointing at an earlier binding.
type Note struct {
	Message  string
	Location *loc.Location
}

func (n Note) String() string {
	if n.Location != nil {
		return fmt.Sprintf("%s at %s", n.Message, *n.Location)
	}
	return n.Message
}

// Panic is a structured compiler diagnostic: a message, an optional primary
// location, an ordered list of notes, and a Kind for programmatic dispatch.
type Panic struct {
	Kind     Kind
	Message  string
	Location *loc.Location
	Notes    []Note
}

// New constructs a Panic with no location. Use this for I/O failures, which
// have no meaningful source position (spec §7).
func New(kind Kind, message string) *Panic {
	return &Panic{Kind: kind, Message: message}
}

// At constructs a Panic with a primary location.
func At(kind Kind, message string, at loc.Location) *Panic {
	return &Panic{Kind: kind, Message: message, Location: &at}
}

// AddNote appends an ordered note, optionally located.
func (p *Panic) AddNote(message string, at *loc.Location) *Panic {
	p.Notes = append(p.Notes, Note{Message: message, Location: at})
	return p
}

// Error implements the error interface. Terminal color codes are
// deliberately not emitted here: spec §1 places that concern on the
// external CLI collaborator, not this core.
func (p *Panic) Error() string {
	var b strings.Builder
	b.WriteString(p.Message)
	if p.Location != nil {
		fmt.Fprintf(&b, " at %s", *p.Location)
	}
	for _, n := range p.Notes {
		fmt.Fprintf(&b, "\n  note: %s", n)
	}
	return b.String()
}

// Package lower translates a resolved DST Module into Zig source text.
// Every mapping below reproduces, character for character, the output the
// original Rust lowerer produced — the external `zig` toolchain is not
// part of this repository, so the emitted text is the only contract it
// has with this compiler.
package lower

import (
	"fmt"
	"strings"

	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
)

// Module renders mod's declarations, imports, and main statement list as a
// single Zig source file: `pub fn main() void { ... }` wrapping the
// resolved main statements. Builtin structs and functions require no
// standalone emission (spec §4.5, step 1–2); anything non-builtin is not
// yet supported and yields a *diag.Panic of kind diag.KindNotImplemented.
func Module(mod *dst.Module) (string, error) {
	for _, decl := range mod.Declarations() {
		if err := checkLowerable(decl); err != nil {
			return "", err
		}
	}
	for _, rec := range mod.ImportRecords {
		for _, name := range rec.Names {
			if err := checkLowerable(name); err != nil {
				return "", err
			}
		}
	}

	var b strings.Builder
	b.WriteString("pub fn main() void {\n")
	for _, stmt := range mod.Main {
		line, err := statement(stmt)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func checkLowerable(e dst.Exportable) error {
	switch v := e.(type) {
	case *dst.StructDecl:
		if !v.IsBuiltin() {
			return diag.New(diag.KindNotImplemented, fmt.Sprintf("lowering non-builtin struct %s is not implemented", v.Name()))
		}
	case *dst.FunctionDecl:
		if !v.IsBuiltin() {
			return diag.New(diag.KindNotImplemented, fmt.Sprintf("lowering non-builtin function %s is not implemented", v.Name()))
		}
	case *dst.VarDecl:
		// VarDecls are emitted inline inside main; nothing to check here.
	}
	return nil
}

func statement(s dst.Statement) (string, error) {
	switch v := s.(type) {
	case *dst.VarDecl:
		e, err := expr(v.Init)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("var @\"%s\" = %s", v.Name(), e), nil
	case *dst.TerminatedExpr:
		return expr(v.Expr)
	default:
		panic(fmt.Sprintf("lower: unhandled statement type %T", s))
	}
}

func expr(e dst.Expr) (string, error) {
	switch v := e.(type) {
	case *dst.BoolLiteral:
		if v.Value {
			return "true", nil
		}
		return "false", nil
	case *dst.VarRef:
		return fmt.Sprintf("@\"%s\"", v.Decl.Name()), nil
	case *dst.Assignment:
		rhs, err := expr(v.Rhs)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("@\"%s\" = %s", v.Lhs.Decl.Name(), rhs), nil
	case *dst.AssertCall:
		arg, err := expr(v.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("@import(\"std\").debug.assert(%s)", arg), nil
	case *dst.Call:
		return callExpr(v)
	default:
		panic(fmt.Sprintf("lower: unhandled expr type %T", e))
	}
}

func callExpr(c *dst.Call) (string, error) {
	if !c.Callee.IsBuiltin() {
		return "", diag.New(diag.KindNotImplemented, fmt.Sprintf("lowering call to non-builtin function %s is not implemented", c.Callee.Name()))
	}
	switch c.Callee.Builtin {
	case "BoolEq":
		if len(c.Args) != 2 {
			return "", diag.New(diag.KindNotImplemented, "builtin BoolEq requires exactly two arguments")
		}
		lhs, err := expr(c.Args[0])
		if err != nil {
			return "", err
		}
		rhs, err := expr(c.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s == %s", lhs, rhs), nil
	default:
		return "", diag.New(diag.KindNotImplemented, fmt.Sprintf("lowering builtin function %s is not implemented", c.Callee.Builtin))
	}
}

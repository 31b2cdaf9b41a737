package parser

import (
	"testing"

	"github.com/onyxlang/onyxc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVarDeclAndAssert(t *testing.T) {
	mod, err := Parse("test.nx", `let ok = true;
@assert(ok);
`)
	require.NoError(t, err)
	require.Len(t, mod.Body, 2)

	decl, ok := mod.Body[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "ok", decl.Id.Name)
	lit, ok := decl.Init.(*ast.BoolLiteral)
	require.True(t, ok)
	assert.True(t, lit.Value)

	te, ok := mod.Body[1].(*ast.TerminatedExpr)
	require.True(t, ok)
	mc, ok := te.Expr.(*ast.MacroCall)
	require.True(t, ok)
	assert.Equal(t, "assert", mc.Name.Name)
	require.Len(t, mc.Args, 1)
}

func TestParseComment(t *testing.T) {
	mod, err := Parse("test.nx", "# a comment\nlet x = true;\n")
	require.NoError(t, err)
	require.Len(t, mod.Body, 2)
	c, ok := mod.Body[0].(*ast.Comment)
	require.True(t, ok)
	assert.Equal(t, " a comment", c.Text)
}

func TestParseAssignment(t *testing.T) {
	mod, err := Parse("test.nx", "let x = true;\nx = false;\n")
	require.NoError(t, err)
	require.Len(t, mod.Body, 2)
	te, ok := mod.Body[1].(*ast.TerminatedExpr)
	require.True(t, ok)
	bin, ok := te.Expr.(*ast.Binop)
	require.True(t, ok)
	assert.Equal(t, "=", bin.Op)
	ref, ok := bin.Lhs.(*ast.Qualifier)
	require.True(t, ok)
	assert.Equal(t, "x", ref.Name())
}

func TestParseImport(t *testing.T) {
	mod, err := Parse("test.nx", `import { Bool } from "builtin/bool";
`)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	im, ok := mod.Body[0].(*ast.Import)
	require.True(t, ok)
	assert.False(t, im.Pub)
	require.Len(t, im.Ids, 1)
	assert.Equal(t, "Bool", im.Ids[0].Name)
	assert.Equal(t, "builtin/bool", im.From.Value)
}

func TestParsePubImportMultiple(t *testing.T) {
	mod, err := Parse("test.nx", `pub import { A, B } from "other";
`)
	require.NoError(t, err)
	im, ok := mod.Body[0].(*ast.Import)
	require.True(t, ok)
	assert.True(t, im.Pub)
	require.Len(t, im.Ids, 2)
	assert.Equal(t, "A", im.Ids[0].Name)
	assert.Equal(t, "B", im.Ids[1].Name)
}

func TestParseDecoratorAndStructDef(t *testing.T) {
	mod, err := Parse("test.nx", `@[Builtin]
pub struct Bool {
}
`)
	require.NoError(t, err)
	require.Len(t, mod.Body, 2)
	dec, ok := mod.Body[0].(*ast.Decorator)
	require.True(t, ok)
	assert.Equal(t, "Builtin", dec.Id.Name)
	sd, ok := mod.Body[1].(*ast.StructDef)
	require.True(t, ok)
	assert.True(t, sd.Pub)
	assert.Equal(t, "Bool", sd.Id.Name)
}

func TestParseFunctionDecl(t *testing.T) {
	mod, err := Parse("test.nx", `@[Builtin]
pub fn eq?(lhs: Bool, rhs: Bool) -> Bool
`)
	require.NoError(t, err)
	require.Len(t, mod.Body, 2)
	fd, ok := mod.Body[1].(*ast.FunctionDecl)
	require.True(t, ok)
	assert.True(t, fd.Pub)
	assert.Equal(t, "eq?", fd.Id.Name())
	require.Len(t, fd.Params, 2)
	assert.Equal(t, "lhs", fd.Params[0].Id.Name)
	assert.Equal(t, "Bool", fd.Params[0].Type.Name())
	assert.Equal(t, "Bool", fd.ReturnType.Name())
}

func TestParseCall(t *testing.T) {
	mod, err := Parse("test.nx", "let r = eq?(a, b);\n")
	require.NoError(t, err)
	decl := mod.Body[0].(*ast.VarDecl)
	call, ok := decl.Init.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "eq?", call.Callee.Name())
	require.Len(t, call.Args, 2)
}

func TestParseFreeExprNoTerminator(t *testing.T) {
	mod, err := Parse("test.nx", "true")
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	_, ok := mod.Body[0].(*ast.FreeExpr)
	assert.True(t, ok)
}

func TestParseEmptyModule(t *testing.T) {
	mod, err := Parse("test.nx", "")
	require.NoError(t, err)
	assert.Empty(t, mod.Body)
}

func TestParseErrorReportsExpectation(t *testing.T) {
	_, err := Parse("test.nx", "let = true;\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "ParseExpected", string(perr.Panic.Kind))
}

func TestParseErrorUnterminatedStruct(t *testing.T) {
	_, err := Parse("test.nx", "struct Bool {\n")
	require.Error(t, err)
}

// Every top-level element's span offsets must fall within the source text,
// with start no later than end — a property that should hold for any
// syntactically valid input, not just the happy-path fixtures above.
func TestSpansCoverSource(t *testing.T) {
	src := `let ok = true;
@assert(ok);
pub struct Bool {
}
`
	mod, err := Parse("test.nx", src)
	require.NoError(t, err)
	for _, el := range mod.Body {
		sp := el.Span()
		assert.GreaterOrEqual(t, sp.Start.Offset, 0)
		assert.LessOrEqual(t, sp.End.Offset, len(src))
		assert.LessOrEqual(t, sp.Start.Offset, sp.End.Offset)
	}
}

package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/parser"
	"github.com/onyxlang/onyxc/prelude"
	"github.com/onyxlang/onyxc/resolve"
)

// memoResolver resolves a fixed, in-memory set of sources (plus the
// embedded prelude), using each import path as given (every in-memory unit
// sits at the top level, so no joining is needed), without any filesystem
// or cache-directory machinery — enough to exercise the resolver's import
// handling in isolation.
type memoResolver struct {
	sources map[string]string
	cache   map[string]*dst.Module
}

func newMemoResolver(sources map[string]string) *memoResolver {
	return &memoResolver{sources: sources, cache: map[string]*dst.Module{}}
}

func (m *memoResolver) resolve(path string) (*dst.Module, error) {
	if mod, ok := m.cache[path]; ok {
		return mod, nil
	}
	src, ok := prelude.Source(path)
	if !ok {
		src, ok = m.sources[path]
		if !ok {
			return nil, diag.New(diag.KindSourceRead, "no such in-memory unit: "+path)
		}
	}
	astMod, err := parser.Parse(path, src)
	if err != nil {
		return nil, err
	}
	mod, err := resolve.Resolve(path, src, astMod, m.deps)
	if err != nil {
		return nil, err
	}
	m.cache[path] = mod
	return mod, nil
}

func (m *memoResolver) deps(fromPath, rel string) (string, *dst.Module, error) {
	target := rel
	if prelude.IsPreludePath(rel) {
		target = rel
	}
	if target == fromPath {
		return target, nil, nil
	}
	mod, err := m.resolve(target)
	if err != nil {
		return target, nil, err
	}
	return target, mod, nil
}

func TestResolveVarDeclAndAssert(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "let a = true\n@assert(a)\n"})
	mod, err := m.resolve("main")
	require.NoError(t, err)
	require.Len(t, mod.Main, 2)
}

func mustResolveSrc(t *testing.T, src string) *dst.Module {
	t.Helper()
	m := newMemoResolver(map[string]string{"main": src})
	mod, err := m.resolve("main")
	require.NoError(t, err)
	return mod
}

func TestResolveAssertTrue(t *testing.T) {
	mod := mustResolveSrc(t, `import { Bool } from "builtin/bool";
let a = true;
@assert(a);
`)
	require.Len(t, mod.Main, 2)
	decl, ok := mod.Main[0].(*dst.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "a", decl.Name())
	assert.True(t, decl.Type.IsBuiltin())
}

func TestResolveAssignmentSameTypeSucceeds(t *testing.T) {
	m := newMemoResolver(map[string]string{
		"main": `let a = true;
a = a;
`,
	})
	_, err := m.resolve("main")
	require.NoError(t, err)
}

func TestResolveCallArityMismatchIsTypeMismatch(t *testing.T) {
	m := newMemoResolver(map[string]string{
		"main": `import { Bool, eq? } from "builtin/bool";
let a = true;
eq?(a);
`,
	})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindTypeMismatch, p.Kind)
}

func TestResolveUndeclaredIdentifier(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "@assert(x);\n"})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindUnknownIdentifier, p.Kind)
}

func TestResolveUnusedExpressionResult(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "true"})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindUnusedExpressionResult, p.Kind)
}

func TestResolveDuplicateDeclaration(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "let a = true;\nlet a = false;\n"})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindDuplicateDeclaration, p.Kind)
	require.Len(t, p.Notes, 1)
}

func TestResolveSelfImportRejected(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": `import { a } from "main";
`})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindSelfImport, p.Kind)
}

func TestResolveBuiltinFunctionCall(t *testing.T) {
	mod := mustResolveSrc(t, `import { Bool, eq? } from "builtin/bool";
let a = false;
let b = true;
eq?(a, b);
`)
	require.Len(t, mod.Main, 3)
	te, ok := mod.Main[2].(*dst.TerminatedExpr)
	require.True(t, ok)
	call, ok := te.Expr.(*dst.Call)
	require.True(t, ok)
	assert.Equal(t, "BoolEq", call.Callee.Builtin)
}

func TestResolveUnknownDecoratorRejected(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "@[Weird]\npub struct X {\n}\n"})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindUnknownDecorator, p.Kind)
}

func TestResolveDanglingDecoratorRejected(t *testing.T) {
	m := newMemoResolver(map[string]string{"main": "@[Builtin]\n"})
	_, err := m.resolve("main")
	require.Error(t, err)
	var p *diag.Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, diag.KindDanglingDecorator, p.Kind)
}

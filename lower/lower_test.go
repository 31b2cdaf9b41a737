package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/lower"
	"github.com/onyxlang/onyxc/parser"
	"github.com/onyxlang/onyxc/prelude"
	"github.com/onyxlang/onyxc/resolve"
)

// depCache holds each prelude module resolved by deps, so that every lookup
// of a builtin name yields the same declaration (types compare by identity).
var depCache = map[string]*dst.Module{}

// deps resolves only the embedded builtin prelude, once per path, matching
// the scope every scenario below actually needs.
func deps(fromPath, rel string) (string, *dst.Module, error) {
	if mod, ok := depCache[rel]; ok {
		return rel, mod, nil
	}
	src, ok := prelude.Source(rel)
	if !ok {
		return rel, nil, diag.New(diag.KindSourceRead, "unexpected import of "+rel)
	}
	astMod, err := parser.Parse(rel, src)
	if err != nil {
		return rel, nil, err
	}
	mod, err := resolve.Resolve(rel, src, astMod, deps)
	if err != nil {
		return rel, nil, err
	}
	depCache[rel] = mod
	return rel, mod, nil
}

func lowerSrc(t *testing.T, src string) (string, error) {
	t.Helper()
	astMod, err := parser.Parse("main", src)
	require.NoError(t, err)
	mod, err := resolve.Resolve("main", src, astMod, deps)
	require.NoError(t, err)
	return lower.Module(mod)
}

func TestLowerAssertTrue(t *testing.T) {
	out, err := lowerSrc(t, `let a = true
@assert(a)
`)
	require.NoError(t, err)
	assert.Equal(t, "pub fn main() void {\nvar @\"a\" = true;\n@import(\"std\").debug.assert(@\"a\");\n}\n", out)
}

func TestLowerAssignment(t *testing.T) {
	out, err := lowerSrc(t, `let a = false
a = true;
@assert(a)
`)
	require.NoError(t, err)
	assert.Equal(t, "pub fn main() void {\nvar @\"a\" = false;\n@\"a\" = true;\n@import(\"std\").debug.assert(@\"a\");\n}\n", out)
}

func TestLowerBuiltinFunctionCallReducesToOperator(t *testing.T) {
	out, err := lowerSrc(t, `import { Bool, eq? } from "builtin/bool";
let a = false
let b = true
eq?(a, b);
`)
	require.NoError(t, err)
	assert.Equal(t, "pub fn main() void {\nvar @\"a\" = false;\nvar @\"b\" = true;\n@\"a\" == @\"b\";\n}\n", out)
}

func TestLowerBuiltinPreludeItselfEmitsEmptyMain(t *testing.T) {
	src, ok := prelude.Source(prelude.PathBuiltinBool)
	require.True(t, ok)
	astMod, err := parser.Parse(prelude.PathBuiltinBool, src)
	require.NoError(t, err)
	mod, err := resolve.Resolve(prelude.PathBuiltinBool, src, astMod, deps)
	require.NoError(t, err)
	out, err := lower.Module(mod)
	require.NoError(t, err)
	assert.Equal(t, "pub fn main() void {\n}\n", out)
}

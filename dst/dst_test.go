package dst_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onyxlang/onyxc/ast"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/loc"
)

func newStructDecl(name, builtin string) *dst.StructDecl {
	id := ast.NewId(loc.OffsetSpan(0, len(name)), name)
	node := ast.NewStructDef(loc.OffsetSpan(0, len(name)), true, id)
	return dst.NewStructDecl(node, builtin)
}

func TestModuleSearchOrderIsImportsThenExportsThenDeclarations(t *testing.T) {
	m := dst.NewModule("main")
	imported := newStructDecl("A", "Bool")
	exported := newStructDecl("A", "Bool")
	declared := newStructDecl("A", "Bool")

	m.AddDeclaration(declared)
	got, ok := m.Search("A")
	require.True(t, ok)
	assert.Same(t, declared, got)

	m.AddExport("A", exported)
	got, ok = m.Search("A")
	require.True(t, ok)
	assert.Same(t, exported, got)

	m.AddImport("A", imported)
	got, ok = m.Search("A")
	require.True(t, ok)
	assert.Same(t, imported, got)
}

func TestModuleOccupiedReflectsAllThreeTables(t *testing.T) {
	m := dst.NewModule("main")
	_, ok := m.Occupied("X")
	assert.False(t, ok)

	m.AddDeclaration(newStructDecl("X", "Bool"))
	_, ok = m.Occupied("X")
	assert.True(t, ok)
}

func TestModulePendingDecoratorsStack(t *testing.T) {
	m := dst.NewModule("main")
	assert.Empty(t, m.PendingDecorators())

	m.PushDecorator("Builtin")
	assert.Equal(t, []string{"Builtin"}, m.PendingDecorators())

	drained := m.PopDecorators()
	assert.Equal(t, []string{"Builtin"}, drained)
	assert.Empty(t, m.PendingDecorators())
}

func TestModuleDeclarationsReturnsEveryRegisteredDecl(t *testing.T) {
	m := dst.NewModule("main")
	a := newStructDecl("A", "Bool")
	b := newStructDecl("B", "")
	m.AddDeclaration(a)
	m.AddDeclaration(b)

	names := map[string]bool{}
	for _, e := range m.Declarations() {
		names[e.Name()] = true
	}
	assert.Equal(t, map[string]bool{"A": true, "B": true}, names)
}

func TestStructDeclIsBuiltin(t *testing.T) {
	builtin := newStructDecl("Bool", "Bool")
	user := newStructDecl("Widget", "")
	assert.True(t, builtin.IsBuiltin())
	assert.False(t, user.IsBuiltin())
}

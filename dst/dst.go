// Package dst defines the decorated semantic tree produced by package
// resolve: struct and function declarations, resolved references, inferred
// types, and the per-file Module that owns them. Unlike the AST, every DST
// node keeps a back-reference to the syntax it was resolved from, for
// diagnostics, and types are identity of *StructDecl rather than a separate
// name — two types are equal iff they are the same struct declaration.
package dst

import (
	art "github.com/plar/go-adaptive-radix-tree"

	"github.com/onyxlang/onyxc/ast"
)

// StructDecl is a resolved struct declaration. Builtin is the matched name
// in the builtin-struct table (e.g. "Bool"), or empty for a user struct —
// though user structs are rejected as not implemented (spec §9 Open
// Questions: only empty bodies are parsed, and non-builtin structs have no
// lowering).
type StructDecl struct {
	AST     *ast.StructDef
	Builtin string
	Impls   []*StructImpl
}

func NewStructDecl(node *ast.StructDef, builtin string) *StructDecl {
	return &StructDecl{AST: node, Builtin: builtin}
}

func (d *StructDecl) Name() string { return d.AST.Id.Name }

func (d *StructDecl) IsBuiltin() bool { return d.Builtin != "" }

// StructImpl is a non-owning back-reference to the struct it implements.
type StructImpl struct {
	Decl *StructDecl
}

// FunctionParam is a resolved function parameter: an id plus a reference to
// its type's struct declaration.
type FunctionParam struct {
	Id   string
	Type *StructDecl
}

// FunctionDecl is a resolved function declaration. Builtin is the matched
// name in the builtin-function table (e.g. "BoolEq" for `eq?`), or empty.
type FunctionDecl struct {
	AST        *ast.FunctionDecl
	Builtin    string
	Params     []*FunctionParam
	ReturnType *StructDecl
}

func (d *FunctionDecl) Name() string { return d.AST.Id.Name() }

func (d *FunctionDecl) IsBuiltin() bool { return d.Builtin != "" }

// VarDecl is a resolved local variable: its declared type (inferred from
// its initializer) and the owned initializer expression.
type VarDecl struct {
	AST  *ast.VarDecl
	Type *StructDecl
	Init Expr
}

func (d *VarDecl) Name() string { return d.AST.Id.Name }

// Expr is the DST expression variant: BoolLiteral, *VarRef, a MacroCall,
// *Call, or *Assignment. InferType returns the expression's builtin type, or
// nil for a void-typed expression (currently only macro calls).
type Expr interface {
	InferType() *StructDecl
	exprNode()
}

// BoolLiteral is a resolved `true`/`false` literal. BoolType is captured at
// resolve time (from searching the builtin prelude for "Bool") so that
// InferType never needs to re-search.
type BoolLiteral struct {
	AST     *ast.BoolLiteral
	Value   bool
	BoolType *StructDecl
}

func (b *BoolLiteral) InferType() *StructDecl { return b.BoolType }
func (*BoolLiteral) exprNode()                {}

// VarRef is a resolved reference to a VarDecl.
type VarRef struct {
	AST  *ast.Id
	Decl *VarDecl
}

func (r *VarRef) InferType() *StructDecl { return r.Decl.Type }
func (*VarRef) exprNode()                {}

// MacroCall is the variant over recognized macro invocations. AssertCall is
// currently the only member (spec §4.4: `@assert(expr)`, arity 1).
type MacroCall interface {
	Expr
	macroCallNode()
}

type AssertCall struct {
	AST *ast.MacroCall
	Arg Expr
}

func (*AssertCall) InferType() *StructDecl { return nil }
func (*AssertCall) exprNode()              {}
func (*AssertCall) macroCallNode()         {}

var _ MacroCall = (*AssertCall)(nil)

// Call is a resolved function call: a reference to the callee's declaration
// and the resolved argument expressions.
type Call struct {
	AST    *ast.Call
	Callee *FunctionDecl
	Args   []Expr
}

func (c *Call) InferType() *StructDecl { return c.Callee.ReturnType }
func (*Call) exprNode()                {}

// Assignment is a resolved `lhs = rhs`. Its type is the lhs variable's type.
type Assignment struct {
	AST *ast.Binop
	Lhs *VarRef
	Rhs Expr
}

func (a *Assignment) InferType() *StructDecl { return a.Lhs.Decl.Type }
func (*Assignment) exprNode()                {}

var (
	_ Expr = (*BoolLiteral)(nil)
	_ Expr = (*VarRef)(nil)
	_ Expr = (*AssertCall)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*Assignment)(nil)
)

// Statement is the variant of a main-list entry: a VarDecl (its own
// declaration) or a terminated expression.
type Statement interface {
	stmtDstNode()
}

func (*VarDecl) stmtDstNode() {}

type TerminatedExpr struct {
	Expr Expr
}

func (*TerminatedExpr) stmtDstNode() {}

var (
	_ Statement = (*VarDecl)(nil)
	_ Statement = (*TerminatedExpr)(nil)
)

// Exportable is anything a module scope can surface by name: a VarDecl, a
// StructDecl, or a FunctionDecl.
type Exportable interface {
	Name() string
	exportableNode()
}

func (*VarDecl) exportableNode()      {}
func (*StructDecl) exportableNode()   {}
func (*FunctionDecl) exportableNode() {}

var (
	_ Exportable = (*VarDecl)(nil)
	_ Exportable = (*StructDecl)(nil)
	_ Exportable = (*FunctionDecl)(nil)
)

// ImportRecord records one resolved `import` statement: the AST it came
// from and the Exportables it introduced into the importing module, in
// source order.
type ImportRecord struct {
	AST   *ast.Import
	Names []Exportable
}

// Module is the semantic value of one compiled unit. It owns every
// declaration reachable from it; Declarations/Imports/Exports are name ->
// Exportable tables (radix trees, matching the teacher's symbol-table
// representation) so lookups, insertions and duplicate checks are all
// O(length of name). Main holds the module's top-level statement list in
// source order, for lowering. DefaultExport and the pending-decorator stack
// are resolver-owned working state (spec §3, §4.4, §9).
type Module struct {
	path string

	declarations art.Tree
	imports      art.Tree
	exports      art.Tree

	Main          []Statement
	ImportRecords []*ImportRecord
	DefaultExport Exportable

	pendingDecorators []string
}

// NewModule constructs an empty Module for the unit at path.
func NewModule(path string) *Module {
	return &Module{
		path:         path,
		declarations: art.New(),
		imports:      art.New(),
		exports:      art.New(),
	}
}

// Path returns the path of the unit this module belongs to.
func (m *Module) Path() string { return m.path }

func lookup(t art.Tree, name string) (Exportable, bool) {
	v, found := t.Search(art.Key(name))
	if !found {
		return nil, false
	}
	return v.(Exportable), true
}

// Declaration, Import and Export look up name in the respective table.
func (m *Module) Declaration(name string) (Exportable, bool) { return lookup(m.declarations, name) }
func (m *Module) Import(name string) (Exportable, bool)      { return lookup(m.imports, name) }
func (m *Module) Export(name string) (Exportable, bool)      { return lookup(m.exports, name) }

// AddDeclaration registers e under its own name in the declarations table.
func (m *Module) AddDeclaration(e Exportable) { m.declarations.Insert(art.Key(e.Name()), e) }

// AddImport registers e under name in the imports table (the imported name
// may differ from e.Name() only in a future aliasing extension; today they
// are always equal).
func (m *Module) AddImport(name string, e Exportable) { m.imports.Insert(art.Key(name), e) }

// AddExport registers e under name in the exports table.
func (m *Module) AddExport(name string, e Exportable) { m.exports.Insert(art.Key(name), e) }

// Search resolves name against this module alone: imports, then exports,
// then declarations, returning the first match (spec §4.4). It does not
// fall back to the builtin prelude; that fallback is a resolver-level
// policy (package resolve), since it requires resolving a dependency unit.
func (m *Module) Search(name string) (Exportable, bool) {
	if e, ok := m.Import(name); ok {
		return e, true
	}
	if e, ok := m.Export(name); ok {
		return e, true
	}
	return m.Declaration(name)
}

// Occupied reports whether name is already bound in any of declarations,
// imports or exports — the uniqueness invariant in spec §3.
func (m *Module) Occupied(name string) (Exportable, bool) {
	if e, ok := m.Search(name); ok {
		return e, true
	}
	return nil, false
}

// PushDecorator appends name to the pending-decorator stack.
func (m *Module) PushDecorator(name string) { m.pendingDecorators = append(m.pendingDecorators, name) }

// PopDecorators drains and returns the pending-decorator stack.
func (m *Module) PopDecorators() []string {
	d := m.pendingDecorators
	m.pendingDecorators = nil
	return d
}

// PendingDecorators reports the decorators not yet consumed, without
// draining them — used to check the end-of-module invariant (spec §3).
func (m *Module) PendingDecorators() []string { return m.pendingDecorators }

// AppendMain appends a resolved top-level statement.
func (m *Module) AppendMain(s Statement) { m.Main = append(m.Main, s) }

// AppendImportRecord appends a resolved import statement's record.
func (m *Module) AppendImportRecord(r *ImportRecord) { m.ImportRecords = append(m.ImportRecords, r) }

// Declarations returns every registered declaration, in name order (the
// radix tree's natural iteration order), for lowering.
func (m *Module) Declarations() []Exportable {
	var out []Exportable
	m.declarations.ForEach(func(n art.Node) bool {
		out = append(out, n.Value().(Exportable))
		return true
	})
	return out
}

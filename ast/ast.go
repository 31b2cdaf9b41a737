// Package ast defines the concrete syntax tree produced by package parser.
// Every node carries a source span; variant groups (Expr, Statement,
// BlockBody) are modeled as small interfaces implemented by the concrete
// node types, in the same tagged-node style as the teacher's ast.Node /
// ast.FileElement hierarchy.
package ast

import "github.com/onyxlang/onyxc/loc"

// Node is implemented by every AST entity.
type Node interface {
	Span() loc.Span
}

type span struct{ s loc.Span }

func (n span) Span() loc.Span { return n.s }

// Id is an identifier, optionally ending in '?' (e.g. "eq?").
type Id struct {
	span
	Name string
}

func NewId(s loc.Span, name string) *Id { return &Id{span{s}, name} }

// Qualifier wraps an Id. It is intentionally a thin wrapper — not yet a
// dotted path — so that dotted-path qualifiers can be added later without
// changing every call site that accepts a Qualifier.
type Qualifier struct {
	span
	Id *Id
}

func NewQualifier(s loc.Span, id *Id) *Qualifier { return &Qualifier{span{s}, id} }

// Name is a convenience accessor for the underlying identifier text.
func (q *Qualifier) Name() string { return q.Id.Name }

// BoolLiteral is a `true`/`false` literal.
type BoolLiteral struct {
	span
	Value bool
}

func NewBoolLiteral(s loc.Span, value bool) *BoolLiteral { return &BoolLiteral{span{s}, value} }

// StringLiteral is a `"..."` literal; contents are raw, no escape processing.
type StringLiteral struct {
	span
	Value string
}

func NewStringLiteral(s loc.Span, value string) *StringLiteral {
	return &StringLiteral{span{s}, value}
}

// Binop is a binary operator application. Only "=" is semantically defined
// (spec §4.4); any other operator text is carried through to the resolver,
// which rejects it as not implemented (spec §9, Open Questions).
type Binop struct {
	span
	Lhs Expr
	Op  string
	Rhs Expr
}

func NewBinop(s loc.Span, lhs Expr, op string, rhs Expr) *Binop {
	return &Binop{span{s}, lhs, op, rhs}
}

// MacroCall is `@name(args...)`.
type MacroCall struct {
	span
	Name *Id
	Args []Expr
}

func NewMacroCall(s loc.Span, name *Id, args []Expr) *MacroCall {
	return &MacroCall{span{s}, name, args}
}

// Call is `callee(args...)` where callee is a Qualifier.
type Call struct {
	span
	Callee *Qualifier
	Args   []Expr
}

func NewCall(s loc.Span, callee *Qualifier, args []Expr) *Call {
	return &Call{span{s}, callee, args}
}

// Expr is the variant over BoolLiteral, Ref (*Qualifier), MacroCall, Binop
// and Call. *Qualifier stands in for the Ref variant directly: a bare
// qualifier appearing in expression position is a reference to that name.
type Expr interface {
	Node
	exprNode()
}

func (*BoolLiteral) exprNode() {}
func (*Qualifier) exprNode()   {}
func (*MacroCall) exprNode()   {}
func (*Binop) exprNode()       {}
func (*Call) exprNode()        {}

var (
	_ Expr = (*BoolLiteral)(nil)
	_ Expr = (*Qualifier)(nil)
	_ Expr = (*MacroCall)(nil)
	_ Expr = (*Binop)(nil)
	_ Expr = (*Call)(nil)
)

// VarDecl is `let <id> = <expr>`.
type VarDecl struct {
	span
	Id   *Id
	Init Expr
}

func NewVarDecl(s loc.Span, id *Id, init Expr) *VarDecl { return &VarDecl{span{s}, id, init} }

// Import is `pub? import { id, ... } from "path"`.
type Import struct {
	span
	Pub  bool
	Ids  []*Id
	From *StringLiteral
}

func NewImport(s loc.Span, pub bool, ids []*Id, from *StringLiteral) *Import {
	return &Import{span{s}, pub, ids, from}
}

// Decorator is `@[Id]`, attaching to the next declaration in the module.
type Decorator struct {
	span
	Id *Id
}

func NewDecorator(s loc.Span, id *Id) *Decorator { return &Decorator{span{s}, id} }

// StructDef is `pub? struct Id { }`. The body is currently always empty
// (spec §9, Open Questions); non-empty bodies are a parse-time structural
// possibility this grammar simply never produces.
type StructDef struct {
	span
	Pub bool
	Id  *Id
}

func NewStructDef(s loc.Span, pub bool, id *Id) *StructDef { return &StructDef{span{s}, pub, id} }

// FunctionParam is `id : type` inside a function's parameter list.
type FunctionParam struct {
	span
	Id   *Id
	Type *Qualifier
}

func NewFunctionParam(s loc.Span, id *Id, typ *Qualifier) *FunctionParam {
	return &FunctionParam{span{s}, id, typ}
}

// FunctionDecl is `pub? fn qualifier(params) -> returnType`.
type FunctionDecl struct {
	span
	Pub        bool
	Id         *Qualifier
	Params     []*FunctionParam
	ReturnType *Qualifier
}

func NewFunctionDecl(s loc.Span, pub bool, id *Qualifier, params []*FunctionParam, ret *Qualifier) *FunctionDecl {
	return &FunctionDecl{span{s}, pub, id, params, ret}
}

// Comment is `# text to end of line`, stored as its own block-body variant
// rather than discarded, so that e.g. a future doc-comment pass could
// recover it.
type Comment struct {
	span
	Text string
}

func NewComment(s loc.Span, text string) *Comment { return &Comment{span{s}, text} }

// TerminatedExpr is `<expr> ;`, distinguishing an explicitly side-effecting
// expression statement from a free (unterminated) one.
type TerminatedExpr struct {
	span
	Expr Expr
}

func NewTerminatedExpr(s loc.Span, expr Expr) *TerminatedExpr {
	return &TerminatedExpr{span{s}, expr}
}

// BlockBody is the variant over Comment, Statement and a free (unterminated)
// Expr appearing directly in module position.
type BlockBody interface {
	Node
	blockBodyNode()
}

// Statement is the sub-variant of BlockBody covering VarDecl,
// TerminatedExpr, Import, Decorator, StructDef and FunctionDecl. Every
// Statement is itself a BlockBody.
type Statement interface {
	BlockBody
	stmtNode()
}

func (*Comment) blockBodyNode() {}

func (*VarDecl) blockBodyNode()        {}
func (*TerminatedExpr) blockBodyNode() {}
func (*Import) blockBodyNode()         {}
func (*Decorator) blockBodyNode()      {}
func (*StructDef) blockBodyNode()      {}
func (*FunctionDecl) blockBodyNode()   {}

func (*VarDecl) stmtNode()        {}
func (*TerminatedExpr) stmtNode() {}
func (*Import) stmtNode()         {}
func (*Decorator) stmtNode()      {}
func (*StructDef) stmtNode()      {}
func (*FunctionDecl) stmtNode()   {}

var (
	_ BlockBody = (*Comment)(nil)
	_ Statement = (*VarDecl)(nil)
	_ Statement = (*TerminatedExpr)(nil)
	_ Statement = (*Import)(nil)
	_ Statement = (*Decorator)(nil)
	_ Statement = (*StructDef)(nil)
	_ Statement = (*FunctionDecl)(nil)
)

// FreeExpr is a BlockBody-position expression with no terminator; the
// resolver rejects it unless its inferred type is void-equivalent (spec
// §4.4).
type FreeExpr struct {
	span
	Expr Expr
}

func NewFreeExpr(s loc.Span, expr Expr) *FreeExpr { return &FreeExpr{span{s}, expr} }

func (*FreeExpr) blockBodyNode() {}

var _ BlockBody = (*FreeExpr)(nil)

// Module is the syntactic value of a single source file: an ordered list of
// block-body elements.
type Module struct {
	span
	Body []BlockBody
}

func NewModule(s loc.Span, body []BlockBody) *Module { return &Module{span{s}, body} }

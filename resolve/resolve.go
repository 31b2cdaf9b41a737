// Package resolve transforms an AST Module into a decorated DST Module:
// binding every reference, inferring every expression's type, and applying
// decorator-driven builtin tagging. It depends only on a DependencyResolver
// capability for crossing into other units, and never touches the
// filesystem itself (that is the unit package's job).
package resolve

import (
	"fmt"
	"strings"

	"github.com/onyxlang/onyxc/ast"
	"github.com/onyxlang/onyxc/diag"
	"github.com/onyxlang/onyxc/dst"
	"github.com/onyxlang/onyxc/loc"
)

// DependencyResolver resolves the unit that importPath refers to, relative
// to the unit currently being resolved (fromPath). It returns the resolved
// unit's own path (for self-import comparison) and its DST module. Indirect
// import-cycle detection is expected to happen here, in the caller that
// owns the in-progress resolution stack (spec §5); this package only
// performs the direct self-import check, which needs no such stack.
type DependencyResolver func(fromPath, importPath string) (targetPath string, mod *dst.Module, err error)

// builtinStructNames and builtinFunctionNames are the fixed builtin-name
// tables referenced by spec §4.4; both are intentionally tiny today.
var builtinStructNames = map[string]string{
	"Bool": "Bool",
}

var builtinFunctionNames = map[string]string{
	"eq?": "BoolEq",
}

const builtinPath = "builtin"

func isBuiltinPath(path string) bool {
	return path == builtinPath || strings.HasPrefix(path, builtinPath+"/")
}

type resolver struct {
	scope *dst.Module
	src   string
	deps  DependencyResolver
}

// Resolve resolves mod (the parsed AST of the unit at path, whose source
// text is src) into a DST Module, using deps to cross into other units.
func Resolve(path, src string, mod *ast.Module, deps DependencyResolver) (*dst.Module, error) {
	r := &resolver{scope: dst.NewModule(path), src: src, deps: deps}
	for _, el := range mod.Body {
		if err := r.resolveBlockBodyEl(el); err != nil {
			return nil, err
		}
	}
	if pending := r.scope.PendingDecorators(); len(pending) > 0 {
		return nil, diag.At(diag.KindDanglingDecorator,
			fmt.Sprintf("Decorator `%s` was not applied to a following declaration", pending[0]),
			r.loc(mod.Span()))
	}
	return r.scope, nil
}

func (r *resolver) loc(s loc.Span) loc.Location {
	return loc.NewLocation(r.scope.Path(), s, r.src)
}

func exportableSpan(e dst.Exportable) loc.Span {
	switch v := e.(type) {
	case *dst.VarDecl:
		return v.AST.Span()
	case *dst.StructDecl:
		return v.AST.Span()
	case *dst.FunctionDecl:
		return v.AST.Span()
	default:
		panic(fmt.Sprintf("resolve: unhandled exportable type %T", e))
	}
}

func (r *resolver) checkNotOccupied(name string, at loc.Span) error {
	prev, ok := r.scope.Occupied(name)
	if !ok {
		return nil
	}
	p := diag.At(diag.KindDuplicateDeclaration, fmt.Sprintf("`%s` already declared", name), r.loc(at))
	noteLoc := r.loc(exportableSpan(prev))
	p.AddNote("Previously declared here", &noteLoc)
	return p
}

// searchWithFallback implements the `search` capability of spec §9's Scope
// abstraction, with the builtin-prelude fallback spec §4.4 describes:
// imports/exports/declarations of the current module, and only if the
// current module is not itself beneath the builtin prelude, a second
// attempt against the builtin module's exports.
func (r *resolver) searchWithFallback(name string) (dst.Exportable, error) {
	if e, ok := r.scope.Search(name); ok {
		return e, nil
	}
	if isBuiltinPath(r.scope.Path()) {
		return nil, nil
	}
	_, builtinMod, err := r.deps(r.scope.Path(), builtinPath)
	if err != nil {
		return nil, err
	}
	if e, ok := builtinMod.Export(name); ok {
		return e, nil
	}
	return nil, nil
}

func (r *resolver) lookupStruct(name string, at loc.Span) (*dst.StructDecl, error) {
	e, err := r.searchWithFallback(name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, diag.At(diag.KindUnknownIdentifier, fmt.Sprintf("Undeclared %s", name), r.loc(at))
	}
	sd, ok := e.(*dst.StructDecl)
	if !ok {
		return nil, diag.At(diag.KindIdNotAStruct, fmt.Sprintf("%s is not a struct", name), r.loc(at))
	}
	return sd, nil
}

// ---- block-body dispatch ---------------------------------------------

func (r *resolver) resolveBlockBodyEl(el ast.BlockBody) error {
	switch n := el.(type) {
	case *ast.Comment:
		return nil
	case *ast.VarDecl:
		return r.resolveVarDecl(n)
	case *ast.TerminatedExpr:
		return r.resolveTerminatedExpr(n)
	case *ast.Import:
		return r.resolveImport(n)
	case *ast.Decorator:
		r.scope.PushDecorator(n.Id.Name)
		return nil
	case *ast.StructDef:
		return r.resolveStructDef(n)
	case *ast.FunctionDecl:
		return r.resolveFunctionDecl(n)
	case *ast.FreeExpr:
		return r.resolveFreeExpr(n)
	default:
		panic(fmt.Sprintf("resolve: unhandled block-body element type %T", el))
	}
}

func (r *resolver) resolveVarDecl(n *ast.VarDecl) error {
	if err := r.checkNotOccupied(n.Id.Name, n.Id.Span()); err != nil {
		return err
	}
	init, err := r.resolveExpr(n.Init)
	if err != nil {
		return err
	}
	t := init.InferType()
	if t == nil {
		return diag.At(diag.KindVoidExpressionInContext, "Expression result must not be void", r.loc(n.Init.Span()))
	}
	vd := &dst.VarDecl{AST: n, Type: t, Init: init}
	r.scope.AddDeclaration(vd)
	r.scope.AppendMain(vd)
	return nil
}

func (r *resolver) resolveTerminatedExpr(n *ast.TerminatedExpr) error {
	e, err := r.resolveExpr(n.Expr)
	if err != nil {
		return err
	}
	r.scope.AppendMain(&dst.TerminatedExpr{Expr: e})
	return nil
}

func (r *resolver) resolveFreeExpr(n *ast.FreeExpr) error {
	e, err := r.resolveExpr(n.Expr)
	if err != nil {
		return err
	}
	if t := e.InferType(); t != nil {
		return diag.At(diag.KindUnusedExpressionResult, "Unused expression result", r.loc(n.Expr.Span()))
	}
	r.scope.AppendMain(&dst.TerminatedExpr{Expr: e})
	return nil
}

func (r *resolver) resolveImport(n *ast.Import) error {
	targetPath, depMod, err := r.deps(r.scope.Path(), n.From.Value)
	if err != nil {
		return err
	}
	if targetPath == r.scope.Path() {
		return diag.At(diag.KindSelfImport, "Cannot import from self", r.loc(n.Span()))
	}
	rec := &dst.ImportRecord{AST: n}
	for _, id := range n.Ids {
		e, ok := depMod.Export(id.Name)
		if !ok {
			return diag.At(diag.KindImportNameNotFound,
				fmt.Sprintf("%s not found in %s", id.Name, n.From.Value), r.loc(id.Span()))
		}
		if err := r.checkNotOccupied(id.Name, id.Span()); err != nil {
			return err
		}
		r.scope.AddImport(id.Name, e)
		if n.Pub {
			r.scope.AddExport(id.Name, e)
		}
		rec.Names = append(rec.Names, e)
	}
	r.scope.AppendImportRecord(rec)
	return nil
}

// popDecorators drains the pending-decorator stack, validating the
// `Builtin` policy: unknown decorators and duplicate `Builtin` are both
// errors (spec §4.4).
func (r *resolver) popDecorators(at loc.Span) (builtinTag bool, err error) {
	for _, d := range r.scope.PopDecorators() {
		if d != "Builtin" {
			return false, diag.At(diag.KindUnknownDecorator, fmt.Sprintf("Unknown decorator %s", d), r.loc(at))
		}
		if builtinTag {
			return false, diag.At(diag.KindDuplicateBuiltinDecorator, "Duplicate decorator `Builtin`", r.loc(at))
		}
		builtinTag = true
	}
	return builtinTag, nil
}

func (r *resolver) resolveStructDef(n *ast.StructDef) error {
	builtinTag, err := r.popDecorators(n.Span())
	if err != nil {
		return err
	}
	if !builtinTag {
		return diag.At(diag.KindNotImplemented, "non-builtin structs are not implemented", r.loc(n.Span()))
	}
	builtin, ok := builtinStructNames[n.Id.Name]
	if !ok {
		return diag.At(diag.KindUnknownBuiltinName, fmt.Sprintf("Unknown builtin struct %s", n.Id.Name), r.loc(n.Span()))
	}
	if err := r.checkNotOccupied(n.Id.Name, n.Id.Span()); err != nil {
		return err
	}
	sd := dst.NewStructDecl(n, builtin)
	sd.Impls = append(sd.Impls, &dst.StructImpl{Decl: sd})
	r.scope.AddDeclaration(sd)
	if n.Pub {
		r.scope.AddExport(n.Id.Name, sd)
	}
	return nil
}

func (r *resolver) resolveFunctionDecl(n *ast.FunctionDecl) error {
	builtinTag, err := r.popDecorators(n.Span())
	if err != nil {
		return err
	}
	name := n.Id.Name()
	var builtin string
	if builtinTag {
		b, ok := builtinFunctionNames[name]
		if !ok {
			return diag.At(diag.KindUnknownBuiltinName, fmt.Sprintf("Unknown builtin function %s", name), r.loc(n.Span()))
		}
		builtin = b
	}
	if err := r.checkNotOccupied(name, n.Id.Id.Span()); err != nil {
		return err
	}

	params := make([]*dst.FunctionParam, 0, len(n.Params))
	for _, p := range n.Params {
		typ, err := r.lookupStruct(p.Type.Name(), p.Type.Span())
		if err != nil {
			return err
		}
		params = append(params, &dst.FunctionParam{Id: p.Id.Name, Type: typ})
	}
	ret, err := r.lookupStruct(n.ReturnType.Name(), n.ReturnType.Span())
	if err != nil {
		return err
	}

	fd := &dst.FunctionDecl{AST: n, Builtin: builtin, Params: params, ReturnType: ret}
	r.scope.AddDeclaration(fd)
	if n.Pub {
		r.scope.AddExport(name, fd)
	}
	return nil
}

// ---- expressions --------------------------------------------------------

func (r *resolver) resolveExpr(e ast.Expr) (dst.Expr, error) {
	switch n := e.(type) {
	case *ast.BoolLiteral:
		return r.resolveBoolLiteral(n)
	case *ast.Qualifier:
		return r.resolveRef(n)
	case *ast.MacroCall:
		return r.resolveMacroCall(n)
	case *ast.Binop:
		return r.resolveBinop(n)
	case *ast.Call:
		return r.resolveCall(n)
	default:
		panic(fmt.Sprintf("resolve: unhandled expr type %T", e))
	}
}

func (r *resolver) resolveBoolLiteral(n *ast.BoolLiteral) (dst.Expr, error) {
	boolType, err := r.lookupStruct("Bool", n.Span())
	if err != nil {
		return nil, err
	}
	return &dst.BoolLiteral{AST: n, Value: n.Value, BoolType: boolType}, nil
}

func (r *resolver) resolveRef(q *ast.Qualifier) (dst.Expr, error) {
	e, err := r.searchWithFallback(q.Name())
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, diag.At(diag.KindUnknownIdentifier, fmt.Sprintf("Undeclared %s", q.Name()), r.loc(q.Span()))
	}
	switch v := e.(type) {
	case *dst.VarDecl:
		return &dst.VarRef{AST: q.Id, Decl: v}, nil
	case *dst.StructDecl:
		return nil, diag.At(diag.KindUseNonValueAsValue, fmt.Sprintf("Cannot use struct %s as a value", q.Name()), r.loc(q.Span()))
	case *dst.FunctionDecl:
		return nil, diag.At(diag.KindUseNonValueAsValue, fmt.Sprintf("Cannot use function %s as a value", q.Name()), r.loc(q.Span()))
	default:
		panic(fmt.Sprintf("resolve: unhandled exportable type %T", e))
	}
}

func (r *resolver) resolveMacroCall(mc *ast.MacroCall) (dst.Expr, error) {
	switch mc.Name.Name {
	case "assert":
		if len(mc.Args) != 1 {
			return nil, diag.At(diag.KindTypeMismatch,
				fmt.Sprintf("`@assert` expects exactly 1 argument, got %d", len(mc.Args)), r.loc(mc.Span()))
		}
		arg, err := r.resolveExpr(mc.Args[0])
		if err != nil {
			return nil, err
		}
		return &dst.AssertCall{AST: mc, Arg: arg}, nil
	default:
		return nil, diag.At(diag.KindUnknownMacro, fmt.Sprintf("Unknown macro: %s", mc.Name.Name), r.loc(mc.Span()))
	}
}

func (r *resolver) resolveBinop(b *ast.Binop) (dst.Expr, error) {
	if b.Op != "=" {
		return nil, diag.At(diag.KindNotImplemented, fmt.Sprintf("operator `%s` is not implemented", b.Op), r.loc(b.Span()))
	}
	lhs, err := r.resolveExpr(b.Lhs)
	if err != nil {
		return nil, err
	}
	ref, ok := lhs.(*dst.VarRef)
	if !ok {
		return nil, diag.At(diag.KindUseNonValueAsValue, "Assignment target must be a variable", r.loc(b.Lhs.Span()))
	}
	rhs, err := r.resolveExpr(b.Rhs)
	if err != nil {
		return nil, err
	}
	rhsType := rhs.InferType()
	if rhsType == nil {
		return nil, diag.At(diag.KindVoidExpressionInContext, "Expression result must not be void", r.loc(b.Rhs.Span()))
	}
	if rhsType != ref.Decl.Type {
		return nil, diag.At(diag.KindTypeMismatch,
			fmt.Sprintf("Type mismatch: left is %s, right is %s", ref.Decl.Type.Name(), rhsType.Name()),
			r.loc(b.Rhs.Span()))
	}
	return &dst.Assignment{AST: b, Lhs: ref, Rhs: rhs}, nil
}

func (r *resolver) resolveCall(c *ast.Call) (dst.Expr, error) {
	e, err := r.searchWithFallback(c.Callee.Name())
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, diag.At(diag.KindUnknownIdentifier, fmt.Sprintf("Undeclared %s", c.Callee.Name()), r.loc(c.Callee.Span()))
	}
	fn, ok := e.(*dst.FunctionDecl)
	if !ok {
		return nil, diag.At(diag.KindIdNotAFunc, fmt.Sprintf("%s is not a function", c.Callee.Name()), r.loc(c.Callee.Span()))
	}

	args := make([]dst.Expr, 0, len(c.Args))
	for _, a := range c.Args {
		ae, err := r.resolveExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, ae)
	}

	if len(args) != len(fn.Params) {
		return nil, diag.At(diag.KindTypeMismatch,
			fmt.Sprintf("%s expects %d argument(s), got %d", c.Callee.Name(), len(fn.Params), len(args)),
			r.loc(c.Span()))
	}
	for i, a := range args {
		at := a.InferType()
		if at == nil {
			return nil, diag.At(diag.KindVoidExpressionInContext, "Expression result must not be void", r.loc(c.Args[i].Span()))
		}
		if at != fn.Params[i].Type {
			return nil, diag.At(diag.KindTypeMismatch,
				fmt.Sprintf("Type mismatch: parameter %s is %s, argument is %s", fn.Params[i].Id, fn.Params[i].Type.Name(), at.Name()),
				r.loc(c.Args[i].Span()))
		}
	}

	return &dst.Call{AST: c, Callee: fn, Args: args}, nil
}

// Package parser implements a hand-written, single-pass, backtracking
// recursive-descent parser for Onyx source text, reproducing (without a PEG
// combinator library, none being available for Go in the retrieval pack)
// the ordered-choice grammar of the original `peg`-based implementation.
// There is no error recovery: the first unmet expectation aborts the parse
// with a *diag.Panic (surfaced as *ParseError) pinned to the failing offset.
package parser

import (
	"strings"

	"github.com/onyxlang/onyxc/ast"
	"github.com/onyxlang/onyxc/loc"
)

// Parse parses src (the contents of the unit at path) into an AST Module.
func Parse(path, src string) (*ast.Module, error) {
	p := &Parser{path: path, src: src}
	mod, ok := p.parseModuleRoot()
	if !ok {
		return nil, p.buildError()
	}
	return mod, nil
}

// Parser holds the mutable cursor over one unit's source text.
type Parser struct {
	path string
	src  string
	pos  int

	farthest int
	expected []string
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isHSpace(b byte) bool { return b == ' ' || b == '\t' }

func (p *Parser) eof() bool { return p.pos >= len(p.src) }

func (p *Parser) peekByteAt(at int, b byte) bool {
	return at < len(p.src) && p.src[at] == b
}

func (p *Parser) peekByte(b byte) bool { return p.peekByteAt(p.pos, b) }

func (p *Parser) identStartsAt(at int) bool {
	return at < len(p.src) && isIdentStart(p.src[at])
}

func (p *Parser) identStartsHere() bool { return p.identStartsAt(p.pos) }

func (p *Parser) consumeByte(b byte) bool {
	if p.peekByte(b) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) consumeString(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// matchKeywordAt reports whether the literal keyword kw occurs at offset at
// and is not merely a prefix of a longer identifier.
func (p *Parser) matchKeywordAt(at int, kw string) bool {
	if at+len(kw) > len(p.src) || p.src[at:at+len(kw)] != kw {
		return false
	}
	next := at + len(kw)
	return next >= len(p.src) || !isIdentCont(p.src[next])
}

func (p *Parser) matchKeyword(kw string) bool { return p.matchKeywordAt(p.pos, kw) }

func (p *Parser) consumeKeyword(kw string) bool {
	if p.matchKeyword(kw) {
		p.pos += len(kw)
		return true
	}
	return false
}

// skipH skips horizontal space (spaces/tabs) only.
func (p *Parser) skipH() {
	for !p.eof() && isHSpace(p.src[p.pos]) {
		p.pos++
	}
}

// skipHRequired skips at least one horizontal-space byte, reporting whether
// it found any.
func (p *Parser) skipHRequired() bool {
	start := p.pos
	p.skipH()
	return p.pos > start
}

// skipNewlineOnce consumes a single newline (CRLF, LF or CR), optionally
// surrounded by horizontal space, per the grammar's nl() rule.
func (p *Parser) skipNewlineOnce() bool {
	save := p.pos
	p.skipH()
	switch {
	case strings.HasPrefix(p.src[p.pos:], "\r\n"):
		p.pos += 2
	case p.peekByte('\n'), p.peekByte('\r'):
		p.pos++
	default:
		p.pos = save
		return false
	}
	p.skipH()
	return true
}

// skipWide consumes "wide-space": any run of horizontal space and newlines.
func (p *Parser) skipWide() {
	for {
		if p.skipNewlineOnce() {
			continue
		}
		before := p.pos
		p.skipH()
		if p.pos == before {
			return
		}
	}
}

// matchPubPrefix is a non-committing lookahead: if "pub" followed by
// required horizontal space occurs at the current position, it returns how
// many bytes that prefix spans; otherwise 0.
func (p *Parser) matchPubPrefix() int {
	if !p.matchKeyword("pub") {
		return 0
	}
	j := p.pos + 3
	k := j
	for k < len(p.src) && isHSpace(p.src[k]) {
		k++
	}
	if k == j {
		return 0
	}
	return k - p.pos
}

func (p *Parser) fail(at int, expected string) {
	if at > p.farthest {
		p.farthest = at
		p.expected = []string{expected}
		return
	}
	if at == p.farthest {
		for _, e := range p.expected {
			if e == expected {
				return
			}
		}
		p.expected = append(p.expected, expected)
	}
}

func (p *Parser) buildError() error {
	expected := "end of input"
	if len(p.expected) > 0 {
		expected = strings.Join(p.expected, " or ")
	}
	return expectedErr(p.path, p.src, p.farthest, expected)
}

func span(start, end int) loc.Span { return loc.OffsetSpan(start, end) }

// ---- terminators ----------------------------------------------------

// expectTerminator consumes a statement terminator: a newline, a ';', or a
// (non-consumed) lookahead for end-of-file or one of '}', ']', ')'.
func (p *Parser) expectTerminator() bool {
	save := p.pos
	if p.skipNewlineOnce() {
		return true
	}
	p.pos = save
	p.skipH()
	if p.eof() {
		return true
	}
	if b := p.src[p.pos]; b == ';' {
		p.pos++
		return true
	} else if b == '}' || b == ']' || b == ')' {
		return true
	}
	p.pos = save
	p.fail(p.pos, "terminator")
	return false
}

// ---- atoms ------------------------------------------------------------

func (p *Parser) parseId() (*ast.Id, bool) {
	start := p.pos
	if p.eof() || !isIdentStart(p.src[p.pos]) {
		p.fail(p.pos, "identifier")
		return nil, false
	}
	p.pos++
	for !p.eof() && isIdentCont(p.src[p.pos]) {
		p.pos++
	}
	if p.peekByte('?') {
		p.pos++
	}
	end := p.pos
	return ast.NewId(span(start, end), p.src[start:end]), true
}

func (p *Parser) parseQualifier() (*ast.Qualifier, bool) {
	start := p.pos
	id, ok := p.parseId()
	if !ok {
		return nil, false
	}
	return ast.NewQualifier(span(start, p.pos), id), true
}

func (p *Parser) parseBool() (*ast.BoolLiteral, bool) {
	start := p.pos
	if p.consumeKeyword("true") {
		return ast.NewBoolLiteral(span(start, p.pos), true), true
	}
	if p.consumeKeyword("false") {
		return ast.NewBoolLiteral(span(start, p.pos), false), true
	}
	p.fail(p.pos, "boolean literal")
	return nil, false
}

func (p *Parser) parseString() (*ast.StringLiteral, bool) {
	start := p.pos
	if !p.consumeByte('"') {
		p.fail(p.pos, `'"'`)
		return nil, false
	}
	contentStart := p.pos
	for !p.eof() && p.src[p.pos] != '"' {
		p.pos++
	}
	if p.eof() {
		p.fail(p.pos, `closing '"'`)
		return nil, false
	}
	content := p.src[contentStart:p.pos]
	p.pos++
	return ast.NewStringLiteral(span(start, p.pos), content), true
}

// ---- expressions --------------------------------------------------------

// parseArgs parses a parenthesized, comma-separated expression list,
// shared by call and macro-call productions.
func (p *Parser) parseArgs() ([]ast.Expr, bool) {
	if !p.consumeByte('(') {
		p.fail(p.pos, "'('")
		return nil, false
	}
	p.skipWide()
	var args []ast.Expr
	if !p.peekByte(')') {
		for {
			e, ok := p.parseExpr()
			if !ok {
				return nil, false
			}
			args = append(args, e)
			save := p.pos
			p.skipWide()
			if p.consumeByte(',') {
				p.skipWide()
				continue
			}
			p.pos = save
			break
		}
	}
	p.skipWide()
	if !p.consumeByte(')') {
		p.fail(p.pos, "')'")
		return nil, false
	}
	return args, true
}

func (p *Parser) parseCallArgs(callee *ast.Qualifier, start int) (ast.Expr, bool) {
	args, ok := p.parseArgs()
	if !ok {
		return nil, false
	}
	return ast.NewCall(span(start, p.pos), callee, args), true
}

func (p *Parser) parseMacroCall() (*ast.MacroCall, bool) {
	start := p.pos
	if !p.consumeByte('@') {
		p.fail(p.pos, "'@'")
		return nil, false
	}
	name, ok := p.parseId()
	if !ok {
		return nil, false
	}
	args, ok := p.parseArgs()
	if !ok {
		return nil, false
	}
	return ast.NewMacroCall(span(start, p.pos), name, args), true
}

// parsePrimary parses a macro call, bool literal, or qualifier/call, in
// that precedence order (spec §4.3: primaries bind tightest).
func (p *Parser) parsePrimary() (ast.Expr, bool) {
	if p.peekByte('@') && p.identStartsAt(p.pos+1) {
		return p.parseMacroCall()
	}
	if p.matchKeyword("true") || p.matchKeyword("false") {
		return p.parseBool()
	}
	if p.identStartsHere() {
		start := p.pos
		q, ok := p.parseQualifier()
		if !ok {
			return nil, false
		}
		if p.peekByte('(') {
			return p.parseCallArgs(q, start)
		}
		return q, true
	}
	p.fail(p.pos, "expression")
	return nil, false
}

// parseExpr parses a primary, then any number of left-associative `=`
// applications (spec §4.3: assignment is the middle precedence level).
func (p *Parser) parseExpr() (ast.Expr, bool) {
	start := p.pos
	lhs, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}
	for {
		save := p.pos
		p.skipH()
		if !p.peekByte('=') || p.peekByteAt(p.pos+1, '=') {
			p.pos = save
			break
		}
		p.pos++
		p.skipWide()
		rhs, ok := p.parsePrimary()
		if !ok {
			return nil, false
		}
		lhs = ast.NewBinop(span(start, p.pos), lhs, "=", rhs)
	}
	return lhs, true
}

// ---- statements -----------------------------------------------------

func (p *Parser) parseComment() (*ast.Comment, bool) {
	start := p.pos
	if !p.consumeByte('#') {
		p.fail(p.pos, "'#'")
		return nil, false
	}
	textStart := p.pos
	for !p.eof() && p.src[p.pos] != '\n' && p.src[p.pos] != '\r' {
		p.pos++
	}
	return ast.NewComment(span(start, p.pos), p.src[textStart:p.pos]), true
}

func (p *Parser) parseIdList() ([]*ast.Id, bool) {
	var ids []*ast.Id
	if p.peekByte('}') {
		return ids, true
	}
	for {
		id, ok := p.parseId()
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
		save := p.pos
		p.skipWide()
		if p.consumeByte(',') {
			p.skipWide()
			continue
		}
		p.pos = save
		break
	}
	return ids, true
}

func (p *Parser) parseImport(pub bool, start int) (*ast.Import, bool) {
	if !p.consumeKeyword("import") {
		p.fail(p.pos, "'import'")
		return nil, false
	}
	p.skipH()
	if !p.consumeByte('{') {
		p.fail(p.pos, "'{'")
		return nil, false
	}
	p.skipWide()
	ids, ok := p.parseIdList()
	if !ok {
		return nil, false
	}
	p.skipWide()
	if !p.consumeByte('}') {
		p.fail(p.pos, "'}'")
		return nil, false
	}
	p.skipH()
	if !p.consumeKeyword("from") {
		p.fail(p.pos, "'from'")
		return nil, false
	}
	if !p.skipHRequired() {
		p.fail(p.pos, "space")
		return nil, false
	}
	from, ok := p.parseString()
	if !ok {
		return nil, false
	}
	if !p.expectTerminator() {
		return nil, false
	}
	return ast.NewImport(span(start, p.pos), pub, ids, from), true
}

func (p *Parser) parseDecorator() (*ast.Decorator, bool) {
	start := p.pos
	p.pos += 2 // "@["
	id, ok := p.parseId()
	if !ok {
		return nil, false
	}
	if !p.consumeByte(']') {
		p.fail(p.pos, "']'")
		return nil, false
	}
	return ast.NewDecorator(span(start, p.pos), id), true
}

func (p *Parser) parseVarDecl(start int) (*ast.VarDecl, bool) {
	if !p.skipHRequired() {
		p.fail(p.pos, "space")
		return nil, false
	}
	id, ok := p.parseId()
	if !ok {
		return nil, false
	}
	p.skipH()
	if !p.consumeByte('=') {
		p.fail(p.pos, "'='")
		return nil, false
	}
	p.skipWide()
	expr, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if !p.expectTerminator() {
		return nil, false
	}
	return ast.NewVarDecl(span(start, p.pos), id, expr), true
}

func (p *Parser) parseStructDef(pub bool, start int) (*ast.StructDef, bool) {
	if !p.consumeKeyword("struct") {
		p.fail(p.pos, "'struct'")
		return nil, false
	}
	if !p.skipHRequired() {
		p.fail(p.pos, "space")
		return nil, false
	}
	id, ok := p.parseId()
	if !ok {
		return nil, false
	}
	p.skipH()
	if !p.consumeByte('{') {
		p.fail(p.pos, "'{'")
		return nil, false
	}
	p.skipWide()
	if !p.consumeByte('}') {
		p.fail(p.pos, "'}'")
		return nil, false
	}
	return ast.NewStructDef(span(start, p.pos), pub, id), true
}

func (p *Parser) parseFunctionParam() (*ast.FunctionParam, bool) {
	start := p.pos
	id, ok := p.parseId()
	if !ok {
		return nil, false
	}
	p.skipH()
	if !p.consumeByte(':') {
		p.fail(p.pos, "':'")
		return nil, false
	}
	p.skipWide()
	typ, ok := p.parseQualifier()
	if !ok {
		return nil, false
	}
	return ast.NewFunctionParam(span(start, p.pos), id, typ), true
}

func (p *Parser) parseFunctionDecl(pub bool, start int) (*ast.FunctionDecl, bool) {
	if !p.consumeKeyword("fn") {
		p.fail(p.pos, "'fn'")
		return nil, false
	}
	if !p.skipHRequired() {
		p.fail(p.pos, "space")
		return nil, false
	}
	id, ok := p.parseQualifier()
	if !ok {
		return nil, false
	}
	p.skipH()
	if !p.consumeByte('(') {
		p.fail(p.pos, "'('")
		return nil, false
	}
	p.skipWide()
	var params []*ast.FunctionParam
	if !p.peekByte(')') {
		for {
			param, ok := p.parseFunctionParam()
			if !ok {
				return nil, false
			}
			params = append(params, param)
			save := p.pos
			p.skipWide()
			if p.consumeByte(',') {
				p.skipWide()
				continue
			}
			p.pos = save
			break
		}
	}
	p.skipWide()
	if !p.consumeByte(')') {
		p.fail(p.pos, "')'")
		return nil, false
	}
	p.skipH()
	if !p.consumeString("->") {
		p.fail(p.pos, "'->'")
		return nil, false
	}
	p.skipWide()
	ret, ok := p.parseQualifier()
	if !ok {
		return nil, false
	}
	if !p.expectTerminator() {
		return nil, false
	}
	return ast.NewFunctionDecl(span(start, p.pos), pub, id, params, ret), true
}

// parseDefaultBody parses a bare expression, then greedily consumes a ';'
// terminator if present; otherwise the expression stands as a free,
// unterminated block-body element.
func (p *Parser) parseDefaultBody() (ast.BlockBody, bool) {
	start := p.pos
	e, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	save := p.pos
	p.skipH()
	if p.consumeByte(';') {
		return ast.NewTerminatedExpr(span(start, p.pos), e), true
	}
	p.pos = save
	return ast.NewFreeExpr(span(start, p.pos), e), true
}

// parseBlockBodyEl parses one element of a module body: a comment, a
// keyword-led statement (var decl / import / decorator / struct / function),
// or a bare/terminated expression.
func (p *Parser) parseBlockBodyEl() (ast.BlockBody, bool) {
	if p.peekByte('#') {
		return p.parseComment()
	}

	start := p.pos
	pubLen := p.matchPubPrefix()
	lookahead := p.pos + pubLen
	pub := pubLen > 0

	switch {
	case p.matchKeywordAt(lookahead, "import"):
		p.pos = lookahead
		return p.parseImport(pub, start)
	case p.matchKeywordAt(lookahead, "struct"):
		p.pos = lookahead
		return p.parseStructDef(pub, start)
	case p.matchKeywordAt(lookahead, "fn"):
		p.pos = lookahead
		return p.parseFunctionDecl(pub, start)
	case !pub && p.matchKeyword("let"):
		p.pos += 3
		return p.parseVarDecl(start)
	case !pub && p.peekByte('@') && p.peekByteAt(p.pos+1, '['):
		return p.parseDecorator()
	default:
		return p.parseDefaultBody()
	}
}

func (p *Parser) parseModuleRoot() (*ast.Module, bool) {
	start := p.pos
	p.skipWide()
	var body []ast.BlockBody
	for !p.eof() {
		el, ok := p.parseBlockBodyEl()
		if !ok {
			return nil, false
		}
		body = append(body, el)
		before := p.pos
		// An element whose own terminator (newline or ';') was consumed is
		// already separated from the next one.
		terminated := before > 0 && strings.IndexByte("\n\r;", p.src[before-1]) >= 0
		p.skipWide()
		if p.pos == before && !p.eof() && !terminated {
			p.fail(p.pos, "end of input")
			return nil, false
		}
	}
	return ast.NewModule(span(start, p.pos), body), true
}

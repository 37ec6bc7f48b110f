package cst

import (
	"fmt"
	"strings"

	"corelang/internal/errsys"
)

// precedence mirrors internal/parser's operator-precedence table, widened
// to the source language's full operator set. Higher binds tighter.
// TokCaret is deliberately absent here: power() consumes it directly as
// right-associative exponentiation before binary() ever sees it, one level
// tighter than `*`/`/`.
var precedence = map[TokenType]int{
	TokOrOr: 1,
	TokAndAnd: 2,
	TokPipe: 3,
	TokAmp: 4,
	TokEqEq: 5, TokNeq: 5, TokLt: 5, TokLe: 5, TokGt: 5, TokGe: 5,
	TokShl: 6, TokShr: 6,
	TokPlus: 7, TokMinus: 7,
	TokStar: 8, TokSlash: 8, TokSlash2: 8, TokPercent: 8,
	TokDotOp: 8,
}

type Parser struct {
	file   string
	source string
	tokens []Token
	cur    int
	Errors []*errsys.Error
}

func NewParser(file, source string, tokens []Token) *Parser {
	return &Parser{file: file, source: source, tokens: tokens}
}

// Parse runs the lexer and parser pipeline, returning the CST Program and
// any accumulated parse errors ("ParseError ... Reported with
// span, hint; REPL continues" - callers decide whether to keep going).
func Parse(file, source string) (*Program, []*errsys.Error) {
	toks := NewLexer(file, source).ScanTokens()
	p := NewParser(file, source, toks)
	return p.Parse(), p.Errors
}

func (p *Parser) Parse() *Program {
	start := p.peek()
	var decls []Node
	for !p.atEnd() {
		decls = append(decls, p.topLevel())
	}
	return &Program{base: p.spanFrom(start), Decls: decls}
}

func (p *Parser) topLevel() Node {
	switch p.peek().Type {
	case TokFn:
		return p.funcDef()
	case TokStruct:
		return p.structDef()
	case TokEnum:
		return p.enumDef()
	case TokAbstract:
		return p.abstractDef()
	case TokUsing:
		return p.usingStmt()
	case TokExport:
		return p.exportStmt()
	default:
		return p.statement()
	}
}

// ---- declarations ----

func (p *Parser) funcDef() Node {
	start := p.advance() // 'fn'
	name := p.consume(TokIdent, "expected function name").Lexeme
	p.consume(TokLParen, "expected '(' after function name")
	var params []ParamDecl
	for !p.check(TokRParen) && !p.atEnd() {
		params = append(params, p.paramDecl())
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')' after parameters")
	body := p.block()
	return &FuncDef{base: p.spanFrom(start), Name: name, Params: params, Body: body}
}

func (p *Parser) paramDecl() ParamDecl {
	splat := false
	if p.check(TokDot) && p.peekAt(1).Type == TokDot {
		p.advance()
		p.advance()
		splat = true
	}
	name := p.consume(TokIdent, "expected parameter name").Lexeme
	pd := ParamDecl{Name: name, Splat: splat}
	if p.match(TokColon) {
		pd.TypeName = p.consume(TokIdent, "expected type name").Lexeme
	}
	if p.match(TokEq) {
		pd.Default = p.expression()
	}
	return pd
}

func (p *Parser) structDef() Node {
	start := p.advance() // 'struct'
	name := p.consume(TokIdent, "expected struct name").Lexeme
	p.consume(TokLBrace, "expected '{' after struct name")
	var fields []StructFieldDecl
	for !p.check(TokRBrace) && !p.atEnd() {
		mut := p.match(TokMut)
		fname := p.consume(TokIdent, "expected field name").Lexeme
		ftype := ""
		if p.match(TokColon) {
			ftype = p.consume(TokIdent, "expected field type").Lexeme
		}
		fields = append(fields, StructFieldDecl{Name: fname, TypeName: ftype, Mutable: mut})
		if !p.match(TokComma) {
			p.match(TokSemi)
		}
	}
	p.consume(TokRBrace, "expected '}' to close struct")
	return &StructDef{base: p.spanFrom(start), Name: name, Fields: fields}
}

func (p *Parser) enumDef() Node {
	start := p.advance() // 'enum'
	name := p.consume(TokIdent, "expected enum name").Lexeme
	p.consume(TokLBrace, "expected '{' after enum name")
	var members []string
	for !p.check(TokRBrace) && !p.atEnd() {
		members = append(members, p.consume(TokIdent, "expected enum member").Lexeme)
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRBrace, "expected '}' to close enum")
	return &EnumDef{base: p.spanFrom(start), Name: name, Members: members}
}

func (p *Parser) abstractDef() Node {
	start := p.advance() // 'abstract'
	name := p.consume(TokIdent, "expected abstract type name").Lexeme
	parent := ""
	if p.match(TokLt) {
		parent = p.consume(TokIdent, "expected supertype name").Lexeme
	}
	return &AbstractDef{base: p.spanFrom(start), Name: name, Parent: parent}
}

func (p *Parser) usingStmt() Node {
	start := p.advance() // 'using'
	module := p.consume(TokIdent, "expected module name").Lexeme
	var names []string
	if p.match(TokColon) {
		for {
			names = append(names, p.consume(TokIdent, "expected imported name").Lexeme)
			if !p.match(TokComma) {
				break
			}
		}
	}
	return &UsingStmt{base: p.spanFrom(start), Module: module, Names: names}
}

func (p *Parser) exportStmt() Node {
	start := p.advance() // 'export'
	var names []string
	for {
		names = append(names, p.consume(TokIdent, "expected exported name").Lexeme)
		if !p.match(TokComma) {
			break
		}
	}
	return &ExportStmt{base: p.spanFrom(start), Names: names}
}

// ---- statements ----

func (p *Parser) block() *Block {
	start := p.consume(TokLBrace, "expected '{'")
	var stmts []Node
	for !p.check(TokRBrace) && !p.atEnd() {
		stmts = append(stmts, p.statement())
	}
	p.consume(TokRBrace, "expected '}'")
	return &Block{base: p.spanFrom(start), Stmts: stmts}
}

func (p *Parser) statement() Node {
	switch p.peek().Type {
	case TokIf:
		return p.ifStmt()
	case TokWhile:
		return p.whileStmt()
	case TokFor:
		return p.forStmt()
	case TokReturn:
		start := p.advance()
		var v Node
		if !p.check(TokRBrace) && !p.check(TokSemi) && !p.atEnd() {
			v = p.expression()
		}
		p.match(TokSemi)
		return &ReturnStmt{base: p.spanFrom(start), Value: v}
	case TokBreak:
		start := p.advance()
		label := ""
		if p.check(TokIdent) {
			label = p.advance().Lexeme
		}
		p.match(TokSemi)
		return &BreakStmt{base: p.spanFrom(start), Label: label}
	case TokContinue:
		start := p.advance()
		label := ""
		if p.check(TokIdent) {
			label = p.advance().Lexeme
		}
		p.match(TokSemi)
		return &ContinueStmt{base: p.spanFrom(start), Label: label}
	case TokTry:
		return p.tryCatch()
	case TokTest:
		return p.testDecl()
	case TokTestset:
		return p.testsetDecl()
	case TokThrows:
		return p.testThrowsDecl()
	case TokTimed:
		return p.timedDecl()
	case TokLabel:
		start := p.advance()
		name := p.consume(TokIdent, "expected label name").Lexeme
		return &LabelStmt{base: p.spanFrom(start), Name: name}
	case TokGoto:
		start := p.advance()
		name := p.consume(TokIdent, "expected label name").Lexeme
		return &GotoStmt{base: p.spanFrom(start), Name: name}
	case TokUsing:
		return p.usingStmt()
	case TokExport:
		return p.exportStmt()
	case TokFn:
		return p.funcDef()
	default:
		return p.exprOrAssignStmt()
	}
}

func (p *Parser) ifStmt() Node {
	start := p.advance() // 'if'
	cond := p.expression()
	then := p.block()
	var els *Block
	if p.match(TokElse) {
		if p.check(TokIf) {
			inner := p.ifStmt()
			els = &Block{base: inner.Span(), Stmts: []Node{inner}}
		} else {
			els = p.block()
		}
	}
	return &IfExpr{base: p.spanFrom(start), Cond: cond, Then: then, Else: els}
}

func (p *Parser) whileStmt() Node {
	start := p.advance() // 'while'
	cond := p.expression()
	body := p.block()
	return &WhileStmt{base: p.spanFrom(start), Cond: cond, Body: body}
}

func (p *Parser) forStmt() Node {
	start := p.advance() // 'for'
	var vars []string
	if p.match(TokLParen) {
		for {
			vars = append(vars, p.consume(TokIdent, "expected loop variable").Lexeme)
			if !p.match(TokComma) {
				break
			}
		}
		p.consume(TokRParen, "expected ')' after loop variables")
	} else {
		vars = []string{p.consume(TokIdent, "expected loop variable").Lexeme}
	}
	p.consume(TokIn, "expected 'in' in for loop")
	iter := p.rangeOrExpr()
	body := p.block()
	return &ForStmt{base: p.spanFrom(start), Vars: vars, Iter: iter, Body: body}
}

func (p *Parser) tryCatch() Node {
	start := p.advance() // 'try'
	body := p.block()
	var catches []CatchClause
	for p.match(TokCatch) {
		cc := CatchClause{}
		if p.check(TokIdent) {
			cc.Var = p.advance().Lexeme
		}
		if p.match(TokColon) {
			for {
				cc.Kinds = append(cc.Kinds, p.consume(TokIdent, "expected error kind").Lexeme)
				if !p.match(TokComma) {
					break
				}
			}
		}
		cc.Body = p.block()
		catches = append(catches, cc)
	}
	var fin *Block
	if p.match(TokFinally) {
		fin = p.block()
	}
	return &TryCatch{base: p.spanFrom(start), Body: body, Catches: catches, Finally: fin}
}

func (p *Parser) testDecl() Node {
	start := p.advance() // 'test'
	desc := ""
	if p.check(TokString) {
		desc = p.advance().Lexeme
	}
	cond := p.expression()
	return &TestDecl{base: p.spanFrom(start), Description: desc, Cond: cond}
}

func (p *Parser) testsetDecl() Node {
	start := p.advance() // 'testset'
	desc := ""
	if p.check(TokString) {
		desc = p.advance().Lexeme
	}
	body := p.block()
	return &TestSetDecl{base: p.spanFrom(start), Description: desc, Body: body}
}

func (p *Parser) testThrowsDecl() Node {
	start := p.advance() // 'testthrows'
	desc := ""
	if p.check(TokString) {
		desc = p.advance().Lexeme
	}
	var kinds []string
	if p.match(TokColon) {
		for {
			kinds = append(kinds, p.consume(TokIdent, "expected error kind").Lexeme)
			if !p.match(TokComma) {
				break
			}
		}
	}
	body := p.block()
	return &TestThrowsDecl{base: p.spanFrom(start), Description: desc, Kinds: kinds, Body: body}
}

func (p *Parser) timedDecl() Node {
	start := p.advance() // 'timed'
	v := ""
	if p.check(TokIdent) && p.peekAt(1).Type == TokEq {
		v = p.advance().Lexeme
		p.advance() // '='
	}
	body := p.block()
	return &TimedDecl{base: p.spanFrom(start), Var: v, Body: body}
}

// exprOrAssignStmt parses an expression statement, recognizing assignment
// and compound-assignment forms by looking at what follows the primary
// expression (mirrors internal/parser's ident-then-lookahead idiom).
func (p *Parser) exprOrAssignStmt() Node {
	start := p.peek()
	lhs := p.expression()
	switch {
	case p.match(TokEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &Assign{base: p.spanFrom(start), Target: lhs, Value: rhs}
	case p.match(TokPlusEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &CompoundAssign{base: p.spanFrom(start), Target: lhs, Op: "+", Value: rhs}
	case p.match(TokMinusEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &CompoundAssign{base: p.spanFrom(start), Target: lhs, Op: "-", Value: rhs}
	case p.match(TokStarEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &CompoundAssign{base: p.spanFrom(start), Target: lhs, Op: "*", Value: rhs}
	case p.match(TokSlashEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &CompoundAssign{base: p.spanFrom(start), Target: lhs, Op: "/", Value: rhs}
	case p.match(TokDotEq):
		rhs := p.expression()
		p.match(TokSemi)
		return &BroadcastAssign{base: p.spanFrom(start), Target: lhs, Value: rhs}
	default:
		p.match(TokSemi)
		return lhs
	}
}

// ---- expressions: precedence climbing ----

func (p *Parser) expression() Node { return p.ternary() }

func (p *Parser) ternary() Node {
	start := p.peek()
	cond := p.binary(1)
	if p.match(TokQuestion) {
		then := p.expression()
		p.consume(TokColon, "expected ':' in ternary expression")
		els := p.expression()
		return &Ternary{base: p.spanFrom(start), Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *Parser) binary(minPrec int) Node {
	start := p.peek()
	left := p.power()
	for {
		t := p.peek()
		prec, ok := precedence[t.Type]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.binary(prec + 1)
		if t.Type == TokDotOp {
			left = &BroadcastBinary{base: p.spanFrom(start), Op: string(t.SubOp), Left: left, Right: right}
		} else {
			left = &Binary{base: p.spanFrom(start), Op: string(t.Type), Left: left, Right: right}
		}
	}
}

// power handles right-associative `^` above the general binary table.
func (p *Parser) power() Node {
	start := p.peek()
	base := p.unary()
	if p.check(TokCaret) {
		p.advance()
		exp := p.power()
		return &Binary{base: p.spanFrom(start), Op: "^", Left: base, Right: exp}
	}
	return base
}

func (p *Parser) unary() Node {
	start := p.peek()
	switch {
	case p.match(TokMinus):
		return &Unary{base: p.spanFrom(start), Op: "-", Operand: p.unary()}
	case p.match(TokBang):
		return &Unary{base: p.spanFrom(start), Op: "!", Operand: p.unary()}
	case p.match(TokTilde):
		return &Unary{base: p.spanFrom(start), Op: "~", Operand: p.unary()}
	case p.match(TokPlus):
		return &Unary{base: p.spanFrom(start), Op: "+", Operand: p.unary()}
	default:
		return p.postfix()
	}
}

func (p *Parser) postfix() Node {
	start := p.peek()
	expr := p.primary()
	for {
		switch {
		case p.match(TokDot):
			name := p.consume(TokIdent, "expected field name after '.'").Lexeme
			expr = &FieldAccess{base: p.spanFrom(start), Object: expr, Field: name}
		case p.check(TokLParen):
			expr = p.finishCall(start, expr)
		case p.match(TokLBracket):
			var idx []Node
			for !p.check(TokRBracket) && !p.atEnd() {
				if p.check(TokColon) && (p.peekAt(1).Type == TokComma || p.peekAt(1).Type == TokRBracket) {
					s := p.advance()
					idx = append(idx, &SliceAll{base: p.spanFrom(s)})
				} else {
					idx = append(idx, p.rangeOrExpr())
				}
				if !p.match(TokComma) {
					break
				}
			}
			p.consume(TokRBracket, "expected ']' after index")
			expr = &IndexOp{base: p.spanFrom(start), Object: expr, Index: idx}
		default:
			return expr
		}
	}
}

func (p *Parser) rangeOrExpr() Node {
	start := p.peek()
	first := p.expression()
	if p.match(TokColon) {
		second := p.expression()
		if p.match(TokColon) {
			third := p.expression()
			return &RangeExpr{base: p.spanFrom(start), Start: first, Step: second, Stop: third}
		}
		return &RangeExpr{base: p.spanFrom(start), Start: first, Stop: second}
	}
	return first
}

func (p *Parser) finishCall(start Token, callee Node) Node {
	p.consume(TokLParen, "expected '('")
	var args []Arg
	for !p.check(TokRParen) && !p.atEnd() {
		args = append(args, p.callArg())
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')' to close call")
	if qn, ok := callee.(*QualifiedName); ok {
		return &QualifiedCall{base: p.spanFrom(start), Module: qn.Module, Name: qn.Name, Args: args}
	}
	return &Call{base: p.spanFrom(start), Callee: callee, Args: args}
}

func (p *Parser) callArg() Arg {
	if p.check(TokDot) && p.peekAt(1).Type == TokDot {
		p.advance()
		p.advance()
		return Arg{Value: p.expression(), Splatted: true}
	}
	if p.check(TokIdent) && p.peekAt(1).Type == TokEq {
		name := p.advance().Lexeme
		p.advance() // '='
		return Arg{Value: p.expression(), Keyword: name}
	}
	return Arg{Value: p.expression()}
}

func (p *Parser) primary() Node {
	start := p.peek()
	switch {
	case p.check(TokInt):
		t := p.advance()
		return &NumberLit{base: p.spanFrom(start), Text: t.Lexeme, IsFloat: false}
	case p.check(TokFloat):
		t := p.advance()
		return &NumberLit{base: p.spanFrom(start), Text: t.Lexeme, IsFloat: true}
	case p.check(TokString):
		t := p.advance()
		return p.splitInterpolation(start, t.Lexeme)
	case p.check(TokChar):
		t := p.advance()
		return &CharLit{base: p.spanFrom(start), Raw: t.Lexeme}
	case p.match(TokTrue):
		return &BoolLit{base: p.spanFrom(start), Value: true}
	case p.match(TokFalse):
		return &BoolLit{base: p.spanFrom(start), Value: false}
	case p.match(TokNothing):
		return &NothingLit{base: p.spanFrom(start)}
	case p.match(TokMissing):
		return &MissingLit{base: p.spanFrom(start)}
	case p.match(TokUndef):
		tn := ""
		if p.match(TokColon) {
			tn = p.consume(TokIdent, "expected type name").Lexeme
		}
		return &UndefLit{base: p.spanFrom(start), TypeName: tn}
	case p.match(TokNew):
		p.consume(TokLParen, "expected '(' after new")
		tn := p.consume(TokIdent, "expected type name").Lexeme
		p.consume(TokRParen, "expected ')' after new(Type)")
		return &NewExpr{base: p.spanFrom(start), TypeName: tn}
	case p.match(TokQuote):
		body := p.block()
		return &QuoteExpr{base: p.spanFrom(start), Body: body}
	case p.match(TokFn):
		return p.lambda(start)
	case p.match(TokLParen):
		return p.parenOrTuple(start)
	case p.match(TokLBracket):
		return p.arrayOrComprehension(start)
	case p.check(TokIdent):
		return p.identOrStructOrDict(start)
	default:
		p.errorf(start, "unexpected token %s", p.peek().Type)
		p.advance()
		return &NothingLit{base: p.spanFrom(start)}
	}
}

func (p *Parser) lambda(start Token) Node {
	p.consume(TokLParen, "expected '(' after fn")
	var params []ParamDecl
	for !p.check(TokRParen) && !p.atEnd() {
		params = append(params, p.paramDecl())
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')' after lambda parameters")
	var body Node
	if p.match(TokArrow) {
		body = p.expression()
	} else {
		body = p.block()
	}
	return &LambdaExpr{base: p.spanFrom(start), Params: params, Body: body}
}

func (p *Parser) parenOrTuple(start Token) Node {
	if p.match(TokRParen) {
		return &TupleLit{base: p.spanFrom(start)}
	}
	var elems []Node
	var names []string
	named := false
	for {
		if p.check(TokIdent) && p.peekAt(1).Type == TokEq {
			name := p.advance().Lexeme
			p.advance()
			names = append(names, name)
			elems = append(elems, p.expression())
			named = true
		} else {
			e := p.expression()
			elems = append(elems, e)
			names = append(names, "")
		}
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')'")
	if !named && len(elems) == 1 {
		return elems[0]
	}
	if named {
		return &TupleLit{base: p.spanFrom(start), Elems: elems, Names: names}
	}
	return &TupleLit{base: p.spanFrom(start), Elems: elems}
}

func (p *Parser) arrayOrComprehension(start Token) Node {
	if p.match(TokRBracket) {
		return &ArrayLit{base: p.spanFrom(start)}
	}
	first := p.expression()
	if p.match(TokFor) {
		var iters []IterClause
		for {
			name := p.consume(TokIdent, "expected comprehension variable").Lexeme
			p.consume(TokIn, "expected 'in'")
			iter := p.expression()
			iters = append(iters, IterClause{Name: name, Iterable: iter})
			if !p.match(TokComma) {
				break
			}
		}
		var filter Node
		if p.match(TokIf) {
			filter = p.expression()
		}
		p.consume(TokRBracket, "expected ']' to close comprehension")
		return &Comprehension{base: p.spanFrom(start), Body: first, Iterators: iters, Filter: filter}
	}
	elems := []Node{first}
	for p.match(TokComma) {
		if p.check(TokRBracket) {
			break
		}
		elems = append(elems, p.expression())
	}
	p.consume(TokRBracket, "expected ']' to close array literal")
	return &ArrayLit{base: p.spanFrom(start), Elems: elems}
}

// identOrStructOrDict disambiguates a bare identifier, `Module.name(...)`
// qualified calls (looked ahead via FieldAccess + call), `Dict(k=>v,...)`
// construction, and `StructName(a, b)` positional struct construction -
// all of which start with an identifier in this grammar.
func (p *Parser) identOrStructOrDict(start Token) Node {
	name := p.advance().Lexeme
	if name == "Dict" && p.check(TokLParen) {
		return p.dictLit(start)
	}
	if p.check(TokDot) && p.peekAt(1).Type == TokIdent && isUpper(name) {
		save := p.cur
		p.advance() // '.'
		member := p.advance().Lexeme
		if p.check(TokLParen) {
			return &QualifiedName{base: p.spanFrom(start), Module: name, Name: member}
		}
		p.cur = save
	}
	if isUpper(name) && p.check(TokLParen) {
		return p.structLit(start, name)
	}
	return &Ident{base: p.spanFrom(start), Name: name}
}

func (p *Parser) dictLit(start Token) Node {
	p.consume(TokLParen, "expected '(' after Dict")
	var entries []Pair
	for !p.check(TokRParen) && !p.atEnd() {
		k := p.expression()
		p.consume(TokArrow, "expected '=>' in dict entry")
		v := p.expression()
		entries = append(entries, Pair{Key: k, Value: v})
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')' to close Dict(...)")
	return &DictLit{base: p.spanFrom(start), Entries: entries}
}

func (p *Parser) structLit(start Token, name string) Node {
	p.consume(TokLParen, "expected '(' after struct type name")
	var fields []Node
	for !p.check(TokRParen) && !p.atEnd() {
		fields = append(fields, p.expression())
		if !p.match(TokComma) {
			break
		}
	}
	p.consume(TokRParen, "expected ')' to close struct literal")
	return &StructLit{base: p.spanFrom(start), TypeName: name, Fields: fields}
}

// splitInterpolation turns a raw `"...$name...${expr}..."` token body into
// either a plain StringLit (no markers found) or a StringInterp whose
// parts alternate StringLit and re-parsed expression nodes.
func (p *Parser) splitInterpolation(start Token, raw string) Node {
	if !strings.Contains(raw, "$") {
		return &StringLit{base: p.spanFrom(start), Raw: raw}
	}
	var parts []Node
	var lit strings.Builder
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '$' && i+1 < len(raw) {
			if raw[i+1] == '{' {
				end := strings.IndexByte(raw[i+2:], '}')
				if end < 0 {
					lit.WriteByte(c)
					i++
					continue
				}
				if lit.Len() > 0 {
					parts = append(parts, &StringLit{base: p.spanFrom(start), Raw: lit.String()})
					lit.Reset()
				}
				exprSrc := raw[i+2 : i+2+end]
				parts = append(parts, parseSubExpr(p.file, exprSrc, start))
				i = i + 2 + end + 1
				continue
			}
			if isAlpha(raw[i+1]) {
				j := i + 1
				for j < len(raw) && isAlphaNumeric(raw[j]) {
					j++
				}
				if lit.Len() > 0 {
					parts = append(parts, &StringLit{base: p.spanFrom(start), Raw: lit.String()})
					lit.Reset()
				}
				parts = append(parts, &Ident{base: p.spanFrom(start), Name: raw[i+1 : j]})
				i = j
				continue
			}
		}
		lit.WriteByte(c)
		i++
	}
	if lit.Len() > 0 {
		parts = append(parts, &StringLit{base: p.spanFrom(start), Raw: lit.String()})
	}
	return &StringInterp{base: p.spanFrom(start), Parts: parts}
}

// parseSubExpr re-lexes and re-parses a `${...}` interpolation body as its
// own expression, sharing the enclosing token's span since the byte offset
// of the interpolation within the original file isn't separately tracked.
func parseSubExpr(file, src string, at Token) Node {
	toks := NewLexer(file, src).ScanTokens()
	sub := NewParser(file, src, toks)
	return sub.expression()
}

func isUpper(s string) bool { return s != "" && s[0] >= 'A' && s[0] <= 'Z' }

// ---- token plumbing ----

func (p *Parser) peek() Token  { return p.tokens[p.cur] }
func (p *Parser) peekAt(n int) Token {
	i := p.cur + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}
func (p *Parser) atEnd() bool  { return p.peek().Type == TokEOF }
func (p *Parser) advance() Token {
	t := p.tokens[p.cur]
	if !p.atEnd() {
		p.cur++
	}
	return t
}
func (p *Parser) check(t TokenType) bool { return p.peek().Type == t }
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
// consume requires the next token to have type t, recording a ParseError
// and skipping one token forward on mismatch so callers always make
// progress (a persistently-missing token would otherwise spin the loop
// that called consume).
func (p *Parser) consume(t TokenType, msg string) Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorf(p.peek(), "%s (got %s)", msg, p.peek().Type)
	if p.atEnd() {
		return p.peek()
	}
	return p.advance()
}

func (p *Parser) spanFrom(start Token) base {
	end := start
	if p.cur > 0 {
		end = p.tokens[p.cur-1]
	}
	return mkbase(errsys.Span{
		File: p.file, Line: start.Line, Column: start.Column,
		StartByte: start.StartByte, EndByte: end.EndByte,
	})
}

func (p *Parser) errorf(t Token, format string, args ...any) {
	span := errsys.Span{File: p.file, Line: t.Line, Column: t.Column, StartByte: t.StartByte, EndByte: t.EndByte}
	p.Errors = append(p.Errors, errsys.New(errsys.ParseError, fmt.Sprintf(format, args...), span).
		WithHint("check syntax near this token"))
}

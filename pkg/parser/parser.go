// Package parser implements the Lox recursive-descent parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/lexer"
)

// maxArgs bounds both parameter lists and call argument lists.
const maxArgs = 255

type parser struct {
	tokens   []lexer.Token
	pos      int
	reporter diagnostics.Reporter
}

// Parse tokenizes source and parses it into a Program. Every lex and parse
// error is reported; the returned diagnostics are empty on success. When
// errors exist the returned program holds the statements that did parse and
// must not be executed.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	var c diagnostics.Collector
	prog := ParseWith(source, filename, &c)
	return prog, c.Diags
}

// ParseWith is Parse with a caller-supplied reporter.
func ParseWith(source, filename string, reporter diagnostics.Reporter) *ast.Program {
	tokens := lexer.Tokenize(source, filename, reporter)
	p := &parser{tokens: tokens, pos: 0, reporter: reporter}
	return p.parseProgram()
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) atEnd() bool {
	return p.peek() == lexer.TokEOF
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) check(typ lexer.TokenType) bool {
	return p.peek() == typ
}

func (p *parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of the given type or reports msg at the current token.
func (p *parser) expect(typ lexer.TokenType, msg string) (lexer.Token, bool) {
	if p.check(typ) {
		return p.advance(), true
	}
	p.errorAt(p.current(), msg)
	return p.current(), false
}

func (p *parser) errorAt(tok lexer.Token, msg string) {
	where := diagnostics.AtLexeme(tok.Lexeme)
	if tok.Type == lexer.TokEOF {
		where = diagnostics.AtEnd
	}
	span := tok.Span
	p.reporter.Report(diagnostics.MakeDiag(diagnostics.EParse, diagnostics.StageParse, msg, &span, where))
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// synchronize discards tokens until a likely statement boundary.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.peek() {
		case lexer.TokClass, lexer.TokFun, lexer.TokVar, lexer.TokFor,
			lexer.TokIf, lexer.TokWhile, lexer.TokPrint, lexer.TokReturn:
			return
		}
		p.advance()
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for !p.atEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return &ast.Program{
		Span:       spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// --- Declarations ---

// parseDeclaration returns nil after a syntax error, having resynchronized.
func (p *parser) parseDeclaration() ast.Stmt {
	var stmt ast.Stmt
	switch p.peek() {
	case lexer.TokClass:
		if s := p.parseClassDecl(); s != nil {
			stmt = s
		}
	case lexer.TokFun:
		p.advance()
		if s := p.parseFunction("function"); s != nil {
			stmt = s
		}
	case lexer.TokVar:
		if s := p.parseVarDecl(); s != nil {
			stmt = s
		}
	default:
		stmt = p.parseStmt()
	}
	if stmt == nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *parser) parseClassDecl() *ast.ClassStmt {
	start := p.advance() // consume 'class'
	nameTok, ok := p.expect(lexer.TokIdent, "Expect class name.")
	if !ok {
		return nil
	}

	var superclass *ast.VariableExpr
	if p.match(lexer.TokLt) {
		superTok, ok := p.expect(lexer.TokIdent, "Expect superclass name.")
		if !ok {
			return nil
		}
		superclass = &ast.VariableExpr{Span: superTok.Span, Name: superTok.Lexeme}
	}

	if _, ok := p.expect(lexer.TokLBrace, "Expect '{' before class body."); !ok {
		return nil
	}
	var methods []*ast.FunctionStmt
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		m := p.parseFunction("method")
		if m == nil {
			return nil
		}
		methods = append(methods, m)
	}
	end, ok := p.expect(lexer.TokRBrace, "Expect '}' after class body.")
	if !ok {
		return nil
	}

	return &ast.ClassStmt{
		Span:       spanFromTo(start.Span, end.Span),
		Name:       nameTok.Lexeme,
		NameSpan:   nameTok.Span,
		Superclass: superclass,
		Methods:    methods,
	}
}

// parseFunction parses the part of a function or method after 'fun'.
// kind is "function" or "method" and only affects error messages.
func (p *parser) parseFunction(kind string) *ast.FunctionStmt {
	nameTok, ok := p.expect(lexer.TokIdent, fmt.Sprintf("Expect %s name.", kind))
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen, fmt.Sprintf("Expect '(' after %s name.", kind)); !ok {
		return nil
	}
	var params []ast.Param
	if !p.check(lexer.TokRParen) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.current(), fmt.Sprintf("Can't have more than %d parameters.", maxArgs))
			}
			paramTok, ok := p.expect(lexer.TokIdent, "Expect parameter name.")
			if !ok {
				return nil
			}
			params = append(params, ast.Param{Name: paramTok.Lexeme, Span: paramTok.Span})
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after parameters."); !ok {
		return nil
	}

	if _, ok := p.expect(lexer.TokLBrace, fmt.Sprintf("Expect '{' before %s body.", kind)); !ok {
		return nil
	}
	body, end, ok := p.parseBlockBody()
	if !ok {
		return nil
	}

	return &ast.FunctionStmt{
		Span:     spanFromTo(nameTok.Span, end.Span),
		Name:     nameTok.Lexeme,
		NameSpan: nameTok.Span,
		Params:   params,
		Body:     body,
	}
}

func (p *parser) parseVarDecl() *ast.VarStmt {
	start := p.advance() // consume 'var'
	nameTok, ok := p.expect(lexer.TokIdent, "Expect variable name.")
	if !ok {
		return nil
	}

	var init ast.Expr
	if p.match(lexer.TokEquals) {
		init = p.parseExpr()
		if init == nil {
			return nil
		}
	}

	end, ok := p.expect(lexer.TokSemicolon, "Expect ';' after variable declaration.")
	if !ok {
		return nil
	}
	return &ast.VarStmt{
		Span:     spanFromTo(start.Span, end.Span),
		Name:     nameTok.Lexeme,
		NameSpan: nameTok.Span,
		Init:     init,
	}
}

// --- Statements ---

// parseStmt returns a nil interface, never a typed nil pointer, on error.
func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokFor:
		return p.parseFor()
	case lexer.TokIf:
		if s := p.parseIf(); s != nil {
			return s
		}
	case lexer.TokPrint:
		if s := p.parsePrint(); s != nil {
			return s
		}
	case lexer.TokReturn:
		if s := p.parseReturn(); s != nil {
			return s
		}
	case lexer.TokWhile:
		if s := p.parseWhile(); s != nil {
			return s
		}
	case lexer.TokLBrace:
		if s := p.parseBlock(); s != nil {
			return s
		}
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

// parseFor desugars a for loop into an initializer block, a while loop and
// an increment appended to the loop body.
func (p *parser) parseFor() ast.Stmt {
	start := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'for'."); !ok {
		return nil
	}

	var init ast.Stmt
	switch {
	case p.match(lexer.TokSemicolon):
	case p.check(lexer.TokVar):
		v := p.parseVarDecl()
		if v == nil {
			return nil
		}
		init = v
	default:
		e := p.parseExprStmt()
		if e == nil {
			return nil
		}
		init = e
	}

	var cond ast.Expr
	if !p.check(lexer.TokSemicolon) {
		if cond = p.parseExpr(); cond == nil {
			return nil
		}
	}
	semi, ok := p.expect(lexer.TokSemicolon, "Expect ';' after loop condition.")
	if !ok {
		return nil
	}

	var incr ast.Expr
	if !p.check(lexer.TokRParen) {
		if incr = p.parseExpr(); incr == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after for clauses."); !ok {
		return nil
	}

	body := p.parseStmt()
	if body == nil {
		return nil
	}
	span := spanFromTo(start.Span, body.NodeSpan())

	if incr != nil {
		body = &ast.BlockStmt{
			Span:       span,
			Statements: []ast.Stmt{body, &ast.ExprStmt{Span: incr.NodeSpan(), Expr: incr}},
		}
	}
	if cond == nil {
		cond = &ast.BoolLiteral{Span: semi.Span, Value: true}
	}
	var loop ast.Stmt = &ast.WhileStmt{Span: span, Cond: cond, Body: body}
	if init != nil {
		loop = &ast.BlockStmt{Span: span, Statements: []ast.Stmt{init, loop}}
	}
	return loop
}

func (p *parser) parseIf() *ast.IfStmt {
	start := p.advance() // consume 'if'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'if'."); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after if condition."); !ok {
		return nil
	}

	thenBranch := p.parseStmt()
	if thenBranch == nil {
		return nil
	}
	end := thenBranch.NodeSpan()

	// else binds to the nearest preceding if.
	var elseBranch ast.Stmt
	if p.match(lexer.TokElse) {
		if elseBranch = p.parseStmt(); elseBranch == nil {
			return nil
		}
		end = elseBranch.NodeSpan()
	}

	return &ast.IfStmt{
		Span: spanFromTo(start.Span, end),
		Cond: cond,
		Then: thenBranch,
		Else: elseBranch,
	}
}

func (p *parser) parsePrint() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokSemicolon, "Expect ';' after value.")
	if !ok {
		return nil
	}
	return &ast.PrintStmt{Span: spanFromTo(start.Span, end.Span), Expr: value}
}

func (p *parser) parseReturn() *ast.ReturnStmt {
	keyword := p.advance() // consume 'return'
	var value ast.Expr
	if !p.check(lexer.TokSemicolon) {
		if value = p.parseExpr(); value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after return value."); !ok {
		return nil
	}
	return &ast.ReturnStmt{Span: keyword.Span, Value: value}
}

func (p *parser) parseWhile() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after 'while'."); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after condition."); !ok {
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: spanFromTo(start.Span, body.NodeSpan()),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokSemicolon, "Expect ';' after expression.")
	if !ok {
		return nil
	}
	return &ast.ExprStmt{Span: spanFromTo(expr.NodeSpan(), end.Span), Expr: expr}
}

// --- Block ---

func (p *parser) parseBlock() *ast.BlockStmt {
	start := p.advance() // consume '{'
	stmts, end, ok := p.parseBlockBody()
	if !ok {
		return nil
	}
	return &ast.BlockStmt{Span: spanFromTo(start.Span, end.Span), Statements: stmts}
}

// parseBlockBody parses declarations up to and including the closing brace.
// Errors inside nested declarations resynchronize locally, so ok is false
// only when the closing brace is missing.
func (p *parser) parseBlockBody() ([]ast.Stmt, lexer.Token, bool) {
	var stmts []ast.Stmt
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	end, ok := p.expect(lexer.TokRBrace, "Expect '}' after block.")
	return stmts, end, ok
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseOr()
	if expr == nil {
		return nil
	}

	if p.check(lexer.TokEquals) {
		equals := p.advance()
		// Assignment is right-associative.
		value := p.parseAssignment()
		if value == nil {
			return nil
		}

		switch target := expr.(type) {
		case *ast.VariableExpr:
			return &ast.AssignExpr{Span: target.Span, Name: target.Name, Value: value}
		case *ast.GetExpr:
			return &ast.SetExpr{Span: target.Span, Object: target.Object, Name: target.Name, Value: value}
		}
		// Reported without unwinding: the parser is not in a confused state.
		p.errorAt(equals, "Invalid assignment target.")
	}

	return expr
}

func (p *parser) parseOr() ast.Expr {
	expr := p.parseAnd()
	for expr != nil && p.check(lexer.TokOr) {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		expr = &ast.LogicalExpr{Span: op.Span, Op: ast.OpOr, Left: expr, Right: right}
	}
	return expr
}

func (p *parser) parseAnd() ast.Expr {
	expr := p.parseEquality()
	for expr != nil && p.check(lexer.TokAnd) {
		op := p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		expr = &ast.LogicalExpr{Span: op.Span, Op: ast.OpAnd, Left: expr, Right: right}
	}
	return expr
}

var binaryOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokEqEq:   ast.OpEqEq,
	lexer.TokBangEq: ast.OpNotEq,
	lexer.TokGt:     ast.OpGt,
	lexer.TokGtEq:   ast.OpGtEq,
	lexer.TokLt:     ast.OpLt,
	lexer.TokLtEq:   ast.OpLtEq,
	lexer.TokPlus:   ast.OpAdd,
	lexer.TokMinus:  ast.OpSub,
	lexer.TokStar:   ast.OpMul,
	lexer.TokSlash:  ast.OpDiv,
}

// parseBinaryLevel parses a left-associative chain of the given operators.
func (p *parser) parseBinaryLevel(next func() ast.Expr, ops ...lexer.TokenType) ast.Expr {
	expr := next()
	for expr != nil {
		matched := false
		for _, t := range ops {
			if p.check(t) {
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		op := p.advance()
		right := next()
		if right == nil {
			return nil
		}
		expr = &ast.BinaryExpr{Span: op.Span, Op: binaryOps[op.Type], Left: expr, Right: right}
	}
	return expr
}

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinaryLevel(p.parseComparison, lexer.TokBangEq, lexer.TokEqEq)
}

func (p *parser) parseComparison() ast.Expr {
	return p.parseBinaryLevel(p.parseTerm, lexer.TokGt, lexer.TokGtEq, lexer.TokLt, lexer.TokLtEq)
}

func (p *parser) parseTerm() ast.Expr {
	return p.parseBinaryLevel(p.parseFactor, lexer.TokMinus, lexer.TokPlus)
}

func (p *parser) parseFactor() ast.Expr {
	return p.parseBinaryLevel(p.parseUnary, lexer.TokSlash, lexer.TokStar)
}

func (p *parser) parseUnary() ast.Expr {
	if p.check(lexer.TokBang) || p.check(lexer.TokMinus) {
		op := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		uop := ast.OpNeg
		if op.Type == lexer.TokBang {
			uop = ast.OpNot
		}
		return &ast.UnaryExpr{Span: op.Span, Op: uop, Operand: operand}
	}
	return p.parseCall()
}

func (p *parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	for expr != nil {
		if p.match(lexer.TokLParen) {
			expr = p.finishCall(expr)
		} else if p.match(lexer.TokDot) {
			nameTok, ok := p.expect(lexer.TokIdent, "Expect property name after '.'.")
			if !ok {
				return nil
			}
			expr = &ast.GetExpr{Span: nameTok.Span, Object: expr, Name: nameTok.Lexeme}
		} else {
			break
		}
	}
	return expr
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.current(), fmt.Sprintf("Can't have more than %d arguments.", maxArgs))
			}
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren, ok := p.expect(lexer.TokRParen, "Expect ')' after arguments.")
	if !ok {
		return nil
	}
	return &ast.CallExpr{Span: paren.Span, Callee: callee, Args: args}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}
	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}
	case lexer.TokNil:
		p.advance()
		return &ast.NilLiteral{Span: tok.Span}
	case lexer.TokNumberLit:
		p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok, fmt.Sprintf("Invalid number literal: %s", tok.Value))
			return nil
		}
		return &ast.NumberLiteral{Span: tok.Span, Value: val}
	case lexer.TokStringLit:
		p.advance()
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}
	case lexer.TokThis:
		p.advance()
		return &ast.ThisExpr{Span: tok.Span}
	case lexer.TokSuper:
		p.advance()
		if _, ok := p.expect(lexer.TokDot, "Expect '.' after 'super'."); !ok {
			return nil
		}
		method, ok := p.expect(lexer.TokIdent, "Expect superclass method name.")
		if !ok {
			return nil
		}
		return &ast.SuperExpr{Span: tok.Span, Method: method.Lexeme, MethodSpan: method.Span}
	case lexer.TokIdent:
		p.advance()
		return &ast.VariableExpr{Span: tok.Span, Name: tok.Lexeme}
	case lexer.TokLParen:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		end, ok := p.expect(lexer.TokRParen, "Expect ')' after expression.")
		if !ok {
			return nil
		}
		return &ast.GroupingExpr{Span: spanFromTo(tok.Span, end.Span), Expr: inner}
	}

	p.errorAt(tok, "Expect expression.")
	return nil
}

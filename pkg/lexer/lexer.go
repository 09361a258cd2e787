// Package lexer implements the Lox tokenizer.
package lexer

import (
	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Single-character punctuation
	TokLParen TokenType = iota
	TokRParen
	TokLBrace
	TokRBrace
	TokComma
	TokDot
	TokMinus
	TokPlus
	TokSemicolon
	TokSlash
	TokStar

	// One or two character operators
	TokBang   // !
	TokBangEq // !=
	TokEquals // =
	TokEqEq   // ==
	TokGt     // >
	TokGtEq   // >=
	TokLt     // <
	TokLtEq   // <=

	// Literals
	TokIdent
	TokStringLit
	TokNumberLit

	// Keywords
	TokAnd
	TokClass
	TokElse
	TokFalse
	TokFun
	TokFor
	TokIf
	TokNil
	TokOr
	TokPrint
	TokReturn
	TokSuper
	TokThis
	TokTrue
	TokVar
	TokWhile

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type TokenType
	// Lexeme is the raw source text of the token.
	Lexeme string
	// Value is the literal content: string contents without quotes, or the
	// number text. Empty for other tokens.
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"and":    TokAnd,
	"class":  TokClass,
	"else":   TokElse,
	"false":  TokFalse,
	"for":    TokFor,
	"fun":    TokFun,
	"if":     TokIf,
	"nil":    TokNil,
	"or":     TokOr,
	"print":  TokPrint,
	"return": TokReturn,
	"super":  TokSuper,
	"this":   TokThis,
	"true":   TokTrue,
	"var":    TokVar,
	"while":  TokWhile,
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	return t >= TokAnd && t <= TokWhile
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
	reporter diagnostics.Reporter
}

func newScanner(source, filename string, reporter diagnostics.Reporter) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
		reporter: reporter,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.pos] != expected {
		return false
	}
	s.advance()
	return true
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '/' && s.peekAt(1) == '/' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// scanString scans a double-quoted literal. Strings may span lines and have
// no escape sequences.
func (s *scanner) scanString() (Token, bool) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance() // consume opening "

	for !s.atEnd() && s.peek() != '"' {
		s.advance()
	}
	if s.atEnd() {
		s.lexError(s.line, s.col, "Unterminated string.")
		return Token{}, false
	}
	s.advance() // consume closing "

	return Token{
		Type:   TokStringLit,
		Lexeme: s.source[startPos:s.pos],
		Value:  s.source[startPos+1 : s.pos-1],
		Span:   s.span(startLine, startCol),
	}, true
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// A fractional part needs at least one digit after the dot.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	text := s.source[startPos:s.pos]
	return Token{
		Type:   TokNumberLit,
		Lexeme: text,
		Value:  text,
		Span:   s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	tokType := TokIdent
	if kw, ok := keywords[text]; ok {
		tokType = kw
	}
	return Token{
		Type:   tokType,
		Lexeme: text,
		Span:   s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) {
	s.reporter.Report(diagnostics.MakeDiag(
		diagnostics.ELex,
		diagnostics.StageLex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	))
}

func (s *scanner) simple(typ TokenType, startLine, startCol, startPos int) Token {
	return Token{Type: typ, Lexeme: s.source[startPos:s.pos], Span: s.span(startLine, startCol)}
}

// nextToken returns the next token. ok is false when the scanned text was
// invalid; the error has already been reported and scanning may continue.
func (s *scanner) nextToken() (tok Token, ok bool) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{Type: TokEOF, Span: s.span(s.line, s.col)}, true
	}

	startLine, startCol, startPos := s.line, s.col, s.pos
	ch := s.advance()

	switch ch {
	case '(':
		return s.simple(TokLParen, startLine, startCol, startPos), true
	case ')':
		return s.simple(TokRParen, startLine, startCol, startPos), true
	case '{':
		return s.simple(TokLBrace, startLine, startCol, startPos), true
	case '}':
		return s.simple(TokRBrace, startLine, startCol, startPos), true
	case ',':
		return s.simple(TokComma, startLine, startCol, startPos), true
	case '.':
		return s.simple(TokDot, startLine, startCol, startPos), true
	case '-':
		return s.simple(TokMinus, startLine, startCol, startPos), true
	case '+':
		return s.simple(TokPlus, startLine, startCol, startPos), true
	case ';':
		return s.simple(TokSemicolon, startLine, startCol, startPos), true
	case '*':
		return s.simple(TokStar, startLine, startCol, startPos), true
	case '/':
		return s.simple(TokSlash, startLine, startCol, startPos), true
	case '!':
		if s.match('=') {
			return s.simple(TokBangEq, startLine, startCol, startPos), true
		}
		return s.simple(TokBang, startLine, startCol, startPos), true
	case '=':
		if s.match('=') {
			return s.simple(TokEqEq, startLine, startCol, startPos), true
		}
		return s.simple(TokEquals, startLine, startCol, startPos), true
	case '<':
		if s.match('=') {
			return s.simple(TokLtEq, startLine, startCol, startPos), true
		}
		return s.simple(TokLt, startLine, startCol, startPos), true
	case '>':
		if s.match('=') {
			return s.simple(TokGtEq, startLine, startCol, startPos), true
		}
		return s.simple(TokGt, startLine, startCol, startPos), true
	case '"':
		// scanString expects to see the opening quote itself.
		s.pos, s.line, s.col = startPos, startLine, startCol
		return s.scanString()
	}

	if isDigit(ch) || isAlpha(ch) {
		s.pos, s.line, s.col = startPos, startLine, startCol
		if isDigit(ch) {
			return s.scanNumber(), true
		}
		return s.scanIdentOrKeyword(), true
	}

	s.lexError(startLine, startCol, "Unexpected character.")
	return Token{}, false
}

// Tokenize breaks source code into a slice of tokens terminated by TokEOF.
// Invalid characters are reported to reporter and skipped, so one call
// surfaces every lex error in the source.
func Tokenize(source, filename string, reporter diagnostics.Reporter) []Token {
	s := newScanner(source, filename, reporter)
	var tokens []Token

	for {
		tok, ok := s.nextToken()
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens
}

package compiler

import "fmt"

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"fn":     T_FUNCTION,
	"return": T_RETURN,
	"if":     T_IF,
	"else":   T_ELSE,
	"for":    T_FOR,
	"while":  T_WHILE,
}

// typeNames maps the five primitive type names to their tokens.
// true/false are deliberately absent from both tables; they lex as
// identifiers and the parser turns them into boolean literals.
var typeNames = map[string]TokenType{
	"int":    T_INT,
	"float":  T_FLOAT,
	"bool":   T_BOOL,
	"string": T_STRING,
	"char":   T_CHAR,
}

// Lexer holds all mutable state for a single scanning pass over src.
// The source is treated as bytes: lexical structure is ASCII, and any
// non-ASCII byte inside a string or character literal passes through to
// the decoded value unchanged.
type Lexer struct {
	src []byte
	pos int // index of the next byte to consume
}

// openDelim is one entry of the bracket-balancing stack.
type openDelim struct {
	ch  byte
	pos int
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []byte(src)}
}

// lineCol converts a byte offset to a 1-based line and column.
// Offsets are what tokens carry; line/column is recovered on demand for
// error messages.
func lineCol(src string, pos int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < pos && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (l *Lexer) errAt(pos int, format string, args ...any) error {
	line, col := lineCol(string(l.src), pos)
	return fmt.Errorf("%s at line %d, col %d", fmt.Sprintf(format, args...), line, col)
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one byte and returns it.
func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	return c
}

// match consumes lit when it occurs at the current position.
func (l *Lexer) match(lit string) bool {
	if l.pos+len(lit) > len(l.src) {
		return false
	}
	if string(l.src[l.pos:l.pos+len(lit)]) != lit {
		return false
	}
	l.pos += len(lit)
	return true
}

// skipSpaceAndComments discards whitespace, line comments and block
// comments in a loop until something lexable (or end of input) is next.
// Block comments do not nest; an unclosed one is an error.
func (l *Lexer) skipSpaceAndComments() error {
	for {
		moved := false
		for !l.eof() {
			c := l.peek()
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				l.pos++
				moved = true
				continue
			}
			break
		}
		if l.eof() {
			return nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.pos += 2
			for !l.eof() && l.peek() != '\n' {
				l.pos++
			}
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			start := l.pos
			l.pos += 2
			closed := false
			for !l.eof() {
				if l.peek() == '*' && l.peek2() == '/' {
					l.pos += 2
					closed = true
					break
				}
				l.pos++
			}
			if !closed {
				return l.errAt(start, "Unterminated block comment")
			}
			continue
		}
		if !moved {
			return nil
		}
	}
}

// decodeEscape maps an escape-specifier byte to the byte it denotes.
func decodeEscape(c byte) (byte, error) {
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '\\':
		return '\\', nil
	case '\'':
		return '\'', nil
	case '"':
		return '"', nil
	default:
		return 0, fmt.Errorf("Invalid escape sequence")
	}
}

// scanString collects a string literal "..." with escapes decoded into
// the token value. The opening quote must still be at l.peek().
func (l *Lexer) scanString() (Token, error) {
	start := l.pos
	l.advance() // opening "
	var val []byte
	for !l.eof() {
		c := l.advance()
		if c == '"' {
			return Token{Type: T_STRINGLIT, Lexeme: string(l.src[start:l.pos]), Value: string(val), Pos: start}, nil
		}
		if c == '\\' {
			if l.eof() {
				return Token{}, fmt.Errorf("Unterminated string constant")
			}
			dec, err := decodeEscape(l.advance())
			if err != nil {
				return Token{}, err
			}
			val = append(val, dec)
		} else {
			val = append(val, c)
		}
	}
	return Token{}, fmt.Errorf("Unterminated string constant")
}

// scanChar collects a character literal: exactly one byte, or one
// escape, between single quotes. Anything longer is a multi-character
// constant error rather than a sequence of tokens.
func (l *Lexer) scanChar() (Token, error) {
	start := l.pos
	l.advance() // opening '
	if l.eof() {
		return Token{}, fmt.Errorf("Missing closing ' in character literal")
	}
	var val []byte
	c := l.advance()
	if c == '\\' {
		if l.eof() {
			return Token{}, fmt.Errorf("Missing closing ' in character literal")
		}
		dec, err := decodeEscape(l.advance())
		if err != nil {
			return Token{}, err
		}
		val = append(val, dec)
	} else {
		val = append(val, c)
	}
	if l.eof() {
		return Token{}, fmt.Errorf("Missing closing ' in character literal")
	}
	if l.advance() != '\'' {
		return Token{}, fmt.Errorf("Multi-character character constant")
	}
	return Token{Type: T_CHARLIT, Lexeme: string(l.src[start:l.pos]), Value: string(val), Pos: start}, nil
}

// scanIdent collects an identifier, keyword or type name. The first
// character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	start := l.pos
	l.advance()
	for !l.eof() && (isAlnum(l.peek()) || l.peek() == '_') {
		l.advance()
	}
	word := string(l.src[start:l.pos])
	if tt, ok := keywords[word]; ok {
		return Token{Type: tt, Lexeme: word, Pos: start}
	}
	if tt, ok := typeNames[word]; ok {
		return Token{Type: tt, Lexeme: word, Pos: start}
	}
	return Token{Type: T_IDENTIFIER, Lexeme: word, Value: word, Pos: start}
}

// scanNumber collects an integer or floating literal. Floats are
// digits.digits (either side optional, not both) with an optional
// exponent; an exponent with no digits is not consumed.
func (l *Lexer) scanNumber() Token {
	start := l.pos
	isFloat := false
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	} else {
		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
		if !l.eof() && l.peek() == '.' {
			isFloat = true
			l.advance()
			for !l.eof() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	if !l.eof() && (l.peek() == 'e' || l.peek() == 'E') {
		save := l.pos
		l.advance()
		if !l.eof() && (l.peek() == '+' || l.peek() == '-') {
			l.advance()
		}
		if l.eof() || !isDigit(l.peek()) {
			l.pos = save
		} else {
			isFloat = true
			for !l.eof() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	raw := string(l.src[start:l.pos])
	tt := T_INTLIT
	if isFloat {
		tt = T_FLOATLIT
	}
	return Token{Type: tt, Lexeme: raw, Value: raw, Pos: start}
}

// tokenize scans the whole input. It stops at the first error; the
// token stream is meaningless past that point, so nothing is returned
// with the error.
func (l *Lexer) tokenize() ([]Token, error) {
	var out []Token
	var dstack []openDelim

	pushDelim := func(tt TokenType, at int) {
		var c byte
		switch tt {
		case T_PARENL:
			c = '('
		case T_BRACEL:
			c = '{'
		case T_BRACKETL:
			c = '['
		}
		dstack = append(dstack, openDelim{c, at})
	}
	popDelim := func(tt TokenType, at int) error {
		var need byte
		switch tt {
		case T_PARENR:
			need = '('
		case T_BRACER:
			need = '{'
		case T_BRACKETR:
			need = '['
		}
		if len(dstack) == 0 || dstack[len(dstack)-1].ch != need {
			return l.errAt(at, "Mismatched closing delimiter")
		}
		dstack = dstack[:len(dstack)-1]
		return nil
	}

	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if l.eof() {
			break
		}
		startPos := l.pos
		c := l.peek()

		if isDigit(c) || (c == '.' && isDigit(l.peek2())) {
			num := l.scanNumber()
			// A run like 123abc is one invalid literal, never two tokens.
			if !l.eof() && (isAlpha(l.peek()) || l.peek() == '_') {
				for !l.eof() && (isAlnum(l.peek()) || l.peek() == '_') {
					l.advance()
				}
				bad := string(l.src[startPos:l.pos])
				line, col := lineCol(string(l.src), startPos)
				return nil, fmt.Errorf("Invalid numeric literal at line %d, col %d: '%s'", line, col, bad)
			}
			out = append(out, num)
			continue
		}
		if isAlpha(c) || c == '_' {
			out = append(out, l.scanIdent())
			continue
		}
		if c == '"' {
			tok, err := l.scanString()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}
		if c == '\'' {
			tok, err := l.scanChar()
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			continue
		}

		// Multi-byte operators, longest first.
		switch {
		case l.match("&&"):
			out = append(out, Token{Type: T_ANDAND, Lexeme: "&&", Pos: startPos})
			continue
		case l.match("||"):
			out = append(out, Token{Type: T_OROR, Lexeme: "||", Pos: startPos})
			continue
		case l.match("=="):
			out = append(out, Token{Type: T_EQUALSOP, Lexeme: "==", Pos: startPos})
			continue
		case l.match("!="):
			out = append(out, Token{Type: T_NOTEQ, Lexeme: "!=", Pos: startPos})
			continue
		case l.match("<="):
			out = append(out, Token{Type: T_LE, Lexeme: "<=", Pos: startPos})
			continue
		case l.match(">="):
			out = append(out, Token{Type: T_GE, Lexeme: ">=", Pos: startPos})
			continue
		case l.match("<<"):
			out = append(out, Token{Type: T_SHL, Lexeme: "<<", Pos: startPos})
			continue
		case l.match(">>"):
			out = append(out, Token{Type: T_SHR, Lexeme: ">>", Pos: startPos})
			continue
		}

		l.advance()
		var tt TokenType
		switch c {
		case '=':
			tt = T_ASSIGNOP
		case '<':
			tt = T_LT
		case '>':
			tt = T_GT
		case '!':
			tt = T_NOT
		case '+':
			tt = T_PLUS
		case '-':
			tt = T_MINUS
		case '*':
			tt = T_STAR
		case '/':
			tt = T_SLASH
		case '%':
			tt = T_PERCENT
		case '&':
			tt = T_AMP
		case '|':
			tt = T_PIPE
		case '^':
			tt = T_CARET
		case '~':
			tt = T_TILDE
		case ',':
			tt = T_COMMA
		case ';':
			tt = T_SEMICOLON
		case '(':
			tt = T_PARENL
			pushDelim(tt, startPos)
		case '{':
			tt = T_BRACEL
			pushDelim(tt, startPos)
		case '[':
			tt = T_BRACKETL
			pushDelim(tt, startPos)
		case ')':
			tt = T_PARENR
			if err := popDelim(tt, startPos); err != nil {
				return nil, err
			}
		case '}':
			tt = T_BRACER
			if err := popDelim(tt, startPos); err != nil {
				return nil, err
			}
		case ']':
			tt = T_BRACKETR
			if err := popDelim(tt, startPos); err != nil {
				return nil, err
			}
		default:
			return nil, l.errAt(startPos, "Unrecognized symbol %c", c)
		}
		out = append(out, Token{Type: tt, Lexeme: string(c), Pos: startPos})
	}

	if len(dstack) > 0 {
		last := dstack[len(dstack)-1]
		var which string
		switch last.ch {
		case '(':
			which = "opening '('"
		case '{':
			which = "opening '{'"
		case '[':
			which = "opening '['"
		default:
			which = "opening delimiter"
		}
		line, col := lineCol(string(l.src), last.pos)
		return nil, fmt.Errorf("Unclosed %s starting at line %d, col %d", which, line, col)
	}
	return out, nil
}

// Lex tokenizes src. It returns a non-nil error on the first illegal
// form: unrecognized byte, bad literal, unterminated comment, or
// unbalanced bracket.
func Lex(src string) ([]Token, error) {
	return newLexer(src).tokenize()
}

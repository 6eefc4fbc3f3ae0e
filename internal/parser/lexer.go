package parser

import (
	"fmt"

	"github.com/gnoswap-labs/symrw/internal/config"
)

// Lexer scans a source string into tokens under an operator table.
type Lexer struct {
	input    string
	position int
	tokens   []Token
	table    *config.Table
	ops      *opTrie
}

// NewLexer returns a lexer over input.
func NewLexer(input string, table *config.Table) *Lexer {
	return &Lexer{
		input:  input,
		table:  table,
		ops:    newOpTrie(table.Operators()),
		tokens: make([]Token, 0, len(input)/2+1),
	}
}

// Tokenize scans the whole input. Malformed input produces TokenInvalid
// tokens rather than stopping the scan; the parser reports them in context.
func (l *Lexer) Tokenize() []Token {
	for l.position < len(l.input) {
		start := l.position
		c := l.input[l.position]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.position++
		case c == '\n' || c == ';':
			l.addToken(TokenMeta, string(c), start)
			l.position++
		case c == '(':
			l.addToken(TokenLParen, "(", start)
			l.position++
		case c == ')':
			l.addToken(TokenRParen, ")", start)
			l.position++
		case c == ',':
			l.addToken(TokenComma, ",", start)
			l.position++
		case isDigit(c) || (c == '.' && l.digitAt(l.position+1)):
			l.lexNumber()
		case isNameStart(c):
			l.lexName()
		case config.IsOperatorChar(c):
			l.lexOperators()
		default:
			l.tokens = append(l.tokens, Token{
				Type:     TokenInvalid,
				Value:    string(c),
				Position: start,
				Err:      fmt.Sprintf("unrecognized character %q", c),
			})
			l.position++
		}
	}
	l.addToken(TokenEOF, "", l.position)
	return l.tokens
}

func (l *Lexer) addToken(typ TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Position: pos})
}

func (l *Lexer) digitAt(i int) bool {
	return i < len(l.input) && isDigit(l.input[i])
}

// lexNumber scans digits, an optional fraction and an optional exponent.
// An exponent marker without digits is an empty numeral.
func (l *Lexer) lexNumber() {
	start := l.position
	l.skipDigits()
	if l.position < len(l.input) && l.input[l.position] == '.' {
		l.position++
		l.skipDigits()
	}
	if l.position < len(l.input) && (l.input[l.position] == 'e' || l.input[l.position] == 'E') {
		l.position++
		if l.position < len(l.input) && (l.input[l.position] == '+' || l.input[l.position] == '-') {
			l.position++
		}
		if !l.digitAt(l.position) {
			l.tokens = append(l.tokens, Token{
				Type:     TokenInvalid,
				Value:    l.input[start:l.position],
				Position: start,
				Err:      fmt.Sprintf("empty numeral %q", l.input[start:l.position]),
			})
			return
		}
		l.skipDigits()
	}
	l.addToken(TokenNumber, l.input[start:l.position], start)
}

func (l *Lexer) skipDigits() {
	for l.position < len(l.input) && isDigit(l.input[l.position]) {
		l.position++
	}
}

// lexName scans a letter-led name. A '(' right after the name turns it
// into a call token.
func (l *Lexer) lexName() {
	start := l.position
	for l.position < len(l.input) && isNameChar(l.input[l.position]) {
		l.position++
	}
	name := l.table.Resolve(l.input[start:l.position])
	if l.position < len(l.input) && l.input[l.position] == '(' {
		l.position++
		l.addToken(TokenCall, name, start)
		return
	}
	typ := TokenName
	if isOperatorText(name) {
		typ = TokenOperator
	}
	l.addToken(typ, name, start)
}

// lexOperators scans a run of operator characters and splits it into the
// longest known operators. A stretch that starts no known operator becomes
// one operator up to the next point where a known one starts.
func (l *Lexer) lexOperators() {
	start := l.position
	for l.position < len(l.input) {
		c := l.input[l.position]
		if !config.IsOperatorChar(c) || (c == '.' && l.digitAt(l.position+1)) {
			break
		}
		l.position++
	}
	run := l.input[start:l.position]
	for off := 0; off < len(run); {
		n := l.knownPrefix(run[off:])
		if n == 0 {
			n = 1
			for off+n < len(run) && l.knownPrefix(run[off+n:]) == 0 {
				n++
			}
		}
		l.addToken(TokenOperator, l.table.Resolve(run[off:off+n]), start+off)
		off += n
	}
}

func (l *Lexer) knownPrefix(s string) int {
	return l.ops.longestPrefix(s)
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) }

func isOperatorText(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !config.IsOperatorChar(s[i]) {
			return false
		}
	}
	return true
}

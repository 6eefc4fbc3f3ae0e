package parser

import "fmt"

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF      TokenType = iota // end of input
	TokenNumber                    // integer, real or scientific numeral
	TokenName                      // letter-led name
	TokenCall                      // name immediately followed by '('; the '(' is consumed
	TokenOperator                  // one operator split from an operator-character run
	TokenLParen                    // '('
	TokenRParen                    // ')'
	TokenComma                     // ','
	TokenMeta                      // statement delimiter: ';' or newline
	TokenInvalid                   // unrecognized character or malformed numeral
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenNumber:
		return "number"
	case TokenName:
		return "name"
	case TokenCall:
		return "call"
	case TokenOperator:
		return "operator"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenComma:
		return "','"
	case TokenMeta:
		return "statement delimiter"
	case TokenInvalid:
		return "invalid token"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is a single lexical token.
type Token struct {
	Type     TokenType
	Value    string // literal text; aliases are already resolved for names and operators
	Position int    // byte offset into the source
	Err      string // reason for TokenInvalid
}

// isDelimiter reports whether t ends an expression.
func (t Token) isDelimiter() bool {
	switch t.Type {
	case TokenEOF, TokenMeta, TokenRParen, TokenComma:
		return true
	}
	return false
}

func (t Token) describe() string {
	switch t.Type {
	case TokenNumber, TokenName, TokenOperator:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	case TokenCall:
		return fmt.Sprintf("call %q", t.Value+"(")
	}
	return t.Type.String()
}

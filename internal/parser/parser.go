package parser

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/report"
)

// Parser turns source text into expression trees under an operator table.
// A Parser holds no per-parse state and may be shared between goroutines.
type Parser struct {
	table    *config.Table
	reporter *report.Reporter
	post     func(expr.Expr) expr.Expr
}

// Option configures a Parser.
type Option func(*Parser)

// WithReporter routes syntax diagnostics to r.
func WithReporter(r *report.Reporter) Option {
	return func(p *Parser) { p.reporter = r }
}

// WithPostProcess installs a hook applied to every successfully parsed
// statement before it is returned.
func WithPostProcess(fn func(expr.Expr) expr.Expr) Option {
	return func(p *Parser) { p.post = fn }
}

// New returns a parser for table. A nil table means config.Default().
func New(table *config.Table, opts ...Option) *Parser {
	if table == nil {
		table = config.Default()
	}
	p := &Parser{table: table}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Table returns the operator table the parser was built with.
func (p *Parser) Table() *config.Table { return p.table }

// Parse returns one tree per non-empty statement of src. A statement with a
// syntax error becomes expr.Null{}; the error is reported and the following
// statements are still parsed.
func (p *Parser) Parse(src string) []expr.Expr {
	out, _ := p.ParseAll(src)
	return out
}

// ParseAll is Parse that also returns the syntax diagnostics, in source
// order.
func (p *Parser) ParseAll(src string) ([]expr.Expr, []*report.Diagnostic) {
	s := p.newState(src)
	out := s.statements()
	return out, s.diags
}

// ParseOne parses a single statement and returns the first syntax error, if
// any, as a *report.Diagnostic.
func (p *Parser) ParseOne(src string) (e expr.Expr, err error) {
	defer func() {
		if err != nil {
			e = expr.Null{}
		}
	}()
	defer report.Recover(&err)

	s := p.newState(src)
	out := s.statements()
	if len(s.diags) > 0 {
		return nil, s.diags[0]
	}
	if len(out) != 1 {
		return nil, &report.Diagnostic{
			Kind:    report.KindSyntax,
			Message: fmt.Sprintf("expected one statement, found %d", len(out)),
			Pos:     -1,
		}
	}
	return out[0], nil
}

func (p *Parser) newState(src string) *state {
	return &state{
		p:    p,
		toks: NewLexer(src, p.table).Tokenize(),
	}
}

// state is the cursor and diagnostic log of one Parse call.
type state struct {
	p     *Parser
	toks  []Token
	pos   int
	diags []*report.Diagnostic
	// unclosed is set once a missing ')' has been reported, so that every
	// enclosing group gives up without reporting it again.
	unclosed bool
}

func (s *state) peek() Token { return s.toks[s.pos] }

func (s *state) advance() Token {
	t := s.toks[s.pos]
	if t.Type != TokenEOF {
		s.pos++
	}
	return t
}

func (s *state) fail(pos int, format string, args ...any) error {
	d := &report.Diagnostic{
		Kind:    report.KindSyntax,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
	s.diags = append(s.diags, d)
	s.p.reporter.Report(d)
	return d
}

func (s *state) statements() []expr.Expr {
	var out []expr.Expr
	for {
		if s.peek().Type == TokenMeta {
			s.advance()
			continue
		}
		if s.peek().Type == TokenEOF {
			return out
		}
		index := len(out)
		e, err := s.statement()
		if err != nil {
			s.skipStatement()
			out = append(out, expr.Null{})
			continue
		}
		if e == nil {
			continue
		}
		if s.p.post != nil {
			e = s.p.post(e)
		}
		s.p.reporter.Debug("parsed statement", zap.Int("index", index), zap.Stringer("tree", e))
		out = append(out, e)
	}
}

func (s *state) statement() (expr.Expr, error) {
	s.unclosed = false
	e, err := s.expression()
	if err != nil {
		return nil, err
	}
	switch t := s.peek(); t.Type {
	case TokenRParen, TokenComma:
		return nil, s.fail(t.Position, "unexpected %s", t.describe())
	}
	return e, nil
}

func (s *state) skipStatement() {
	for t := s.peek(); t.Type != TokenMeta && t.Type != TokenEOF; t = s.peek() {
		s.advance()
	}
}

// skipGroupItem moves to the ',' or ')' that ends the current argument or
// group, stepping over nested groups. It stops early at a statement
// delimiter.
func (s *state) skipGroupItem() {
	depth := 0
	for {
		switch t := s.peek(); t.Type {
		case TokenEOF, TokenMeta:
			return
		case TokenLParen, TokenCall:
			depth++
		case TokenRParen:
			if depth == 0 {
				return
			}
			depth--
		case TokenComma:
			if depth == 0 {
				return
			}
		}
		s.advance()
	}
}

// groupItem parses one argument or parenthesized expression. A syntax error
// inside it is recovered as expr.Null{} and the cursor is left on the
// closing ',' or ')'.
func (s *state) groupItem() (expr.Expr, error) {
	e, err := s.expression()
	if err != nil {
		if s.unclosed {
			return nil, err
		}
		s.skipGroupItem()
		return expr.Null{}, nil
	}
	return e, nil
}

func (s *state) expectClose(open Token) error {
	t := s.peek()
	if t.Type == TokenRParen {
		s.advance()
		return nil
	}
	if s.unclosed {
		return &report.Diagnostic{Kind: report.KindSyntax, Message: "missing closing parenthesis", Pos: open.Position}
	}
	s.unclosed = true
	return s.fail(open.Position, "missing closing parenthesis for %s", open.describe())
}

// group parses the rest of "( expr )" after the '('.
func (s *state) group(open Token) (expr.Expr, error) {
	e, err := s.groupItem()
	if err != nil {
		return nil, err
	}
	if t := s.peek(); t.Type == TokenComma {
		s.advance()
		s.fail(t.Position, "unexpected ',' in parenthesized expression")
		s.skipGroupItemsToClose()
		e = expr.Null{}
	}
	if e == nil {
		if t := s.peek(); t.Type == TokenRParen {
			s.fail(open.Position, "empty parentheses")
			e = expr.Null{}
		}
	}
	if err := s.expectClose(open); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *state) skipGroupItemsToClose() {
	for {
		s.skipGroupItem()
		if s.peek().Type != TokenComma {
			return
		}
		s.advance()
	}
}

// arguments parses "a, b, ...)" after a call token.
func (s *state) arguments(open Token) ([]expr.Expr, error) {
	var args []expr.Expr
	if s.peek().Type == TokenRParen {
		s.advance()
		return nil, nil
	}
	for {
		e, err := s.groupItem()
		if err != nil {
			return nil, err
		}
		if e == nil {
			t := s.peek()
			s.fail(t.Position, "empty argument in %s", open.describe())
			e = expr.Null{}
		}
		args = append(args, e)
		if s.peek().Type != TokenComma {
			break
		}
		s.advance()
	}
	if err := s.expectClose(open); err != nil {
		return nil, err
	}
	return args, nil
}

// unit is one step of the binding-power loop: an operand (lbp and rbp
// both zero) or an operator waiting for operands.
type unit struct {
	tok  Token
	node expr.Expr     // operand value
	b    *expr.Builder // operator under construction
	lbp  int
	rbp  int
}

func (u *unit) isOperand() bool { return u.b == nil }

// isInfix reports whether u binds operands on both sides. Only infix nodes
// absorb same-named operands.
func (u *unit) isInfix() bool { return u.lbp > 0 && u.rbp > 0 }

// next reads the token(s) forming the next unit.
func (s *state) next() (*unit, error) {
	t := s.advance()
	tbl := s.p.table
	switch t.Type {
	case TokenInvalid:
		return nil, s.fail(t.Position, "%s", t.Err)
	case TokenNumber:
		n, err := expr.ParseNumber(t.Value)
		if err != nil {
			return nil, s.fail(t.Position, "%s", err.Error())
		}
		return &unit{tok: t, node: n}, nil
	case TokenName:
		if bp, ok := tbl.SymbolOperator(t.Value); ok {
			return s.operator(t, bp), nil
		}
		return &unit{tok: t, node: expr.NewSymbol(t.Value)}, nil
	case TokenOperator:
		return s.operator(t, tbl.BindingPower(t.Value)), nil
	case TokenLParen:
		e, err := s.group(t)
		if err != nil {
			return nil, err
		}
		return &unit{tok: t, node: e}, nil
	case TokenCall:
		args, err := s.arguments(t)
		if err != nil {
			return nil, err
		}
		b := expr.NewBuilder(tbl.Constructor(t.Value), t.Value)
		for _, a := range args {
			appendOperand(b, a, true)
		}
		if rbp, ok := tbl.Bodied(t.Value); ok && rbp > 0 {
			return &unit{tok: t, b: b, rbp: rbp}, nil
		}
		return &unit{tok: t, node: b.Build()}, nil
	}
	return nil, s.fail(t.Position, "unexpected %s", t.describe())
}

func (s *state) operator(t Token, bp config.BindingPower) *unit {
	if bp.Left == 0 && bp.Right == 0 {
		if _, ok := s.p.table.PrefixPower(t.Value); !ok {
			return &unit{tok: t, node: expr.NewSymbol(t.Value)}
		}
	}
	return &unit{
		tok: t,
		b:   expr.NewBuilder(s.p.table.Constructor(t.Value), t.Value),
		lbp: bp.Left,
		rbp: bp.Right,
	}
}

// close finishes u with right as its last operand (nil for postfix use)
// and records its binding powers on the node.
func (s *state) close(u *unit, right expr.Expr) (expr.Expr, error) {
	if right != nil {
		appendOperand(u.b, right, u.isInfix())
	}
	if err := u.b.SetBindingPower(u.lbp, u.rbp); err != nil {
		return nil, s.fail(u.tok.Position, "%s", err.Error())
	}
	return u.b.Build(), nil
}

// appendOperand adds e to b. When splice is set, the items of a same-named
// CommAssoc operand are spliced into the node being built, unless that
// operand is a prefix application.
func appendOperand(b *expr.Builder, e expr.Expr, splice bool) {
	if splice && b.Kind() == expr.KindCommAssoc {
		if ca, ok := e.(*expr.CommAssoc); ok && ca.Name() == b.Name() {
			if lbp, rbp := ca.BindingPower(); lbp > 0 || rbp == 0 {
				_ = b.Append(ca.Items()...)
				return
			}
		}
	}
	_ = b.Append(e)
}

// expression runs the binding-power loop until a delimiter. It returns nil
// without error when no tokens precede the delimiter.
//
// cur is the operand built so far (the "mid" position). farleft holds
// operators whose right operand is still being assembled, innermost on
// top. An incoming operator first lets farleft operators with a right power
// at least its left power absorb cur; ties therefore group to the left.
func (s *state) expression() (expr.Expr, error) {
	farleft := arraystack.New()
	var cur expr.Expr

	for !s.peek().isDelimiter() {
		u, err := s.next()
		if err != nil {
			return nil, err
		}

		if cur == nil {
			if u.lbp > 0 {
				prefix, ok := s.p.table.PrefixPower(u.tok.Value)
				if !ok || u.isOperand() {
					return nil, s.fail(u.tok.Position, "adjacent binding tokens at %s", u.tok.describe())
				}
				u.lbp, u.rbp = 0, prefix
			}
			switch {
			case u.isOperand():
				cur = u.node
			case u.rbp > 0:
				farleft.Push(u)
			default:
				if cur, err = s.close(u, nil); err != nil {
					return nil, err
				}
			}
			continue
		}

		if u.lbp == 0 {
			return nil, s.fail(u.tok.Position, "adjacent nonbinding tokens at %s", u.tok.describe())
		}
		for {
			top, ok := farleft.Peek()
			if !ok || top.(*unit).rbp < u.lbp {
				break
			}
			farleft.Pop()
			if cur, err = s.close(top.(*unit), cur); err != nil {
				return nil, err
			}
		}
		appendOperand(u.b, cur, u.isInfix())
		if u.rbp > 0 {
			farleft.Push(u)
			cur = nil
			continue
		}
		if cur, err = s.close(u, nil); err != nil {
			return nil, err
		}
	}

	if cur == nil {
		if top, ok := farleft.Peek(); ok {
			return nil, s.fail(top.(*unit).tok.Position, "unbound right binding power at %s", top.(*unit).tok.describe())
		}
		return nil, nil
	}
	for !farleft.Empty() {
		top, _ := farleft.Pop()
		var err error
		if cur, err = s.close(top.(*unit), cur); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

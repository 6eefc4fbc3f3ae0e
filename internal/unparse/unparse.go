// Package unparse renders expression trees back to source text under an
// operator table.
//
// Operator nodes are written in infix, prefix, postfix or bodied form and
// parenthesized only where the parser's binding-power comparison would
// otherwise group the text differently, so parsing the output with the
// same table yields an equal tree.
package unparse

import (
	"math"
	"strings"

	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/expr"
)

// Unparser renders trees for one operator table. It is safe for concurrent
// use.
type Unparser struct {
	table *config.Table
}

// New returns an unparser for table. A nil table means config.Default().
func New(table *config.Table) *Unparser {
	if table == nil {
		table = config.Default()
	}
	return &Unparser{table: table}
}

// String renders e.
func (u *Unparser) String(e expr.Expr) string {
	return u.render(e).text
}

// closed is the edge power of text that no operator can reach into: atoms,
// calls and parenthesized groups.
const closed = math.MaxInt

// piece is rendered text plus the weakest binding power exposed on each of
// its edges. A neighbouring operator regroups the piece when it binds
// tighter than that edge.
type piece struct {
	text  string
	left  int
	right int
	// signed numbers read back as operator nodes, so they are grouped
	// whenever they are an operand.
	signed bool
}

func (p piece) grouped() piece {
	return piece{text: "(" + p.text + ")", left: closed, right: closed}
}

type form int

const (
	formCall form = iota
	formInfix
	formPrefix
	formPostfix
	formBodied
)

func (u *Unparser) render(e expr.Expr) piece {
	switch n := e.(type) {
	case expr.Null:
		return piece{text: "null", left: closed, right: closed}
	case *expr.Symbol:
		return piece{text: n.Name(), left: closed, right: closed}
	case *expr.Number:
		return piece{
			text:   n.String(),
			left:   closed,
			right:  closed,
			signed: n.Sign() < 0 || (n.IsExact() && !n.IsInteger()),
		}
	}

	c, _ := expr.AsCompound(e)
	f, lbp, rbp := u.form(c)
	switch f {
	case formInfix:
		return u.infix(c, lbp, rbp)
	case formPrefix:
		return u.prefix(c, rbp)
	case formPostfix:
		return u.postfix(c, lbp)
	case formBodied:
		return u.bodied(c, rbp)
	}
	return u.call(c)
}

// form picks how c is written. Powers recorded by the parser take
// precedence over the table.
func (u *Unparser) form(c expr.Compound) (f form, lbp, rbp int) {
	if _, ok := c.(*expr.Restricted); ok {
		return formCall, 0, 0
	}
	name := c.Name()
	lbp, rbp = c.BindingPower()

	if p, ok := u.table.Bodied(name); ok && p > 0 && c.Len() >= 1 {
		if rbp == 0 {
			rbp = p
		}
		return formBodied, 0, rbp
	}
	if !u.isOperatorName(name) {
		return formCall, 0, 0
	}

	if lbp == 0 && rbp == 0 {
		bp := u.table.BindingPower(name)
		if c.Len() == 1 {
			if p, ok := u.table.PrefixPower(name); ok {
				return formPrefix, 0, p
			}
		}
		lbp, rbp = bp.Left, bp.Right
	}

	switch {
	case lbp > 0 && rbp > 0 && (c.Len() == 2 || (c.Len() > 2 && c.Kind() == expr.KindCommAssoc)):
		return formInfix, lbp, rbp
	case lbp == 0 && rbp > 0 && c.Len() == 1:
		return formPrefix, 0, rbp
	case lbp > 0 && rbp == 0 && c.Len() == 1:
		return formPostfix, lbp, 0
	}
	return formCall, 0, 0
}

func (u *Unparser) isOperatorName(name string) bool {
	if _, ok := u.table.SymbolOperator(name); ok {
		return true
	}
	return isOperatorSpelling(name)
}

func isOperatorSpelling(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !config.IsOperatorChar(name[i]) {
			return false
		}
	}
	return true
}

func (u *Unparser) infix(c expr.Compound, lbp, rbp int) piece {
	items := c.Items()
	var sb strings.Builder
	left, right := lbp, rbp
	for i, item := range items {
		p := u.render(item)
		group := p.signed
		// right operand of the operator before it
		if i > 0 && p.left <= rbp {
			group = true
		}
		// left operand of the operator after it
		if i < len(items)-1 && p.right < lbp {
			group = true
		}
		if group {
			p = p.grouped()
		}
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(c.Name())
			sb.WriteString(" ")
		}
		sb.WriteString(p.text)
		if i == 0 {
			left = min(left, p.left)
		}
		if i == len(items)-1 {
			right = min(right, p.right)
		}
	}
	return piece{text: sb.String(), left: left, right: right}
}

func (u *Unparser) prefix(c expr.Compound, rbp int) piece {
	p := u.render(c.At(0))
	if p.signed || p.left <= rbp {
		p = p.grouped()
	}
	return piece{
		text:  joinPrefix(c.Name(), p.text),
		left:  closed,
		right: min(rbp, p.right),
	}
}

func (u *Unparser) postfix(c expr.Compound, lbp int) piece {
	p := u.render(c.At(0))
	if p.signed || p.right < lbp {
		p = p.grouped()
	}
	text := p.text
	if endsWithOperator(text) || !isOperatorSpelling(c.Name()) {
		text += " "
	}
	return piece{
		text:  text + c.Name(),
		left:  min(lbp, p.left),
		right: closed,
	}
}

// bodied writes name(args) body; the body is the last item.
func (u *Unparser) bodied(c expr.Compound, rbp int) piece {
	items := c.Items()
	body := u.render(items[len(items)-1])
	if body.signed || body.left <= rbp {
		body = body.grouped()
	}
	return piece{
		text:  u.callText(c.Name(), items[:len(items)-1]) + " " + body.text,
		left:  closed,
		right: min(rbp, body.right),
	}
}

func (u *Unparser) call(c expr.Compound) piece {
	return piece{text: u.callText(c.Name(), c.Items()), left: closed, right: closed}
}

func (u *Unparser) callText(name string, args []expr.Expr) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(u.render(arg).text)
	}
	sb.WriteByte(')')
	return sb.String()
}

// joinPrefix keeps a prefix operator and its operand from merging into one
// token.
func joinPrefix(op, operand string) string {
	if !isOperatorSpelling(op) {
		return op + " " + operand
	}
	if operand != "" && config.IsOperatorChar(operand[0]) {
		return op + " " + operand
	}
	return op + operand
}

func endsWithOperator(s string) bool {
	return s != "" && config.IsOperatorChar(s[len(s)-1])
}

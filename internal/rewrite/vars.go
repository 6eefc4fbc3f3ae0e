package rewrite

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/symrw/internal/config"
	"github.com/gnoswap-labs/symrw/internal/expr"
	"github.com/gnoswap-labs/symrw/internal/match"
	"github.com/gnoswap-labs/symrw/internal/parser"
)

// ParseVars reads a variable table written as statements such as
//
//	forall(n, m) : isnumber(any); forall(x)
//
// Each statement declares the names listed by a quantifier, optionally
// followed by a constraint operator and a template that every one of those
// names must satisfy. Quantifiers and constraint operators are recognized
// through the parser table's forall and constraint categories. A bare
// symbol declares one unconstrained variable.
func ParseVars(p *parser.Parser, spec string) (match.Vars, error) {
	vars := match.Vars{}
	if strings.TrimSpace(spec) == "" {
		return vars, nil
	}
	tbl := p.Table()
	for i, stmt := range p.Parse(spec) {
		if expr.IsNull(stmt) {
			return nil, fmt.Errorf("variable statement %d: syntax error", i+1)
		}

		quant, constraint := stmt, expr.Expr(nil)
		if c, ok := expr.AsCompound(stmt); ok && c.Len() == 2 && tbl.InCategory(config.CategoryConstraint, c.Name()) {
			quant, constraint = c.At(0), c.At(1)
		}

		names, err := quantified(tbl, quant)
		if err != nil {
			return nil, fmt.Errorf("variable statement %d: %w", i+1, err)
		}
		for _, name := range names {
			if constraint != nil && !mentions(constraint, name) {
				return nil, fmt.Errorf("variable statement %d: constraint %s mentions neither %s nor %s",
					i+1, constraint, name, expr.Any.Name())
			}
			if vars.Has(name) {
				return nil, fmt.Errorf("variable statement %d: %q declared twice", i+1, name)
			}
			vars[name] = constraint
		}
	}
	return vars, nil
}

func mentions(constraint expr.Expr, name string) bool {
	return expr.ContainsSymbol(constraint, func(s string) bool {
		return s == name || s == expr.Any.Name()
	})
}

func quantified(tbl *config.Table, e expr.Expr) ([]string, error) {
	if s, ok := e.(*expr.Symbol); ok {
		return []string{s.Name()}, nil
	}
	c, ok := expr.AsCompound(e)
	if !ok || !tbl.InCategory(config.CategoryForall, c.Name()) {
		return nil, fmt.Errorf("expected a quantifier such as forall(...), got %s", e)
	}
	names := make([]string, 0, c.Len())
	for _, item := range c.Items() {
		s, ok := item.(*expr.Symbol)
		if !ok {
			return nil, fmt.Errorf("quantified item %s is not a symbol", item)
		}
		names = append(names, s.Name())
	}
	return names, nil
}

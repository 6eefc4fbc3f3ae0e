package expr

import (
	"fmt"
	"strings"
)

// Compound is implemented by every named n-ary variant.
type Compound interface {
	Expr
	Name() string
	Len() int
	At(i int) Expr
	Items() []Expr
	BindingPower() (lbp, rbp int)
}

type compound struct {
	name  string
	items []Expr
	lbp   int
	rbp   int
}

func (c *compound) Name() string { return c.name }
func (c *compound) Len() int     { return len(c.items) }
func (c *compound) At(i int) Expr {
	return c.items[i]
}

// Items returns a copy of the node's items.
func (c *compound) Items() []Expr {
	out := make([]Expr, len(c.items))
	copy(out, c.items)
	return out
}

// BindingPower returns the powers recorded when the node was parsed.
// They do not take part in equality.
func (c *compound) BindingPower() (lbp, rbp int) { return c.lbp, c.rbp }

func (c *compound) format() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(c.name)
	for _, item := range c.items {
		sb.WriteByte(' ')
		sb.WriteString(item.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Container is a general n-ary application.
type Container struct{ compound }

// CommAssoc is a commutative-associative application. Item order is a
// representation detail; equality treats items as a multiset.
type CommAssoc struct{ compound }

// Restricted is a sealed application whose items are opaque to traversal
// and matching.
type Restricted struct{ compound }

// Assign is an application whose first item is protected from rewriting.
type Assign struct{ compound }

func (*Container) isExpr()  {}
func (*CommAssoc) isExpr()  {}
func (*Restricted) isExpr() {}
func (*Assign) isExpr()     {}

func (*Container) Kind() Kind  { return KindContainer }
func (*CommAssoc) Kind() Kind  { return KindCommAssoc }
func (*Restricted) Kind() Kind { return KindRestricted }
func (*Assign) Kind() Kind     { return KindAssign }

func (c *Container) String() string  { return c.format() }
func (c *CommAssoc) String() string  { return c.format() }
func (c *Restricted) String() string { return "[" + c.format() + "]" }
func (c *Assign) String() string     { return c.format() }

// New returns a compound node of the given kind. It panics if kind is not a
// compound kind.
func New(kind Kind, name string, items ...Expr) Compound {
	return newCompound(kind, compound{name: name, items: cloneItems(items)})
}

func NewContainer(name string, items ...Expr) *Container {
	return &Container{compound{name: name, items: cloneItems(items)}}
}

func NewCommAssoc(name string, items ...Expr) *CommAssoc {
	return &CommAssoc{compound{name: name, items: cloneItems(items)}}
}

func NewRestricted(name string, items ...Expr) *Restricted {
	return &Restricted{compound{name: name, items: cloneItems(items)}}
}

func NewAssign(name string, items ...Expr) *Assign {
	return &Assign{compound{name: name, items: cloneItems(items)}}
}

// WithItems returns a node of the same variant, name and binding powers as c
// holding items instead of c's items.
func WithItems(c Compound, items []Expr) Compound {
	lbp, rbp := c.BindingPower()
	return newCompound(c.Kind(), compound{name: c.Name(), items: cloneItems(items), lbp: lbp, rbp: rbp})
}

// WithItem returns a copy of c with item i replaced.
func WithItem(c Compound, i int, item Expr) Compound {
	items := c.Items()
	items[i] = item
	lbp, rbp := c.BindingPower()
	return newCompound(c.Kind(), compound{name: c.Name(), items: items, lbp: lbp, rbp: rbp})
}

// newCompound wraps data without copying its items.
func newCompound(kind Kind, data compound) Compound {
	switch kind {
	case KindContainer:
		return &Container{data}
	case KindCommAssoc:
		return &CommAssoc{data}
	case KindRestricted:
		return &Restricted{data}
	case KindAssign:
		return &Assign{data}
	}
	panic(fmt.Sprintf("expr: %s is not a compound kind", kind))
}

func cloneItems(items []Expr) []Expr {
	if len(items) == 0 {
		return nil
	}
	out := make([]Expr, len(items))
	copy(out, items)
	return out
}

// AsCompound returns e as a Compound when it is one of the named variants.
func AsCompound(e Expr) (Compound, bool) {
	switch n := e.(type) {
	case *Container:
		return n, true
	case *CommAssoc:
		return n, true
	case *Restricted:
		return n, true
	case *Assign:
		return n, true
	}
	return nil, false
}

// HasName reports whether e is a compound called name.
func HasName(e Expr, name string) bool {
	c, ok := AsCompound(e)
	return ok && c.Name() == name
}

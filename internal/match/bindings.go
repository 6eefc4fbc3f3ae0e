package match

import (
	"sort"
	"strings"

	"github.com/gnoswap-labs/symrw/internal/expr"
)

// Bindings maps pattern variable names to the subtrees they matched.
//
// It is persistent: Bind returns a new value and never changes the
// receiver, so a branch of the search that fails simply drops its copy.
// The zero value is empty and ready to use.
type Bindings struct {
	head *binding
	size int
}

type binding struct {
	name  string
	value expr.Expr
	next  *binding
}

// NewBindings builds a Bindings holding the entries of m.
func NewBindings(m map[string]expr.Expr) Bindings {
	var b Bindings
	for _, name := range sortedKeys(m) {
		b = b.Bind(name, m[name])
	}
	return b
}

// Lookup returns the value bound to name.
func (b Bindings) Lookup(name string) (expr.Expr, bool) {
	for n := b.head; n != nil; n = n.next {
		if n.name == name {
			return n.value, true
		}
	}
	return nil, false
}

// Get returns the value bound to name, or expr.Null{} when name is unbound.
func (b Bindings) Get(name string) expr.Expr {
	if v, ok := b.Lookup(name); ok {
		return v
	}
	return expr.Null{}
}

// Bind returns b extended with name bound to value. A previous binding of
// the same name is shadowed.
func (b Bindings) Bind(name string, value expr.Expr) Bindings {
	size := b.size
	if _, ok := b.Lookup(name); !ok {
		size++
	}
	return Bindings{head: &binding{name: name, value: value, next: b.head}, size: size}
}

// Len returns the number of distinct names bound.
func (b Bindings) Len() int { return b.size }

// Names returns the bound names in sorted order.
func (b Bindings) Names() []string {
	return sortedKeys(b.Map())
}

// Map copies the visible bindings into a map.
func (b Bindings) Map() map[string]expr.Expr {
	out := make(map[string]expr.Expr, b.size)
	for n := b.head; n != nil; n = n.next {
		if _, ok := out[n.name]; !ok {
			out[n.name] = n.value
		}
	}
	return out
}

func (b Bindings) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	m := b.Map()
	for i, name := range sortedKeys(m) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(m[name].String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func sortedKeys(m map[string]expr.Expr) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

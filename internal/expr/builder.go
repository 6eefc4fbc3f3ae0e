package expr

import (
	"errors"
	"fmt"
)

// ErrNegativePower is returned for binding powers below zero.
var ErrNegativePower = errors.New("binding power must be non-negative")

// FrozenNodeError reports an attempt to change a node after it was built.
type FrozenNodeError struct {
	Kind  Kind
	Name  string
	Field string
}

func (e *FrozenNodeError) Error() string {
	return fmt.Sprintf("cannot set %s on frozen %s node %q", e.Field, e.Kind, e.Name)
}

// Builder assembles a compound node. Binding powers and items may be set
// until Build is called; the node is frozen from then on.
type Builder struct {
	kind  Kind
	name  string
	items []Expr
	lbp   int
	rbp   int
	built Compound
}

// NewBuilder starts a compound node. It panics if kind is not a compound kind.
func NewBuilder(kind Kind, name string) *Builder {
	if !kind.IsCompound() {
		panic(fmt.Sprintf("expr: %s is not a compound kind", kind))
	}
	return &Builder{kind: kind, name: name}
}

func (b *Builder) Kind() Kind   { return b.kind }
func (b *Builder) Name() string { return b.name }
func (b *Builder) Len() int {
	if b.built != nil {
		return b.built.Len()
	}
	return len(b.items)
}

// Frozen reports whether Build has been called.
func (b *Builder) Frozen() bool { return b.built != nil }

func (b *Builder) frozen(field string) error {
	if b.built == nil {
		return nil
	}
	return &FrozenNodeError{Kind: b.kind, Name: b.name, Field: field}
}

// SetBindingPower records the node's left and right binding powers.
func (b *Builder) SetBindingPower(lbp, rbp int) error {
	if err := b.frozen("binding power"); err != nil {
		return err
	}
	if lbp < 0 || rbp < 0 {
		return fmt.Errorf("%w: %q (%d, %d)", ErrNegativePower, b.name, lbp, rbp)
	}
	b.lbp, b.rbp = lbp, rbp
	return nil
}

// Append adds items at the end.
func (b *Builder) Append(items ...Expr) error {
	if err := b.frozen("items"); err != nil {
		return err
	}
	b.items = append(b.items, items...)
	return nil
}

// Prepend adds items at the front.
func (b *Builder) Prepend(items ...Expr) error {
	if err := b.frozen("items"); err != nil {
		return err
	}
	b.items = append(cloneItems(items), b.items...)
	return nil
}

// Build freezes the builder and returns the node. Repeated calls return the
// same node.
func (b *Builder) Build() Compound {
	if b.built == nil {
		b.built = newCompound(b.kind, compound{name: b.name, items: b.items, lbp: b.lbp, rbp: b.rbp})
		b.items = nil
	}
	return b.built
}

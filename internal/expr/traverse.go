package expr

import (
	"fmt"
)

// BottomUp rewrites the items of e first and then applies fn to the rebuilt
// node. fn is applied once per visited node and must not recurse itself.
//
// Restricted nodes are not descended: fn sees only the node. Assign nodes
// keep their first item exactly as it is. Atoms are passed straight to fn.
func BottomUp(e Expr, fn func(Expr) Expr) Expr {
	switch n := e.(type) {
	case Null, *Symbol, *Number:
		return fn(e)
	case *Restricted:
		return fn(n)
	case *Assign:
		return fn(rebuild(n, &n.compound, 1, fn))
	case *Container:
		return fn(rebuild(n, &n.compound, 0, fn))
	case *CommAssoc:
		return fn(rebuild(n, &n.compound, 0, fn))
	}
	panic(unknownVariant(e))
}

// rebuild applies BottomUp to items from index "from" on. The original node
// is returned when no item changed.
func rebuild(node Compound, c *compound, from int, fn func(Expr) Expr) Expr {
	var items []Expr
	for i := from; i < len(c.items); i++ {
		old := c.items[i]
		updated := BottomUp(old, fn)
		if items == nil {
			if updated == old {
				continue
			}
			items = make([]Expr, len(c.items))
			copy(items, c.items)
		}
		items[i] = updated
	}
	if items == nil {
		return node
	}
	return newCompound(node.Kind(), compound{name: c.name, items: items, lbp: c.lbp, rbp: c.rbp})
}

// PathError reports a path that cannot be followed.
type PathError struct {
	Path   []int
	Depth  int
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %v: step %d: %s", e.Path, e.Depth, e.Reason)
}

// ApplyAtPath applies fn to the subtree reached by following path, a
// sequence of item indices from e, and rebuilds every ancestor around the
// result. An empty path applies fn to e itself.
//
// When the path indexes into an atom, a Restricted node, the protected
// first item of an Assign, or past the last item, the node that could not
// be indexed is replaced by Null, the ancestors are still rebuilt, and a
// *PathError is returned alongside the tree.
func ApplyAtPath(e Expr, path []int, fn func(Expr) Expr) (Expr, error) {
	return applyAt(e, path, 0, fn)
}

func applyAt(e Expr, path []int, depth int, fn func(Expr) Expr) (Expr, error) {
	if depth == len(path) {
		return fn(e), nil
	}
	idx := path[depth]
	fail := func(reason string) (Expr, error) {
		return Null{}, &PathError{Path: append([]int(nil), path...), Depth: depth, Reason: reason}
	}

	var c *compound
	var node Compound
	switch n := e.(type) {
	case Null, *Symbol, *Number:
		return fail(fmt.Sprintf("cannot index into %s", e.Kind()))
	case *Restricted:
		return fail(fmt.Sprintf("cannot index into restricted node %q", n.name))
	case *Assign:
		if idx == 0 {
			return fail(fmt.Sprintf("item 0 of assign node %q is protected", n.name))
		}
		c, node = &n.compound, n
	case *Container:
		c, node = &n.compound, n
	case *CommAssoc:
		c, node = &n.compound, n
	default:
		panic(unknownVariant(e))
	}
	if idx < 0 || idx >= len(c.items) {
		return fail(fmt.Sprintf("index %d out of range for %q with %d items", idx, c.name, len(c.items)))
	}

	child, err := applyAt(c.items[idx], path, depth+1, fn)
	items := make([]Expr, len(c.items))
	copy(items, c.items)
	items[idx] = child
	return newCompound(node.Kind(), compound{name: c.name, items: items, lbp: c.lbp, rbp: c.rbp}), err
}

// Flatten splices nested CommAssoc items that share their parent's name into
// the parent, and collapses a CommAssoc left with exactly one item into that
// item. Restricted nodes are left untouched. Flatten is idempotent.
func Flatten(e Expr) Expr {
	return BottomUp(e, FlattenNode)
}

// FlattenNode flattens e alone, assuming its items are already flat.
func FlattenNode(e Expr) Expr {
	ca, ok := e.(*CommAssoc)
	if !ok {
		return e
	}
	changed := false
	items := make([]Expr, 0, len(ca.items))
	for _, item := range ca.items {
		if sub, ok := item.(*CommAssoc); ok && sub.name == ca.name {
			items = append(items, sub.items...)
			changed = true
			continue
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return items[0]
	}
	if !changed {
		return e
	}
	return &CommAssoc{compound{name: ca.name, items: items, lbp: ca.lbp, rbp: ca.rbp}}
}

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the node's items. Walk descends into every variant, sealed ones
// included.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	if c, ok := AsCompound(e); ok {
		for i := 0; i < c.Len(); i++ {
			Walk(c.At(i), fn)
		}
	}
}

// Size returns the number of nodes in e.
func Size(e Expr) int {
	n := 0
	Walk(e, func(Expr) bool {
		n++
		return true
	})
	return n
}

// ContainsSymbol reports whether some symbol in e satisfies pred.
func ContainsSymbol(e Expr, pred func(name string) bool) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if found {
			return false
		}
		if s, ok := n.(*Symbol); ok && pred(s.Name()) {
			found = true
		}
		return !found
	})
	return found
}

package expr

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Equal reports structural equality. Container, Restricted and Assign
// compare items pointwise; CommAssoc compares items as a multiset.
// Binding powers are ignored.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case *Symbol:
		y, ok := b.(*Symbol)
		return ok && x.name == y.name
	case *Number:
		y, ok := b.(*Number)
		return ok && x.equal(y)
	case *Container:
		y, ok := b.(*Container)
		return ok && orderedEqual(&x.compound, &y.compound)
	case *Restricted:
		y, ok := b.(*Restricted)
		return ok && orderedEqual(&x.compound, &y.compound)
	case *Assign:
		y, ok := b.(*Assign)
		return ok && orderedEqual(&x.compound, &y.compound)
	case *CommAssoc:
		y, ok := b.(*CommAssoc)
		return ok && x.name == y.name && MultisetEqual(x.items, y.items)
	}
	panic(unknownVariant(a))
}

func orderedEqual(x, y *compound) bool {
	if x == y {
		return true
	}
	if x.name != y.name || len(x.items) != len(y.items) {
		return false
	}
	for i := range x.items {
		if !Equal(x.items[i], y.items[i]) {
			return false
		}
	}
	return true
}

// MultisetEqual reports whether xs and ys hold the same items with the same
// multiplicities, regardless of order.
func MultisetEqual(xs, ys []Expr) bool {
	if len(xs) != len(ys) {
		return false
	}
	hx := make([]uint64, len(xs))
	hy := make([]uint64, len(ys))
	for i := range xs {
		hx[i] = Hash(xs[i])
		hy[i] = Hash(ys[i])
	}
	used := make([]bool, len(ys))
	for i, x := range xs {
		found := false
		for j, y := range ys {
			if used[j] || hx[i] != hy[j] {
				continue
			}
			if Equal(x, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

const (
	tagNull byte = iota + 1
	tagSymbol
	tagNumber
	tagContainer
	tagCommAssoc
	tagRestricted
	tagAssign
)

// Hash returns a structural hash consistent with Equal: equal trees hash
// equally, and CommAssoc hashes do not depend on item order.
func Hash(e Expr) uint64 {
	d := xxhash.New()
	switch n := e.(type) {
	case Null:
		d.Write([]byte{tagNull})
	case *Symbol:
		d.Write([]byte{tagSymbol})
		d.WriteString(n.name)
	case *Number:
		d.Write([]byte{tagNumber})
		d.WriteString(n.valueKey())
	case *Container:
		writeOrdered(d, tagContainer, &n.compound)
	case *Restricted:
		writeOrdered(d, tagRestricted, &n.compound)
	case *Assign:
		writeOrdered(d, tagAssign, &n.compound)
	case *CommAssoc:
		var sum, mix uint64
		for _, item := range n.items {
			h := Hash(item)
			sum += h
			mix ^= h * 0x9e3779b97f4a7c15
		}
		d.Write([]byte{tagCommAssoc})
		d.WriteString(n.name)
		writeUint(d, uint64(len(n.items)))
		writeUint(d, sum)
		writeUint(d, mix)
	default:
		panic(unknownVariant(e))
	}
	return d.Sum64()
}

func writeOrdered(d *xxhash.Digest, tag byte, c *compound) {
	d.Write([]byte{tag})
	d.WriteString(c.name)
	writeUint(d, uint64(len(c.items)))
	for _, item := range c.items {
		writeUint(d, Hash(item))
	}
}

func writeUint(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.Write(buf[:])
}

func unknownVariant(e Expr) string {
	return fmt.Sprintf("expr: unknown variant %T", e)
}

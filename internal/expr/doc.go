// Package expr defines the immutable expression tree shared by the parser,
// the matcher and the rewrite engine.
//
// The variant set is closed: Null, Symbol, Number, Container, CommAssoc,
// Restricted and Assign. Every operation over trees (equality, hashing,
// bottom-up traversal, path-directed rewriting, flattening) switches
// exhaustively on the concrete variant, so adding a new node kind is a
// compile-visible change in exactly this package.
//
// Variants:
//
//	Null        "no value" sentinel, distinct from an absent result
//	Symbol      named atom (true, false and any are reserved)
//	Number      exact rational or inexact real, compared by value
//	Container   n-ary application, ordered items
//	CommAssoc   commutative-associative application, items compared as a multiset
//	Restricted  sealed application: traversal and matching never descend
//	Assign      application whose first item is protected from rewriting
//
// Nodes are immutable. Fields are unexported and Items returns a copy.
// Binding powers are attached through a Builder before Build is called;
// afterwards every setter on that builder fails with a *FrozenNodeError.
//
// Usage:
//
//	b := expr.NewBuilder(expr.KindCommAssoc, "+")
//	_ = b.SetBindingPower(100, 100)
//	_ = b.Append(expr.NewSymbol("a"), expr.NewInt(1))
//	sum := b.Build()
//
//	doubled := expr.BottomUp(sum, func(e expr.Expr) expr.Expr {
//	    if n, ok := e.(*expr.Number); ok && n.IsExact() {
//	        r, _ := n.Rat()
//	        return expr.NewRat(r.Add(r, r))
//	    }
//	    return e
//	})
package expr

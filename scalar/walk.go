package scalar

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/types"
)

// Walk visits e in pre-order. Returning false from fn skips the children of
// the visited node.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	if c, ok := e.(*Call); ok {
		for _, a := range c.Args {
			Walk(a, fn)
		}
	}
}

// Rewrite rebuilds e bottom up, fn sees every node after its children are
// rewritten. Nodes whose children did not change are reused.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if c, ok := e.(*Call); ok {
		var args []Expr
		for i, a := range c.Args {
			na := Rewrite(a, fn)
			if na != a && args == nil {
				args = make([]Expr, len(c.Args))
				copy(args, c.Args[:i])
			}
			if args != nil {
				args[i] = na
			}
		}
		if args != nil {
			e = &Call{
				Op:       c.Op,
				Args:     args,
				Ty:       c.Ty,
				Distinct: c.Distinct,
			}
		}
	}
	return fn(e)
}

// Columns returns the set of input positions referenced by e
func Columns(e ...Expr) mapset.Set[int] {
	out := mapset.NewThreadUnsafeSet[int]()
	for _, x := range e {
		Walk(x, func(n Expr) bool {
			if c, ok := n.(*ColumnRef); ok {
				out.Add(c.Index)
			}
			return true
		})
	}
	return out
}

func Equal(a, b Expr) bool {
	return a.Digest() == b.Digest()
}

func HasAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*Call); ok && c.Op.IsAggregate() {
			found = true
		}
		return !found
	})
	return found
}

// Shift moves every column reference by delta
func Shift(e Expr, delta int) Expr {
	if delta == 0 {
		return e
	}
	return Remap(e, func(i int) int { return i + delta })
}

// Remap renumbers column references through mapping
func Remap(e Expr, mapping func(int) int) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if c, ok := n.(*ColumnRef); ok {
			if idx := mapping(c.Index); idx != c.Index {
				return Col(idx, c.Name, c.Ty)
			}
		}
		return n
	})
}

// Inline replaces every column reference $i by exprs[i]
func Inline(e Expr, exprs []Expr) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if c, ok := n.(*ColumnRef); ok {
			return exprs[c.Index]
		}
		return n
	})
}

// Nullable reports whether e may evaluate to NULL over rows of input
func Nullable(e Expr, input types.Schema) bool {
	switch v := e.(type) {
	case *ColumnRef:
		return v.Index < len(input) && input[v.Index].Nullable
	case *Literal:
		return v.Value == nil
	case *Call:
		switch v.Op.Name {
		case operator.Count, operator.IsNull, operator.IsNotNull:
			return false
		}
		if v.Op.IsAggregate() {
			return true
		}
		for _, a := range v.Args {
			if Nullable(a, input) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

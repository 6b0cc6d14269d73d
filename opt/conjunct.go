package opt

import (
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/golang-collections/collections/stack"
)

// conjuncts flattens the AND tree of e into its conjuncts in left to right
// order. The AND operator found, if any, is returned so the caller can build
// new conjunctions out of the pieces.
func conjuncts(e scalar.Expr) ([]scalar.Expr, *operator.Operator) {
	if e == nil {
		return nil, nil
	}

	var and *operator.Operator
	out := []scalar.Expr{}

	st := stack.New()
	st.Push(e)
	for st.Len() > 0 {
		x := st.Pop().(scalar.Expr)
		if c, ok := x.(*scalar.Call); ok && c.Op.Name == operator.And {
			and = c.Op
			st.Push(c.Args[1])
			st.Push(c.Args[0])
			continue
		}
		out = append(out, x)
	}
	return out, and
}

// splitConjuncts partitions the conjuncts of e by pred, keeping their order
func splitConjuncts(e scalar.Expr, pred func(scalar.Expr) bool) (yes, no []scalar.Expr, and *operator.Operator) {
	list, and := conjuncts(e)
	for _, x := range list {
		if pred(x) {
			yes = append(yes, x)
		} else {
			no = append(no, x)
		}
	}
	return
}

// conjunction rebuilds a predicate out of conjuncts, nil when list is empty
func conjunction(and *operator.Operator, list []scalar.Expr) scalar.Expr {
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	default:
		return scalar.And(and, list...)
	}
}

// equiKey recognizes `left column = right column`, in either order, where
// nLeft is the width of the left input
func equiKey(e scalar.Expr, nLeft int) (physical.EquiKey, bool) {
	c, ok := e.(*scalar.Call)
	if !ok || c.Op.Name != operator.Eq {
		return physical.EquiKey{}, false
	}
	l, ok1 := c.Args[0].(*scalar.ColumnRef)
	r, ok2 := c.Args[1].(*scalar.ColumnRef)
	if !ok1 || !ok2 || l.Ty != r.Ty {
		return physical.EquiKey{}, false
	}
	if l.Index >= nLeft {
		l, r = r, l
	}
	if l.Index >= nLeft || r.Index < nLeft {
		return physical.EquiKey{}, false
	}
	return physical.EquiKey{Left: l.Index, Right: r.Index - nLeft}, true
}

func equiKeys(cond scalar.Expr, nLeft int) []physical.EquiKey {
	keys, _ := splitEquiJoin(cond, nLeft)
	return keys
}

// splitEquiJoin separates the equi keys of a join condition from the rest of
// it, which becomes the residual
func splitEquiJoin(cond scalar.Expr, nLeft int) ([]physical.EquiKey, scalar.Expr) {
	var keys []physical.EquiKey
	var rest []scalar.Expr

	list, and := conjuncts(cond)
	for _, x := range list {
		if k, ok := equiKey(x, nLeft); ok {
			keys = append(keys, k)
		} else {
			rest = append(rest, x)
		}
	}
	return keys, conjunction(and, rest)
}

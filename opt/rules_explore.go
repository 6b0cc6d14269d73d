package opt

import (
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
)

// joinSide tells which input of a join of nl left columns e reads: -1 the
// left one, 1 the right one, 2 both, 0 none
func joinSide(e scalar.Expr, nl int) int {
	side := 0
	for _, c := range scalar.Columns(e).ToSlice() {
		s := -1
		if c >= nl {
			s = 1
		}
		switch {
		case side == 0:
			side = s
		case side != s:
			return 2
		}
	}
	return side
}

// FilterIntoJoin moves the conjuncts of filter(p, inner join) down: those
// reading one input become a filter of that input, those reading both are
// added to the join condition. Conjuncts reading no column stay above.
var FilterIntoJoin = &Rule{
	Name:    "FilterIntoJoin",
	Operand: plan.KindFilter,
	Transform: func(b *Binding) []plan.Node {
		f := b.Node.(*plan.Filter)
		j := b.Join(0)
		if j == nil || j.JoinKind != plan.JoinInner {
			return nil
		}

		nl := len(j.Left.Schema())
		list, and := conjuncts(f.Condition)
		cond, condAnd := conjuncts(j.Condition)
		if and == nil {
			and = condAnd
		}

		var left, right, rest []scalar.Expr
		moved := false
		for _, x := range list {
			switch joinSide(x, nl) {
			case -1:
				left = append(left, x)
				moved = true
			case 1:
				right = append(right, scalar.Shift(x, -nl))
				moved = true
			case 2:
				// the condition can only grow when an AND is at hand
				if len(cond) != 0 && and == nil {
					rest = append(rest, x)
					continue
				}
				cond = append(cond, x)
				moved = true
			default:
				rest = append(rest, x)
			}
		}
		if !moved {
			return nil
		}

		l, r := j.Left, j.Right
		if len(left) != 0 {
			l = plan.NewFilter(l, conjunction(and, left))
		}
		if len(right) != 0 {
			r = plan.NewFilter(r, conjunction(and, right))
		}
		var out plan.Node = plan.NewJoin(plan.JoinInner, l, r, conjunction(and, cond))
		if len(rest) != 0 {
			out = plan.NewFilter(out, conjunction(and, rest))
		}
		return []plan.Node{out}
	},
}

// JoinCommute swaps the inputs of an inner join. A project on top restores
// the column order of the original join.
var JoinCommute = &Rule{
	Name:    "JoinCommute",
	Operand: plan.KindJoin,
	Transform: func(b *Binding) []plan.Node {
		j := b.Node.(*plan.Join)
		if j.JoinKind != plan.JoinInner {
			return nil
		}

		nl, nr := len(j.Left.Schema()), len(j.Right.Schema())
		swap := func(i int) int {
			if i < nl {
				return i + nr
			}
			return i - nl
		}

		var cond scalar.Expr
		if j.Condition != nil {
			cond = scalar.Remap(j.Condition, swap)
		}
		swapped := plan.NewJoin(plan.JoinInner, b.Input(1), b.Input(0), cond)

		cols := make([]int, 0, nl+nr)
		for i := 0; i < nl+nr; i++ {
			cols = append(cols, swap(i))
		}
		return []plan.Node{
			plan.NewIdentity(swapped, cols...),
		}
	},
}

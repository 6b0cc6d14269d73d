package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

// Check verifies that every expression of the tree only references columns
// of its own input, with the type the input produces. A failure is always a
// defect of whoever built the tree, so it is reported as an assertion failure.
func Check(n Node) error {
	for _, in := range n.Inputs() {
		if err := Check(in); err != nil {
			return err
		}
	}

	switch v := n.(type) {
	case *Filter:
		return checkPredicate(v, v.Condition, v.Input.Schema())

	case *Project:
		if len(v.Exprs) != len(v.Names) {
			return errors.AssertionFailedf("%s: %d expressions with %d names", v, len(v.Exprs), len(v.Names))
		}
		return checkExprs(v, v.Input.Schema(), v.Exprs...)

	case *Join:
		if v.Condition == nil {
			return nil
		}
		return checkPredicate(v, v.Condition, v.Left.Schema().Concat(v.Right.Schema()))

	case *Aggregate:
		in := v.Input.Schema()
		if err := checkExprs(v, in, v.Keys...); err != nil {
			return err
		}
		for _, c := range v.Calls {
			if !c.Op.IsAggregate() {
				return errors.AssertionFailedf("%s: %s is not an aggregate", v, c.Op)
			}
			if err := checkExprs(v, in, c.Args...); err != nil {
				return err
			}
		}

	case *Sort:
		size := len(v.Input.Schema())
		for _, k := range v.Keys {
			if k.Index < 0 || k.Index >= size {
				return errors.AssertionFailedf("%s: sort key $%d out of range", v, k.Index)
			}
		}

	case *Limit:
		if v.Count < 0 {
			return errors.AssertionFailedf("%s: negative count", v)
		}
	}
	return nil
}

func checkPredicate(n Node, cond scalar.Expr, in types.Schema) error {
	if ty := cond.Type(); ty != types.Boolean && !ty.IsNull() {
		return errors.AssertionFailedf("%s: condition typed %s", n, ty)
	}
	return checkExprs(n, in, cond)
}

func checkExprs(n Node, in types.Schema, exprs ...scalar.Expr) error {
	var err error
	for _, e := range exprs {
		scalar.Walk(e, func(x scalar.Expr) bool {
			ref, ok := x.(*scalar.ColumnRef)
			if !ok || err != nil {
				return err == nil
			}
			switch {
			case ref.Index < 0 || ref.Index >= len(in):
				err = errors.AssertionFailedf("%s: column $%d out of range of %d columns", n, ref.Index, len(in))
			case ref.Ty != in[ref.Index].Type:
				err = errors.AssertionFailedf("%s: column $%d typed %s, input has %s", n, ref.Index, ref.Ty, in[ref.Index].Type)
			}
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Size counts the nodes of the tree
func Size(n Node) int {
	sz := 1
	for _, in := range n.Inputs() {
		sz += Size(in)
	}
	return sz
}

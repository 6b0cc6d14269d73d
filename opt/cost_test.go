package opt

import (
	"testing"

	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
)

func logicalOp(name string, args ...scalar.Expr) scalar.Expr {
	tys := make([]types.Type, 0, len(args))
	for range args {
		tys = append(tys, types.Boolean)
	}
	return scalar.NewCall(reg.MustResolve(name, tys...), types.Boolean, args...)
}

func TestSelectivity(t *testing.T) {
	assert := assert.New(t)
	eq := cmpOp(operator.Eq, 0, "a", 1)
	lt := cmpOp(operator.Lt, 0, "a", 1)
	ne := cmpOp(operator.Ne, 0, "a", 1)

	assert.Equal(selEqual, Selectivity(eq))
	assert.Equal(selRange, Selectivity(lt))
	assert.Equal(selNotEq, Selectivity(ne))
	assert.Equal(1.0, Selectivity(scalar.Bool(true)))
	assert.Equal(selDefault, Selectivity(scalar.Bool(false)))
	assert.Equal(selDefault, Selectivity(scalar.Col(0, "a", types.Boolean)))

	assert.InDelta(selEqual*selRange, Selectivity(logicalOp(operator.And, eq, lt)), 1e-9)
	assert.InDelta(selEqual+selRange, Selectivity(logicalOp(operator.Or, eq, lt)), 1e-9)
	assert.Equal(1.0, Selectivity(logicalOp(operator.Or, ne, ne)))
	assert.InDelta(1-selEqual, Selectivity(logicalOp(operator.Not, eq)), 1e-9)
}

func TestCostOrder(t *testing.T) {
	assert := assert.New(t)
	assert.True(Cost{Rows: 10, CPU: 1}.Less(Cost{Rows: 1, CPU: 2}))
	assert.True(Cost{Rows: 1, CPU: 2}.Less(Cost{Rows: 2, CPU: 2}))
	assert.False(Cost{Rows: 2, CPU: 2}.Less(Cost{Rows: 2, CPU: 2}))
	assert.Equal("rows=12, cpu=3.50", Cost{Rows: 12, CPU: 3.5}.String())
}

func TestConjuncts(t *testing.T) {
	assert := assert.New(t)
	a := cmpOp(operator.Eq, 0, "a", 1)
	b := cmpOp(operator.Gt, 1, "b", 2)
	c := cmpOp(operator.Lt, 0, "a", 9)

	list, and := conjuncts(logicalOp(operator.And, logicalOp(operator.And, a, b), c))
	assert.Equal([]scalar.Expr{a, b, c}, list)
	assert.NotNil(and)

	list, and = conjuncts(a)
	assert.Equal([]scalar.Expr{a}, list)
	assert.Nil(and)

	list, _ = conjuncts(nil)
	assert.Empty(list)

	and = reg.MustResolve(operator.And, types.Boolean, types.Boolean)
	yes, no, _ := splitConjuncts(scalar.And(and, a, b, c), func(e scalar.Expr) bool {
		return scalar.Columns(e).Contains(0)
	})
	assert.Equal([]scalar.Expr{a, c}, yes)
	assert.Equal([]scalar.Expr{b}, no)

	assert.Nil(conjunction(and, nil))
	assert.Equal(a, conjunction(and, []scalar.Expr{a}))
	assert.Equal("((a = 1) AND (a < 9))", conjunction(and, yes).String())
}

func TestEquiKeys(t *testing.T) {
	assert := assert.New(t)
	and := reg.MustResolve(operator.And, types.Boolean, types.Boolean)
	eqOp := reg.MustResolve(operator.Eq, types.Integer, types.Integer)

	// left has two columns, right starts at $2
	key := scalar.NewCall(eqOp, types.Boolean, scalar.Col(3, "y", types.Integer), scalar.Col(0, "a", types.Integer))
	other := cmpOp(operator.Gt, 1, "b", 2)

	keys, residual := splitEquiJoin(scalar.And(and, key, other), 2)
	if assert.Len(keys, 1) {
		assert.Equal(0, keys[0].Left)
		assert.Equal(1, keys[0].Right)
	}
	assert.Equal(other, residual)

	keys, residual = splitEquiJoin(other, 2)
	assert.Empty(keys)
	assert.Equal(other, residual)
}

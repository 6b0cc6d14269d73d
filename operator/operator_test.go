package operator

import (
	"testing"

	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStandard(t *testing.T) {
	assert := assert.New(t)
	reg := Standard()

	{
		op, ty, err := reg.Resolve("+", []types.Type{types.Integer, types.Integer})
		require.NoError(t, err)
		assert.Equal("+", op.Name)
		assert.Equal(types.Integer, ty)
		assert.True(op.Infix())
	}

	{
		_, ty, err := reg.Resolve("*", []types.Type{types.Integer, types.Decimal(15, 2)})
		assert.Nil(err)
		assert.Equal(types.Decimal(21, 2), ty)
	}

	{
		op, ty, err := reg.Resolve("<", []types.Type{types.Integer, types.Float})
		assert.Nil(err)
		assert.Equal(KindComparison, op.Kind)
		assert.Equal(types.Boolean, ty)
	}

	{
		_, _, err := reg.Resolve("=", []types.Type{types.String, types.Integer})
		assert.True(sqlerr.Is(err, sqlerr.UnknownFunction))
	}

	{
		_, ty, err := reg.Resolve("like", []types.Type{types.String, types.String})
		assert.Nil(err)
		assert.Equal(types.Boolean, ty)
	}

	{
		op, ty, err := reg.Resolve("count", nil)
		assert.Nil(err)
		assert.Equal(0, op.Arity)
		assert.True(op.IsAggregate())
		assert.Equal(types.Integer, ty)

		op, _, err = reg.Resolve("COUNT", []types.Type{types.String})
		assert.Nil(err)
		assert.Equal(1, op.Arity)
	}

	{
		_, ty, err := reg.Resolve("avg", []types.Type{types.Integer})
		assert.Nil(err)
		assert.Equal(types.Float, ty)

		_, ty, err = reg.Resolve("sum", []types.Type{types.Decimal(15, 2)})
		assert.Nil(err)
		assert.Equal(types.Decimal(38, 2), ty)
	}

	{
		_, _, err := reg.Resolve("AND", []types.Type{types.Boolean, types.Integer})
		assert.True(sqlerr.Is(err, sqlerr.UnknownFunction))
	}
}

func TestResolveUnknown(t *testing.T) {
	assert := assert.New(t)
	reg := Standard()

	_, _, err := reg.Resolve("nosuchfunction", []types.Type{types.Integer})
	assert.True(sqlerr.Is(err, sqlerr.UnknownFunction))
	e, _ := sqlerr.Get(err)
	assert.Equal("nosuchfunction", e.Ident)
	assert.False(e.Pos.Valid())

	// arity mismatch
	_, _, err = reg.Resolve("ABS", []types.Type{types.Integer, types.Integer})
	assert.True(sqlerr.Is(err, sqlerr.UnknownFunction))
	assert.Contains(err.Error(), "(INTEGER, INTEGER)")
}

func TestResolveExtended(t *testing.T) {
	assert := assert.New(t)
	reg := Extended()

	{
		op, ty, err := reg.Resolve("add", []types.Type{types.Integer, types.Integer})
		assert.Nil(err)
		assert.Equal("ADD", op.Name)
		assert.Equal(types.Integer, ty)
		assert.False(op.Infix())
	}

	// only the FLOAT overload accepts a DECIMAL
	{
		_, ty, err := reg.Resolve("ADD", []types.Type{types.Decimal(2, 1), types.Integer})
		assert.Nil(err)
		assert.Equal(types.Float, ty)
	}

	{
		_, ty, err := reg.Resolve("CONVERT_TIMEZONE", []types.Type{types.String, types.String, types.Timestamp})
		assert.Nil(err)
		assert.Equal(types.Timestamp, ty)
	}

	{
		_, _, err := reg.Resolve("DATETIME", []types.Type{types.String, types.String})
		assert.True(sqlerr.Is(err, sqlerr.UnknownFunction))
	}

	assert.Contains(reg.Names(), "PLUS")
	assert.True(len(reg.Names()) > len(Standard().Names()))
}

func TestResolveAmbiguous(t *testing.T) {
	assert := assert.New(t)

	reg := NewBuilder().
		Register("f", 2, KindFunction, Signature(types.Float, types.Integer, types.Float)).
		Register("f", 2, KindFunction, Signature(types.Float, types.Float, types.Integer)).
		Register("f", 2, KindFunction, Signature(types.Integer, types.Integer, types.Integer)).
		Build()

	// exact match is the cheapest one
	op, ty, err := reg.Resolve("F", []types.Type{types.Integer, types.Integer})
	assert.Nil(err)
	assert.Equal(types.Integer, ty)
	assert.Equal(ID(2), op.ID)

	_, _, err = reg.Resolve("F", []types.Type{types.Integer, types.Decimal(4, 1)})
	assert.Nil(err)

	// both float overloads need one widening of cost 2
	reg2 := NewBuilder().
		Register("g", 2, KindFunction, Signature(types.Float, types.Integer, types.Float)).
		Register("g", 2, KindFunction, Signature(types.Float, types.Float, types.Integer)).
		Build()
	_, _, err = reg2.Resolve("g", []types.Type{types.Integer, types.Integer})
	assert.True(sqlerr.Is(err, sqlerr.AmbiguousFunction))
}

func TestBuilder(t *testing.T) {
	assert := assert.New(t)

	b := NewBuilder().Include(Standard())
	b.Register("twice", 1, KindFunction, NumericUnary)
	reg := b.Build()

	assert.Equal(Standard().Len()+1, reg.Len())
	ops := reg.Lookup("TWICE")
	assert.Equal(1, len(ops))
	assert.Equal(ops[0], reg.Get(ops[0].ID))
	assert.Nil(reg.Get(ID(-1)))
	assert.Nil(reg.Get(ID(reg.Len())))

	assert.Equal("AND", reg.MustResolve("and", types.Boolean, types.Boolean).Name)
	assert.Panics(func() { reg.MustResolve("nope") })
	assert.Panics(func() { NewBuilder().Register("", 1, KindFunction, NumericUnary) })
}

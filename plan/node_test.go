package plan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = operator.Standard()

func entry(t *testing.T, name string) *catalog.Entry {
	e, err := testCatalog(t).Lookup(name)
	require.NoError(t, err)
	return e
}

func TestJoinSchema(t *testing.T) {
	assert := assert.New(t)
	l, r := NewScan(entry(t, "t"), ""), NewScan(entry(t, "u"), "")

	nullable := func(n Node) []bool {
		out := []bool{}
		for _, c := range n.Schema() {
			out = append(out, c.Nullable)
		}
		return out
	}

	assert.Equal([]bool{false, false, false, false}, nullable(NewJoin(JoinInner, l, r, nil)))
	assert.Equal([]bool{false, false, true, true}, nullable(NewJoin(JoinLeft, l, r, nil)))
	assert.Equal([]bool{true, true, false, false}, nullable(NewJoin(JoinRight, l, r, nil)))
	assert.Equal([]bool{true, true, true, true}, nullable(NewJoin(JoinFull, l, r, nil)))
	assert.Equal([]string{"a", "b", "a", "c"}, NewJoin(JoinInner, l, r, nil).Schema().Names())
}

func TestIdentity(t *testing.T) {
	assert := assert.New(t)
	s := NewScan(entry(t, "t"), "")

	assert.True(NewIdentity(s, 0, 1).IsIdentity())
	assert.False(NewIdentity(s, 1, 0).IsIdentity())
	assert.False(NewIdentity(s, 0).IsIdentity())

	renamed := NewProject(
		s,
		[]scalar.Expr{
			scalar.Col(0, "a", types.Integer),
			scalar.Col(1, "b", types.Integer),
		},
		[]string{"a", "x"},
	)
	assert.False(renamed.IsIdentity())
	assert.Equal("Project(a, x=b)", renamed.String())
	assert.Equal("Project(a=$0, x=$1)", renamed.Digest())
}

func TestWithInputs(t *testing.T) {
	assert := assert.New(t)
	s := NewScan(entry(t, "t"), "")
	s2 := NewScan(entry(t, "t"), "x")

	gt := reg.MustResolve(operator.Gt, types.Integer, types.Integer)
	cond := scalar.NewCall(gt, types.Boolean, scalar.Col(0, "a", types.Integer), scalar.Int(1))

	f := NewFilter(s, cond)
	f2 := f.WithInputs([]Node{s2}).(*Filter)
	assert.Equal(f.Digest(), f2.Digest())
	assert.Equal(s2, f2.Input)
	assert.Equal(s, f.Input)

	assert.Equal("Scan(t as t)", s.Digest())
	assert.Equal("Scan(t as x)", s2.Digest())
	assert.Equal("Scan(table=t, alias=x)", s2.String())
}

func TestCheck(t *testing.T) {
	assert := assert.New(t)
	s := NewScan(entry(t, "t"), "")
	gt := reg.MustResolve(operator.Gt, types.Integer, types.Integer)

	good := NewFilter(s, scalar.NewCall(gt, types.Boolean, scalar.Col(1, "b", types.Integer), scalar.Int(1)))
	assert.NoError(Check(good))

	outOfRange := NewFilter(s, scalar.NewCall(gt, types.Boolean, scalar.Col(5, "z", types.Integer), scalar.Int(1)))
	err := Check(outOfRange)
	assert.Error(err)
	assert.True(errors.HasAssertionFailure(err))

	notBoolean := NewFilter(s, scalar.Col(0, "a", types.Integer))
	assert.Error(Check(notBoolean))

	wrongType := NewProject(s, []scalar.Expr{scalar.Col(0, "a", types.String)}, []string{"a"})
	assert.Error(Check(wrongType))

	badSort := NewSort(s, []SortKey{{Index: 2}})
	assert.Error(Check(badSort))

	// errors of an input are found as well
	assert.Error(Check(NewLimit(NewIdentity(outOfRange, 0), 3)))
}

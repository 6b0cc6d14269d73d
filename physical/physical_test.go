package physical

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = operator.Standard()

func customer(t *testing.T) *catalog.Entry {
	cat, err := catalog.NewBuilder(false).Add(catalog.TPCH("/idx", 1)...).Build()
	require.NoError(t, err)
	e, err := cat.Lookup("customer")
	require.NoError(t, err)
	return e
}

func lt(col int, name string, v int64) scalar.Expr {
	op := reg.MustResolve(operator.Lt, types.Integer, types.Integer)
	return scalar.NewCall(op, types.Boolean, scalar.Col(col, name, types.Integer), scalar.Int(v))
}

// Project(c_name) <- Converter <- NativeScan(pushed c_custkey < 3)
func pushedPlan(t *testing.T) Node {
	scan := NewNativeScan(customer(t), "customer", []scalar.Expr{lt(0, "c_custkey", 3)}, nil)
	conv := &Converter{
		Input: scan,
		From:  Native,
		To:    Row,
	}
	return NewProject(conv, []scalar.Expr{scalar.Col(1, "c_name", types.String)}, []string{"c_name"})
}

func TestNativeScan(t *testing.T) {
	assert := assert.New(t)
	e := customer(t)

	full := NewNativeScan(e, "customer", nil, nil)
	assert.Equal(e.Schema, full.Schema())
	assert.Equal("NativeScan(table=customer)", full.String())

	narrow := NewNativeScan(e, "c", []scalar.Expr{lt(0, "c_custkey", 3)}, []int{1, 3})
	assert.Equal([]string{"c_name", "c_nationkey"}, narrow.Schema().Names())
	assert.Equal("NativeScan(table=customer as c, pushed=[(c_custkey < 3)], columns=[c_name, c_nationkey])", narrow.String())
	assert.Equal(Native, narrow.Convention())
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)
	e := customer(t)

	assert.NoError(Validate(pushedPlan(t)))

	// a row operator may not read a native input directly
	scan := NewNativeScan(e, "customer", nil, nil)
	bad := &Filter{
		Input:     scan,
		Condition: lt(0, "c_custkey", 3),
	}
	err := Validate(bad)
	assert.Error(err)
	assert.True(errors.HasAssertionFailure(err))

	// converter input must match its source convention
	wrong := &Converter{
		Input: &TableScan{Table: "customer", Alias: "customer", Entry: e},
		From:  Native,
		To:    Row,
	}
	assert.Error(Validate(wrong))

	// the error is found below the root too
	assert.Error(Validate(&Limit{Input: bad, Count: 1}))

	join := NewHashJoin(
		plan.JoinInner,
		&TableScan{Table: "customer", Alias: "a", Entry: e},
		&TableScan{Table: "customer", Alias: "b", Entry: e},
		[]EquiKey{{Left: 0, Right: 0}},
		nil,
	)
	assert.NoError(Validate(join))
	assert.Equal(16, join.Schema().Len())
}

func TestExplain(t *testing.T) {
	assert := assert.New(t)
	n := pushedPlan(t)

	assert.Equal(
		`Project(c_name) :: ROW
  Converter(from=NATIVE, to=ROW) :: ROW
    NativeScan(table=customer, pushed=[(c_custkey < 3)]) :: NATIVE
`,
		Explain(n, ExplainOptions{}),
	)

	annotated := Explain(n, ExplainOptions{
		Annotate: func(x Node) string {
			if x.Op() == OpNativeScan {
				return "(rows=1)"
			}
			return ""
		},
	})
	assert.Contains(annotated, ":: NATIVE (rows=1)\n")
	assert.Contains(annotated, "Project(c_name) :: ROW\n")

	colored := Explain(n, ExplainOptions{Color: true})
	assert.Contains(colored, "\x1b[")
	assert.Contains(colored, "NativeScan(table=customer, pushed=[(c_custkey < 3)])")
}

func TestCount(t *testing.T) {
	assert := assert.New(t)
	n := pushedPlan(t)
	assert.Equal(1, Count(n, OpNativeScan))
	assert.Equal(1, Count(n, OpConverter))
	assert.Equal(0, Count(n, OpFilter))

	m := n.WithInputs([]Node{&Values{}})
	assert.Equal(0, Count(m, OpNativeScan))
	assert.Equal(1, Count(n, OpNativeScan))
}

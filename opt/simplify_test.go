package opt

import (
	"testing"

	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanOf(t *testing.T, name string) *plan.Scan {
	e, err := testCatalog(t).Lookup(name)
	require.NoError(t, err)
	return plan.NewScan(e, name)
}

func cmpOp(name string, col int, colName string, v int64) scalar.Expr {
	op := reg.MustResolve(name, types.Integer, types.Integer)
	return scalar.NewCall(op, types.Boolean, scalar.Col(col, colName, types.Integer), scalar.Int(v))
}

func TestSimplifyRules(t *testing.T) {
	assert := assert.New(t)
	s := NewSimplifier(reg)
	scan := scanOf(t, "t")

	// filter(TRUE) disappears
	assert.Equal(plan.Node(scan), s.Simplify(plan.NewFilter(scan, scalar.Bool(true))))

	// stacked filters become one conjunction, inner predicate first
	p := cmpOp(operator.Eq, 0, "a", 1)
	q := cmpOp(operator.Gt, 1, "b", 2)
	merged := s.Simplify(plan.NewFilter(plan.NewFilter(scan, p), q))
	f, ok := merged.(*plan.Filter)
	require.True(t, ok)
	assert.Equal(plan.Node(scan), f.Input)
	assert.Equal("((a = 1) AND (b > 2))", f.Condition.String())

	// identity project disappears
	assert.Equal(plan.Node(scan), s.Simplify(plan.NewIdentity(scan, 0, 1)))

	// projects merge, inner expressions inlined
	inner := plan.NewIdentity(scan, 1, 0)
	outer := plan.NewProject(inner, []scalar.Expr{scalar.Col(1, "a", types.Integer)}, []string{"x"})
	out := s.Simplify(outer)
	pr, ok := out.(*plan.Project)
	require.True(t, ok)
	assert.Equal(plan.Node(scan), pr.Input)
	assert.Equal("Project(x=$0)", pr.Digest())
}

func TestSimplifyIdempotent(t *testing.T) {
	s := NewSimplifier(reg)
	for _, text := range []string{
		"SELECT c_name FROM customer WHERE c_custkey < 3",
		"SELECT a, b FROM s WHERE a = 1 AND b > 2",
		"SELECT DISTINCT a FROM t ORDER BY a",
		`SELECT o_custkey, COUNT(*) AS n FROM orders
		 GROUP BY o_custkey HAVING COUNT(*) > 1 ORDER BY n DESC LIMIT 3`,
		`SELECT c_name, o_orderkey FROM customer
		 INNER JOIN orders ON c_custkey = o_custkey WHERE o_orderkey > 10`,
	} {
		once := logical(t, text)
		twice := s.Simplify(once)
		if diff := cmp.Diff(plan.Explain(once), plan.Explain(twice)); diff != "" {
			t.Errorf("%s\n%s", text, diff)
		}
		assert.NoError(t, plan.Check(twice), text)
		assert.True(t, once.Schema().Equal(twice.Schema()), text)
	}
}

func TestSimplifyKeepsSchema(t *testing.T) {
	code := "SELECT c_name FROM customer WHERE c_custkey < 3"
	n := logical(t, code)
	p, ok := n.(*plan.Project)
	require.True(t, ok, plan.Explain(n))
	assert.Equal(t, []string{"c_name"}, p.Schema().Names())
	assert.Equal(t, plan.KindFilter, p.Input.Kind())
}

package opt

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/sema"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = operator.Extended()

// TPC-H plus s(a, b), a store able to evaluate predicates on a only, and
// t(a, b) which can push nothing down
func testCatalog(t *testing.T) *catalog.Catalog {
	cat, err := catalog.NewBuilder(false).
		Add(catalog.TPCH("/idx", 1)...).
		Add(
			catalog.TableDef{
				Name: "s",
				Columns: []types.Column{
					{Name: "a", Type: types.Integer},
					{Name: "b", Type: types.Integer},
				},
				Handle: &catalog.IndexedSource{
					Loc:        "/idx/s",
					Rows:       1000,
					Filter:     true,
					Projection: true,
					Indexed:    mapset.NewThreadUnsafeSet(0),
				},
			},
			catalog.TableDef{
				Name: "t",
				Columns: []types.Column{
					{Name: "a", Type: types.Integer},
					{Name: "b", Type: types.Integer},
				},
			},
		).
		Build()
	require.NoError(t, err)
	return cat
}

func logical(t *testing.T, text string) plan.Node {
	code, err := sql.Parse(text)
	require.NoError(t, err, text)
	q, err := sema.New(testCatalog(t), reg).Validate(code)
	require.NoError(t, err, text)
	n, err := plan.Build(q)
	require.NoError(t, err, text)
	return NewSimplifier(reg).Simplify(n)
}

func optimize(t *testing.T, mode Mode, text string) *Result {
	res, err := New(mode.Rules(), DefaultOptions()).Optimize(logical(t, text))
	require.NoError(t, err, text)
	return res
}

func doTestPlan(t *testing.T, mode Mode, expected string, text string) {
	res := optimize(t, mode, text)
	if diff := cmp.Diff(expected, physical.Explain(res.Plan, physical.ExplainOptions{})); diff != "" {
		t.Errorf("%s: %s\n%s", mode, text, diff)
	}
}

func TestFilterPushdown(t *testing.T) {
	doTestPlan(t, ModePushdown,
		`Project(c_name) :: ROW
  Converter(from=NATIVE, to=ROW) :: ROW
    NativeScan(table=customer, pushed=[(c_custkey < 3)]) :: NATIVE
`,
		"SELECT c_name FROM customer WHERE c_custkey < 3",
	)
}

func TestFilterSplit(t *testing.T) {
	doTestPlan(t, ModePushdown,
		`Filter(condition=(b > 2)) :: ROW
  Converter(from=NATIVE, to=ROW) :: ROW
    NativeScan(table=s, pushed=[(a = 1)]) :: NATIVE
`,
		"SELECT a, b FROM s WHERE a = 1 AND b > 2",
	)

	// nothing expressible, nothing pushed
	res := optimize(t, ModePushdown, "SELECT a, b FROM s WHERE b > 2")
	for _, n := range collect(res.Plan, physical.OpNativeScan) {
		assert.Empty(t, n.(*physical.NativeScan).Pushed)
	}
}

func TestModes(t *testing.T) {
	assert := assert.New(t)
	text := "SELECT c_name FROM customer WHERE c_custkey < 3"

	simple := optimize(t, ModeSimple, text)
	assert.Equal(0, physical.Count(simple.Plan, physical.OpNativeScan))
	assert.Equal(0, physical.Count(simple.Plan, physical.OpConverter))
	assert.Equal(1, physical.Count(simple.Plan, physical.OpTableScan))

	advanced := optimize(t, ModeAdvanced, text)
	assert.Equal(1, physical.Count(advanced.Plan, physical.OpNativeScan))
	assert.Equal(1, physical.Count(advanced.Plan, physical.OpConverter))
	assert.Equal(1, physical.Count(advanced.Plan, physical.OpFilter))
	for _, n := range collect(advanced.Plan, physical.OpNativeScan) {
		assert.Empty(n.(*physical.NativeScan).Pushed)
	}

	pushdown := optimize(t, ModePushdown, text)
	assert.Equal(0, physical.Count(pushdown.Plan, physical.OpFilter))

	// every mode adds rules, so the plan never gets worse
	assert.False(advanced.Cost.Less(pushdown.Cost))
	assert.False(simple.Cost.Less(advanced.Cost))
}

func TestNoPushdownSupport(t *testing.T) {
	res := optimize(t, ModePushdown, "SELECT a FROM t WHERE a = 1")
	for _, n := range collect(res.Plan, physical.OpNativeScan) {
		ns := n.(*physical.NativeScan)
		assert.Empty(t, ns.Pushed)
		assert.Nil(t, ns.Columns)
	}
}

func TestProjectPushdown(t *testing.T) {
	assert := assert.New(t)
	res := optimize(t, ModePushdown, "SELECT c_name, c_phone FROM customer")

	scans := collect(res.Plan, physical.OpNativeScan)
	require.Len(t, scans, 1)
	ns := scans[0].(*physical.NativeScan)
	assert.Equal([]int{1, 4}, ns.Columns)
	assert.Equal([]string{"c_name", "c_phone"}, res.Plan.Schema().Names())
}

func TestProjectNarrow(t *testing.T) {
	assert := assert.New(t)
	res := optimize(t, ModePushdown, "SELECT c_custkey + 1 AS k FROM customer")

	scans := collect(res.Plan, physical.OpNativeScan)
	require.Len(t, scans, 1)
	assert.Equal([]int{0}, scans[0].(*physical.NativeScan).Columns)
	assert.Equal(physical.OpProject, res.Plan.Op())
	assert.Equal([]string{"k"}, res.Plan.Schema().Names())
}

func TestValues(t *testing.T) {
	doTestPlan(t, ModePushdown,
		`Project(EXPR$0=ADD(2, 4)) :: ROW
  Values(rows=1) :: ROW
`,
		"SELECT ADD(2, 4)",
	)
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	text := `SELECT c_name, o_orderkey FROM customer
	         INNER JOIN orders ON c_custkey = o_custkey`

	for _, mode := range []Mode{ModeSimple, ModeAdvanced, ModePushdown} {
		res := optimize(t, mode, text)
		assert.Equal(1, physical.Count(res.Plan, physical.OpHashJoin), mode)
		assert.Equal(0, physical.Count(res.Plan, physical.OpNestedLoopJoin), mode)
		assert.Equal([]string{"c_name", "o_orderkey"}, res.Plan.Schema().Names())
	}

	// no equi key, no hash join
	res := optimize(t, ModeSimple, "SELECT c_name FROM customer INNER JOIN nation ON c_nationkey < n_nationkey")
	assert.Equal(1, physical.Count(res.Plan, physical.OpNestedLoopJoin))
	assert.Equal(0, physical.Count(res.Plan, physical.OpHashJoin))
}

func TestFilterIntoJoin(t *testing.T) {
	assert := assert.New(t)
	text := `SELECT c.c_name, o.o_orderkey FROM customer c
	         INNER JOIN orders o ON c.c_custkey = o.o_custkey WHERE c.c_custkey < 3`

	res := optimize(t, ModePushdown, text)
	assert.Equal(0, physical.Count(res.Plan, physical.OpFilter))
	assert.Equal(1, physical.Count(res.Plan, physical.OpHashJoin))
	pushed := []string{}
	for _, n := range collect(res.Plan, physical.OpNativeScan) {
		for _, p := range n.(*physical.NativeScan).Pushed {
			pushed = append(pushed, p.String())
		}
	}
	assert.Equal([]string{"(c_custkey < 3)"}, pushed)

	// without pushdown the filter still goes below the join
	res = optimize(t, ModeSimple, text)
	filters := collect(res.Plan, physical.OpFilter)
	if assert.Len(filters, 1) {
		assert.Equal(physical.OpTableScan, filters[0].(*physical.Filter).Input.Op())
	}
}

func TestCommaJoin(t *testing.T) {
	assert := assert.New(t)

	for _, mode := range []Mode{ModeSimple, ModeAdvanced, ModePushdown} {
		res := optimize(t, mode, `SELECT n_name, r_name FROM nation, region
		                          WHERE n_regionkey = r_regionkey`)
		assert.Equal(1, physical.Count(res.Plan, physical.OpHashJoin), mode)
		assert.Equal(0, physical.Count(res.Plan, physical.OpNestedLoopJoin), mode)
		assert.Equal(0, physical.Count(res.Plan, physical.OpFilter), mode)
	}

	res := optimize(t, ModePushdown, `SELECT c_name, n_name, r_name FROM nation, region, customer
	                                  WHERE n_regionkey = r_regionkey AND c_nationkey = n_nationkey`)
	assert.Equal(2, physical.Count(res.Plan, physical.OpHashJoin))
	assert.Equal(0, physical.Count(res.Plan, physical.OpNestedLoopJoin))
	assert.Equal([]string{"c_name", "n_name", "r_name"}, res.Plan.Schema().Names())
	assert.NoError(physical.Validate(res.Plan))
}

func TestFilterAboveOuterJoin(t *testing.T) {
	assert := assert.New(t)
	res := optimize(t, ModeSimple, `SELECT c_name FROM customer
	                                LEFT JOIN orders ON c_custkey = o_custkey WHERE o_orderkey > 10`)
	filters := collect(res.Plan, physical.OpFilter)
	if assert.Len(filters, 1) {
		in := filters[0].(*physical.Filter).Input.Op()
		assert.True(in == physical.OpHashJoin || in == physical.OpNestedLoopJoin, in)
	}
}

func TestAggregate(t *testing.T) {
	assert := assert.New(t)
	res := optimize(t, ModePushdown, `SELECT o_custkey, COUNT(*) FROM orders
	                                   GROUP BY o_custkey ORDER BY o_custkey LIMIT 10`)
	assert.Equal(physical.OpLimit, res.Plan.Op())
	assert.Equal(1, physical.Count(res.Plan, physical.OpHashAggregate))
	assert.Equal(1, physical.Count(res.Plan, physical.OpSort))
	assert.NoError(physical.Validate(res.Plan))
}

func TestMemoSchemas(t *testing.T) {
	for _, text := range []string{
		"SELECT c_name FROM customer WHERE c_custkey < 3",
		"SELECT a, b FROM s WHERE a = 1 AND b > 2",
		"SELECT c_custkey + 1 AS k FROM customer",
		`SELECT c_name, o_orderkey FROM customer
		 INNER JOIN orders ON c_custkey = o_custkey WHERE o_orderkey > 10`,
		`SELECT c_name, n_name, r_name FROM nation, region, customer
		 WHERE n_regionkey = r_regionkey AND c_nationkey = n_nationkey AND c_custkey + n_nationkey > 3`,
	} {
		_, m, err := New(PushdownRules, DefaultOptions()).optimize(logical(t, text))
		require.NoError(t, err, text)

		for _, x := range m.members {
			schema := m.group(x.group).schema
			if x.isPhysical() {
				assert.True(t, schema.Equal(x.physical.Schema()), "%s: %s", text, x)
			} else {
				assert.True(t, schema.Equal(x.logical.Schema()), "%s: %s", text, x)
			}
		}
	}
}

func TestBestCost(t *testing.T) {
	for _, mode := range []Mode{ModeSimple, ModeAdvanced, ModePushdown} {
		res := optimize(t, mode, `SELECT c_name, o_orderkey FROM customer
		                          INNER JOIN orders ON c_custkey = o_custkey WHERE c_custkey < 100`)
		require.NotEmpty(t, res.Stats.RootCandidates)
		for _, c := range res.Stats.RootCandidates {
			assert.False(t, c.Less(res.Cost), "%s: %s beats %s", mode, c, res.Cost)
		}

		c, ok := res.CostOf(res.Plan)
		assert.True(t, ok)
		assert.Equal(t, res.Cost, c)
		assert.Greater(t, res.Stats.Passes, 0)
		assert.LessOrEqual(t, res.Stats.Passes, DefaultMaxIterations)
	}
}

func TestDeterminism(t *testing.T) {
	text := `SELECT c_name, o_orderkey FROM customer
	         INNER JOIN orders ON c_custkey = o_custkey WHERE o_orderkey > 10`
	first := optimize(t, ModePushdown, text).Explain(false)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, optimize(t, ModePushdown, text).Explain(false)); diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestNoPlan(t *testing.T) {
	_, err := New(&RuleSet{Name: "empty"}, DefaultOptions()).Optimize(logical(t, "SELECT a FROM t"))
	assert.Error(t, err)
	assert.Equal(t, sqlerr.NoPlanFound, sqlerr.CodeOf(err))
}

func TestMaxIterations(t *testing.T) {
	o := New(PushdownRules, Options{MaxIterations: 0})
	res, err := o.Optimize(logical(t, "SELECT c_name FROM customer WHERE c_custkey < 3"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Passes)
}

func TestExplainCost(t *testing.T) {
	res := optimize(t, ModeSimple, "SELECT a FROM t")
	out := res.Explain(false)
	assert.Contains(t, out, "TableScan(table=t) :: ROW (rows=100, cpu=100.00)\n")
}

func TestParseMode(t *testing.T) {
	assert := assert.New(t)
	for _, mode := range []Mode{ModeSimple, ModeAdvanced, ModePushdown} {
		m, err := ParseMode(mode.String())
		assert.NoError(err)
		assert.Equal(mode, m)
	}
	m, err := ParseMode(" PushDown ")
	assert.NoError(err)
	assert.Equal(ModePushdown, m)

	_, err = ParseMode("fast")
	assert.Error(err)
}

func collect(n physical.Node, op physical.Op) []physical.Node {
	out := []physical.Node{}
	physical.Walk(n, func(x physical.Node) {
		if x.Op() == op {
			out = append(out, x)
		}
	})
	return out
}

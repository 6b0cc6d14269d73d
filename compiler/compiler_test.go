package compiler

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testCompiler(t *testing.T, mode opt.Mode, reg prometheus.Registerer) *Compiler {
	cat, err := catalog.NewBuilder(false).Add(catalog.TPCH("/idx", 1)...).Build()
	require.NoError(t, err)
	c, err := New(cat, operator.Extended(), Options{
		Mode:       mode,
		Optimizer:  opt.DefaultOptions(),
		Registerer: reg,
	})
	require.NoError(t, err)
	return c
}

func TestCompile(t *testing.T) {
	assert := assert.New(t)
	c := testCompiler(t, opt.ModePushdown, nil)

	out, err := c.Compile("SELECT c_name FROM customer WHERE c_custkey < 3")
	require.NoError(t, err)
	assert.NotNil(out.Parsed)
	assert.Equal([]string{"c_name"}, out.Query.Schema.Names())
	assert.Equal(`Project(c_name)
  Filter(condition=(c_custkey < 3))
    Scan(table=customer)
`, plan.Explain(out.Simple))
	assert.Equal(`Project(c_name) :: ROW
  Converter(from=NATIVE, to=ROW) :: ROW
    NativeScan(table=customer, pushed=[(c_custkey < 3)]) :: NATIVE
`, physical.Explain(out.Physical, physical.ExplainOptions{}))
	assert.Equal(out.Result.Plan, out.Physical)
}

func TestStageErrors(t *testing.T) {
	assert := assert.New(t)
	c := testCompiler(t, opt.ModeSimple, nil)

	_, err := c.Compile("SELECT FROM")
	assert.Equal(sqlerr.ParseError, sqlerr.CodeOf(err))
	assert.Contains(err.Error(), "parse")

	_, err = c.Compile("SELECT x FROM nosuchtable")
	assert.Equal(sqlerr.UnknownTable, sqlerr.CodeOf(err))
	assert.Contains(err.Error(), "validate")
	e, ok := sqlerr.Get(err)
	if assert.True(ok) {
		assert.Equal("nosuchtable", e.Ident)
	}

	_, err = c.Compile("SELECT n_name FROM nation WHERE n_name + 1")
	assert.Error(err)
	assert.False(errors.HasAssertionFailure(err))
}

func TestMetrics(t *testing.T) {
	assert := assert.New(t)
	reg := prometheus.NewRegistry()
	c := testCompiler(t, opt.ModeAdvanced, reg)

	for i := 0; i < 3; i++ {
		_, err := c.Compile("SELECT n_name FROM nation")
		require.NoError(t, err)
	}
	_, err := c.Compile("SELECT x FROM nosuchtable")
	require.Error(t, err)

	assert.Equal(3.0, testutil.ToFloat64(c.metrics.compiles.WithLabelValues("advanced", "ok")))
	assert.Equal(1.0, testutil.ToFloat64(c.metrics.compiles.WithLabelValues("advanced", "UnknownTable")))
	assert.Equal(2, testutil.CollectAndCount(c.metrics.compiles))
	assert.Equal(1, testutil.CollectAndCount(c.metrics.passes))

	// the same registry cannot take a second compiler
	cat, err := catalog.NewBuilder(false).Build()
	require.NoError(t, err)
	_, err = New(cat, operator.Standard(), Options{Registerer: reg})
	assert.Error(err)
}

func TestConcurrentCompile(t *testing.T) {
	c := testCompiler(t, opt.ModePushdown, prometheus.NewRegistry())
	queries := []string{
		"SELECT c_name FROM customer WHERE c_custkey < 3",
		`SELECT c_name, o_orderkey FROM customer
		 INNER JOIN orders ON c_custkey = o_custkey WHERE o_orderkey > 10`,
		`SELECT o_custkey, COUNT(*) AS n FROM orders
		 GROUP BY o_custkey ORDER BY n DESC LIMIT 5`,
		"SELECT ADD(2, 4)",
	}

	expected := make([]string, 0, len(queries))
	for _, q := range queries {
		out, err := c.Compile(q)
		require.NoError(t, err)
		expected = append(expected, out.Result.Explain(false))
	}

	g := errgroup.Group{}
	for i := 0; i < 8; i++ {
		for j, q := range queries {
			j, q := j, q
			g.Go(func() error {
				out, err := c.Compile(q)
				if err != nil {
					return err
				}
				if got := out.Result.Explain(false); got != expected[j] {
					return errors.Newf("%s: plan changed\n%s\n%s", q, expected[j], got)
				}
				return nil
			})
		}
	}
	assert.NoError(t, g.Wait())
}

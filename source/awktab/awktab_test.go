package awktab

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sema"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reg = operator.Standard()

const fruitData = `id,name,price,day
1,apple,1.5,2024-01-02
2,banana,0.25,2024-02-03
3,cherry,4,2024-03-04
4,,2,2024-04-05
`

func fruitCatalog(t *testing.T) *catalog.Catalog {
	path := filepath.Join(t.TempDir(), "fruit.csv")
	require.NoError(t, os.WriteFile(path, []byte(fruitData), 0644))

	cat, err := catalog.NewBuilder(false).
		Add(catalog.TableDef{
			Name: "fruit",
			Columns: []types.Column{
				{Name: "id", Type: types.Integer},
				{Name: "name", Type: types.String, Nullable: true},
				{Name: "price", Type: types.Float},
				{Name: "day", Type: types.Date},
			},
			Location: path,
			Handle: &Source{
				Path: path,
				Skip: 1,
				Rows: 4,
			},
		}).
		Build()
	require.NoError(t, err)
	return cat
}

func fruit(t *testing.T) *catalog.Entry {
	e, err := fruitCatalog(t).Lookup("fruit")
	require.NoError(t, err)
	return e
}

func compare(name string, col int, colName string, lit *scalar.Literal) scalar.Expr {
	op := reg.MustResolve(name, types.Integer, types.Integer)
	return scalar.NewCall(op, types.Boolean, scalar.Col(col, colName, types.Integer), lit)
}

func like(col int, colName string, pattern string) scalar.Expr {
	op := reg.MustResolve(operator.Like, types.String, types.String)
	return scalar.NewCall(op, types.Boolean, scalar.Col(col, colName, types.String), scalar.Str(pattern))
}

func readAll(t *testing.T, scan *physical.NativeScan) [][]interface{} {
	rows, err := Open(context.Background(), scan)
	require.NoError(t, err)
	out := [][]interface{}{}
	for rows.Next() {
		out = append(out, rows.Values())
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	return out
}

func TestCanExpress(t *testing.T) {
	assert := assert.New(t)
	s := &Source{}

	assert.True(s.CanExpress(scalar.Col(0, "id", types.Integer)))
	assert.True(s.CanExpress(compare(operator.Eq, 0, "id", scalar.Int(1))))
	assert.True(s.CanExpress(compare(operator.Ne, 1, "name", scalar.Str("x"))))
	assert.True(s.CanExpress(like(1, "name", "b%")))
	assert.False(s.CanExpress(compare(operator.Eq, 0, "id", scalar.Null())))
	assert.False(s.CanExpress(compare(operator.Eq, 0, "id", scalar.Bool(true))))
	assert.False(s.CanExpress(scalar.Int(1)))

	isNull := reg.MustResolve(operator.IsNull, types.String)
	assert.True(s.CanExpress(scalar.NewCall(isNull, types.Boolean, scalar.Col(1, "name", types.String))))

	or := reg.MustResolve(operator.Or, types.Boolean, types.Boolean)
	assert.True(s.CanExpress(scalar.NewCall(or, types.Boolean,
		compare(operator.Lt, 0, "id", scalar.Int(2)),
		like(1, "name", "c%"),
	)))

	add := reg.MustResolve(operator.Add, types.Integer, types.Integer)
	eq := reg.MustResolve(operator.Eq, types.Integer, types.Integer)
	sum := scalar.NewCall(add, types.Integer, scalar.Col(0, "id", types.Integer), scalar.Int(1))
	assert.False(s.CanExpress(scalar.NewCall(eq, types.Boolean, sum, scalar.Int(3))))
}

func TestEstimatedRowCount(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(int64(7), (&Source{Rows: 7}).EstimatedRowCount())
	assert.Equal(int64(catalog.DefaultRowCount), (&Source{Path: "/no/such/file"}).EstimatedRowCount())

	e := fruit(t)
	s := &Source{Path: e.Handle.Location()}
	assert.Equal(int64(1), s.EstimatedRowCount())
}

func TestRender(t *testing.T) {
	assert := assert.New(t)
	e := fruit(t)

	scan := physical.NewNativeScan(e, "fruit",
		[]scalar.Expr{
			compare(operator.Gt, 0, "id", scalar.Int(1)),
			like(1, "name", "b%"),
		},
		[]int{1, 2},
	)
	code, err := Render(scan)
	assert.NoError(err)
	assert.Equal(`FNR <= 1 {
  next
}
!(($1 > 1) && ($2 != "" && ($2 ~ /^[b].*$/))) {
  next
}
{
  print $2, $3
}
`, code)

	code, err = Render(physical.NewNativeScan(e, "fruit", nil, nil))
	assert.NoError(err)
	assert.Contains(code, "print $1, $2, $3, $4")
	assert.NotContains(code, "!(")

	// dates compare as text
	x, err := renderPredicate(compare(operator.Ge, 3, "day", scalar.Date(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))), e.Schema, true)
	assert.NoError(err)
	assert.Equal(`($4 >= "2024-02-01")`, x)

	// a NULL name is neither equal nor different
	ne := compare(operator.Ne, 1, "name", scalar.Str("apple"))
	x, err = renderPredicate(ne, e.Schema, true)
	assert.NoError(err)
	assert.Equal(`($2 != "" && ($2 != "apple"))`, x)
	x, err = renderPredicate(ne, e.Schema, false)
	assert.NoError(err)
	assert.Equal(`($2 != "" && !($2 != "apple"))`, x)

	x, err = renderPredicate(scalar.Bool(true), e.Schema, true)
	assert.NoError(err)
	assert.Equal("1", x)

	_, err = renderPredicate(scalar.Int(1), e.Schema, true)
	assert.Error(err)

	other, err := catalog.NewBuilder(false).Add(catalog.TPCH("/idx", 1)...).Build()
	require.NoError(t, err)
	nation, err := other.Lookup("nation")
	require.NoError(t, err)
	_, err = Render(physical.NewNativeScan(nation, "nation", nil, nil))
	assert.Error(err)
}

func TestScan(t *testing.T) {
	assert := assert.New(t)
	e := fruit(t)

	all := readAll(t, physical.NewNativeScan(e, "fruit", nil, nil))
	if assert.Len(all, 4) {
		assert.Equal([]interface{}{
			int64(1), "apple", 1.5, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}, all[0])
		assert.Nil(all[3][1])
	}

	some := readAll(t, physical.NewNativeScan(e, "fruit",
		[]scalar.Expr{
			compare(operator.Gt, 0, "id", scalar.Int(1)),
			compare(operator.Lt, 2, "price", scalar.Float(3)),
		},
		[]int{1},
	))
	assert.Equal([][]interface{}{{"banana"}, {nil}}, some)

	none := readAll(t, physical.NewNativeScan(e, "fruit",
		[]scalar.Expr{like(1, "name", "z%")},
		[]int{0},
	))
	assert.Empty(none)
}

func TestScanNull(t *testing.T) {
	assert := assert.New(t)
	e := fruit(t)
	not := reg.MustResolve(operator.Not, types.Boolean)
	or := reg.MustResolve(operator.Or, types.Boolean, types.Boolean)
	isNull := reg.MustResolve(operator.IsNull, types.String)
	name := scalar.Col(1, "name", types.String)

	ids := func(pushed ...scalar.Expr) []interface{} {
		out := []interface{}{}
		for _, r := range readAll(t, physical.NewNativeScan(e, "fruit", pushed, []int{0})) {
			out = append(out, r[0])
		}
		return out
	}

	assert.Equal([]interface{}{int64(2), int64(3)},
		ids(compare(operator.Ne, 1, "name", scalar.Str("apple"))))
	assert.Equal([]interface{}{int64(1)},
		ids(scalar.NewCall(not, types.Boolean, compare(operator.Ne, 1, "name", scalar.Str("apple")))))
	assert.Equal([]interface{}{int64(1), int64(3)},
		ids(scalar.NewCall(not, types.Boolean, like(1, "name", "%an%"))))
	assert.Equal([]interface{}{int64(4)},
		ids(scalar.NewCall(isNull, types.Boolean, name)))
	assert.Equal([]interface{}{int64(1), int64(4)},
		ids(scalar.NewCall(or, types.Boolean,
			compare(operator.Eq, 1, "name", scalar.Str("apple")),
			scalar.NewCall(isNull, types.Boolean, name),
		)))
}

func TestCloseEarly(t *testing.T) {
	rows, err := Open(context.Background(), physical.NewNativeScan(fruit(t), "fruit", nil, []int{0}))
	require.NoError(t, err)
	assert.True(t, rows.Next())
	assert.Equal(t, []interface{}{int64(1)}, rows.Values())
	assert.NoError(t, rows.Close())
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Close())
}

func TestWideRow(t *testing.T) {
	wide := strings.Repeat("x", 200*1024)
	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,"+wide+"\n2,y\n"), 0644))
	cat, err := catalog.NewBuilder(false).
		Add(catalog.TableDef{
			Name: "wide",
			Columns: []types.Column{
				{Name: "n", Type: types.Integer},
				{Name: "text", Type: types.String},
			},
			Handle: &Source{Path: path},
		}).
		Build()
	require.NoError(t, err)
	e, err := cat.Lookup("wide")
	require.NoError(t, err)

	rows := readAll(t, physical.NewNativeScan(e, "wide", nil, nil))
	if assert.Len(t, rows, 2) {
		assert.Equal(t, wide, rows[0][1])
		assert.Equal(t, "y", rows[1][1])
	}
}

func TestBadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("1\nx\n"), 0644))
	cat, err := catalog.NewBuilder(false).
		Add(catalog.TableDef{
			Name:    "bad",
			Columns: []types.Column{{Name: "n", Type: types.Integer}},
			Handle:  &Source{Path: path},
		}).
		Build()
	require.NoError(t, err)
	e, err := cat.Lookup("bad")
	require.NoError(t, err)

	rows, err := Open(context.Background(), physical.NewNativeScan(e, "bad", nil, nil))
	require.NoError(t, err)
	defer rows.Close()
	assert.True(t, rows.Next())
	assert.False(t, rows.Next())
	assert.Error(t, rows.Err())
}

// the scan chosen by the optimizer runs as is
func TestPushedScan(t *testing.T) {
	assert := assert.New(t)
	cat := fruitCatalog(t)

	code, err := sql.Parse("SELECT name FROM fruit WHERE id > 1 AND name LIKE '%an%'")
	require.NoError(t, err)
	q, err := sema.New(cat, operator.Extended()).Validate(code)
	require.NoError(t, err)
	n, err := plan.Build(q)
	require.NoError(t, err)
	n = opt.NewSimplifier(operator.Extended()).Simplify(n)
	res, err := opt.New(opt.PushdownRules, opt.DefaultOptions()).Optimize(n)
	require.NoError(t, err)

	var scan *physical.NativeScan
	physical.Walk(res.Plan, func(x physical.Node) {
		if ns, ok := x.(*physical.NativeScan); ok {
			scan = ns
		}
	})
	require.NotNil(t, scan, physical.Explain(res.Plan, physical.ExplainOptions{}))
	assert.Len(scan.Pushed, 2)

	rows := readAll(t, scan)
	if assert.Len(rows, 1) {
		assert.Equal("banana", rows[0][1])
	}
}

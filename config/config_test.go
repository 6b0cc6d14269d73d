package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/dianpeng/sql2plan/source/awktab"
	"github.com/dianpeng/sql2plan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load("")
	require.NoError(t, err)

	mode, err := cfg.OptimizerMode()
	assert.NoError(err)
	assert.Equal(opt.ModePushdown, mode)
	assert.Equal(opt.DefaultMaxIterations, cfg.OptimizerOptions().MaxIterations)
	assert.True(cfg.TPCH)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Len(cat.Tables(), 8)
	e, err := cat.Lookup("LINEITEM")
	assert.NoError(err)
	assert.Equal("/data/tpch/lineitem", e.Handle.Location())
}

const yamlConfig = `
mode: advanced
max_iterations: 4
case_sensitive: true
tpch: false
tables:
  - name: events
    location: /idx/events
    row_count: 5000
    filter_pushdown: true
    projection_pushdown: false
    indexed: [id]
    columns:
      - {name: id, type: INTEGER}
      - {name: at, type: TIMESTAMP}
      - {name: amount, type: "DECIMAL(10,2)", nullable: true}
  - name: fruit
    source: awk
    location: /tmp/fruit.csv
    delimiter: ";"
    skip: 1
    columns:
      - {name: name, type: varchar}
`

func TestFile(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load(writeFile(t, "sql2plan.yaml", yamlConfig))
	require.NoError(t, err)

	mode, err := cfg.OptimizerMode()
	assert.NoError(err)
	assert.Equal(opt.ModeAdvanced, mode)
	assert.Equal(4, cfg.MaxIterations)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	assert.True(cat.CaseSensitive())
	assert.Len(cat.Tables(), 2)

	events, err := cat.Lookup("events")
	require.NoError(t, err)
	assert.Equal(types.Schema{
		{Name: "id", Type: types.Integer},
		{Name: "at", Type: types.Timestamp},
		{Name: "amount", Type: types.Decimal(10, 2), Nullable: true},
	}, events.Schema)

	src, ok := events.Handle.(*catalog.IndexedSource)
	require.True(t, ok)
	assert.Equal(int64(5000), src.EstimatedRowCount())
	assert.True(src.SupportsFilterPushdown())
	assert.False(src.SupportsProjectionPushdown())
	assert.True(src.Indexed.Contains(0))
	assert.False(src.Indexed.Contains(1))

	fruit, err := cat.Lookup("fruit")
	require.NoError(t, err)
	awk, ok := fruit.Handle.(*awktab.Source)
	require.True(t, ok)
	assert.Equal(";", awk.Delimiter)
	assert.Equal(1, awk.Skip)
	assert.Equal("/tmp/fruit.csv", awk.Location())

	_, err = cat.Lookup("Fruit")
	assert.Error(err)
}

func TestEnv(t *testing.T) {
	t.Setenv("SQL2PLAN_MODE", "simple")
	t.Setenv("SQL2PLAN_MAX_ITERATIONS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	mode, err := cfg.OptimizerMode()
	assert.NoError(t, err)
	assert.Equal(t, opt.ModeSimple, mode)
	assert.Equal(t, 3, cfg.MaxIterations)
}

func TestInvalid(t *testing.T) {
	for _, text := range []string{
		"mode: fastest\n",
		"max_iterations: 0\n",
	} {
		_, err := Load(writeFile(t, "bad.yaml", text))
		assert.Error(t, err, text)
	}

	_, err := Load("/no/such/config.yaml")
	assert.Error(t, err)

	for _, text := range []string{
		"tables: [{name: x, source: kafka, columns: [{name: a, type: INTEGER}]}]\n",
		"tables: [{name: x, columns: [{name: a, type: BLOB}]}]\n",
		"tables: [{name: x, indexed: [b], columns: [{name: a, type: INTEGER}]}]\n",
		"tables: [{name: x, columns: []}]\n",
	} {
		cfg, err := Load(writeFile(t, "tables.yaml", text))
		require.NoError(t, err, text)
		_, err = cfg.Catalog()
		assert.Error(t, err, text)
	}
}

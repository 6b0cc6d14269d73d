package catalog

import (
	"math"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/types"
)

type tpchTable struct {
	name    string
	rows    int64 // at scale factor 1
	columns []types.Column
}

func col(name string, ty types.Type) types.Column {
	return types.Column{
		Name:     name,
		Type:     ty,
		Nullable: true,
	}
}

var money = types.Decimal(15, 2)

var tpchTables = []tpchTable{
	{
		name: "customer",
		rows: 150000,
		columns: []types.Column{
			col("c_custkey", types.Integer),
			col("c_name", types.String),
			col("c_address", types.String),
			col("c_nationkey", types.Integer),
			col("c_phone", types.String),
			col("c_acctbal", money),
			col("c_mktsegment", types.String),
			col("c_comment", types.String),
		},
	},
	{
		name: "orders",
		rows: 1500000,
		columns: []types.Column{
			col("o_orderkey", types.Integer),
			col("o_custkey", types.Integer),
			col("o_orderstatus", types.String),
			col("o_totalprice", money),
			col("o_orderdate", types.Date),
			col("o_orderpriority", types.String),
			col("o_clerk", types.String),
			col("o_shippriority", types.Integer),
			col("o_comment", types.String),
		},
	},
	{
		name: "lineitem",
		rows: 6001215,
		columns: []types.Column{
			col("l_orderkey", types.Integer),
			col("l_partkey", types.Integer),
			col("l_suppkey", types.Integer),
			col("l_linenumber", types.Integer),
			col("l_quantity", money),
			col("l_extendedprice", money),
			col("l_discount", money),
			col("l_tax", money),
			col("l_returnflag", types.String),
			col("l_linestatus", types.String),
			col("l_shipdate", types.Date),
			col("l_commitdate", types.Date),
			col("l_receiptdate", types.Date),
			col("l_shipinstruct", types.String),
			col("l_shipmode", types.String),
			col("l_comment", types.String),
		},
	},
	{
		name: "nation",
		rows: 25,
		columns: []types.Column{
			col("n_nationkey", types.Integer),
			col("n_name", types.String),
			col("n_regionkey", types.Integer),
			col("n_comment", types.String),
		},
	},
	{
		name: "region",
		rows: 5,
		columns: []types.Column{
			col("r_regionkey", types.Integer),
			col("r_name", types.String),
			col("r_comment", types.String),
		},
	},
	{
		name: "part",
		rows: 200000,
		columns: []types.Column{
			col("p_partkey", types.Integer),
			col("p_name", types.String),
			col("p_mfgr", types.String),
			col("p_brand", types.String),
			col("p_type", types.String),
			col("p_size", types.Integer),
			col("p_container", types.String),
			col("p_retailprice", money),
			col("p_comment", types.String),
		},
	},
	{
		name: "supplier",
		rows: 10000,
		columns: []types.Column{
			col("s_suppkey", types.Integer),
			col("s_name", types.String),
			col("s_address", types.String),
			col("s_nationkey", types.Integer),
			col("s_phone", types.String),
			col("s_acctbal", money),
			col("s_comment", types.String),
		},
	},
	{
		name: "partsupp",
		rows: 800000,
		columns: []types.Column{
			col("ps_partkey", types.Integer),
			col("ps_suppkey", types.Integer),
			col("ps_availqty", types.Integer),
			col("ps_supplycost", money),
			col("ps_comment", types.String),
		},
	},
}

// TPCH returns the table definitions of the TPC-H schema stored as indexes
// under <dir>/tpch/<table>. Key and date columns are indexed, row counts are
// the ones of scale factor 1 multiplied by scale.
func TPCH(dir string, scale float64) []TableDef {
	if scale <= 0 {
		scale = 1
	}

	out := make([]TableDef, 0, len(tpchTables))
	for _, t := range tpchTables {
		indexed := mapset.NewThreadUnsafeSet[int]()
		for i, c := range t.columns {
			if strings.HasSuffix(c.Name, "key") || c.Type == types.Date {
				indexed.Add(i)
			}
		}

		loc := filepath.Join(dir, "tpch", t.name)
		out = append(out, TableDef{
			Name:     t.name,
			Columns:  t.columns,
			Location: loc,
			Handle: &IndexedSource{
				Loc:        loc,
				Rows:       max(int64(math.Round(float64(t.rows)*scale)), 1),
				Filter:     true,
				Projection: true,
				Indexed:    indexed,
			},
		})
	}
	return out
}

package plan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sema"
	"github.com/dianpeng/sql2plan/sql"
)

// Build translates a validated query into a logical plan, structurally and
// deterministically:
//
// 1) FROM becomes scans joined left deep in text order, no FROM is Values
// 2) WHERE becomes a filter
// 3) GROUP BY and aggregate calls become an aggregate, HAVING a filter on top
// 4) SELECT list becomes a project, ORDER BY keys which are not selected are
//    carried as hidden columns of the project
// 5) DISTINCT becomes an aggregate grouping every projected column
// 6) ORDER BY becomes a sort, LIMIT a limit
// 7) hidden columns are trimmed by a final project
func Build(q *sema.Query) (Node, error) {
	b := &builder{
		q: q,
	}
	n, err := b.build()
	if err != nil {
		return nil, err
	}
	if err := Check(n); err != nil {
		return nil, err
	}
	return n, nil
}

type builder struct {
	q *sema.Query
}

func joinKind(k int) JoinKind {
	switch k {
	case sql.JoinLeft:
		return JoinLeft
	case sql.JoinRight:
		return JoinRight
	case sql.JoinFull:
		return JoinFull
	default:
		return JoinInner
	}
}

func (self *builder) from() Node {
	q := self.q
	if len(q.Tables) == 0 {
		return &Values{}
	}

	var n Node = NewScan(q.Tables[0].Entry, q.Tables[0].Alias)
	for i, j := range q.Joins {
		t := q.Tables[i+1]
		n = NewJoin(joinKind(j.Kind), n, NewScan(t.Entry, t.Alias), j.On)
	}
	return n
}

func (self *builder) build() (Node, error) {
	q := self.q

	// 1) FROM
	n := self.from()

	// 2) WHERE
	if q.Where != nil {
		n = NewFilter(n, q.Where)
	}

	selects := make([]scalar.Expr, 0, len(q.Select))
	for _, item := range q.Select {
		selects = append(selects, item.Expr)
	}
	orders := make([]scalar.Expr, 0, len(q.OrderBy))
	for _, o := range q.OrderBy {
		orders = append(orders, o.Expr)
	}

	// 3) aggregation, everything above the aggregate reads its output
	if q.Aggregated {
		agg := newAggBuilder(q.GroupBy)
		agg.collect(selects...)
		agg.collect(q.Having)
		agg.collect(orders...)
		n = agg.node(n)

		var err error
		if q.Having != nil {
			having, err := agg.rewrite(q.Having)
			if err != nil {
				return nil, err
			}
			n = NewFilter(n, having)
		}
		if selects, err = agg.rewriteAll(selects); err != nil {
			return nil, err
		}
		if orders, err = agg.rewriteAll(orders); err != nil {
			return nil, err
		}
	}

	// 4) projection with hidden sort keys
	exprs := append([]scalar.Expr(nil), selects...)
	names := make([]string, 0, len(selects))
	for _, item := range q.Select {
		names = append(names, item.Name)
	}

	keys := make([]SortKey, 0, len(q.OrderBy))
	for i, o := range q.OrderBy {
		idx := o.Ordinal
		if idx < 0 {
			idx = len(exprs)
			exprs = append(exprs, orders[i])
			names = append(names, fmt.Sprintf("ORDER$%d", i))
		}
		keys = append(keys, SortKey{
			Index: idx,
			Desc:  o.Desc,
		})
	}
	n = NewProject(n, exprs, names)

	// 5) DISTINCT
	if q.Distinct {
		schema := n.Schema()
		group := make([]scalar.Expr, 0, len(schema))
		for i, c := range schema {
			group = append(group, scalar.Col(i, c.Name, c.Type))
		}
		n = NewAggregate(n, group, nil)
	}

	// 6) ORDER BY, LIMIT
	if len(keys) != 0 {
		n = NewSort(n, keys)
	}
	if q.Limit >= 0 {
		n = NewLimit(n, q.Limit)
	}

	// 7) trim hidden columns
	if len(exprs) != len(selects) {
		cols := make([]int, 0, len(selects))
		for i := range selects {
			cols = append(cols, i)
		}
		n = NewIdentity(n, cols...)
	}
	return n, nil
}

// ----------------------------------------------------------------------------
// aggBuilder collects the distinct aggregate calls of a query and rewrites
// the expressions evaluated after aggregation into references of the
// aggregate's output row
type aggBuilder struct {
	keys  []scalar.Expr
	calls []*scalar.Call
	agg   *Aggregate
}

func newAggBuilder(keys []scalar.Expr) *aggBuilder {
	return &aggBuilder{
		keys: keys,
	}
}

func (self *aggBuilder) collect(exprs ...scalar.Expr) {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		scalar.Walk(e, func(x scalar.Expr) bool {
			c, ok := x.(*scalar.Call)
			if !ok || !c.Op.IsAggregate() {
				return true
			}
			if self.callIndex(c) < 0 {
				self.calls = append(self.calls, c)
			}
			return false
		})
	}
}

func (self *aggBuilder) callIndex(c *scalar.Call) int {
	for i, x := range self.calls {
		if scalar.Equal(x, c) {
			return i
		}
	}
	return -1
}

func (self *aggBuilder) node(input Node) Node {
	self.agg = NewAggregate(input, self.keys, self.calls)
	return self.agg
}

func (self *aggBuilder) ref(i int) scalar.Expr {
	c := self.agg.Schema()[i]
	return scalar.Col(i, c.Name, c.Type)
}

func (self *aggBuilder) rewrite(e scalar.Expr) (scalar.Expr, error) {
	for i, k := range self.keys {
		if scalar.Equal(k, e) {
			return self.ref(i), nil
		}
	}

	switch v := e.(type) {
	case *scalar.Literal:
		return v, nil

	case *scalar.Call:
		if v.Op.IsAggregate() {
			if i := self.callIndex(v); i >= 0 {
				return self.ref(len(self.keys) + i), nil
			}
			return nil, errors.AssertionFailedf("aggregate %s was not collected", v)
		}
		args, err := self.rewriteAll(v.Args)
		if err != nil {
			return nil, err
		}
		return scalar.NewCall(v.Op, v.Ty, args...), nil

	default:
		return nil, errors.AssertionFailedf("expression %s is not grouped", e)
	}
}

func (self *aggBuilder) rewriteAll(exprs []scalar.Expr) ([]scalar.Expr, error) {
	out := make([]scalar.Expr, 0, len(exprs))
	for _, e := range exprs {
		x, err := self.rewrite(e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

package sema

import (
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/sqlerr"
)

// Grouping rules of an aggregated query:
//
// 1) no aggregate in WHERE, ON or GROUP BY, checked while translating
// 2) aggregate calls are not nested, checked while translating
// 3) SELECT, HAVING and ORDER BY only reference a column inside of an
//    aggregate call or inside of a sub expression that is a GROUP BY key
//
// A DISTINCT query additionally requires its ORDER BY keys to be selected.

func (self *validation) hasAggregate() bool {
	q := self.query
	for _, item := range q.Select {
		if scalar.HasAggregate(item.Expr) {
			return true
		}
	}
	for _, o := range q.OrderBy {
		if scalar.HasAggregate(o.Expr) {
			return true
		}
	}
	return q.Having != nil && scalar.HasAggregate(q.Having)
}

// ungrouped returns the first column reference of e that is neither inside
// of an aggregate nor inside of a grouping key
func (self *validation) ungrouped(e scalar.Expr) *scalar.ColumnRef {
	for _, g := range self.query.GroupBy {
		if scalar.Equal(g, e) {
			return nil
		}
	}

	switch v := e.(type) {
	case *scalar.ColumnRef:
		return v
	case *scalar.Call:
		if v.Op.IsAggregate() {
			return nil
		}
		for _, a := range v.Args {
			if c := self.ungrouped(a); c != nil {
				return c
			}
		}
	}
	return nil
}

func (self *validation) checkGrouped(e scalar.Expr, ci sql.CodeInfo) error {
	if c := self.ungrouped(e); c != nil {
		return self.errAt(
			ci,
			sqlerr.GroupingError,
			c.Name,
			"expression '%s' is not being grouped",
			c.Name,
		)
	}
	return nil
}

func (self *validation) validateGrouping(s *sql.Select) error {
	q := self.query

	if q.Aggregated {
		for i, item := range q.Select {
			if err := self.checkGrouped(item.Expr, self.itemInfo[i]); err != nil {
				return err
			}
		}
		if q.Having != nil {
			if err := self.checkGrouped(q.Having, s.Having.Condition.CInfo()); err != nil {
				return err
			}
		}
		for i, o := range q.OrderBy {
			if err := self.checkGrouped(o.Expr, s.OrderBy.VarList[i].Value.CInfo()); err != nil {
				return err
			}
		}
	}

	if q.Distinct {
		for i, o := range q.OrderBy {
			if o.Ordinal < 0 {
				return self.errAt(
					s.OrderBy.VarList[i].Value.CInfo(),
					sqlerr.GroupingError,
					"",
					"ORDER BY expression '%s' must appear in select list of a DISTINCT query",
					o.Expr,
				)
			}
		}
	}
	return nil
}

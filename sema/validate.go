package sema

import (
	"fmt"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/golang/glog"
)

// Validator is stateless besides the catalog and the registry, which are
// both read only, so one Validator can be shared.
type Validator struct {
	Catalog  *catalog.Catalog
	Registry *operator.Registry
}

func New(cat *catalog.Catalog, reg *operator.Registry) *Validator {
	return &Validator{
		Catalog:  cat,
		Registry: reg,
	}
}

// state of validating one statement
type validation struct {
	v     *Validator
	code  *sql.Code
	query *Query

	// where each select item comes from, for diagnostics
	itemInfo []sql.CodeInfo
}

func (self *Validator) Validate(code *sql.Code) (*Query, error) {
	s := &validation{
		v:    self,
		code: code,
		query: &Query{
			Limit: -1,
		},
	}
	if err := s.validateSelect(code.Select); err != nil {
		return nil, err
	}
	if glog.V(3) {
		glog.Infof("validated query:\n%s", s.query)
	}
	return s.query, nil
}

func (self *validation) pos(ci sql.CodeInfo) sqlerr.Pos {
	return self.code.Position(ci.Start)
}

func (self *validation) errAt(ci sql.CodeInfo, code sqlerr.Code, ident string, format string, args ...interface{}) error {
	return sqlerr.New(code, self.pos(ci), ident, format, args...)
}

func (self *validation) validateSelect(s *sql.Select) error {
	q := self.query

	if s.From != nil {
		if err := self.validateFrom(s.From); err != nil {
			return err
		}
	}

	// WHERE
	if s.Where != nil {
		e, err := self.predicate(s.Where.Condition, len(q.Tables), clauseWhere)
		if err != nil {
			return err
		}
		q.Where = e
	}

	// GROUP BY
	if s.GroupBy != nil {
		for _, g := range s.GroupBy.Name {
			e, err := self.expr(g, newScope(len(q.Tables), clauseGroupBy))
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, e)
		}
	}

	// SELECT list
	if err := self.validateProjection(s.Projection); err != nil {
		return err
	}

	// HAVING
	if s.Having != nil {
		e, err := self.predicate(s.Having.Condition, len(q.Tables), clauseHaving)
		if err != nil {
			return err
		}
		q.Having = e
	}

	// ORDER BY
	if s.OrderBy != nil {
		if err := self.validateOrderBy(s.OrderBy); err != nil {
			return err
		}
	}

	if s.Limit != nil {
		if s.Limit.Limit < 0 {
			return self.errAt(s.Limit.CodeInfo, sqlerr.TypeMismatch, "", "LIMIT must not be negative")
		}
		q.Limit = s.Limit.Limit
	}

	q.Distinct = s.Distinct
	q.Aggregated = len(q.GroupBy) != 0 || q.Having != nil || self.hasAggregate()

	if err := self.validateGrouping(s); err != nil {
		return err
	}

	q.Schema = make(types.Schema, 0, len(q.Select))
	for _, item := range q.Select {
		q.Schema = append(q.Schema, types.Column{
			Name:     item.Name,
			Type:     item.Expr.Type(),
			Nullable: scalar.Nullable(item.Expr, q.Input),
		})
	}
	return nil
}

func (self *validation) validateFrom(from *sql.From) error {
	q := self.query

	for idx, fv := range from.VarList {
		entry, err := self.v.Catalog.Lookup(fv.Name)
		if err != nil {
			return sqlerr.At(err, self.pos(fv.CodeInfo))
		}

		binding := fv.Binding()
		for _, t := range q.Tables {
			if self.v.Catalog.NameEqual(t.Alias, binding) {
				return self.errAt(
					fv.CodeInfo,
					sqlerr.AmbiguousColumn,
					binding,
					"duplicate relation name '%s' in FROM clause",
					binding,
				)
			}
		}

		table := &Table{
			Name:   entry.Name,
			Alias:  binding,
			Entry:  entry,
			Offset: len(q.Input),
		}
		q.Tables = append(q.Tables, table)

		right := entry.Schema
		if idx == 0 {
			q.Input = append(types.Schema(nil), right...)
			continue
		}

		join := &Join{
			Kind: sql.JoinInner,
		}
		switch fv.Join {
		case sql.JoinLeft, sql.JoinRight, sql.JoinFull:
			join.Kind = fv.Join
		}

		if fv.On != nil {
			// the ON clause only sees the tables joined so far
			on, err := self.predicate(fv.On, len(q.Tables), clauseOn)
			if err != nil {
				return err
			}
			join.On = on
		}

		left := q.Input
		switch join.Kind {
		case sql.JoinLeft:
			right = right.Nullable()
		case sql.JoinRight:
			left = left.Nullable()
		case sql.JoinFull:
			left, right = left.Nullable(), right.Nullable()
		}
		q.Input = left.Concat(right)
		q.Joins = append(q.Joins, join)
	}
	return nil
}

func (self *validation) star(star *sql.Star) ([]*Item, error) {
	q := self.query
	out := []*Item{}

	matched := false
	for _, t := range q.Tables {
		if star.Table != "" && !self.v.Catalog.NameEqual(star.Table, t.Alias) {
			continue
		}
		matched = true
		for i, c := range t.Entry.Schema {
			out = append(out, &Item{
				Expr: scalar.Col(t.Offset+i, c.Name, c.Type),
				Name: c.Name,
			})
		}
	}

	if !matched {
		if star.Table != "" {
			return nil, self.errAt(star.CodeInfo, sqlerr.UnknownTable, star.Table, "table '%s' not found", star.Table)
		}
		return nil, self.errAt(star.CodeInfo, sqlerr.UnknownColumn, "*", "SELECT * requires a FROM clause")
	}
	return out, nil
}

func (self *validation) validateProjection(p *sql.Projection) error {
	q := self.query

	for _, sv := range p.ValueList {
		switch v := sv.(type) {
		case *sql.Star:
			items, err := self.star(v)
			if err != nil {
				return err
			}
			q.Select = append(q.Select, items...)
			for range items {
				self.itemInfo = append(self.itemInfo, v.CodeInfo)
			}

		case *sql.Col:
			e, err := self.expr(v.Value, newScope(len(q.Tables), clauseSelect))
			if err != nil {
				return err
			}

			name := v.As
			if name == "" {
				if ref, ok := e.(*scalar.ColumnRef); ok {
					name = ref.Name
				} else {
					name = fmt.Sprintf("EXPR$%d", len(q.Select))
				}
			}
			q.Select = append(q.Select, &Item{
				Expr: e,
				Name: name,
			})
			self.itemInfo = append(self.itemInfo, v.CodeInfo)
		}
	}
	return nil
}

// ORDER BY key is either a 1 based ordinal, a select alias or an expression
// over the FROM row.
func (self *validation) orderKey(e sql.Expr) (scalar.Expr, error) {
	q := self.query

	if c, ok := e.(*sql.Const); ok && c.Ty == sql.ConstInt {
		if c.Int < 1 || int(c.Int) > len(q.Select) {
			return nil, self.errAt(
				c.CodeInfo,
				sqlerr.UnknownColumn,
				fmt.Sprintf("%d", c.Int),
				"ORDER BY position %d is not in select list",
				c.Int,
			)
		}
		return q.Select[c.Int-1].Expr, nil
	}

	if ref, ok := e.(*sql.Ref); ok && ref.Table == "" {
		var found *Item
		count := 0
		for _, item := range q.Select {
			if self.v.Catalog.NameEqual(item.Name, ref.Id) {
				found = item
				count++
			}
		}
		if count == 1 {
			return found.Expr, nil
		}
	}

	return self.expr(e, newScope(len(q.Tables), clauseOrderBy))
}

func (self *validation) validateOrderBy(ob *sql.OrderBy) error {
	q := self.query

	for _, ov := range ob.VarList {
		e, err := self.orderKey(ov.Value)
		if err != nil {
			return err
		}

		ordinal := -1
		for i, item := range q.Select {
			if scalar.Equal(item.Expr, e) {
				ordinal = i
				break
			}
		}

		q.OrderBy = append(q.OrderBy, &OrderItem{
			Expr:    e,
			Desc:    ov.Order == sql.OrderDesc,
			Ordinal: ordinal,
		})
	}
	return nil
}

func (self *validation) predicate(e sql.Expr, visible int, clause int) (scalar.Expr, error) {
	out, err := self.expr(e, newScope(visible, clause))
	if err != nil {
		return nil, err
	}
	if ty := out.Type(); ty != types.Boolean && !ty.IsNull() {
		return nil, self.errAt(
			e.CInfo(),
			sqlerr.TypeMismatch,
			"",
			"%s condition must be BOOLEAN, got %s",
			clauseName(clause),
			ty,
		)
	}
	return out, nil
}

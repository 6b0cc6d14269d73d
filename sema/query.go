// Package sema validates a parsed statement against a catalog and an
// operator registry, producing a Query whose names are bound to columns and
// whose expressions are typed.
//
// Every column reference of a Query is a position in the FROM row, ie the
// concatenation of the schemas of all tables in text order.
package sema

import (
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/types"
)

type Table struct {
	Name   string // name inside of the catalog
	Alias  string // binding name used by qualified references
	Entry  *catalog.Entry
	Offset int // position of the first column inside of the FROM row
}

// Join describes how Tables[i+1] is attached to everything on its left.
// Comma and CROSS joins are inner joins without condition.
type Join struct {
	Kind int // sql.JoinInner, sql.JoinLeft, sql.JoinRight, sql.JoinFull
	On   scalar.Expr
}

type Item struct {
	Expr scalar.Expr
	Name string
}

type OrderItem struct {
	Expr scalar.Expr
	Desc bool

	// index of the select item the key is equal to, or -1 when the key has
	// to be computed on the side
	Ordinal int
}

type Query struct {
	Tables []*Table
	Joins  []*Join
	Input  types.Schema

	Where   scalar.Expr
	GroupBy []scalar.Expr
	Having  scalar.Expr
	Select  []*Item
	OrderBy []*OrderItem
	Limit   int64 // -1 means no limit

	Distinct   bool
	Aggregated bool

	Schema types.Schema
}

func joinName(kind int) string {
	switch kind {
	case sql.JoinLeft:
		return "left"
	case sql.JoinRight:
		return "right"
	case sql.JoinFull:
		return "full"
	default:
		return "inner"
	}
}

func exprList(buf *strings.Builder, list []scalar.Expr) {
	for i, e := range list {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.String())
	}
}

// String dumps the annotated query, two validations of the same statement
// print the same text.
func (self *Query) String() string {
	buf := &strings.Builder{}

	for i, t := range self.Tables {
		if i == 0 {
			buf.WriteString("from: ")
		} else {
			j := self.Joins[i-1]
			buf.WriteString(fmt.Sprintf("\n%s join: ", joinName(j.Kind)))
		}
		buf.WriteString(fmt.Sprintf("%s as %s @%d", t.Name, t.Alias, t.Offset))
		if i > 0 && self.Joins[i-1].On != nil {
			buf.WriteString(" on ")
			buf.WriteString(self.Joins[i-1].On.Digest())
		}
	}

	if self.Where != nil {
		buf.WriteString("\nwhere: ")
		buf.WriteString(self.Where.Digest())
	}
	if len(self.GroupBy) != 0 {
		buf.WriteString("\ngroup by: ")
		exprList(buf, self.GroupBy)
	}
	if self.Having != nil {
		buf.WriteString("\nhaving: ")
		buf.WriteString(self.Having.Digest())
	}

	buf.WriteString("\nselect: ")
	if self.Distinct {
		buf.WriteString("distinct ")
	}
	for i, item := range self.Select {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%s as %s", item.Expr.Digest(), item.Name))
	}

	if len(self.OrderBy) != 0 {
		buf.WriteString("\norder by: ")
		for i, o := range self.OrderBy {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(o.Expr.Digest())
			if o.Desc {
				buf.WriteString(" desc")
			}
		}
	}
	if self.Limit >= 0 {
		buf.WriteString(fmt.Sprintf("\nlimit: %d", self.Limit))
	}

	buf.WriteString("\nschema: ")
	buf.WriteString(self.Schema.String())
	return buf.String()
}

package plan

import (
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

type Kind int

const (
	KindScan Kind = iota
	KindFilter
	KindProject
	KindJoin
	KindAggregate
	KindSort
	KindLimit
	KindValues

	// KindRef is a leaf standing for an input an optimizer owns, it never
	// shows up inside of a tree produced by Build
	KindRef
)

func (self Kind) String() string {
	switch self {
	case KindScan:
		return "Scan"
	case KindFilter:
		return "Filter"
	case KindProject:
		return "Project"
	case KindJoin:
		return "Join"
	case KindAggregate:
		return "Aggregate"
	case KindSort:
		return "Sort"
	case KindLimit:
		return "Limit"
	case KindValues:
		return "Values"
	default:
		return "Ref"
	}
}

// Node is one relational operator of a logical plan. A node owns its inputs
// and derives its schema from them, nodes are never mutated once built, a
// rewrite produces a new node through WithInputs.
type Node interface {
	Kind() Kind
	Schema() types.Schema
	Inputs() []Node

	// WithInputs returns a shallow copy of the node reading from inputs, which
	// must produce the same schemas as the current ones
	WithInputs(inputs []Node) Node

	// Digest identifies the operator and its arguments, without its inputs
	Digest() string

	// String is the one line description used by Explain
	String() string
}

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
)

func (self JoinKind) String() string {
	switch self {
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	default:
		return "inner"
	}
}

// ----------------------------------------------------------------------------
// Scan
type Scan struct {
	Table string
	Alias string
	Entry *catalog.Entry
}

func NewScan(entry *catalog.Entry, alias string) *Scan {
	if alias == "" {
		alias = entry.Name
	}
	return &Scan{
		Table: entry.Name,
		Alias: alias,
		Entry: entry,
	}
}

func (self *Scan) Kind() Kind                   { return KindScan }
func (self *Scan) Schema() types.Schema         { return self.Entry.Schema }
func (self *Scan) Inputs() []Node               { return nil }
func (self *Scan) WithInputs([]Node) Node       { return self }
func (self *Scan) Digest() string               { return fmt.Sprintf("Scan(%s as %s)", self.Table, self.Alias) }
func (self *Scan) Handle() catalog.SourceHandle { return self.Entry.Handle }

func (self *Scan) String() string {
	if self.Alias != self.Table {
		return fmt.Sprintf("Scan(table=%s, alias=%s)", self.Table, self.Alias)
	}
	return fmt.Sprintf("Scan(table=%s)", self.Table)
}

// ----------------------------------------------------------------------------
// Filter
type Filter struct {
	Input     Node
	Condition scalar.Expr
}

func NewFilter(input Node, cond scalar.Expr) *Filter {
	return &Filter{
		Input:     input,
		Condition: cond,
	}
}

func (self *Filter) Kind() Kind           { return KindFilter }
func (self *Filter) Schema() types.Schema { return self.Input.Schema() }
func (self *Filter) Inputs() []Node       { return []Node{self.Input} }
func (self *Filter) Digest() string       { return "Filter(" + self.Condition.Digest() + ")" }
func (self *Filter) String() string       { return "Filter(condition=" + self.Condition.String() + ")" }

func (self *Filter) WithInputs(inputs []Node) Node {
	return NewFilter(inputs[0], self.Condition)
}

// ----------------------------------------------------------------------------
// Project
type Project struct {
	Input Node
	Exprs []scalar.Expr
	Names []string

	schema types.Schema
}

func NewProject(input Node, exprs []scalar.Expr, names []string) *Project {
	in := input.Schema()
	schema := make(types.Schema, 0, len(exprs))
	for i, e := range exprs {
		schema = append(schema, types.Column{
			Name:     names[i],
			Type:     e.Type(),
			Nullable: scalar.Nullable(e, in),
		})
	}
	return &Project{
		Input:  input,
		Exprs:  exprs,
		Names:  names,
		schema: schema,
	}
}

// NewIdentity projects the columns of input at positions cols, keeping their
// names
func NewIdentity(input Node, cols ...int) *Project {
	in := input.Schema()
	exprs := make([]scalar.Expr, 0, len(cols))
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		exprs = append(exprs, scalar.Col(c, in[c].Name, in[c].Type))
		names = append(names, in[c].Name)
	}
	return NewProject(input, exprs, names)
}

func (self *Project) Kind() Kind           { return KindProject }
func (self *Project) Schema() types.Schema { return self.schema }
func (self *Project) Inputs() []Node       { return []Node{self.Input} }

func (self *Project) WithInputs(inputs []Node) Node {
	return NewProject(inputs[0], self.Exprs, self.Names)
}

// IsIdentity tells whether the project outputs its input unchanged
func (self *Project) IsIdentity() bool {
	in := self.Input.Schema()
	if len(self.Exprs) != len(in) {
		return false
	}
	for i, e := range self.Exprs {
		ref, ok := e.(*scalar.ColumnRef)
		if !ok || ref.Index != i || self.Names[i] != in[i].Name {
			return false
		}
	}
	return true
}

func (self *Project) Digest() string {
	buf := &strings.Builder{}
	buf.WriteString("Project(")
	for i, e := range self.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(self.Names[i])
		buf.WriteString("=")
		buf.WriteString(e.Digest())
	}
	buf.WriteString(")")
	return buf.String()
}

func (self *Project) String() string {
	buf := &strings.Builder{}
	buf.WriteString("Project(")
	for i, e := range self.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		s := e.String()
		if s == self.Names[i] {
			buf.WriteString(s)
		} else {
			buf.WriteString(self.Names[i])
			buf.WriteString("=")
			buf.WriteString(s)
		}
	}
	buf.WriteString(")")
	return buf.String()
}

// ----------------------------------------------------------------------------
// Join
//
// Column references of the condition address the concatenation of the left
// and the right schema. A nil condition joins every pair of rows.
type Join struct {
	JoinKind  JoinKind
	Left      Node
	Right     Node
	Condition scalar.Expr

	schema types.Schema
}

func NewJoin(kind JoinKind, left, right Node, cond scalar.Expr) *Join {
	l, r := left.Schema(), right.Schema()
	switch kind {
	case JoinLeft:
		r = r.Nullable()
	case JoinRight:
		l = l.Nullable()
	case JoinFull:
		l, r = l.Nullable(), r.Nullable()
	}
	return &Join{
		JoinKind:  kind,
		Left:      left,
		Right:     right,
		Condition: cond,
		schema:    l.Concat(r),
	}
}

func (self *Join) Kind() Kind           { return KindJoin }
func (self *Join) Schema() types.Schema { return self.schema }
func (self *Join) Inputs() []Node       { return []Node{self.Left, self.Right} }

func (self *Join) WithInputs(inputs []Node) Node {
	return NewJoin(self.JoinKind, inputs[0], inputs[1], self.Condition)
}

func (self *Join) condition(digest bool) string {
	switch {
	case self.Condition == nil:
		return "true"
	case digest:
		return self.Condition.Digest()
	default:
		return self.Condition.String()
	}
}

func (self *Join) Digest() string {
	return fmt.Sprintf("Join(%s, %s)", self.JoinKind, self.condition(true))
}

func (self *Join) String() string {
	return fmt.Sprintf("Join(kind=%s, condition=%s)", self.JoinKind, self.condition(false))
}

// ----------------------------------------------------------------------------
// Aggregate
//
// Output row is the grouping keys followed by the aggregate calls. Without
// keys the aggregate produces exactly one row.
type Aggregate struct {
	Input Node
	Keys  []scalar.Expr
	Calls []*scalar.Call

	schema types.Schema
}

func keyName(e scalar.Expr) string {
	if ref, ok := e.(*scalar.ColumnRef); ok {
		return ref.Name
	}
	return e.String()
}

func NewAggregate(input Node, keys []scalar.Expr, calls []*scalar.Call) *Aggregate {
	in := input.Schema()
	schema := make(types.Schema, 0, len(keys)+len(calls))
	for _, k := range keys {
		schema = append(schema, types.Column{
			Name:     keyName(k),
			Type:     k.Type(),
			Nullable: scalar.Nullable(k, in),
		})
	}
	for _, c := range calls {
		schema = append(schema, types.Column{
			Name:     c.String(),
			Type:     c.Type(),
			Nullable: scalar.Nullable(c, in),
		})
	}
	return &Aggregate{
		Input:  input,
		Keys:   keys,
		Calls:  calls,
		schema: schema,
	}
}

func (self *Aggregate) Kind() Kind           { return KindAggregate }
func (self *Aggregate) Schema() types.Schema { return self.schema }
func (self *Aggregate) Inputs() []Node       { return []Node{self.Input} }

func (self *Aggregate) WithInputs(inputs []Node) Node {
	return NewAggregate(inputs[0], self.Keys, self.Calls)
}

func (self *Aggregate) print(digest bool) string {
	str := func(e scalar.Expr) string {
		if digest {
			return e.Digest()
		}
		return e.String()
	}

	buf := &strings.Builder{}
	buf.WriteString("Aggregate(group=[")
	for i, k := range self.Keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(str(k))
	}
	buf.WriteString("], calls=[")
	for i, c := range self.Calls {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(str(c))
	}
	buf.WriteString("])")
	return buf.String()
}

func (self *Aggregate) Digest() string { return self.print(true) }
func (self *Aggregate) String() string { return self.print(false) }

// ----------------------------------------------------------------------------
// Sort
type SortKey struct {
	Index int // column of the input
	Desc  bool
}

type Sort struct {
	Input Node
	Keys  []SortKey
}

func NewSort(input Node, keys []SortKey) *Sort {
	return &Sort{
		Input: input,
		Keys:  keys,
	}
}

func (self *Sort) Kind() Kind           { return KindSort }
func (self *Sort) Schema() types.Schema { return self.Input.Schema() }
func (self *Sort) Inputs() []Node       { return []Node{self.Input} }

func (self *Sort) WithInputs(inputs []Node) Node {
	return NewSort(inputs[0], self.Keys)
}

func (self *Sort) print(name func(int) string) string {
	buf := &strings.Builder{}
	buf.WriteString("Sort(keys=[")
	for i, k := range self.Keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(name(k.Index))
		if k.Desc {
			buf.WriteString(" desc")
		}
	}
	buf.WriteString("])")
	return buf.String()
}

func (self *Sort) Digest() string {
	return self.print(func(i int) string { return fmt.Sprintf("$%d", i) })
}

func (self *Sort) String() string {
	schema := self.Schema()
	return self.print(func(i int) string { return schema[i].Name })
}

// ----------------------------------------------------------------------------
// Limit
type Limit struct {
	Input Node
	Count int64
}

func NewLimit(input Node, count int64) *Limit {
	return &Limit{
		Input: input,
		Count: count,
	}
}

func (self *Limit) Kind() Kind           { return KindLimit }
func (self *Limit) Schema() types.Schema { return self.Input.Schema() }
func (self *Limit) Inputs() []Node       { return []Node{self.Input} }
func (self *Limit) Digest() string       { return fmt.Sprintf("Limit(%d)", self.Count) }
func (self *Limit) String() string       { return fmt.Sprintf("Limit(count=%d)", self.Count) }

func (self *Limit) WithInputs(inputs []Node) Node {
	return NewLimit(inputs[0], self.Count)
}

// ----------------------------------------------------------------------------
// Values produces a single row without any column, it is the source of a
// SELECT without FROM
type Values struct{}

func (self *Values) Kind() Kind             { return KindValues }
func (self *Values) Schema() types.Schema   { return types.Schema{} }
func (self *Values) Inputs() []Node         { return nil }
func (self *Values) WithInputs([]Node) Node { return self }
func (self *Values) Digest() string         { return "Values" }
func (self *Values) String() string         { return "Values(rows=1)" }

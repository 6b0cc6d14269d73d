package physical

import (
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

func exprList(exprs []scalar.Expr) string {
	buf := &strings.Builder{}
	for i, e := range exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(e.String())
	}
	return buf.String()
}

// ----------------------------------------------------------------------------
// Filter
type Filter struct {
	Input     Node
	Condition scalar.Expr
}

func (self *Filter) Op() Op                 { return OpFilter }
func (self *Filter) Convention() Convention { return Row }
func (self *Filter) Schema() types.Schema   { return self.Input.Schema() }
func (self *Filter) Inputs() []Node         { return []Node{self.Input} }
func (self *Filter) String() string         { return "Filter(condition=" + self.Condition.String() + ")" }

func (self *Filter) WithInputs(inputs []Node) Node {
	return &Filter{
		Input:     inputs[0],
		Condition: self.Condition,
	}
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

func (self *Project) Op() Op                 { return OpProject }
func (self *Project) Convention() Convention { return Row }
func (self *Project) Schema() types.Schema   { return self.schema }
func (self *Project) Inputs() []Node         { return []Node{self.Input} }

func (self *Project) WithInputs(inputs []Node) Node {
	return NewProject(inputs[0], self.Exprs, self.Names)
}

func (self *Project) String() string {
	buf := &strings.Builder{}
	buf.WriteString("Project(")
	for i, e := range self.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		if s := e.String(); s == self.Names[i] {
			buf.WriteString(s)
		} else {
			buf.WriteString(fmt.Sprintf("%s=%s", self.Names[i], s))
		}
	}
	buf.WriteString(")")
	return buf.String()
}

// ----------------------------------------------------------------------------
// HashAggregate
type HashAggregate struct {
	Input Node
	Keys  []scalar.Expr
	Calls []*scalar.Call

	schema types.Schema
}

// NewHashAggregate takes the output schema of the logical aggregate it
// implements
func NewHashAggregate(input Node, keys []scalar.Expr, calls []*scalar.Call, schema types.Schema) *HashAggregate {
	return &HashAggregate{
		Input:  input,
		Keys:   keys,
		Calls:  calls,
		schema: schema,
	}
}

func (self *HashAggregate) Op() Op                 { return OpHashAggregate }
func (self *HashAggregate) Convention() Convention { return Row }
func (self *HashAggregate) Schema() types.Schema   { return self.schema }
func (self *HashAggregate) Inputs() []Node         { return []Node{self.Input} }

func (self *HashAggregate) WithInputs(inputs []Node) Node {
	return NewHashAggregate(inputs[0], self.Keys, self.Calls, self.schema)
}

func (self *HashAggregate) String() string {
	calls := make([]scalar.Expr, 0, len(self.Calls))
	for _, c := range self.Calls {
		calls = append(calls, c)
	}
	return fmt.Sprintf("HashAggregate(group=[%s], calls=[%s])", exprList(self.Keys), exprList(calls))
}

// ----------------------------------------------------------------------------
// Sort
type Sort struct {
	Input Node
	Keys  []plan.SortKey
}

func (self *Sort) Op() Op                 { return OpSort }
func (self *Sort) Convention() Convention { return Row }
func (self *Sort) Schema() types.Schema   { return self.Input.Schema() }
func (self *Sort) Inputs() []Node         { return []Node{self.Input} }

func (self *Sort) WithInputs(inputs []Node) Node {
	return &Sort{
		Input: inputs[0],
		Keys:  self.Keys,
	}
}

func (self *Sort) String() string {
	schema := self.Schema()
	keys := make([]string, 0, len(self.Keys))
	for _, k := range self.Keys {
		if k.Desc {
			keys = append(keys, schema[k.Index].Name+" desc")
		} else {
			keys = append(keys, schema[k.Index].Name)
		}
	}
	return "Sort(keys=[" + strings.Join(keys, ", ") + "])"
}

// ----------------------------------------------------------------------------
// Limit
type Limit struct {
	Input Node
	Count int64
}

func (self *Limit) Op() Op                 { return OpLimit }
func (self *Limit) Convention() Convention { return Row }
func (self *Limit) Schema() types.Schema   { return self.Input.Schema() }
func (self *Limit) Inputs() []Node         { return []Node{self.Input} }
func (self *Limit) String() string         { return fmt.Sprintf("Limit(count=%d)", self.Count) }

func (self *Limit) WithInputs(inputs []Node) Node {
	return &Limit{
		Input: inputs[0],
		Count: self.Count,
	}
}

// ----------------------------------------------------------------------------
// Converter hands the rows of an input of convention From over to the
// convention To
type Converter struct {
	Input Node
	From  Convention
	To    Convention
}

func (self *Converter) Op() Op                 { return OpConverter }
func (self *Converter) Convention() Convention { return self.To }
func (self *Converter) Schema() types.Schema   { return self.Input.Schema() }
func (self *Converter) Inputs() []Node         { return []Node{self.Input} }

func (self *Converter) String() string {
	return fmt.Sprintf("Converter(from=%s, to=%s)", self.From, self.To)
}

func (self *Converter) WithInputs(inputs []Node) Node {
	return &Converter{
		Input: inputs[0],
		From:  self.From,
		To:    self.To,
	}
}

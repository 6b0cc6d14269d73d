package physical

import (
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

func joinSchema(kind plan.JoinKind, left, right Node) types.Schema {
	l, r := left.Schema(), right.Schema()
	switch kind {
	case plan.JoinLeft:
		r = r.Nullable()
	case plan.JoinRight:
		l = l.Nullable()
	case plan.JoinFull:
		l, r = l.Nullable(), r.Nullable()
	}
	return l.Concat(r)
}

// NestedLoopJoin evaluates the condition on every pair of rows, a nil
// condition is a cross product
type NestedLoopJoin struct {
	Kind      plan.JoinKind
	Left      Node
	Right     Node
	Condition scalar.Expr

	schema types.Schema
}

func NewNestedLoopJoin(kind plan.JoinKind, left, right Node, cond scalar.Expr) *NestedLoopJoin {
	return &NestedLoopJoin{
		Kind:      kind,
		Left:      left,
		Right:     right,
		Condition: cond,
		schema:    joinSchema(kind, left, right),
	}
}

func (self *NestedLoopJoin) Op() Op                 { return OpNestedLoopJoin }
func (self *NestedLoopJoin) Convention() Convention { return Row }
func (self *NestedLoopJoin) Schema() types.Schema   { return self.schema }
func (self *NestedLoopJoin) Inputs() []Node         { return []Node{self.Left, self.Right} }

func (self *NestedLoopJoin) WithInputs(inputs []Node) Node {
	return NewNestedLoopJoin(self.Kind, inputs[0], inputs[1], self.Condition)
}

func (self *NestedLoopJoin) String() string {
	cond := "true"
	if self.Condition != nil {
		cond = self.Condition.String()
	}
	return fmt.Sprintf("NestedLoopJoin(kind=%s, condition=%s)", self.Kind, cond)
}

// EquiKey pairs a column of the left input with a column of the right input,
// the right index is relative to the right input
type EquiKey struct {
	Left  int
	Right int
}

// HashJoin builds a hash table over the right input keyed by the equi keys
// and probes it with the left input. Residual is evaluated on the joined row
// of every matching pair.
type HashJoin struct {
	Kind     plan.JoinKind
	Left     Node
	Right    Node
	Keys     []EquiKey
	Residual scalar.Expr

	schema types.Schema
}

func NewHashJoin(kind plan.JoinKind, left, right Node, keys []EquiKey, residual scalar.Expr) *HashJoin {
	return &HashJoin{
		Kind:     kind,
		Left:     left,
		Right:    right,
		Keys:     keys,
		Residual: residual,
		schema:   joinSchema(kind, left, right),
	}
}

func (self *HashJoin) Op() Op                 { return OpHashJoin }
func (self *HashJoin) Convention() Convention { return Row }
func (self *HashJoin) Schema() types.Schema   { return self.schema }
func (self *HashJoin) Inputs() []Node         { return []Node{self.Left, self.Right} }

func (self *HashJoin) WithInputs(inputs []Node) Node {
	return NewHashJoin(self.Kind, inputs[0], inputs[1], self.Keys, self.Residual)
}

func (self *HashJoin) String() string {
	l, r := self.Left.Schema(), self.Right.Schema()
	keys := make([]string, 0, len(self.Keys))
	for _, k := range self.Keys {
		keys = append(keys, fmt.Sprintf("%s = %s", l[k.Left].Name, r[k.Right].Name))
	}

	buf := &strings.Builder{}
	buf.WriteString(fmt.Sprintf("HashJoin(kind=%s, keys=[%s]", self.Kind, strings.Join(keys, ", ")))
	if self.Residual != nil {
		buf.WriteString(", residual=")
		buf.WriteString(self.Residual.String())
	}
	buf.WriteString(")")
	return buf.String()
}

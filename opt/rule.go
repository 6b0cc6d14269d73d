package opt

import (
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
)

// Rule is a pure function from a logical member of the memo to zero or more
// alternatives producing the same rows with the same schema. A transform
// rule returns logical alternatives, an implementation rule returns physical
// ones; a rule sets exactly one of the two.
type Rule struct {
	Name    string
	Operand plan.Kind

	Transform func(b *Binding) []plan.Node
	Implement func(b *Binding) []physical.Node
}

// Binding is what a rule sees of the memo: the matched node, whose inputs
// are group references, plus read access to the input groups.
type Binding struct {
	Node plan.Node

	memo   *memo
	inputs []groupID
}

// Input returns the reference to the i-th input group, usable as an input of
// a returned alternative
func (self *Binding) Input(i int) plan.Node {
	return self.memo.ref(self.inputs[i])
}

// Candidates returns the logical members of the i-th input group
func (self *Binding) Candidates(i int) []plan.Node {
	return self.memo.logicalOf(self.inputs[i])
}

// Scan returns a scan of the i-th input group, if it has one
func (self *Binding) Scan(i int) *plan.Scan {
	for _, n := range self.Candidates(i) {
		if s, ok := n.(*plan.Scan); ok {
			return s
		}
	}
	return nil
}

// Join returns a join of the i-th input group, if it has one. Its inputs
// are group references.
func (self *Binding) Join(i int) *plan.Join {
	for _, n := range self.Candidates(i) {
		if j, ok := n.(*plan.Join); ok {
			return j
		}
	}
	return nil
}

// Row returns the i-th input group as an input of a physical alternative
// which requires rows in the ROW convention
func (self *Binding) Row(i int) physical.Node {
	return self.memo.physRef(self.inputs[i], physical.Row)
}

// RuleSet is a named collection of rules. Converters tells whether native
// members of a group get a converter to the row convention.
type RuleSet struct {
	Name       string
	Rules      []*Rule
	Converters bool
}

// With returns a copy of the rule set extended by more rules
func (self *RuleSet) With(name string, rules ...*Rule) *RuleSet {
	out := &RuleSet{
		Name:       name,
		Converters: self.Converters,
	}
	out.Rules = append(out.Rules, self.Rules...)
	out.Rules = append(out.Rules, rules...)
	return out
}

// table indexes a rule set by the operand kind
func (self *RuleSet) table() map[plan.Kind][]*Rule {
	out := make(map[plan.Kind][]*Rule)
	for _, r := range self.Rules {
		out[r.Operand] = append(out[r.Operand], r)
	}
	return out
}

package opt

import (
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
	"github.com/golang/glog"
)

// Simplifier rewrites a logical plan with rules that are always a win,
// before any search happens. Every rule removes exactly one node, so the
// rewrite reaches a fixed point, and simplifying a simplified plan returns
// it unchanged.
type Simplifier struct {
	and *operator.Operator
}

func NewSimplifier(reg *operator.Registry) *Simplifier {
	return &Simplifier{
		and: reg.MustResolve(operator.And, types.Boolean, types.Boolean),
	}
}

type simplifyRule struct {
	name  string
	apply func(plan.Node) (plan.Node, bool)
}

func (self *Simplifier) rules() []simplifyRule {
	return []simplifyRule{
		{"FilterTrue", filterTrue},
		{"FilterMerge", self.filterMerge},
		{"ProjectRemove", projectRemove},
		{"ProjectMerge", projectMerge},
	}
}

// Simplify returns the fixed point of the simplification rules over n
func (self *Simplifier) Simplify(n plan.Node) plan.Node {
	rules := self.rules()
	for {
		out, changed := self.rewrite(n, rules)
		if !changed {
			return out
		}
		n = out
	}
}

// rewrite simplifies inputs first, then applies the rules to the node
// itself until none of them matches
func (self *Simplifier) rewrite(n plan.Node, rules []simplifyRule) (plan.Node, bool) {
	changed := false
	if inputs := n.Inputs(); len(inputs) != 0 {
		next := make([]plan.Node, 0, len(inputs))
		for _, in := range inputs {
			x, c := self.rewrite(in, rules)
			changed = changed || c
			next = append(next, x)
		}
		if changed {
			n = n.WithInputs(next)
		}
	}

	for fired := true; fired; {
		fired = false
		for _, r := range rules {
			if x, ok := r.apply(n); ok {
				if glog.V(2) {
					glog.Infof("simplify: %s rewrites %s", r.name, n)
				}
				n, fired, changed = x, true, true
				break
			}
		}
	}
	return n, changed
}

// filter(TRUE, x) => x
func filterTrue(n plan.Node) (plan.Node, bool) {
	f, ok := n.(*plan.Filter)
	if !ok || !scalar.IsTrue(f.Condition) {
		return nil, false
	}
	return f.Input, true
}

// filter(p, filter(q, x)) => filter(q AND p, x)
func (self *Simplifier) filterMerge(n plan.Node) (plan.Node, bool) {
	f, ok := n.(*plan.Filter)
	if !ok {
		return nil, false
	}
	inner, ok := f.Input.(*plan.Filter)
	if !ok {
		return nil, false
	}
	return plan.NewFilter(inner.Input, scalar.And(self.and, inner.Condition, f.Condition)), true
}

// project(identity, x) => x
func projectRemove(n plan.Node) (plan.Node, bool) {
	p, ok := n.(*plan.Project)
	if !ok || !p.IsIdentity() {
		return nil, false
	}
	return p.Input, true
}

// project(e1, project(e2, x)) => project(e1 over e2, x)
func projectMerge(n plan.Node) (plan.Node, bool) {
	p, ok := n.(*plan.Project)
	if !ok {
		return nil, false
	}
	inner, ok := p.Input.(*plan.Project)
	if !ok {
		return nil, false
	}
	exprs := make([]scalar.Expr, 0, len(p.Exprs))
	for _, e := range p.Exprs {
		exprs = append(exprs, scalar.Inline(e, inner.Exprs))
	}
	return plan.NewProject(inner.Input, exprs, p.Names), true
}

// Package opt searches for the cheapest physical plan of a logical plan.
//
// The search is a memo based exploration: every distinct logical node of the
// input plan becomes a group, then passes over all groups fire the rules of
// the configured RuleSet, adding logical alternatives and physical
// implementations to the groups. After each pass member costs are computed
// bottom up and the best member of every group is remembered per
// convention. The search stops when a pass adds nothing, when the best root
// cost did not improve, or after Options.MaxIterations passes; the best plan
// found so far is returned in any case.
package opt

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/golang/glog"
)

const DefaultMaxIterations = 8

type Options struct {
	// MaxIterations bounds the number of passes, at least one pass runs
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{
		MaxIterations: DefaultMaxIterations,
	}
}

// Optimizer is immutable once built and can serve concurrent searches, each
// search owns its memo.
type Optimizer struct {
	rules *RuleSet
	table map[plan.Kind][]*Rule
	opts  Options
}

func New(rules *RuleSet, opts Options) *Optimizer {
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	return &Optimizer{
		rules: rules,
		table: rules.table(),
		opts:  opts,
	}
}

func (self *Optimizer) RuleSet() *RuleSet { return self.rules }

type Stats struct {
	Passes  int
	Groups  int
	Members int
	Firings int // rule applications that produced at least one new member

	// costs of every complete ROW implementation of the root group
	RootCandidates []Cost
}

type Result struct {
	Plan  physical.Node
	Cost  Cost
	Stats Stats

	costs map[physical.Node]Cost
}

// CostOf returns the cost of the subtree rooted at a node of the plan
func (self *Result) CostOf(n physical.Node) (Cost, bool) {
	c, ok := self.costs[n]
	return c, ok
}

func (self *Result) Explain(color bool) string {
	return physical.Explain(self.Plan, physical.ExplainOptions{
		Color: color,
		Annotate: func(n physical.Node) string {
			if c, ok := self.CostOf(n); ok {
				return "(" + c.String() + ")"
			}
			return ""
		},
	})
}

type search struct {
	*Optimizer
	memo    *memo
	firings int
}

// Optimize returns the cheapest plan of root whose root runs in the ROW
// convention. root is expected to be simplified already.
func (self *Optimizer) Optimize(root plan.Node) (*Result, error) {
	res, _, err := self.optimize(root)
	return res, err
}

func (self *Optimizer) optimize(root plan.Node) (*Result, *memo, error) {
	s := &search{
		Optimizer: self,
		memo:      newMemo(),
	}

	rg, _, err := s.memo.insert(root, -1)
	if err != nil {
		return nil, nil, err
	}

	var best *member
	passes := 0
	for passes < self.opts.MaxIterations {
		passes++
		added, err := s.pass()
		if err != nil {
			return nil, nil, err
		}
		s.memo.computeCosts()

		cur := s.memo.best(rg, physical.Row)
		if glog.V(2) {
			glog.Infof("opt: pass %d, %d groups, %d members, root %v", passes, len(s.memo.live()), s.memo.size(), cur)
		}

		improved := cur != nil && (best == nil || cur.cost.Less(best.cost))
		if cur != nil {
			best = cur
		}
		if !added || (passes > 1 && !improved) {
			break
		}
	}

	costs := make(map[physical.Node]Cost)
	n, err := s.memo.extract(rg, physical.Row, costs)
	if err != nil {
		return nil, nil, err
	}
	if err := physical.Validate(n); err != nil {
		return nil, nil, err
	}

	res := &Result{
		Plan:  n,
		Cost:  costs[n],
		costs: costs,
		Stats: Stats{
			Passes:  passes,
			Groups:  len(s.memo.live()),
			Members: s.memo.size(),
			Firings: s.firings,
		},
	}
	for _, m := range s.memo.membersOf(rg) {
		if m.isPhysical() && m.costed && m.physical.Convention() == physical.Row {
			res.Stats.RootCandidates = append(res.Stats.RootCandidates, m.cost)
		}
	}
	return res, s.memo, nil
}

// pass fires every rule on every logical member, groups in handle order.
// Groups and members created during the pass are visited by the same pass.
func (self *search) pass() (bool, error) {
	m := self.memo
	added := false

	for gi := 0; gi < len(m.groups); gi++ {
		g := groupID(gi)
		if m.find(g) != g {
			continue
		}

		for fired := make(map[memberID]bool); ; {
			next := self.pending(g, fired)
			if next == nil {
				break
			}
			fired[next.id] = true

			a, err := self.fire(next)
			if err != nil {
				return false, err
			}
			added = added || a
		}

		if self.rules.Converters {
			a, err := self.convert(g)
			if err != nil {
				return false, err
			}
			added = added || a
		}
	}
	return added, nil
}

// pending picks the logical member of g to fire next: the one whose known
// cost is lowest, ie whose group inputs are cheapest, members without a
// cost last, ties by handle
func (self *search) pending(g groupID, fired map[memberID]bool) *member {
	var cands []*member
	for _, x := range self.memo.membersOf(g) {
		if !x.isPhysical() && !fired[x.id] {
			cands = append(cands, x)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		ci, oki := self.inputCost(cands[i])
		cj, okj := self.inputCost(cands[j])
		if oki != okj {
			return oki
		}
		return oki && ci.Less(cj)
	})
	return cands[0]
}

// inputCost is the sum of the best ROW costs of the member's inputs
func (self *search) inputCost(x *member) (Cost, bool) {
	out := Cost{}
	for _, in := range x.inputs {
		b := self.memo.best(in, physical.Row)
		if b == nil {
			return Cost{}, false
		}
		out.CPU += b.cost.CPU
		out.Rows += b.cost.Rows
	}
	return out, true
}

func (self *search) fire(x *member) (bool, error) {
	g := self.memo.find(x.group)
	added := false

	for _, r := range self.table[x.logical.Kind()] {
		b := &Binding{
			Node:   x.logical,
			memo:   self.memo,
			inputs: x.inputs,
		}

		produced := false
		switch {
		case r.Transform != nil:
			for _, alt := range r.Transform(b) {
				_, a, err := self.memo.insert(alt, g)
				if err != nil {
					return false, errors.Wrapf(err, "rule %s", r.Name)
				}
				produced = produced || a
			}
		case r.Implement != nil:
			for _, alt := range r.Implement(b) {
				a, err := self.memo.addPhysical(alt, g)
				if err != nil {
					return false, errors.Wrapf(err, "rule %s", r.Name)
				}
				produced = produced || a
			}
		}

		if produced {
			self.firings++
			if glog.V(2) {
				glog.Infof("opt: rule %s fired on %s", r.Name, x)
			}
		}
		added = added || produced
		g = self.memo.find(g)
	}
	return added, nil
}

// convert gives a group with a native member a converter into the row
// convention
func (self *search) convert(g groupID) (bool, error) {
	for _, x := range self.memo.membersOf(g) {
		if x.isPhysical() && x.physical.Convention() == physical.Native {
			return self.memo.addPhysical(&physical.Converter{
				Input: self.memo.physRef(g, physical.Native),
				From:  physical.Native,
				To:    physical.Row,
			}, g)
		}
	}
	return false, nil
}

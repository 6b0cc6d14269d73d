package opt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/golang/glog"
)

// The memo is an arena of members addressed by integer handles. A member is
// either a logical node or a physical node whose inputs are equivalence
// classes (groups) instead of nodes. A group is a set of member handles that
// all produce the same rows with the same schema. Two groups found to be
// equivalent are merged with union-find, the absorbed group forwards to the
// surviving one.
type memberID int
type groupID int

const conventions = 2

type member struct {
	id    memberID
	group groupID

	// exactly one of them is set
	logical  plan.Node
	physical physical.Node

	inputs    []groupID
	inputConv []physical.Convention // physical members only

	digest string

	cost   Cost
	costed bool
}

func (self *member) isPhysical() bool { return self.physical != nil }

func (self *member) String() string {
	if self.isPhysical() {
		return fmt.Sprintf("m%d %s %s", self.id, self.physical.Convention(), self.digest)
	}
	return fmt.Sprintf("m%d %s", self.id, self.digest)
}

type group struct {
	id      groupID
	parent  groupID
	schema  types.Schema
	rows    float64
	members mapset.Set[memberID]
	best    [conventions]*member
}

type memo struct {
	members []*member
	groups  []*group

	// fingerprint -> members with that fingerprint
	index map[uint64][]memberID
}

func newMemo() *memo {
	return &memo{
		index: make(map[uint64][]memberID),
	}
}

func (self *memo) size() int { return len(self.members) }

func (self *memo) find(g groupID) groupID {
	for self.groups[g].parent != g {
		// path halving
		p := self.groups[g].parent
		self.groups[g].parent = self.groups[p].parent
		g = p
	}
	return g
}

func (self *memo) group(g groupID) *group {
	return self.groups[self.find(g)]
}

// live returns the handles of the groups that were not absorbed by a merge
func (self *memo) live() []groupID {
	out := []groupID{}
	for _, g := range self.groups {
		if g.parent == g.id {
			out = append(out, g.id)
		}
	}
	return out
}

// sorted members of a group in handle order
func (self *memo) membersOf(g groupID) []*member {
	ids := mapset.Sorted(self.group(g).members)
	out := make([]*member, 0, len(ids))
	for _, id := range ids {
		out = append(out, self.members[id])
	}
	return out
}

// logicalOf returns the logical members of g, with group inputs
func (self *memo) logicalOf(g groupID) []plan.Node {
	out := []plan.Node{}
	for _, m := range self.membersOf(g) {
		if !m.isPhysical() {
			out = append(out, m.logical)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// leaves standing for a group inside of a member's node

type groupRef struct {
	id     groupID
	schema types.Schema
}

func (self *groupRef) Kind() plan.Kind                  { return plan.KindRef }
func (self *groupRef) Schema() types.Schema             { return self.schema }
func (self *groupRef) Inputs() []plan.Node              { return nil }
func (self *groupRef) WithInputs([]plan.Node) plan.Node { return self }
func (self *groupRef) Digest() string                   { return fmt.Sprintf("#%d", self.id) }
func (self *groupRef) String() string                   { return fmt.Sprintf("Group(#%d)", self.id) }

type physRef struct {
	id     groupID
	conv   physical.Convention
	schema types.Schema
}

func (self *physRef) Op() physical.Op                          { return physical.OpConverter }
func (self *physRef) Convention() physical.Convention          { return self.conv }
func (self *physRef) Schema() types.Schema                     { return self.schema }
func (self *physRef) Inputs() []physical.Node                  { return nil }
func (self *physRef) WithInputs([]physical.Node) physical.Node { return self }
func (self *physRef) String() string                           { return fmt.Sprintf("Group(#%d, %s)", self.id, self.conv) }

func (self *memo) ref(g groupID) *groupRef {
	g = self.find(g)
	return &groupRef{
		id:     g,
		schema: self.groups[g].schema,
	}
}

func (self *memo) physRef(g groupID, conv physical.Convention) *physRef {
	g = self.find(g)
	return &physRef{
		id:     g,
		conv:   conv,
		schema: self.groups[g].schema,
	}
}

// ----------------------------------------------------------------------------
// fingerprints

func exprsDigest(buf *strings.Builder, exprs []scalar.Expr) {
	for i, e := range exprs {
		if i > 0 {
			buf.WriteString(",")
		}
		if e == nil {
			buf.WriteString("<nil>")
		} else {
			buf.WriteString(e.Digest())
		}
	}
}

// physicalDigest identifies a physical operator by its arguments, inputs
// excluded
func physicalDigest(n physical.Node) string {
	buf := &strings.Builder{}
	buf.WriteString(n.Op().String())
	buf.WriteString("[")
	buf.WriteString(n.Convention().String())
	buf.WriteString("](")

	switch v := n.(type) {
	case *physical.TableScan:
		buf.WriteString(v.Table + " as " + v.Alias)
	case *physical.NativeScan:
		buf.WriteString(v.Table + " as " + v.Alias + ";")
		exprsDigest(buf, v.Pushed)
		buf.WriteString(";")
		if v.Columns == nil {
			buf.WriteString("*")
		}
		for _, c := range v.Columns {
			buf.WriteString(strconv.Itoa(c) + " ")
		}
	case *physical.Filter:
		exprsDigest(buf, []scalar.Expr{v.Condition})
	case *physical.Project:
		exprsDigest(buf, v.Exprs)
		buf.WriteString(";" + strings.Join(v.Names, ","))
	case *physical.NestedLoopJoin:
		buf.WriteString(v.Kind.String() + ";")
		exprsDigest(buf, []scalar.Expr{v.Condition})
	case *physical.HashJoin:
		buf.WriteString(v.Kind.String() + ";")
		buf.WriteString(fmt.Sprintf("%v;", v.Keys))
		exprsDigest(buf, []scalar.Expr{v.Residual})
	case *physical.HashAggregate:
		exprsDigest(buf, v.Keys)
		buf.WriteString(";")
		for _, c := range v.Calls {
			buf.WriteString(c.Digest() + ",")
		}
	case *physical.Sort:
		buf.WriteString(fmt.Sprintf("%v", v.Keys))
	case *physical.Limit:
		buf.WriteString(strconv.FormatInt(v.Count, 10))
	case *physical.Converter:
		buf.WriteString(v.From.String())
	}
	buf.WriteString(")")
	return buf.String()
}

func (self *memo) fingerprint(digest string, inputs []groupID, conv []physical.Convention) uint64 {
	h := xxhash.New()
	h.WriteString(digest)
	for i, g := range inputs {
		h.WriteString("|")
		h.WriteString(strconv.Itoa(int(self.find(g))))
		if conv != nil {
			h.WriteString(conv[i].String())
		}
	}
	return h.Sum64()
}

func (self *memo) sameInputs(m *member, inputs []groupID, conv []physical.Convention) bool {
	if len(m.inputs) != len(inputs) {
		return false
	}
	for i := range inputs {
		if self.find(m.inputs[i]) != self.find(inputs[i]) {
			return false
		}
		if conv != nil && m.inputConv[i] != conv[i] {
			return false
		}
	}
	return true
}

func (self *memo) lookup(fp uint64, digest string, inputs []groupID, conv []physical.Convention) *member {
	for _, id := range self.index[fp] {
		m := self.members[id]
		if m.digest == digest && m.isPhysical() == (conv != nil) && self.sameInputs(m, inputs, conv) {
			return m
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// insertion

func (self *memo) newGroup(schema types.Schema, rows float64) groupID {
	id := groupID(len(self.groups))
	self.groups = append(self.groups, &group{
		id:      id,
		parent:  id,
		schema:  schema,
		rows:    rows,
		members: mapset.NewThreadUnsafeSet[memberID](),
	})
	return id
}

func (self *memo) newMember(m *member, fp uint64) *member {
	m.id = memberID(len(self.members))
	self.members = append(self.members, m)
	self.index[fp] = append(self.index[fp], m.id)
	self.group(m.group).members.Add(m.id)
	if glog.V(3) {
		glog.Infof("memo: group #%d += %s", self.find(m.group), m)
	}
	return m
}

// insert adds the logical tree n into the memo and returns the group holding
// its root. Inputs of n which are group references are used as is. When
// target is not negative the root joins that group. The returned bool tells
// whether any member was added.
func (self *memo) insert(n plan.Node, target groupID) (groupID, bool, error) {
	if ref, ok := n.(*groupRef); ok {
		return self.find(ref.id), false, nil
	}

	added := false
	inputs := make([]groupID, 0, len(n.Inputs()))
	refs := make([]plan.Node, 0, len(n.Inputs()))
	for _, in := range n.Inputs() {
		g, a, err := self.insert(in, -1)
		if err != nil {
			return 0, false, err
		}
		added = added || a
		inputs = append(inputs, g)
		refs = append(refs, self.ref(g))
	}

	node := n.WithInputs(refs)
	digest := node.Digest()
	fp := self.fingerprint(digest, inputs, nil)

	if m := self.lookup(fp, digest, inputs, nil); m != nil {
		g := self.find(m.group)
		if target >= 0 && self.find(target) != g {
			return self.merge(target, g), added, nil
		}
		return g, added, nil
	}

	if target < 0 {
		rows := make([]float64, 0, len(inputs))
		for _, g := range inputs {
			rows = append(rows, self.group(g).rows)
		}
		target = self.newGroup(node.Schema(), estimateRows(node, rows))
	} else if gs := self.group(target).schema; !gs.Equal(node.Schema()) {
		return 0, false, errors.AssertionFailedf(
			"alternative %s produces %s, group #%d has %s",
			node.Digest(),
			node.Schema(),
			self.find(target),
			gs,
		)
	}

	self.newMember(&member{
		group:   self.find(target),
		logical: node,
		inputs:  inputs,
		digest:  digest,
	}, fp)
	return self.find(target), true, nil
}

// addPhysical registers an implementation of group g. The inputs of n are
// physRef leaves naming the input groups and the convention required from
// them.
func (self *memo) addPhysical(n physical.Node, g groupID) (bool, error) {
	g = self.find(g)
	if gs := self.groups[g].schema; !gs.Equal(n.Schema()) {
		return false, errors.AssertionFailedf(
			"implementation %s produces %s, group #%d has %s",
			n,
			n.Schema(),
			g,
			gs,
		)
	}

	inputs := make([]groupID, 0, len(n.Inputs()))
	conv := make([]physical.Convention, 0, len(n.Inputs()))
	for _, in := range n.Inputs() {
		ref, ok := in.(*physRef)
		if !ok {
			return false, errors.AssertionFailedf("implementation %s reads %s, not a group", n, in)
		}
		inputs = append(inputs, self.find(ref.id))
		conv = append(conv, ref.conv)
	}

	digest := physicalDigest(n)
	fp := self.fingerprint(digest, inputs, conv)
	if m := self.lookup(fp, digest, inputs, conv); m != nil {
		if self.find(m.group) != g {
			self.merge(g, m.group)
		}
		return false, nil
	}

	self.newMember(&member{
		group:     g,
		physical:  n,
		inputs:    inputs,
		inputConv: conv,
		digest:    digest,
	}, fp)
	return true, nil
}

// merge folds the members of b into a, unless their schemas disagree which
// happens when two differently named projections compute the same values
func (self *memo) merge(a, b groupID) groupID {
	a, b = self.find(a), self.find(b)
	if a == b {
		return a
	}
	ga, gb := self.groups[a], self.groups[b]
	if !ga.schema.Equal(gb.schema) {
		return a
	}
	if b < a {
		a, b = b, a
		ga, gb = gb, ga
	}

	if glog.V(3) {
		glog.Infof("memo: merge group #%d into #%d", b, a)
	}
	ga.members = ga.members.Union(gb.members)
	gb.parent = a
	for c := 0; c < conventions; c++ {
		if better(gb.best[c], ga.best[c]) {
			ga.best[c] = gb.best[c]
		}
	}
	ga.rows = min(ga.rows, gb.rows)
	return a
}

// ----------------------------------------------------------------------------
// costing

// better is the total order of costed physical members: CPU, rows, operator
// kind and finally member handle
func better(a, b *member) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	case a.cost.Less(b.cost):
		return true
	case b.cost.Less(a.cost):
		return false
	case a.physical.Op() != b.physical.Op():
		return a.physical.Op() < b.physical.Op()
	default:
		return a.id < b.id
	}
}

func (self *memo) best(g groupID, conv physical.Convention) *member {
	return self.group(g).best[conv]
}

// costMember computes the cost of a physical member out of the best members
// of its input groups, false when some input has no implementation yet
func (self *memo) costMember(m *member) (Cost, bool) {
	cpu := 0.0
	rows := make([]float64, 0, len(m.inputs))
	for i, in := range m.inputs {
		b := self.best(in, m.inputConv[i])
		if b == nil {
			return Cost{}, false
		}
		cpu += b.cost.CPU
		rows = append(rows, self.group(in).rows)
	}

	out := self.group(m.group).rows
	cpu += operatorCost(m.physical, out, rows)
	return Cost{Rows: out, CPU: cpu}, true
}

// computeCosts relaxes member costs until no best member changes. Costs only
// ever decrease, so this terminates; the bound guards against floating point
// oscillation.
func (self *memo) computeCosts() {
	limit := len(self.members) + 1
	for iter := 0; iter < limit; iter++ {
		changed := false
		for _, m := range self.members {
			if !m.isPhysical() {
				continue
			}
			c, ok := self.costMember(m)
			if !ok {
				continue
			}
			if !m.costed || c.Less(m.cost) {
				m.cost = c
				m.costed = true
				changed = true
			}
			g := self.group(m.group)
			conv := m.physical.Convention()
			if g.best[conv] != m && better(m, g.best[conv]) {
				g.best[conv] = m
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// ----------------------------------------------------------------------------
// extraction

// slot is a group in a given convention
type slot struct {
	g    groupID
	conv physical.Convention
}

func (self *memo) extract(g groupID, conv physical.Convention, costs map[physical.Node]Cost) (physical.Node, error) {
	return self.doExtract(g, conv, costs, mapset.NewThreadUnsafeSet[slot]())
}

func (self *memo) doExtract(
	g groupID,
	conv physical.Convention,
	costs map[physical.Node]Cost,
	path mapset.Set[slot],
) (physical.Node, error) {
	g = self.find(g)
	m := self.groups[g].best[conv]
	if m == nil {
		var shape plan.Node
		if l := self.logicalOf(g); len(l) != 0 {
			shape = l[0]
		}
		return nil, sqlerr.NoPlan("no %s implementation for group #%d: %s", conv, g, shape)
	}

	key := slot{g: g, conv: conv}
	if path.Contains(key) {
		return nil, errors.AssertionFailedf("cycle through group #%d in the best plan", g)
	}
	path.Add(key)
	defer path.Remove(key)

	inputs := make([]physical.Node, 0, len(m.inputs))
	for i, in := range m.inputs {
		x, err := self.doExtract(in, m.inputConv[i], costs, path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, x)
	}

	n := m.physical
	if len(inputs) != 0 {
		n = n.WithInputs(inputs)
	}
	costs[n] = m.cost
	return n, nil
}

package opt

import (
	"sort"

	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
)

// Pushdown rules only fire when the source of the scan advertises the
// capability, and only for expressions the source says it can evaluate.

func canExpressAll(s *plan.Scan, exprs []scalar.Expr) bool {
	h := s.Handle()
	for _, e := range exprs {
		if !h.CanExpress(e) {
			return false
		}
	}
	return true
}

// FilterPushdown implements filter(p, scan t) as a native scan of t carrying
// every conjunct of p. It does not fire unless the source can express all of
// them.
var FilterPushdown = &Rule{
	Name:    "FilterPushdown",
	Operand: plan.KindFilter,
	Implement: func(b *Binding) []physical.Node {
		f := b.Node.(*plan.Filter)
		s := b.Scan(0)
		if s == nil || !s.Handle().SupportsFilterPushdown() {
			return nil
		}
		list, _ := conjuncts(f.Condition)
		if !canExpressAll(s, list) {
			return nil
		}
		return []physical.Node{
			physical.NewNativeScan(s.Entry, s.Alias, list, nil),
		}
	},
}

// FilterSplit rewrites a partially expressible filter(p, scan t) into
// filter(residual, filter(pushed, scan t)), so that the inner filter can be
// pushed down by FilterPushdown.
var FilterSplit = &Rule{
	Name:    "FilterSplit",
	Operand: plan.KindFilter,
	Transform: func(b *Binding) []plan.Node {
		f := b.Node.(*plan.Filter)
		s := b.Scan(0)
		if s == nil || !s.Handle().SupportsFilterPushdown() {
			return nil
		}
		h := s.Handle()
		pushed, residual, and := splitConjuncts(f.Condition, h.CanExpress)
		if len(pushed) == 0 || len(residual) == 0 {
			return nil
		}
		inner := plan.NewFilter(b.Input(0), conjunction(and, pushed))
		return []plan.Node{
			plan.NewFilter(inner, conjunction(and, residual)),
		}
	},
}

// plainColumns returns the scanned columns when every expression of p is a
// reference to a scan column keeping the column's name
func plainColumns(p *plan.Project) ([]int, bool) {
	in := p.Input.Schema()
	cols := make([]int, 0, len(p.Exprs))
	for i, e := range p.Exprs {
		ref, ok := e.(*scalar.ColumnRef)
		if !ok || p.Names[i] != in[ref.Index].Name {
			return nil, false
		}
		cols = append(cols, ref.Index)
	}
	return cols, true
}

// ProjectPushdown implements project(cols, scan t) as a native scan of t
// producing only cols
var ProjectPushdown = &Rule{
	Name:    "ProjectPushdown",
	Operand: plan.KindProject,
	Implement: func(b *Binding) []physical.Node {
		p := b.Node.(*plan.Project)
		s := b.Scan(0)
		if s == nil || !s.Handle().SupportsProjectionPushdown() {
			return nil
		}
		cols, ok := plainColumns(p)
		if !ok || !canExpressAll(s, p.Exprs) {
			return nil
		}
		return []physical.Node{
			physical.NewNativeScan(s.Entry, s.Alias, nil, cols),
		}
	},
}

// ProjectNarrow handles a computed or renaming projection over a scan: the
// columns it reads are projected by an inner plain projection, which
// ProjectPushdown turns into a narrowed native scan, and the computation
// stays in a row project above it.
var ProjectNarrow = &Rule{
	Name:    "ProjectNarrow",
	Operand: plan.KindProject,
	Transform: func(b *Binding) []plan.Node {
		p := b.Node.(*plan.Project)
		s := b.Scan(0)
		if s == nil || !s.Handle().SupportsProjectionPushdown() {
			return nil
		}
		if _, ok := plainColumns(p); ok {
			return nil
		}

		used := scalar.Columns(p.Exprs...).ToSlice()
		sort.Ints(used)
		if len(used) == 0 || len(used) == len(s.Schema()) {
			return nil
		}

		schema := s.Schema()
		refs := make([]scalar.Expr, 0, len(used))
		pos := make(map[int]int, len(used))
		for i, c := range used {
			refs = append(refs, scalar.Col(c, schema[c].Name, schema[c].Type))
			pos[c] = i
		}
		if !canExpressAll(s, refs) {
			return nil
		}

		inner := plan.NewIdentity(b.Input(0), used...)
		exprs := make([]scalar.Expr, 0, len(p.Exprs))
		for _, e := range p.Exprs {
			exprs = append(exprs, scalar.Remap(e, func(i int) int { return pos[i] }))
		}
		return []plan.Node{
			plan.NewProject(inner, exprs, p.Names),
		}
	},
}

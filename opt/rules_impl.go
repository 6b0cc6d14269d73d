package opt

import (
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
)

// Implementation rules, one logical operator to its physical counterparts

var ScanTableScan = &Rule{
	Name:    "ScanTableScan",
	Operand: plan.KindScan,
	Implement: func(b *Binding) []physical.Node {
		s := b.Node.(*plan.Scan)
		return []physical.Node{
			&physical.TableScan{
				Table: s.Table,
				Alias: s.Alias,
				Entry: s.Entry,
			},
		}
	},
}

// ScanNativeScan lets the source produce the rows itself
var ScanNativeScan = &Rule{
	Name:    "ScanNativeScan",
	Operand: plan.KindScan,
	Implement: func(b *Binding) []physical.Node {
		s := b.Node.(*plan.Scan)
		return []physical.Node{
			physical.NewNativeScan(s.Entry, s.Alias, nil, nil),
		}
	},
}

var FilterImpl = &Rule{
	Name:    "FilterImpl",
	Operand: plan.KindFilter,
	Implement: func(b *Binding) []physical.Node {
		f := b.Node.(*plan.Filter)
		return []physical.Node{
			&physical.Filter{
				Input:     b.Row(0),
				Condition: f.Condition,
			},
		}
	},
}

var ProjectImpl = &Rule{
	Name:    "ProjectImpl",
	Operand: plan.KindProject,
	Implement: func(b *Binding) []physical.Node {
		p := b.Node.(*plan.Project)
		return []physical.Node{
			physical.NewProject(b.Row(0), p.Exprs, p.Names),
		}
	},
}

var JoinNestedLoop = &Rule{
	Name:    "JoinNestedLoop",
	Operand: plan.KindJoin,
	Implement: func(b *Binding) []physical.Node {
		j := b.Node.(*plan.Join)
		return []physical.Node{
			physical.NewNestedLoopJoin(j.JoinKind, b.Row(0), b.Row(1), j.Condition),
		}
	},
}

// JoinHash fires when the condition has at least one equi key
var JoinHash = &Rule{
	Name:    "JoinHash",
	Operand: plan.KindJoin,
	Implement: func(b *Binding) []physical.Node {
		j := b.Node.(*plan.Join)
		keys, residual := splitEquiJoin(j.Condition, len(j.Left.Schema()))
		if len(keys) == 0 {
			return nil
		}
		return []physical.Node{
			physical.NewHashJoin(j.JoinKind, b.Row(0), b.Row(1), keys, residual),
		}
	},
}

var AggregateImpl = &Rule{
	Name:    "AggregateImpl",
	Operand: plan.KindAggregate,
	Implement: func(b *Binding) []physical.Node {
		a := b.Node.(*plan.Aggregate)
		return []physical.Node{
			physical.NewHashAggregate(b.Row(0), a.Keys, a.Calls, a.Schema()),
		}
	},
}

var SortImpl = &Rule{
	Name:    "SortImpl",
	Operand: plan.KindSort,
	Implement: func(b *Binding) []physical.Node {
		s := b.Node.(*plan.Sort)
		return []physical.Node{
			&physical.Sort{
				Input: b.Row(0),
				Keys:  s.Keys,
			},
		}
	},
}

var LimitImpl = &Rule{
	Name:    "LimitImpl",
	Operand: plan.KindLimit,
	Implement: func(b *Binding) []physical.Node {
		l := b.Node.(*plan.Limit)
		return []physical.Node{
			&physical.Limit{
				Input: b.Row(0),
				Count: l.Count,
			},
		}
	},
}

var ValuesImpl = &Rule{
	Name:    "ValuesImpl",
	Operand: plan.KindValues,
	Implement: func(b *Binding) []physical.Node {
		return []physical.Node{&physical.Values{}}
	},
}

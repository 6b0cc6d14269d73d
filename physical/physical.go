// Package physical is the output of the optimizer: a tree of executable
// operators, each tagged with the calling convention it runs in.
//
// Two conventions exist. ROW operators exchange rows one at a time and are
// executed by the row runtime. NATIVE operators run inside of the data
// source itself, eg a scan whose predicate and projection are evaluated by
// the source. Only a Converter may consume an input of a different
// convention than its own.
package physical

import (
	"github.com/dianpeng/sql2plan/types"
)

type Convention int

const (
	Row Convention = iota
	Native
)

func (self Convention) String() string {
	if self == Native {
		return "NATIVE"
	}
	return "ROW"
}

// Op enumerates the physical operators. The declaration order is also the
// preference order of equally costed alternatives.
type Op int

const (
	OpTableScan Op = iota
	OpNativeScan
	OpValues
	OpFilter
	OpProject
	OpHashJoin
	OpNestedLoopJoin
	OpHashAggregate
	OpSort
	OpLimit
	OpConverter
)

func (self Op) String() string {
	switch self {
	case OpTableScan:
		return "TableScan"
	case OpNativeScan:
		return "NativeScan"
	case OpValues:
		return "Values"
	case OpFilter:
		return "Filter"
	case OpProject:
		return "Project"
	case OpHashJoin:
		return "HashJoin"
	case OpNestedLoopJoin:
		return "NestedLoopJoin"
	case OpHashAggregate:
		return "HashAggregate"
	case OpSort:
		return "Sort"
	case OpLimit:
		return "Limit"
	default:
		return "Converter"
	}
}

type Node interface {
	Op() Op
	Convention() Convention
	Schema() types.Schema
	Inputs() []Node

	// WithInputs returns a shallow copy of the node reading from inputs
	WithInputs(inputs []Node) Node

	String() string
}

// Walk visits n and all of its inputs in pre-order
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, in := range n.Inputs() {
		Walk(in, fn)
	}
}

// Count returns how many nodes of n use op
func Count(n Node, op Op) int {
	cnt := 0
	Walk(n, func(x Node) {
		if x.Op() == op {
			cnt++
		}
	})
	return cnt
}

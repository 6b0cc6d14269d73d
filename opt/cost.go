package opt

import (
	"fmt"
	"math"

	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/scalar"
)

// Cost of a physical plan. CPU is cumulative over the whole subtree, Rows is
// the estimated output cardinality of its root.
type Cost struct {
	Rows float64
	CPU  float64
}

func (self Cost) String() string {
	return fmt.Sprintf("rows=%.0f, cpu=%.2f", self.Rows, self.CPU)
}

// Less orders by CPU, then by Rows
func (self Cost) Less(that Cost) bool {
	if self.CPU != that.CPU {
		return self.CPU < that.CPU
	}
	return self.Rows < that.Rows
}

const (
	selEqual   = 0.15
	selRange   = 0.5
	selNotEq   = 0.9
	selLike    = 0.25
	selDefault = 0.25

	// the fraction of the input rows that form distinct groups
	groupRatio = 0.1

	nativeScanFactor = 0.8
	projectFactor    = 0.1
	limitFactor      = 0.1
	converterFactor  = 0.05
	valuesCost       = 1.0
)

// Selectivity estimates the fraction of rows satisfying a predicate
func Selectivity(e scalar.Expr) float64 {
	if l, ok := e.(*scalar.Literal); ok {
		if b, ok := l.Value.(bool); ok && b {
			return 1
		}
		return selDefault
	}
	c, ok := e.(*scalar.Call)
	if !ok {
		return selDefault
	}

	switch c.Op.Name {
	case operator.Eq:
		return selEqual
	case operator.Lt, operator.Le, operator.Gt, operator.Ge:
		return selRange
	case operator.Ne:
		return selNotEq
	case operator.Like:
		return selLike
	case operator.And:
		return Selectivity(c.Args[0]) * Selectivity(c.Args[1])
	case operator.Or:
		return math.Min(1, Selectivity(c.Args[0])+Selectivity(c.Args[1]))
	case operator.Not:
		return 1 - Selectivity(c.Args[0])
	default:
		return selDefault
	}
}

func floorRows(rows float64) float64 {
	return math.Max(1, rows)
}

// estimateRows derives the output cardinality of a logical node from the
// cardinality of its inputs
func estimateRows(n plan.Node, inputs []float64) float64 {
	switch v := n.(type) {
	case *plan.Scan:
		return floorRows(float64(v.Handle().EstimatedRowCount()))
	case *plan.Filter:
		return floorRows(inputs[0] * Selectivity(v.Condition))
	case *plan.Project, *plan.Sort:
		return inputs[0]
	case *plan.Join:
		if len(equiKeys(v.Condition, len(v.Left.Schema()))) != 0 {
			return math.Max(inputs[0], inputs[1])
		}
		return floorRows(inputs[0] * inputs[1])
	case *plan.Aggregate:
		if len(v.Keys) == 0 {
			return 1
		}
		return floorRows(inputs[0] * groupRatio)
	case *plan.Limit:
		return floorRows(math.Min(inputs[0], float64(v.Count)))
	default:
		return 1
	}
}

// operatorCost is the CPU spent by a physical operator itself, rows is the
// cardinality of its group and inputs the cardinality of its input groups
func operatorCost(n physical.Node, rows float64, inputs []float64) float64 {
	switch v := n.(type) {
	case *physical.TableScan:
		return rows
	case *physical.NativeScan:
		total := float64(len(v.Entry.Schema))
		cols := total
		if v.Columns != nil {
			cols = float64(len(v.Columns))
		}
		return rows * nativeScanFactor * (0.5 + 0.5*cols/total)
	case *physical.Filter:
		return inputs[0] * Selectivity(v.Condition)
	case *physical.Project:
		return inputs[0] * projectFactor
	case *physical.NestedLoopJoin:
		return inputs[0] * inputs[1]
	case *physical.HashJoin:
		return inputs[0] + inputs[1]
	case *physical.HashAggregate:
		return inputs[0] * math.Log2(math.Max(rows, 2))
	case *physical.Sort:
		return inputs[0] * math.Log2(math.Max(inputs[0], 2))
	case *physical.Limit:
		return rows * limitFactor
	case *physical.Converter:
		return rows * converterFactor
	default:
		return valuesCost
	}
}

package operator

import (
	"github.com/dianpeng/sql2plan/types"
)

// Signature is the rule of a fixed signature overload, each argument must
// widen to its parameter.
func Signature(result types.Type, params ...types.Type) TypeRule {
	return func(args []types.Type) (types.Type, int, bool) {
		if len(args) != len(params) {
			return types.Type{}, 0, false
		}
		total := 0
		for i, a := range args {
			cost, ok := types.WidenCost(a, params[i])
			if !ok {
				return types.Type{}, 0, false
			}
			total += cost
		}
		return result, total, true
	}
}

func numericOrNull(t types.Type) bool {
	return t.IsNumeric() || t.IsNull()
}

// NumericBinary types arithmetic, the result is the least restrictive type of
// both sides.
func NumericBinary(args []types.Type) (types.Type, int, bool) {
	if len(args) != 2 || !numericOrNull(args[0]) || !numericOrNull(args[1]) {
		return types.Type{}, 0, false
	}
	ty, ok := types.LeastRestrictive(args[0], args[1])
	if !ok {
		return types.Type{}, 0, false
	}
	if ty.IsNull() {
		ty = types.Integer
	}
	return ty, 0, true
}

// NumericUnary keeps the type of its numeric operand
func NumericUnary(args []types.Type) (types.Type, int, bool) {
	if len(args) != 1 || !numericOrNull(args[0]) {
		return types.Type{}, 0, false
	}
	if args[0].IsNull() {
		return types.Integer, 0, true
	}
	return args[0], 0, true
}

func Compare(args []types.Type) (types.Type, int, bool) {
	if len(args) != 2 || !types.Comparable(args[0], args[1]) {
		return types.Type{}, 0, false
	}
	return types.Boolean, 0, true
}

func Logical(args []types.Type) (types.Type, int, bool) {
	if len(args) == 0 {
		return types.Type{}, 0, false
	}
	for _, a := range args {
		if a != types.Boolean && !a.IsNull() {
			return types.Type{}, 0, false
		}
	}
	return types.Boolean, 0, true
}

// NullTest accepts an operand of any type
func NullTest(args []types.Type) (types.Type, int, bool) {
	if len(args) != 1 {
		return types.Type{}, 0, false
	}
	return types.Boolean, 0, true
}

func CountRule(args []types.Type) (types.Type, int, bool) {
	if len(args) > 1 {
		return types.Type{}, 0, false
	}
	return types.Integer, 0, true
}

func SumRule(args []types.Type) (types.Type, int, bool) {
	if len(args) != 1 || !numericOrNull(args[0]) {
		return types.Type{}, 0, false
	}
	switch a := args[0]; a.Kind {
	case types.KindDecimal:
		return types.Decimal(38, a.Scale), 0, true
	case types.KindFloat:
		return types.Float, 0, true
	default:
		return types.Integer, 0, true
	}
}

func AvgRule(args []types.Type) (types.Type, int, bool) {
	if len(args) != 1 || !numericOrNull(args[0]) {
		return types.Type{}, 0, false
	}
	if a := args[0]; a.Kind == types.KindDecimal {
		return types.Decimal(38, max(a.Scale, 6)), 0, true
	}
	return types.Float, 0, true
}

// MinMaxRule accepts any orderable type and keeps it
func MinMaxRule(args []types.Type) (types.Type, int, bool) {
	if len(args) != 1 || args[0] == types.Boolean {
		return types.Type{}, 0, false
	}
	return args[0], 0, true
}

package operator

import (
	"github.com/dianpeng/sql2plan/types"
)

// Names of the built-in operators the rest of the compiler refers to
const (
	Add       = "+"
	Sub       = "-"
	Mul       = "*"
	Div       = "/"
	Mod       = "%"
	Neg       = "NEG"
	Eq        = "="
	Ne        = "<>"
	Lt        = "<"
	Le        = "<="
	Gt        = ">"
	Ge        = ">="
	And       = "AND"
	Or        = "OR"
	Not       = "NOT"
	Like      = "LIKE"
	IsNull    = "IS NULL"
	IsNotNull = "IS NOT NULL"
	Count     = "COUNT"
	Sum       = "SUM"
	Avg       = "AVG"
	Min       = "MIN"
	Max       = "MAX"
)

func standard(b *Builder) *Builder {
	for _, name := range []string{Add, Sub, Mul, Div, Mod} {
		b.Register(name, 2, KindArithmetic, NumericBinary)
	}
	b.Register(Neg, 1, KindArithmetic, NumericUnary)

	for _, name := range []string{Eq, Ne, Lt, Le, Gt, Ge} {
		b.Register(name, 2, KindComparison, Compare)
	}

	b.Register(And, 2, KindLogical, Logical)
	b.Register(Or, 2, KindLogical, Logical)
	b.Register(Not, 1, KindLogical, Logical)

	b.Register(Like, 2, KindPredicate, Signature(types.Boolean, types.String, types.String))
	b.Register(IsNull, 1, KindPredicate, NullTest)
	b.Register(IsNotNull, 1, KindPredicate, NullTest)

	b.Register(Count, 0, KindAggregate, CountRule)
	b.Register(Count, 1, KindAggregate, CountRule)
	b.Register(Sum, 1, KindAggregate, SumRule)
	b.Register(Avg, 1, KindAggregate, AvgRule)
	b.Register(Min, 1, KindAggregate, MinMaxRule)
	b.Register(Max, 1, KindAggregate, MinMaxRule)

	b.Register("ABS", 1, KindFunction, NumericUnary)
	b.Register("UPPER", 1, KindFunction, Signature(types.String, types.String))
	b.Register("LOWER", 1, KindFunction, Signature(types.String, types.String))
	return b
}

// Standard returns the registry of the SQL operators and aggregates
func Standard() *Registry {
	return standard(NewBuilder()).Build()
}

// Extended is Standard plus the function style operators of the processor's
// own operator table.
func Extended() *Registry {
	b := standard(NewBuilder())

	for _, name := range []string{"ADD", "PLUS"} {
		b.Register(name, 2, KindFunction, Signature(types.Integer, types.Integer, types.Integer))
		b.Register(name, 2, KindFunction, Signature(types.Float, types.Float, types.Float))
	}

	b.Register(
		"CONVERT_TIMEZONE",
		3,
		KindFunction,
		Signature(types.Timestamp, types.String, types.String, types.Timestamp),
	)
	b.Register(
		"DATETIME",
		2,
		KindFunction,
		Signature(types.Timestamp, types.Timestamp, types.String),
	)
	return b.Build()
}

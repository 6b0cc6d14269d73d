package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind enumerates the closed set of column types. KindNull only types the
// NULL literal and never shows up inside of a table schema.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindString
	KindBoolean
	KindDate
	KindTimestamp
	KindDecimal
	KindNull
)

const (
	maxDecimalPrecision = 38
	intDecimalPrecision = 19
)

type Type struct {
	Kind      Kind
	Precision int // only for DECIMAL
	Scale     int // only for DECIMAL
}

var (
	Integer   = Type{Kind: KindInteger}
	Float     = Type{Kind: KindFloat}
	String    = Type{Kind: KindString}
	Boolean   = Type{Kind: KindBoolean}
	Date      = Type{Kind: KindDate}
	Timestamp = Type{Kind: KindTimestamp}
	Null      = Type{Kind: KindNull}
)

func Decimal(p, s int) Type {
	if p > maxDecimalPrecision {
		p = maxDecimalPrecision
	}
	if s > p {
		s = p
	}
	return Type{Kind: KindDecimal, Precision: p, Scale: s}
}

func (self Type) String() string {
	switch self.Kind {
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindBoolean:
		return "BOOLEAN"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", self.Precision, self.Scale)
	case KindNull:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

func (self Type) IsNumeric() bool {
	switch self.Kind {
	case KindInteger, KindFloat, KindDecimal:
		return true
	default:
		return false
	}
}

func (self Type) IsNull() bool { return self.Kind == KindNull }

// numeric widening order, INTEGER -> DECIMAL -> FLOAT
func numericRank(k Kind) int {
	switch k {
	case KindInteger:
		return 0
	case KindDecimal:
		return 1
	case KindFloat:
		return 2
	default:
		return -1
	}
}

// WidenCost returns the cost of implicitly converting a value of type from
// into type to. Only numeric widening and NULL are implicit, everything else
// must match exactly.
func WidenCost(from, to Type) (int, bool) {
	if from == to {
		return 0, true
	}
	if from.Kind == KindNull {
		return 1, true
	}
	if from.Kind == KindDecimal && to.Kind == KindDecimal {
		if to.Precision-to.Scale >= from.Precision-from.Scale && to.Scale >= from.Scale {
			return 1, true
		}
		return 0, false
	}
	fr, tr := numericRank(from.Kind), numericRank(to.Kind)
	if fr < 0 || tr < 0 || fr > tr {
		return 0, false
	}
	return tr - fr, true
}

// LeastRestrictive returns the narrowest type both a and b widen to.
func LeastRestrictive(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if a.Kind == KindNull {
		return b, true
	}
	if b.Kind == KindNull {
		return a, true
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Type{}, false
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float, true
	}

	// at least one of them is a decimal
	ad, bd := asDecimal(a), asDecimal(b)
	scale := max(ad.Scale, bd.Scale)
	whole := max(ad.Precision-ad.Scale, bd.Precision-bd.Scale)
	return Decimal(whole+scale, scale), true
}

func asDecimal(t Type) Type {
	if t.Kind == KindInteger {
		return Decimal(intDecimalPrecision, 0)
	}
	return t
}

// Comparable reports whether values of a and b can be compared with each
// other after implicit widening.
func Comparable(a, b Type) bool {
	if _, ok := LeastRestrictive(a, b); ok {
		return true
	}
	return false
}

// Parse turns a textual type name used by configuration files into a Type.
func Parse(name string) (Type, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "INTEGER", "INT", "BIGINT", "SMALLINT":
		return Integer, nil
	case "FLOAT", "DOUBLE", "REAL":
		return Float, nil
	case "STRING", "VARCHAR", "CHAR", "TEXT":
		return String, nil
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "DATE":
		return Date, nil
	case "TIMESTAMP":
		return Timestamp, nil
	case "DECIMAL":
		return Decimal(intDecimalPrecision, 0), nil
	}

	if strings.HasPrefix(n, "DECIMAL(") && strings.HasSuffix(n, ")") {
		args := strings.Split(n[len("DECIMAL("):len(n)-1], ",")
		if len(args) == 1 || len(args) == 2 {
			p, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return Type{}, errors.Wrapf(err, "type %q", name)
			}
			s := 0
			if len(args) == 2 {
				if s, err = strconv.Atoi(strings.TrimSpace(args[1])); err != nil {
					return Type{}, errors.Wrapf(err, "type %q", name)
				}
			}
			if p <= 0 || s < 0 || s > p || p > maxDecimalPrecision {
				return Type{}, errors.Newf("type %q: invalid precision/scale", name)
			}
			return Decimal(p, s), nil
		}
	}
	return Type{}, errors.Newf("unknown type %q", name)
}

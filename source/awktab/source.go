// Package awktab is a source of delimited text tables whose native scans are
// executed as AWK programs. The predicate conjuncts and the projection pushed
// into a native scan are rendered into the program, so only the matching
// rows and the requested fields ever leave the interpreter.
package awktab

import (
	"os"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

const (
	DefaultDelimiter = ","

	// average line width assumed when the row count is estimated from the
	// file size
	bytesPerRow = 64
)

// Source is a delimited text file. It implements catalog.SourceHandle.
type Source struct {
	Path      string
	Delimiter string // field separator, a single character or an AWK regex
	Skip      int    // leading lines to ignore, eg a header

	// Rows overrides the row count estimation, which is otherwise derived
	// from the size of the file
	Rows int64
}

var _ catalog.SourceHandle = (*Source)(nil)

func (self *Source) Location() string                 { return self.Path }
func (self *Source) SupportsFilterPushdown() bool     { return true }
func (self *Source) SupportsProjectionPushdown() bool { return true }

func (self *Source) delimiter() string {
	if self.Delimiter == "" {
		return DefaultDelimiter
	}
	return self.Delimiter
}

func (self *Source) EstimatedRowCount() int64 {
	if self.Rows > 0 {
		return self.Rows
	}
	st, err := os.Stat(self.Path)
	if err != nil {
		return catalog.DefaultRowCount
	}
	return max(st.Size()/bytesPerRow, 1)
}

// CanExpress accepts column references, comparisons between a column and a
// literal, LIKE against a string pattern, null tests of a column, and boolean
// combinations of those. The rendered program keeps the SQL meaning of NULL,
// see renderPredicate.
func (self *Source) CanExpress(e scalar.Expr) bool {
	switch v := e.(type) {
	case *scalar.ColumnRef:
		return true

	case *scalar.Call:
		switch {
		case v.Op.Kind == operator.KindLogical:
			for _, a := range v.Args {
				if !self.CanExpress(a) {
					return false
				}
			}
			return true

		case v.Op.Kind == operator.KindComparison && len(v.Args) == 2:
			col, lit := v.Args[0], v.Args[1]
			if _, ok := col.(*scalar.Literal); ok {
				col, lit = lit, col
			}
			_, ok := col.(*scalar.ColumnRef)
			return ok && comparable(lit)

		case v.Op.Name == operator.IsNull || v.Op.Name == operator.IsNotNull:
			_, ok := v.Args[0].(*scalar.ColumnRef)
			return ok

		case v.Op.Name == operator.Like:
			_, ok := v.Args[0].(*scalar.ColumnRef)
			l, lok := v.Args[1].(*scalar.Literal)
			if !ok || !lok {
				return false
			}
			_, isStr := l.Value.(string)
			return isStr
		}
	}
	return false
}

// comparable tells whether AWK compares the literal with a field the way SQL
// would: numbers numerically, strings and dates lexically
func comparable(e scalar.Expr) bool {
	l, ok := e.(*scalar.Literal)
	if !ok || l.Value == nil {
		return false
	}
	switch l.Ty.Kind {
	case types.KindInteger, types.KindFloat, types.KindDecimal, types.KindString, types.KindDate:
		return true
	default:
		return false
	}
}

package catalog

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
)

// DefaultRowCount is assumed for sources that do not know their size
const DefaultRowCount = 100

// IndexedSource is the reference SourceHandle of an indexed store. It can
// evaluate an equality or range comparison between an indexed column and a
// literal, and it can return a subset of the columns.
type IndexedSource struct {
	Loc        string
	Rows       int64
	Filter     bool
	Projection bool

	// positions of the indexed columns, nil means every column is indexed
	Indexed mapset.Set[int]
}

func (self *IndexedSource) Location() string                 { return self.Loc }
func (self *IndexedSource) SupportsFilterPushdown() bool     { return self.Filter }
func (self *IndexedSource) SupportsProjectionPushdown() bool { return self.Projection }

func (self *IndexedSource) EstimatedRowCount() int64 {
	if self.Rows <= 0 {
		return DefaultRowCount
	}
	return self.Rows
}

func (self *IndexedSource) indexed(col int) bool {
	return self.Indexed == nil || self.Indexed.Contains(col)
}

func (self *IndexedSource) CanExpress(e scalar.Expr) bool {
	switch v := e.(type) {
	case *scalar.ColumnRef:
		return true

	case *scalar.Call:
		if v.Op.Kind != operator.KindComparison || len(v.Args) != 2 {
			return false
		}
		col, lit := v.Args[0], v.Args[1]
		if _, ok := col.(*scalar.Literal); ok {
			col, lit = lit, col
		}
		c, ok := col.(*scalar.ColumnRef)
		if !ok || !self.indexed(c.Index) {
			return false
		}
		l, ok := lit.(*scalar.Literal)
		return ok && l.Value != nil

	default:
		return false
	}
}

// Package scalar holds the typed scalar expression trees shared by the
// validator, the logical plan and the physical plan. A node's type is fixed
// when it is constructed and nodes are never mutated afterwards, rewrites
// always build new nodes.
package scalar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/types"
)

type Expr interface {
	Type() types.Type

	// human readable form, columns are printed by name
	String() string

	// canonical form, columns are printed by position. Two expressions with
	// the same digest are interchangeable.
	Digest() string
}

// ColumnRef refers to a column of the input row by position
type ColumnRef struct {
	Index int
	Name  string
	Ty    types.Type
}

// Literal value. The Go type of Value depends on the SQL type:
//
//	NULL          nil
//	BOOLEAN       bool
//	INTEGER       int64
//	FLOAT         float64
//	DECIMAL       string, the literal text
//	STRING        string
//	DATE          time.Time
//	TIMESTAMP     time.Time
type Literal struct {
	Value interface{}
	Ty    types.Type
}

// Call is an application of an operator, or an aggregate when the operator
// is one.
type Call struct {
	Op       *operator.Operator
	Args     []Expr
	Ty       types.Type
	Distinct bool
}

func (self *ColumnRef) Type() types.Type { return self.Ty }
func (self *Literal) Type() types.Type   { return self.Ty }
func (self *Call) Type() types.Type      { return self.Ty }

func (self *ColumnRef) String() string {
	if self.Name == "" {
		return self.Digest()
	}
	return self.Name
}

func (self *ColumnRef) Digest() string {
	return "$" + strconv.Itoa(self.Index)
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (self *Literal) String() string {
	switch v := self.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		if self.Ty.Kind == types.KindDecimal {
			return v
		}
		return quote(v)
	case time.Time:
		if self.Ty.Kind == types.KindDate {
			return "DATE " + quote(v.Format(dateLayout))
		}
		return "TIMESTAMP " + quote(v.Format(timestampLayout))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (self *Literal) Digest() string {
	return self.String() + ":" + self.Ty.String()
}

func (self *Call) print(buf *strings.Builder, digest bool) {
	arg := func(e Expr) {
		if digest {
			buf.WriteString(e.Digest())
		} else {
			buf.WriteString(e.String())
		}
	}

	switch {
	case self.Op.Infix():
		buf.WriteString("(")
		arg(self.Args[0])
		buf.WriteString(" ")
		buf.WriteString(self.Op.Name)
		buf.WriteString(" ")
		arg(self.Args[1])
		buf.WriteString(")")

	case self.Op.Name == operator.Neg:
		buf.WriteString("-")
		arg(self.Args[0])

	case self.Op.Kind == operator.KindPredicate && len(self.Args) == 1:
		buf.WriteString("(")
		arg(self.Args[0])
		buf.WriteString(" ")
		buf.WriteString(self.Op.Name)
		buf.WriteString(")")

	default:
		buf.WriteString(self.Op.Name)
		buf.WriteString("(")
		if self.Distinct {
			buf.WriteString("DISTINCT ")
		}
		if self.Op.IsAggregate() && len(self.Args) == 0 {
			buf.WriteString("*")
		}
		for i, a := range self.Args {
			if i > 0 {
				buf.WriteString(", ")
			}
			arg(a)
		}
		buf.WriteString(")")
	}

	if digest {
		buf.WriteString("#")
		buf.WriteString(strconv.Itoa(int(self.Op.ID)))
	}
}

func (self *Call) String() string {
	buf := strings.Builder{}
	self.print(&buf, false)
	return buf.String()
}

func (self *Call) Digest() string {
	buf := strings.Builder{}
	self.print(&buf, true)
	return buf.String()
}

// ----------------------------------------------------------------------------
// constructors
// ----------------------------------------------------------------------------

func Col(index int, name string, ty types.Type) *ColumnRef {
	return &ColumnRef{
		Index: index,
		Name:  name,
		Ty:    ty,
	}
}

func Lit(v interface{}, ty types.Type) *Literal {
	return &Literal{
		Value: v,
		Ty:    ty,
	}
}

func Int(v int64) *Literal      { return Lit(v, types.Integer) }
func Float(v float64) *Literal  { return Lit(v, types.Float) }
func Str(v string) *Literal     { return Lit(v, types.String) }
func Bool(v bool) *Literal      { return Lit(v, types.Boolean) }
func Null() *Literal            { return Lit(nil, types.Null) }
func Date(v time.Time) *Literal { return Lit(v, types.Date) }

func NewCall(op *operator.Operator, ty types.Type, args ...Expr) *Call {
	return &Call{
		Op:   op,
		Args: args,
		Ty:   ty,
	}
}

// And folds conjuncts into a left deep tree of the AND operator, an empty
// list is TRUE.
func And(and *operator.Operator, conjuncts ...Expr) Expr {
	if len(conjuncts) == 0 {
		return Bool(true)
	}
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		out = NewCall(and, types.Boolean, out, c)
	}
	return out
}

func IsTrue(e Expr) bool {
	l, ok := e.(*Literal)
	if !ok {
		return false
	}
	b, ok := l.Value.(bool)
	return ok && b
}

func IsLiteral(e Expr) bool {
	_, ok := e.(*Literal)
	return ok
}

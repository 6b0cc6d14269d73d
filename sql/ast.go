package sql

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/sqlerr"
)

const (
	ConstNull = iota
	ConstBool
	ConstStr
	ConstInt
	ConstReal
	ConstDate
	ConstTimestamp
)

const (
	ExprConst = iota
	ExprRef
	ExprCall
	ExprUnary
	ExprBinary
)

const (
	SelectVarCol = iota
	SelectVarStar
)

const (
	OrderAsc = iota
	OrderDesc
)

// How a FROM item is attached to the items on its left
const (
	JoinNone = iota // first item of the FROM clause
	JoinComma
	JoinInner
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// Select statement, ie the only one we support for now :)

type SelectVar interface {
	Type() int
	CInfo() CodeInfo

	// Index starting from 0 of the select item inside of the projection
	Index() int

	// If the field has an aliased, via as keyword, then it returns otherwise
	// returns an empty string
	Alias() string
}

type Col struct {
	CodeInfo CodeInfo
	ColIndex int
	As       string
	Value    Expr
}

// Star is either * or table.*
type Star struct {
	CodeInfo CodeInfo
	ColIndex int
	Table    string
}

func (self *Col) Type() int       { return SelectVarCol }
func (self *Col) CInfo() CodeInfo { return self.CodeInfo }
func (self *Col) Index() int      { return self.ColIndex }
func (self *Col) Alias() string   { return self.As }

func (self *Star) Type() int       { return SelectVarStar }
func (self *Star) CInfo() CodeInfo { return self.CodeInfo }
func (self *Star) Index() int      { return self.ColIndex }
func (self *Star) Alias() string   { return "" }

type SelectVarList []SelectVar

type Projection struct {
	CodeInfo  CodeInfo
	ValueList SelectVarList
}

func (self *SelectVarList) HasStar() bool {
	for _, y := range *self {
		if y.Type() == SelectVarStar {
			return true
		}
	}
	return false
}

// FromVar is one table reference of the FROM clause. Except the very first
// one, each item records how it is joined with everything on its left.
type FromVar struct {
	CodeInfo CodeInfo
	Name     string
	Alias    string
	Join     int
	On       Expr // only for explicit joins, may be nil
}

// Binding name of the table, ie the alias if one is given
func (self *FromVar) Binding() string {
	if self.Alias != "" {
		return self.Alias
	}
	return self.Name
}

type From struct {
	CodeInfo CodeInfo
	VarList  []*FromVar
}

type Where struct {
	CodeInfo  CodeInfo
	Condition Expr
}

type Having Where

type GroupBy struct {
	CodeInfo CodeInfo
	Name     []Expr
}

type OrderVar struct {
	Value Expr
	Order int
}

type OrderBy struct {
	CodeInfo CodeInfo
	VarList  []*OrderVar
}

type Limit struct {
	CodeInfo CodeInfo
	Limit    int64
}

type Select struct {
	CodeInfo CodeInfo
	Distinct bool // whether a distinct selection, ie dedup

	Projection *Projection // projection
	From       *From       // from clause, nil when the query has none
	Where      *Where      // where clause
	GroupBy    *GroupBy    // group by
	Having     *Having     // having
	OrderBy    *OrderBy    // order by
	Limit      *Limit      // limit clause
}

type Code struct {
	CodeInfo CodeInfo
	Select   *Select
	Source   string
}

// Position converts an offset of the source into line/column
func (self *Code) Position(offset int) sqlerr.Pos {
	return position(self.Source, offset)
}

/** -------------------------------------------------------------------------
 ** Expression
 ** -----------------------------------------------------------------------*/

type Const struct {
	Ty       int
	Bool     bool
	String   string // string literal, or the text of DATE/TIMESTAMP literal
	Real     float64
	Int      int64
	Text     string // raw text of numeric literal
	CodeInfo CodeInfo
}

// Column reference, optionally qualified by table name or alias
type Ref struct {
	Table    string
	Id       string
	CodeInfo CodeInfo
}

// Function call. Star is set for COUNT(*) style calls.
type Call struct {
	Name       string
	Parameters []Expr
	Distinct   bool
	Star       bool
	CodeInfo   CodeInfo
}

type Unary struct {
	Op       int
	Operand  Expr
	CodeInfo CodeInfo
}

type Binary struct {
	Op       int
	L        Expr
	R        Expr
	CodeInfo CodeInfo
}

type Expr interface {
	Type() int
	CInfo() CodeInfo
}

func (self *Const) Type() int       { return ExprConst }
func (self *Const) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ref) Type() int       { return ExprRef }
func (self *Ref) CInfo() CodeInfo { return self.CodeInfo }

func (self *Call) Type() int       { return ExprCall }
func (self *Call) CInfo() CodeInfo { return self.CodeInfo }

func (self *Unary) Type() int       { return ExprUnary }
func (self *Unary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Binary) Type() int       { return ExprBinary }
func (self *Binary) CInfo() CodeInfo { return self.CodeInfo }

/* ----------------------------------------------------------------------------
 * Visitor
 * ---------------------------------------------------------------------------*/

type ExprVisitor interface {
	AcceptConst(*Const) (bool, error)
	AcceptRef(*Ref) (bool, error)
	AcceptCall(*Call) (bool, error)
	AcceptUnary(*Unary) (bool, error)
	AcceptBinary(*Binary) (bool, error)
}

func visitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	switch expr.Type() {
	case ExprConst:
		_, err := visitor.AcceptConst(expr.(*Const))
		return err

	case ExprRef:
		_, err := visitor.AcceptRef(expr.(*Ref))
		return err

	case ExprCall:
		call := expr.(*Call)
		if goon, err := visitor.AcceptCall(call); err != nil {
			return err
		} else if goon {
			for _, x := range call.Parameters {
				if err := visitExprPreOrder(visitor, x); err != nil {
					return err
				}
			}
		}
		return nil

	case ExprUnary:
		unary := expr.(*Unary)
		if goon, err := visitor.AcceptUnary(unary); err != nil {
			return err
		} else if goon {
			return visitExprPreOrder(visitor, unary.Operand)
		}
		return nil

	case ExprBinary:
		binary := expr.(*Binary)
		if goon, err := visitor.AcceptBinary(binary); err != nil {
			return err
		} else if goon {
			if err := visitExprPreOrder(visitor, binary.L); err != nil {
				return err
			}
			if err := visitExprPreOrder(visitor, binary.R); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

func VisitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	return visitExprPreOrder(visitor, expr)
}

/* ----------------------------------------------------------------------------
 * Printing
 * ---------------------------------------------------------------------------*/

func doPrintExprConst(c *Const, buf *bytes.Buffer) {
	switch c.Ty {
	case ConstBool:
		buf.WriteString(fmt.Sprintf("%t", c.Bool))
	case ConstStr:
		buf.WriteString(quote(c.String))
	case ConstInt:
		buf.WriteString(fmt.Sprintf("%d", c.Int))
	case ConstReal:
		buf.WriteString(c.Text)
	case ConstDate:
		buf.WriteString("date ")
		buf.WriteString(quote(c.String))
	case ConstTimestamp:
		buf.WriteString("timestamp ")
		buf.WriteString(quote(c.String))
	case ConstNull:
		buf.WriteString("null")
	default:
		panic("unreachable")
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func doPrintExprRef(r *Ref, buf *bytes.Buffer) {
	if r.Table != "" {
		buf.WriteString(r.Table)
		buf.WriteString(".")
	}
	buf.WriteString(r.Id)
}

func doPrintExprCall(c *Call, buf *bytes.Buffer) {
	buf.WriteString(c.Name)
	buf.WriteString("(")
	if c.Distinct {
		buf.WriteString("distinct ")
	}
	if c.Star {
		buf.WriteString("*")
	}
	for idx, entry := range c.Parameters {
		if idx > 0 {
			buf.WriteString(",")
		}
		doPrintExpr(entry, buf)
	}
	buf.WriteString(")")
}

func doPrintExprUnary(u *Unary, buf *bytes.Buffer) {
	switch u.Op {
	case TkSub:
		buf.WriteString("-")
		doPrintExpr(u.Operand, buf)
	case TkNot:
		buf.WriteString("!")
		doPrintExpr(u.Operand, buf)
	case TkIsNull:
		buf.WriteString("(")
		doPrintExpr(u.Operand, buf)
		buf.WriteString(" is null)")
	case TkIsNotNull:
		buf.WriteString("(")
		doPrintExpr(u.Operand, buf)
		buf.WriteString(" is not null)")
	default:
		panic("unreachable")
	}
}

func BinaryOpString(op int) string {
	switch op {
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "="
	case TkNe:
		return "<>"
	case TkAnd:
		return " and "
	case TkOr:
		return " or "
	case TkLike:
		return " like "
	case TkNotLike:
		return " not like "
	default:
		panic("unreachable")
	}
}

func doPrintExprBinary(b *Binary, buf *bytes.Buffer) {
	buf.WriteString("(")
	doPrintExpr(b.L, buf)
	buf.WriteString(BinaryOpString(b.Op))
	doPrintExpr(b.R, buf)
	buf.WriteString(")")
}

func doPrintExpr(expr Expr, buf *bytes.Buffer) {
	switch expr.Type() {
	case ExprConst:
		doPrintExprConst(expr.(*Const), buf)
	case ExprRef:
		doPrintExprRef(expr.(*Ref), buf)
	case ExprCall:
		doPrintExprCall(expr.(*Call), buf)
	case ExprUnary:
		doPrintExprUnary(expr.(*Unary), buf)
	case ExprBinary:
		doPrintExprBinary(expr.(*Binary), buf)
	default:
		panic("unreachable")
	}
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------
func doPrintStmtProjection(projection *Projection, buf *bytes.Buffer) {
	l := len(projection.ValueList)

	for idx, x := range projection.ValueList {
		switch x.Type() {
		case SelectVarCol:
			col := x.(*Col)
			doPrintExpr(col.Value, buf)
			if col.As != "" {
				buf.WriteString(" as ")
				buf.WriteString(col.As)
			}

		default:
			if star := x.(*Star); star.Table != "" {
				buf.WriteString(star.Table)
				buf.WriteString(".")
			}
			buf.WriteString("*")
		}

		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func joinString(j int) string {
	switch j {
	case JoinComma:
		return ", "
	case JoinInner:
		return "\ninner join "
	case JoinLeft:
		return "\nleft join "
	case JoinRight:
		return "\nright join "
	case JoinFull:
		return "\nfull join "
	case JoinCross:
		return "\ncross join "
	default:
		return ""
	}
}

func doPrintStmtFrom(from *From, buf *bytes.Buffer) {
	buf.WriteString("\nfrom ")

	for _, x := range from.VarList {
		buf.WriteString(joinString(x.Join))
		buf.WriteString(x.Name)
		if x.Alias != "" {
			buf.WriteString(" as ")
			buf.WriteString(x.Alias)
		}
		if x.On != nil {
			buf.WriteString(" on ")
			doPrintExpr(x.On, buf)
		}
	}
}

func doPrintStmtWhere(where *Where, buf *bytes.Buffer) {
	buf.WriteString("\nwhere ")
	doPrintExpr(where.Condition, buf)
}

func doPrintStmtGroupBy(gb *GroupBy, buf *bytes.Buffer) {
	buf.WriteString("\ngroup by ")
	l := len(gb.Name)
	for idx, x := range gb.Name {
		doPrintExpr(x, buf)
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintStmtHaving(having *Having, buf *bytes.Buffer) {
	buf.WriteString("\nhaving ")
	doPrintExpr(having.Condition, buf)
}

func doPrintStmtOrderBy(orderBy *OrderBy, buf *bytes.Buffer) {
	buf.WriteString("\norder by ")

	l := len(orderBy.VarList)
	for idx, x := range orderBy.VarList {
		doPrintExpr(x.Value, buf)
		if x.Order == OrderDesc {
			buf.WriteString(" desc")
		}
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintStmtLimit(limit *Limit, buf *bytes.Buffer) {
	buf.WriteString("\nlimit ")
	buf.WriteString(fmt.Sprintf("%d", limit.Limit))
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	if s.Distinct {
		buf.WriteString("select distinct\n")
	} else {
		buf.WriteString("select\n")
	}

	doPrintStmtProjection(s.Projection, buf)
	if s.From != nil {
		doPrintStmtFrom(s.From, buf)
	}
	if s.Where != nil {
		doPrintStmtWhere(s.Where, buf)
	}
	if s.GroupBy != nil {
		doPrintStmtGroupBy(s.GroupBy, buf)
	}
	if s.Having != nil {
		doPrintStmtHaving(s.Having, buf)
	}
	if s.OrderBy != nil {
		doPrintStmtOrderBy(s.OrderBy, buf)
	}
	if s.Limit != nil {
		doPrintStmtLimit(s.Limit, buf)
	}
}

func PrintExpr(expr Expr) string {
	if expr == nil {
		return ""
	}
	b := &bytes.Buffer{}
	doPrintExpr(expr, b)
	return b.String()
}

func PrintSelect(s *Select) string {
	b := &bytes.Buffer{}
	doPrintSelect(s, b)
	return b.String()
}

func PrintCode(c *Code) string {
	return PrintSelect(c.Select)
}

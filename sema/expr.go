package sema

import (
	"strings"
	"time"

	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
)

const (
	clauseSelect = iota
	clauseWhere
	clauseOn
	clauseGroupBy
	clauseHaving
	clauseOrderBy
)

func clauseName(c int) string {
	switch c {
	case clauseSelect:
		return "SELECT"
	case clauseWhere:
		return "WHERE"
	case clauseOn:
		return "ON"
	case clauseGroupBy:
		return "GROUP BY"
	case clauseHaving:
		return "HAVING"
	default:
		return "ORDER BY"
	}
}

type scope struct {
	visible     int // number of FROM tables visible to column references
	clause      int
	inAggregate bool
}

func newScope(visible int, clause int) scope {
	return scope{
		visible: visible,
		clause:  clause,
	}
}

func (self scope) aggregateAllowed() bool {
	switch self.clause {
	case clauseSelect, clauseHaving, clauseOrderBy:
		return true
	default:
		return false
	}
}

func binaryName(op int) string {
	switch op {
	case sql.TkAdd:
		return operator.Add
	case sql.TkSub:
		return operator.Sub
	case sql.TkMul:
		return operator.Mul
	case sql.TkDiv:
		return operator.Div
	case sql.TkMod:
		return operator.Mod
	case sql.TkEq:
		return operator.Eq
	case sql.TkNe:
		return operator.Ne
	case sql.TkLt:
		return operator.Lt
	case sql.TkLe:
		return operator.Le
	case sql.TkGt:
		return operator.Gt
	case sql.TkGe:
		return operator.Ge
	case sql.TkAnd:
		return operator.And
	case sql.TkOr:
		return operator.Or
	case sql.TkLike:
		return operator.Like
	default:
		return sql.BinaryOpString(op)
	}
}

func unaryName(op int) string {
	switch op {
	case sql.TkSub:
		return operator.Neg
	case sql.TkNot:
		return operator.Not
	case sql.TkIsNull:
		return operator.IsNull
	default:
		return operator.IsNotNull
	}
}

func (self *validation) expr(e sql.Expr, sc scope) (scalar.Expr, error) {
	switch v := e.(type) {
	case *sql.Const:
		return self.constant(v)

	case *sql.Ref:
		return self.column(v, sc)

	case *sql.Call:
		return self.call(v, sc)

	case *sql.Unary:
		operand, err := self.expr(v.Operand, sc)
		if err != nil {
			return nil, err
		}
		return self.resolve(unaryName(v.Op), v.CodeInfo, operand)

	case *sql.Binary:
		l, err := self.expr(v.L, sc)
		if err != nil {
			return nil, err
		}
		r, err := self.expr(v.R, sc)
		if err != nil {
			return nil, err
		}
		if v.Op == sql.TkNotLike {
			like, err := self.resolve(operator.Like, v.CodeInfo, l, r)
			if err != nil {
				return nil, err
			}
			return self.resolve(operator.Not, v.CodeInfo, like)
		}
		return self.resolve(binaryName(v.Op), v.CodeInfo, l, r)

	default:
		return nil, self.errAt(e.CInfo(), sqlerr.Unknown, "", "unsupported expression")
	}
}

func (self *validation) resolve(name string, ci sql.CodeInfo, args ...scalar.Expr) (*scalar.Call, error) {
	tys := make([]types.Type, 0, len(args))
	for _, a := range args {
		tys = append(tys, a.Type())
	}
	op, ty, err := self.v.Registry.Resolve(name, tys)
	if err != nil {
		return nil, sqlerr.At(err, self.pos(ci))
	}
	return scalar.NewCall(op, ty, args...), nil
}

func (self *validation) isAggregate(name string) bool {
	for _, op := range self.v.Registry.Lookup(name) {
		if op.IsAggregate() {
			return true
		}
	}
	return false
}

func (self *validation) call(c *sql.Call, sc scope) (scalar.Expr, error) {
	agg := self.isAggregate(c.Name)

	if agg {
		if !sc.aggregateAllowed() {
			return nil, self.errAt(
				c.CodeInfo,
				sqlerr.GroupingError,
				c.Name,
				"aggregate function %s is not allowed in %s",
				strings.ToUpper(c.Name),
				clauseName(sc.clause),
			)
		}
		if sc.inAggregate {
			return nil, self.errAt(
				c.CodeInfo,
				sqlerr.GroupingError,
				c.Name,
				"aggregate function calls cannot be nested",
			)
		}
	} else if c.Distinct {
		return nil, self.errAt(
			c.CodeInfo,
			sqlerr.UnknownFunction,
			c.Name,
			"DISTINCT is not allowed with function %s",
			strings.ToUpper(c.Name),
		)
	}

	inner := sc
	inner.inAggregate = sc.inAggregate || agg

	args := make([]scalar.Expr, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		a, err := self.expr(p, inner)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	out, err := self.resolve(c.Name, c.CodeInfo, args...)
	if err != nil {
		return nil, err
	}
	out.Distinct = c.Distinct
	return out, nil
}

func (self *validation) column(ref *sql.Ref, sc scope) (scalar.Expr, error) {
	cat := self.v.Catalog
	tables := self.query.Tables[:sc.visible]

	if ref.Table != "" {
		for _, t := range tables {
			if !cat.NameEqual(t.Alias, ref.Table) {
				continue
			}
			idx := t.Entry.ColumnIndex(ref.Id, cat.CaseSensitive())
			if idx < 0 {
				return nil, self.errAt(
					ref.CodeInfo,
					sqlerr.UnknownColumn,
					ref.Id,
					"column '%s' not found in table '%s'",
					ref.Id,
					ref.Table,
				)
			}
			c := t.Entry.Schema[idx]
			return scalar.Col(t.Offset+idx, c.Name, c.Type), nil
		}
		return nil, self.errAt(ref.CodeInfo, sqlerr.UnknownTable, ref.Table, "table '%s' not found", ref.Table)
	}

	var found scalar.Expr
	for _, t := range tables {
		idx := t.Entry.ColumnIndex(ref.Id, cat.CaseSensitive())
		if idx < 0 {
			continue
		}
		if found != nil {
			return nil, self.errAt(ref.CodeInfo, sqlerr.AmbiguousColumn, ref.Id, "column '%s' is ambiguous", ref.Id)
		}
		c := t.Entry.Schema[idx]
		found = scalar.Col(t.Offset+idx, c.Name, c.Type)
	}

	if found == nil {
		return nil, self.errAt(ref.CodeInfo, sqlerr.UnknownColumn, ref.Id, "column '%s' not found in any table", ref.Id)
	}
	return found, nil
}

var (
	dateLayouts      = []string{"2006-1-2"}
	timestampLayouts = []string{"2006-1-2 15:04:05", "2006-1-2 15:04", "2006-1-2T15:04:05", "2006-1-2"}
)

func parseTime(text string, layouts []string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, strings.TrimSpace(text)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// exact numeric literal, its precision and scale come from how it is
// written. Exponent notation is approximate, ie FLOAT.
func decimalLiteral(text string, real float64) *scalar.Literal {
	if strings.ContainsAny(text, "eE") {
		return scalar.Float(real)
	}

	sign := ""
	digits := text
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	whole, frac, _ := strings.Cut(digits, ".")
	whole = strings.TrimLeft(whole, "0")

	p := len(whole) + len(frac)
	if p == 0 {
		p = 1
	}
	if p > 38 {
		return scalar.Float(real)
	}
	if whole == "" {
		whole = "0"
	}

	value := sign + whole
	if frac != "" {
		value += "." + frac
	}
	return scalar.Lit(value, types.Decimal(p, len(frac)))
}

func (self *validation) constant(c *sql.Const) (scalar.Expr, error) {
	switch c.Ty {
	case sql.ConstNull:
		return scalar.Null(), nil
	case sql.ConstBool:
		return scalar.Bool(c.Bool), nil
	case sql.ConstStr:
		return scalar.Str(c.String), nil
	case sql.ConstInt:
		return scalar.Int(c.Int), nil
	case sql.ConstReal:
		return decimalLiteral(c.Text, c.Real), nil
	case sql.ConstDate:
		t, ok := parseTime(c.String, dateLayouts)
		if !ok {
			return nil, self.errAt(c.CodeInfo, sqlerr.TypeMismatch, c.String, "invalid DATE literal '%s'", c.String)
		}
		return scalar.Lit(t, types.Date), nil
	default:
		t, ok := parseTime(c.String, timestampLayouts)
		if !ok {
			return nil, self.errAt(c.CodeInfo, sqlerr.TypeMismatch, c.String, "invalid TIMESTAMP literal '%s'", c.String)
		}
		return scalar.Lit(t, types.Timestamp), nil
	}
}

package sql

// parser of the sql, which is tailored for the query compiler. We briefly
// describe the grammar of sql as following EBNF
//
// ### statement -------------------------------------------------------------
//
// code := select ';'?
// select :=
//     SELECT DISTINCT? projection
//     from?
//     where?
//     group-by?
//     having?
//     order-by?
//     limit?
//
// projection := project-var (',' project-var)*
// project-var := '*' | ID '.' '*' | expr as?
// as := (AS? ID)?
//
// from := FROM table-ref (join-clause | ',' table-ref)*
// table-ref := ID as?
// join-clause := join-type? JOIN table-ref (ON expr)?
// join-type := INNER | CROSS | (LEFT | RIGHT | FULL) OUTER?
//
// where := WHERE expr
// group-by := GROUP BY expr (',' expr)*
// having := HAVING expr
// order-by := ORDER BY expr (ASC|DESC)? (',' expr (ASC|DESC)?)*
// limit := LIMIT INT
//
// ### expression -------------------------------------------------------------
// expr := binary
//
// binary := unary (binary-op unary)*    , precedence climbing
//   OR < AND < NOT < (comparison | [NOT] LIKE | [NOT] IN | [NOT] BETWEEN |
//   IS [NOT] NULL) < (+ -) < (* / %)
//
// unary := ('-' | '+')* primary | NOT binary
//
// primary := const | typed-const | ref | call | '(' expr ')'
// ref := ID ('.' ID)?
// call := ID '(' (DISTINCT? expr (',' expr)* | '*')? ')'
// typed-const := (DATE | TIMESTAMP) STR
//
// const := INT | REAL | TRUE | FALSE | NULL | STR
//
// ----------------------------------------------------------------------------

import (
	"strings"

	"github.com/dianpeng/sql2plan/sqlerr"
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is a shortcut of NewParser(xx).Parse()
func Parse(xx string) (*Code, error) {
	return newParser(xx).Parse()
}

func (self *Parser) posStart() int {
	return self.L.Start
}

func (self *Parser) posEnd() int {
	return self.L.PrevEnd
}

func (self *Parser) snippet(start, end int) string {
	if start >= end {
		return ""
	}
	return self.L.Source[start:end]
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return sqlerr.New(sqlerr.ParseError, self.L.pos(), "", "%s", self.L.Lexeme.Text)
	}
	return sqlerr.New(
		sqlerr.ParseError,
		self.L.pos(),
		self.L.Lexeme.Text,
		"%s, near %s",
		msg,
		self.L.describe(),
	)
}

func (self *Parser) expect(tk int, msg string) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	} else {
		return self.err(msg)
	}
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	return CodeInfo{
		Start:   start,
		End:     self.posEnd(),
		Snippet: self.snippet(start, self.posEnd()),
	}
}

func (self *Parser) Parse() (*Code, error) {
	c := &Code{
		Source: self.L.Source,
	}

	self.L.Next()
	start := self.posStart()

	switch self.L.Token {
	case TkSelect:
		if n, err := self.parseSelect(); err != nil {
			return nil, err
		} else {
			c.Select = n
		}
	default:
		return nil, self.err("unknown statement, expect *select*")
	}

	c.CodeInfo = self.currentCodeInfo(start)

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after the statement is finished")
	}
	return c, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	start := self.posStart()
	self.L.Next() // skip the *select* keyword

	out := &Select{}

	if self.L.Token == TkDistinct {
		out.Distinct = true
		self.L.Next()
	}

	if n, err := self.parseProjection(); err != nil {
		return nil, err
	} else {
		out.Projection = n
	}

	// the clauses must show up in the canonical SQL order
	if self.L.Token == TkFrom {
		if n, err := self.parseFrom(); err != nil {
			return nil, err
		} else {
			out.From = n
		}
	}

	if self.L.Token == TkWhere {
		if n, err := self.parseWhere(); err != nil {
			return nil, err
		} else {
			out.Where = n
		}
	}

	if self.L.Token == TkGroupBy {
		if n, err := self.parseGroupBy(); err != nil {
			return nil, err
		} else {
			out.GroupBy = n
		}
	}

	if self.L.Token == TkHaving {
		if n, err := self.parseHaving(); err != nil {
			return nil, err
		} else {
			out.Having = n
		}
	}

	if self.L.Token == TkOrderBy {
		if n, err := self.parseOrderBy(); err != nil {
			return nil, err
		} else {
			out.OrderBy = n
		}
	}

	if self.L.Token == TkLimit {
		if n, err := self.parseLimit(); err != nil {
			return nil, err
		} else {
			out.Limit = n
		}
	}

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

// tries to parse ID '.' '*', restores the lexer when it is not the case
func (self *Parser) tryTableStar(idx int) *Star {
	saved := *self.L
	start := self.posStart()

	if self.L.Token != TkId {
		return nil
	}
	table := self.L.Lexeme.Text
	if self.L.Next() == TkDot && self.L.Next() == TkMul {
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
			ColIndex: idx,
			Table:    table,
		}
	}

	*self.L = saved
	return nil
}

func (self *Parser) parseAlias() (string, error) {
	switch self.L.Token {
	case TkAs:
		if self.L.Next() != TkId {
			return "", self.err("expect an alias identifier after *as*")
		}
		fallthrough
	case TkId:
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias, nil
	default:
		return "", nil
	}
}

func (self *Parser) parseProjectionVar(idx int) (SelectVar, error) {
	start := self.posStart()

	if self.L.Token == TkMul {
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
			ColIndex: idx,
		}, nil
	}

	if star := self.tryTableStar(idx); star != nil {
		return star, nil
	}

	val, err := self.parseExpr()
	if err != nil {
		return nil, err
	}

	alias, err := self.parseAlias()
	if err != nil {
		return nil, err
	}

	return &Col{
		CodeInfo: self.currentCodeInfo(start),
		ColIndex: idx,
		As:       alias,
		Value:    val,
	}, nil
}

// SQLLIST, which is a name I coin to represent grammar like following :
// element (',' element)*, the difference between the normal one is that the
// list will never be empty.
func (self *Parser) parseSqlList(
	visitor func(int) error,
) error {
	if err := visitor(0); err != nil {
		return err
	}
	idx := 1

	for self.L.Token == TkComma {
		self.L.Next()
		if err := visitor(idx); err != nil {
			return err
		}
		idx++
	}

	return nil
}

func (self *Parser) parseProjection() (*Projection, error) {
	x := SelectVarList{}
	start := self.posStart()

	if err := self.parseSqlList(
		func(idx int) error {
			if n, err := self.parseProjectionVar(idx); err != nil {
				return err
			} else {
				x = append(x, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	return &Projection{
		CodeInfo:  self.currentCodeInfo(start),
		ValueList: x,
	}, nil
}

func (self *Parser) parseFromVar(join int) (*FromVar, error) {
	start := self.posStart()
	fromVar := &FromVar{
		Join: join,
	}

	if self.L.Token != TkId {
		return nil, self.err("expect a table name")
	}
	fromVar.Name = self.L.Lexeme.Text
	self.L.Next()

	if alias, err := self.parseAlias(); err != nil {
		return nil, err
	} else {
		fromVar.Alias = alias
	}

	fromVar.CodeInfo = self.currentCodeInfo(start)
	return fromVar, nil
}

// parse the join type keywords and the JOIN keyword itself, returns JoinNone
// when the current token does not start a join clause
func (self *Parser) parseJoinType() (int, error) {
	join := JoinNone

	switch self.L.Token {
	case TkJoin:
		return JoinInner, nil
	case TkInner:
		join = JoinInner
	case TkCross:
		join = JoinCross
	case TkLeft:
		join = JoinLeft
	case TkRight:
		join = JoinRight
	case TkFull:
		join = JoinFull
	default:
		return JoinNone, nil
	}

	self.L.Next()
	if self.L.Token == TkOuter {
		if join == JoinInner || join == JoinCross {
			return JoinNone, self.err("OUTER is not allowed for inner/cross join")
		}
		self.L.Next()
	}
	if self.L.Token != TkJoin {
		return JoinNone, self.err("expect *join*")
	}
	return join, nil
}

func (self *Parser) parseFrom() (*From, error) {
	from := &From{}
	start := self.posStart()

	self.L.Next() // eat the *from*

	if n, err := self.parseFromVar(JoinNone); err != nil {
		return nil, err
	} else {
		from.VarList = append(from.VarList, n)
	}

	for {
		if self.L.Token == TkComma {
			self.L.Next()
			if n, err := self.parseFromVar(JoinComma); err != nil {
				return nil, err
			} else {
				from.VarList = append(from.VarList, n)
			}
			continue
		}

		join, err := self.parseJoinType()
		if err != nil {
			return nil, err
		}
		if join == JoinNone {
			break
		}
		self.L.Next() // eat the *join*

		n, err := self.parseFromVar(join)
		if err != nil {
			return nil, err
		}

		if self.L.Token == TkOn {
			if join == JoinCross {
				return nil, self.err("cross join does not take an ON condition")
			}
			self.L.Next()
			if n.On, err = self.parseExpr(); err != nil {
				return nil, err
			}
			n.CodeInfo = self.currentCodeInfo(n.CodeInfo.Start)
		} else if join == JoinLeft || join == JoinRight || join == JoinFull {
			return nil, self.err("outer join requires an ON condition")
		}

		from.VarList = append(from.VarList, n)
	}

	from.CodeInfo = self.currentCodeInfo(start)
	return from, nil
}

func (self *Parser) parseWhere() (*Where, error) {
	start := self.posStart()

	self.L.Next()
	if n, err := self.parseExpr(); err != nil {
		return nil, err
	} else {
		return &Where{
			CodeInfo:  self.currentCodeInfo(start),
			Condition: n,
		}, nil
	}
}

func (self *Parser) parseGroupBy() (*GroupBy, error) {
	gb := &GroupBy{}
	start := self.posStart()

	self.L.Next() // eat group by

	if err := self.parseSqlList(
		func(idx int) error {
			if c, err := self.parseExpr(); err != nil {
				return err
			} else {
				gb.Name = append(gb.Name, c)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	gb.CodeInfo = self.currentCodeInfo(start)
	return gb, nil
}

func (self *Parser) parseHaving() (*Having, error) {
	if x, err := self.parseWhere(); err != nil {
		return nil, err
	} else {
		return (*Having)(x), nil
	}
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	oB := &OrderBy{}
	start := self.posStart()
	self.L.Next() // eat order by

	if err := self.parseSqlList(
		func(idx int) error {
			c, err := self.parseExpr()
			if err != nil {
				return err
			}
			v := &OrderVar{
				Value: c,
				Order: OrderAsc,
			}
			switch self.L.Token {
			case TkAsc:
				self.L.Next()
			case TkDesc:
				v.Order = OrderDesc
				self.L.Next()
			}
			oB.VarList = append(oB.VarList, v)
			return nil
		},
	); err != nil {
		return nil, err
	}

	oB.CodeInfo = self.currentCodeInfo(start)
	return oB, nil
}

func (self *Parser) parseLimit() (*Limit, error) {
	start := self.posStart()
	if self.L.Next() != TkInt {
		return nil, self.err("expect a integer after limit")
	}
	limit := &Limit{
		Limit: self.L.Lexeme.Int,
	}
	self.L.Next()
	limit.CodeInfo = self.currentCodeInfo(start)
	return limit, nil
}

// ----------------------------------------------------------------------------
// Expression Parsing
// ----------------------------------------------------------------------------

func (self *Parser) parseExpr() (Expr, error) {
	return self.doParseBin(0)
}

const (
	maxOpPrec     = 6
	notOpPrec     = 2
	compareOpPrec = 3
	addOpPrec     = 4
	invalidOpPrec = -1
)

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkEq, TkNe, TkLt, TkLe, TkGt, TkGe, TkIn, TkBetween, TkLike, TkIs, TkNot:
		return compareOpPrec
	case TkAdd, TkSub:
		return addOpPrec
	case TkMul, TkDiv, TkMod:
		return 5
	default:
		return invalidOpPrec
	}
}

// Binary parsing, precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	if prec == maxOpPrec {
		return self.parseUnary()
	}

	start := self.posStart()

	l, err := self.parseUnary()
	if err != nil {
		return nil, err
	}

	return self.doParseBinRest(l, prec, start)
}

func (self *Parser) doParseBinBetweenRHS() (Expr, Expr, error) {
	lowerBound, err := self.doParseBin(addOpPrec)
	if err != nil {
		return nil, nil, err
	}

	if self.L.Token != TkAnd {
		return nil, nil, self.err("expect AND for BETWEEN operator")
	}
	self.L.Next()

	upperBound, err := self.doParseBin(addOpPrec)
	if err != nil {
		return nil, nil, err
	}

	return lowerBound, upperBound, nil
}

func (self *Parser) doParseBinInRHS() ([]Expr, error) {
	if self.L.Token != TkLPar {
		return nil, self.err("expect '(' for IN operator's rhs")
	}
	self.L.Next()

	out := []Expr{}

	for self.L.Token != TkRPar {
		if v, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			out = append(out, v)
		}
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' after element in IN's rhs")
		}
	}

	self.L.Next()
	if len(out) == 0 {
		return nil, self.err("IN operator's rhs is an empty set, which is not allowed")
	}
	return out, nil
}

func (self *Parser) doParseBinRest(lhs Expr,
	prec int,
	start int,
) (Expr, error) {

	for {
		tk := self.L.Token
		nextPrec := self.binPrec(tk)

		if nextPrec == invalidOpPrec || nextPrec < prec {
			break
		}

		ntk := self.L.Next() // eat the operator token

		switch tk {
		case TkNot:
			switch ntk {
			case TkIn:
				tk = tkNotIn
			case TkBetween:
				tk = tkNotBetween
			case TkLike:
				tk = TkNotLike
			default:
				return nil, self.err(
					"NOT operator shows up, but expect a suffix operator, " +
						"example like NOT IN, NOT BETWEEN, NOT LIKE",
				)
			}
			self.L.Next()

		case TkIs:
			tk = TkIsNull
			if ntk == TkNot {
				tk = TkIsNotNull
				ntk = self.L.Next()
			}
			if ntk != TkNull {
				return nil, self.err("expect NULL after IS")
			}
			self.L.Next()
		}

		var newNode Expr
		switch tk {
		case TkIsNull, TkIsNotNull:
			newNode = &Unary{
				Op:       tk,
				Operand:  lhs,
				CodeInfo: self.currentCodeInfo(start),
			}

		case TkBetween, tkNotBetween:
			lower, upper, err := self.doParseBinBetweenRHS()
			if err != nil {
				return nil, err
			}
			between := &Binary{
				Op: TkAnd,
				L: &Binary{
					Op:       TkGe,
					L:        lhs,
					R:        lower,
					CodeInfo: self.currentCodeInfo(start),
				},
				R: &Binary{
					Op:       TkLe,
					L:        lhs,
					R:        upper,
					CodeInfo: self.currentCodeInfo(start),
				},
				CodeInfo: self.currentCodeInfo(start),
			}

			if tk == TkBetween {
				newNode = between
			} else {
				newNode = &Unary{
					Op:       TkNot,
					Operand:  between,
					CodeInfo: self.currentCodeInfo(start),
				}
			}

		case TkIn, tkNotIn:
			v, err := self.doParseBinInRHS()
			if err != nil {
				return nil, err
			}

			var out Expr
			for _, vv := range v {
				eq := &Binary{
					Op:       TkEq,
					L:        lhs,
					R:        vv,
					CodeInfo: self.currentCodeInfo(start),
				}

				if out == nil {
					out = eq
				} else {
					out = &Binary{
						Op:       TkOr,
						L:        out,
						R:        eq,
						CodeInfo: self.currentCodeInfo(start),
					}
				}
			}

			if tk == tkNotIn {
				newNode = &Unary{
					Op:       TkNot,
					Operand:  out,
					CodeInfo: self.currentCodeInfo(start),
				}
			} else {
				newNode = out
			}

		default:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				newNode = &Binary{
					Op:       tk,
					L:        lhs,
					R:        v,
					CodeInfo: self.currentCodeInfo(start),
				}
			}
		}

		lhs = newNode
	}

	return lhs, nil
}

func (self *Parser) parseUnary() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkAdd:
		self.L.Next()
		return self.parseUnary()

	case TkSub:
		self.L.Next()
		operand, err := self.parseUnary()
		if err != nil {
			return nil, err
		}

		// fold negative numeric literal directly
		if c, ok := operand.(*Const); ok && (c.Ty == ConstInt || c.Ty == ConstReal) {
			c.Int = -c.Int
			c.Real = -c.Real
			c.Text = "-" + c.Text
			c.CodeInfo = self.currentCodeInfo(start)
			return c, nil
		}
		return &Unary{
			Op:       TkSub,
			Operand:  operand,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	case TkNot:
		self.L.Next()
		operand, err := self.doParseBin(compareOpPrec)
		if err != nil {
			return nil, err
		}
		return &Unary{
			Op:       TkNot,
			Operand:  operand,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	default:
		return self.parseAtomic()
	}
}

func (self *Parser) parseCall(name string, start int) (Expr, error) {
	call := &Call{
		Name: name,
	}

	self.L.Next() // eat '('

	switch self.L.Token {
	case TkMul:
		call.Star = true
		self.L.Next()
	case TkRPar:
		break
	default:
		if self.L.Token == TkDistinct {
			call.Distinct = true
			self.L.Next()
		}
		if err := self.parseSqlList(
			func(int) error {
				if e, err := self.parseExpr(); err != nil {
					return err
				} else {
					call.Parameters = append(call.Parameters, e)
				}
				return nil
			},
		); err != nil {
			return nil, err
		}
	}

	if err := self.expect(TkRPar, "expect ')' to close function call"); err != nil {
		return nil, err
	}

	call.CodeInfo = self.currentCodeInfo(start)
	return call, nil
}

func (self *Parser) parseConstExpr() *Const {
	start := self.posStart()

	var c *Const
	switch self.L.Token {
	case TkTrue, TkFalse:
		c = &Const{
			Ty:   ConstBool,
			Bool: self.L.Token == TkTrue,
		}

	case TkNull:
		c = &Const{
			Ty: ConstNull,
		}

	case TkStr:
		c = &Const{
			Ty:     ConstStr,
			String: self.L.Lexeme.Text,
		}

	case TkInt:
		c = &Const{
			Ty:   ConstInt,
			Int:  self.L.Lexeme.Int,
			Text: self.L.Lexeme.Text,
		}

	case TkReal:
		c = &Const{
			Ty:   ConstReal,
			Real: self.L.Lexeme.Real,
			Text: self.L.Lexeme.Text,
		}

	default:
		return nil
	}

	self.L.Next()
	c.CodeInfo = self.currentCodeInfo(start)
	return c
}

func (self *Parser) parseAtomic() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse, TkNull, TkStr, TkInt, TkReal:
		return self.parseConstExpr(), nil

	case TkId:
		id := self.L.Lexeme.Text
		self.L.Next()

		switch self.L.Token {
		case TkLPar:
			return self.parseCall(id, start)

		case TkDot:
			if self.L.Next() != TkId {
				return nil, self.err("expect a column name after '.'")
			}
			col := self.L.Lexeme.Text
			self.L.Next()
			return &Ref{
				Table:    id,
				Id:       col,
				CodeInfo: self.currentCodeInfo(start),
			}, nil

		case TkStr:
			// typed literal, ie DATE '2020-01-01'
			ty := ConstNull
			switch strings.ToLower(id) {
			case "date":
				ty = ConstDate
			case "timestamp":
				ty = ConstTimestamp
			default:
				return nil, self.err("unexpected string literal after identifier")
			}
			c := &Const{
				Ty:     ty,
				String: self.L.Lexeme.Text,
			}
			self.L.Next()
			c.CodeInfo = self.currentCodeInfo(start)
			return c, nil

		default:
			return &Ref{
				Id:       id,
				CodeInfo: self.currentCodeInfo(start),
			}, nil
		}

	case TkLeft, TkRight:
		// LEFT/RIGHT are keywords, but can also be used as function name
		id := "left"
		if self.L.Token == TkRight {
			id = "right"
		}
		if self.L.Next() != TkLPar {
			return nil, self.err("unexpected keyword for expression")
		}
		return self.parseCall(id, start)

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar, "expect ')' to close sub expression"); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, self.err("unexpected token for expression")
	}
}

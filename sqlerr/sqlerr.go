// Package sqlerr defines the error taxonomy surfaced by the query compiler.
// Every error is local to one query; none of them is retried internally.
package sqlerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type Code int

const (
	Unknown Code = iota
	ParseError
	UnknownTable
	UnknownColumn
	UnknownFunction
	AmbiguousColumn
	AmbiguousFunction
	TypeMismatch
	GroupingError
	NoPlanFound
)

func (self Code) String() string {
	switch self {
	case ParseError:
		return "ParseError"
	case UnknownTable:
		return "UnknownTable"
	case UnknownColumn:
		return "UnknownColumn"
	case UnknownFunction:
		return "UnknownFunction"
	case AmbiguousColumn:
		return "AmbiguousColumn"
	case AmbiguousFunction:
		return "AmbiguousFunction"
	case TypeMismatch:
		return "TypeMismatch"
	case GroupingError:
		return "GroupingError"
	case NoPlanFound:
		return "NoPlanFound"
	default:
		return "Unknown"
	}
}

// Pos is a 1 based line/column position inside of the SQL text. The zero
// value means the position is not known.
type Pos struct {
	Line int
	Col  int
}

func (self Pos) Valid() bool { return self.Line > 0 }

func (self Pos) String() string {
	return fmt.Sprintf("position(%d: %d)", self.Line, self.Col)
}

type Error struct {
	Code  Code
	Ident string // offending identifier, if any
	Pos   Pos
	Msg   string
}

func (self *Error) Error() string {
	if self.Pos.Valid() {
		return fmt.Sprintf("%s: around %s: %s", self.Code, self.Pos, self.Msg)
	}
	return fmt.Sprintf("%s: %s", self.Code, self.Msg)
}

func New(code Code, pos Pos, ident string, format string, args ...interface{}) error {
	return errors.WithStackDepth(
		&Error{
			Code:  code,
			Ident: ident,
			Pos:   pos,
			Msg:   fmt.Sprintf(format, args...),
		},
		1,
	)
}

// NoPlan reports a rule set that cannot implement some logical shape. It is
// a configuration defect, so it is marked as an assertion failure.
func NoPlan(format string, args ...interface{}) error {
	return errors.WithAssertionFailure(
		errors.WithStackDepth(
			&Error{
				Code: NoPlanFound,
				Msg:  fmt.Sprintf(format, args...),
			},
			1,
		),
	)
}

func Get(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func CodeOf(err error) Code {
	if e, ok := Get(err); ok {
		return e.Code
	}
	return Unknown
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// At fills in the position of err when the producer did not know it, ie
// catalog and registry lookups which never see the SQL text.
func At(err error, pos Pos) error {
	if e, ok := Get(err); ok && !e.Pos.Valid() {
		e.Pos = pos
	}
	return err
}

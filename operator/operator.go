// Package operator is the registry of scalar and aggregate operators. A
// registry is built once through Builder and is read only afterwards, so it
// can be shared by any number of concurrent compilations.
package operator

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/tidwall/btree"
)

type Kind int

const (
	KindArithmetic Kind = iota
	KindComparison
	KindLogical
	KindPredicate
	KindFunction
	KindAggregate
)

func (self Kind) String() string {
	switch self {
	case KindArithmetic:
		return "arithmetic"
	case KindComparison:
		return "comparison"
	case KindLogical:
		return "logical"
	case KindPredicate:
		return "predicate"
	case KindFunction:
		return "function"
	case KindAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// ID identifies one overload inside of a registry
type ID int

// Variadic arity accepts any number of arguments, the type rule decides.
const Variadic = -1

// TypeRule checks argument types against one overload. It returns the result
// type, the total coercion cost needed to call the overload and whether the
// overload applies at all.
type TypeRule func(args []types.Type) (types.Type, int, bool)

type Operator struct {
	ID    ID
	Name  string
	Arity int
	Kind  Kind
	Rule  TypeRule
}

func (self *Operator) IsAggregate() bool { return self.Kind == KindAggregate }

// Infix reports whether the operator is printed between its operands
func (self *Operator) Infix() bool {
	switch self.Kind {
	case KindArithmetic, KindComparison, KindLogical, KindPredicate:
		return self.Arity == 2
	default:
		return false
	}
}

func (self *Operator) String() string {
	return fmt.Sprintf("%s/%d", self.Name, self.Arity)
}

func (self *Operator) accepts(n int) bool {
	return self.Arity == Variadic || self.Arity == n
}

type Registry struct {
	ops    []*Operator
	byName btree.Map[string, []*Operator]
}

func canonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (self *Registry) Len() int { return len(self.ops) }

func (self *Registry) Get(id ID) *Operator {
	if id < 0 || int(id) >= len(self.ops) {
		return nil
	}
	return self.ops[id]
}

// Lookup returns every overload registered under name, name is case
// insensitive.
func (self *Registry) Lookup(name string) []*Operator {
	v, _ := self.byName.Get(canonicalName(name))
	return v
}

// Names returns all the registered names in sorted order
func (self *Registry) Names() []string {
	out := make([]string, 0, self.byName.Len())
	self.byName.Scan(
		func(k string, _ []*Operator) bool {
			out = append(out, k)
			return true
		},
	)
	return out
}

func typeList(args []types.Type) string {
	buf := strings.Builder{}
	buf.WriteString("(")
	for i, a := range args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	buf.WriteString(")")
	return buf.String()
}

// Resolve picks the overload of name that accepts args with the lowest total
// coercion cost. When several overloads share that lowest cost the call is
// ambiguous. The returned errors carry no position, the caller knows where
// the call is.
func (self *Registry) Resolve(name string, args []types.Type) (*Operator, types.Type, error) {
	cands := self.Lookup(name)
	if len(cands) == 0 {
		return nil, types.Type{}, sqlerr.New(
			sqlerr.UnknownFunction,
			sqlerr.Pos{},
			name,
			"function %s does not exist",
			name,
		)
	}

	var best *Operator
	var bestType types.Type
	bestCost := -1
	tie := false

	for _, op := range cands {
		if !op.accepts(len(args)) {
			continue
		}
		ty, cost, ok := op.Rule(args)
		if !ok {
			continue
		}
		switch {
		case best == nil || cost < bestCost:
			best, bestType, bestCost, tie = op, ty, cost, false
		case cost == bestCost:
			tie = true
		}
	}

	if best == nil {
		return nil, types.Type{}, sqlerr.New(
			sqlerr.UnknownFunction,
			sqlerr.Pos{},
			name,
			"no overload of %s accepts %s",
			canonicalName(name),
			typeList(args),
		)
	}
	if tie {
		return nil, types.Type{}, sqlerr.New(
			sqlerr.AmbiguousFunction,
			sqlerr.Pos{},
			name,
			"call %s%s matches more than one overload",
			canonicalName(name),
			typeList(args),
		)
	}
	return best, bestType, nil
}

// MustResolve is Resolve for operators the caller knows to exist, ie the
// conjunction used to merge predicates.
func (self *Registry) MustResolve(name string, args ...types.Type) *Operator {
	op, _, err := self.Resolve(name, args)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "operator %s", name))
	}
	return op
}

type Builder struct {
	ops []*Operator
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Register adds one overload. Name is case insensitive, registering the same
// name again adds another overload.
func (self *Builder) Register(name string, arity int, kind Kind, rule TypeRule) *Builder {
	if canonicalName(name) == "" || rule == nil || arity < Variadic {
		panic(errors.AssertionFailedf("invalid operator registration %q/%d", name, arity))
	}
	self.ops = append(self.ops, &Operator{
		Name:  canonicalName(name),
		Arity: arity,
		Kind:  kind,
		Rule:  rule,
	})
	return self
}

// Include copies every overload of reg into the builder
func (self *Builder) Include(reg *Registry) *Builder {
	for _, op := range reg.ops {
		self.Register(op.Name, op.Arity, op.Kind, op.Rule)
	}
	return self
}

// Build freezes the registered overloads into a Registry. The builder can be
// reused afterwards, the registry does not share state with it.
func (self *Builder) Build() *Registry {
	reg := &Registry{}
	for i, op := range self.ops {
		cp := *op
		cp.ID = ID(i)
		reg.ops = append(reg.ops, &cp)

		v, _ := reg.byName.Get(cp.Name)
		reg.byName.Set(cp.Name, append(v, &cp))
	}
	return reg
}

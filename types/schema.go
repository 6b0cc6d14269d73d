package types

import (
	"strings"
)

type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema is the ordered list of columns produced by a table or a plan node
type Schema []Column

func (self Schema) Len() int { return len(self) }

func (self Schema) Names() []string {
	out := make([]string, 0, len(self))
	for _, c := range self {
		out = append(out, c.Name)
	}
	return out
}

func (self Schema) Types() []Type {
	out := make([]Type, 0, len(self))
	for _, c := range self {
		out = append(out, c.Type)
	}
	return out
}

func (self Schema) Equal(that Schema) bool {
	if len(self) != len(that) {
		return false
	}
	for i := range self {
		if self[i] != that[i] {
			return false
		}
	}
	return true
}

func (self Schema) Concat(that Schema) Schema {
	out := make(Schema, 0, len(self)+len(that))
	out = append(out, self...)
	return append(out, that...)
}

// Nullable returns a copy with every column marked nullable, used for the
// padded side of an outer join.
func (self Schema) Nullable() Schema {
	out := make(Schema, len(self))
	for i, c := range self {
		c.Nullable = true
		out[i] = c
	}
	return out
}

func (self Schema) String() string {
	buf := strings.Builder{}
	buf.WriteString("(")
	for i, c := range self {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c.Name)
		buf.WriteString(" ")
		buf.WriteString(c.Type.String())
		if !c.Nullable {
			buf.WriteString(" NOT NULL")
		}
	}
	buf.WriteString(")")
	return buf.String()
}

// Package catalog maps table names to their schema and to the handle of the
// source that stores them. A catalog is immutable once built.
package catalog

import (
	"strings"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/dianpeng/sql2plan/types"
	"github.com/tidwall/btree"
)

// SourceHandle describes what the storage behind a table can do on its own.
// The optimizer only pushes work into a source through this contract.
type SourceHandle interface {
	// Location of the data, only used for diagnostics
	Location() string

	SupportsFilterPushdown() bool
	SupportsProjectionPushdown() bool
	EstimatedRowCount() int64

	// CanExpress reports whether the source can evaluate e natively. The
	// column references of e are positions in the table schema.
	CanExpress(e scalar.Expr) bool
}

type TableDef struct {
	Name     string
	Columns  []types.Column
	Location string
	Handle   SourceHandle // nil means a default IndexedSource
}

type Entry struct {
	Name   string
	Schema types.Schema
	Handle SourceHandle
}

// ColumnIndex returns the position of the column called name, or -1
func (self *Entry) ColumnIndex(name string, caseSensitive bool) int {
	for i, c := range self.Schema {
		if nameEqual(c.Name, name, caseSensitive) {
			return i
		}
	}
	return -1
}

type Catalog struct {
	caseSensitive bool
	entries       btree.Map[string, *Entry]
}

func nameEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

func (self *Catalog) key(name string) string {
	if self.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

func (self *Catalog) CaseSensitive() bool { return self.caseSensitive }

// NameEqual compares two identifiers with the catalog's case rule
func (self *Catalog) NameEqual(a, b string) bool {
	return nameEqual(a, b, self.caseSensitive)
}

func (self *Catalog) Lookup(name string) (*Entry, error) {
	if e, ok := self.entries.Get(self.key(name)); ok {
		return e, nil
	}
	return nil, sqlerr.New(
		sqlerr.UnknownTable,
		sqlerr.Pos{},
		name,
		"table '%s' not found",
		name,
	)
}

// Tables returns every entry ordered by name
func (self *Catalog) Tables() []*Entry {
	out := make([]*Entry, 0, self.entries.Len())
	self.entries.Scan(
		func(_ string, e *Entry) bool {
			out = append(out, e)
			return true
		},
	)
	return out
}

type Builder struct {
	caseSensitive bool
	defs          []TableDef
}

func NewBuilder(caseSensitive bool) *Builder {
	return &Builder{
		caseSensitive: caseSensitive,
	}
}

func (self *Builder) Add(defs ...TableDef) *Builder {
	self.defs = append(self.defs, defs...)
	return self
}

func (self *Builder) Build() (*Catalog, error) {
	cat := &Catalog{
		caseSensitive: self.caseSensitive,
	}

	for _, def := range self.defs {
		if def.Name == "" {
			return nil, errors.New("catalog: table without name")
		}
		if _, dup := cat.entries.Get(cat.key(def.Name)); dup {
			return nil, errors.Newf("catalog: duplicated table %q", def.Name)
		}
		if len(def.Columns) == 0 {
			return nil, errors.Newf("catalog: table %q has no column", def.Name)
		}

		seen := mapset.NewThreadUnsafeSet[string]()
		for _, c := range def.Columns {
			if c.Type.IsNull() {
				return nil, errors.Newf("catalog: column %s.%s has no type", def.Name, c.Name)
			}
			if !seen.Add(cat.key(c.Name)) {
				return nil, errors.Newf("catalog: duplicated column %s.%s", def.Name, c.Name)
			}
		}

		handle := def.Handle
		if handle == nil {
			handle = &IndexedSource{
				Loc: def.Location,
			}
		}

		cat.entries.Set(cat.key(def.Name), &Entry{
			Name:   def.Name,
			Schema: types.Schema(append([]types.Column(nil), def.Columns...)),
			Handle: handle,
		})
	}

	return cat, nil
}

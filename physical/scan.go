package physical

import (
	"fmt"
	"strings"

	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/types"
)

// TableScan reads every row of a table through the row runtime
type TableScan struct {
	Table string
	Alias string
	Entry *catalog.Entry
}

func (self *TableScan) Op() Op                 { return OpTableScan }
func (self *TableScan) Convention() Convention { return Row }
func (self *TableScan) Schema() types.Schema   { return self.Entry.Schema }
func (self *TableScan) Inputs() []Node         { return nil }
func (self *TableScan) WithInputs([]Node) Node { return self }

func (self *TableScan) String() string {
	return fmt.Sprintf("TableScan(table=%s)", scanName(self.Table, self.Alias))
}

func scanName(table, alias string) string {
	if alias == "" || alias == table {
		return table
	}
	return table + " as " + alias
}

// NativeScan is a scan executed by the source. Pushed holds predicate
// conjuncts the source evaluates, their column references address the full
// table schema. Columns, when not nil, lists the table columns the scan
// produces in order, otherwise every column is produced.
type NativeScan struct {
	Table   string
	Alias   string
	Entry   *catalog.Entry
	Pushed  []scalar.Expr
	Columns []int

	schema types.Schema
}

func NewNativeScan(entry *catalog.Entry, alias string, pushed []scalar.Expr, columns []int) *NativeScan {
	schema := entry.Schema
	if columns != nil {
		schema = make(types.Schema, 0, len(columns))
		for _, c := range columns {
			schema = append(schema, entry.Schema[c])
		}
	}
	return &NativeScan{
		Table:   entry.Name,
		Alias:   alias,
		Entry:   entry,
		Pushed:  pushed,
		Columns: columns,
		schema:  schema,
	}
}

func (self *NativeScan) Op() Op                 { return OpNativeScan }
func (self *NativeScan) Convention() Convention { return Native }
func (self *NativeScan) Schema() types.Schema   { return self.schema }
func (self *NativeScan) Inputs() []Node         { return nil }
func (self *NativeScan) WithInputs([]Node) Node { return self }

func (self *NativeScan) String() string {
	buf := &strings.Builder{}
	buf.WriteString("NativeScan(table=")
	buf.WriteString(scanName(self.Table, self.Alias))
	if len(self.Pushed) != 0 {
		buf.WriteString(", pushed=[")
		for i, p := range self.Pushed {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(p.String())
		}
		buf.WriteString("]")
	}
	if self.Columns != nil {
		buf.WriteString(", columns=[")
		buf.WriteString(strings.Join(self.schema.Names(), ", "))
		buf.WriteString("]")
	}
	buf.WriteString(")")
	return buf.String()
}

// Values produces one empty row
type Values struct{}

func (self *Values) Op() Op                 { return OpValues }
func (self *Values) Convention() Convention { return Row }
func (self *Values) Schema() types.Schema   { return types.Schema{} }
func (self *Values) Inputs() []Node         { return nil }
func (self *Values) WithInputs([]Node) Node { return self }
func (self *Values) String() string         { return "Values(rows=1)" }

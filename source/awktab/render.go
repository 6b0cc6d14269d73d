package awktab

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/scalar"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/types"
)

// Rows leave the program as lines whose fields are joined by the ASCII unit
// separator, which is not expected inside of text data
const outputSeparator = "\x1f"

const scanTemplate = `{{if gt .Skip 0}}FNR <= {{.Skip}} {
  next
}
{{end}}{{if ne .Filter ""}}!({{.Filter}}) {
  next
}
{{end}}{
  print {{.Fields}}
}
`

var scanProgram = template.Must(template.New("awktab").Parse(scanTemplate))

// Render returns the AWK program executing scan. The program expects FS and
// OFS to be set by the caller, see Open.
func Render(scan *physical.NativeScan) (string, error) {
	src, ok := scan.Entry.Handle.(*Source)
	if !ok {
		return "", errors.Newf("awktab: table %s is not stored as a delimited text file", scan.Table)
	}

	filter := ""
	if len(scan.Pushed) != 0 {
		parts := make([]string, 0, len(scan.Pushed))
		for _, p := range scan.Pushed {
			x, err := renderPredicate(p, scan.Entry.Schema, true)
			if err != nil {
				return "", errors.Wrapf(err, "awktab: render %s", p)
			}
			parts = append(parts, x)
		}
		filter = strings.Join(parts, " && ")
	}

	columns := scan.Columns
	if columns == nil {
		columns = make([]int, 0, len(scan.Entry.Schema))
		for i := range scan.Entry.Schema {
			columns = append(columns, i)
		}
	}
	fields := make([]string, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, field(c))
	}

	out := &strings.Builder{}
	if err := scanProgram.Execute(out, map[string]interface{}{
		"Skip":   src.Skip,
		"Filter": filter,
		"Fields": strings.Join(fields, ", "),
	}); err != nil {
		return "", errors.Wrap(err, "awktab: render program")
	}
	return out.String(), nil
}

func field(col int) string {
	return "$" + strconv.Itoa(col+1)
}

var awkComparison = map[string]string{
	operator.Eq: "==",
	operator.Ne: "!=",
	operator.Lt: "<",
	operator.Le: "<=",
	operator.Gt: ">",
	operator.Ge: ">=",
}

// renderPredicate returns an AWK condition holding exactly when e evaluates
// to want. A comparison with a NULL operand is neither true nor false, so a
// negation is pushed down to the comparisons instead of rendered as !(cond).
// An empty field of a nullable column is NULL.
func renderPredicate(e scalar.Expr, schema types.Schema, want bool) (string, error) {
	switch v := e.(type) {
	case *scalar.ColumnRef:
		if v.Ty.Kind != types.KindBoolean {
			return "", errors.Newf("column %s is not a predicate", v)
		}
		if want {
			return "(tolower(" + field(v.Index) + ") ~ /^(1|t|true)$/)", nil
		}
		return "(tolower(" + field(v.Index) + ") ~ /^(0|f|false)$/)", nil

	case *scalar.Literal:
		b, ok := v.Value.(bool)
		if !ok {
			return "", errors.Newf("literal %s is not a predicate", v)
		}
		if b == want {
			return "1", nil
		}
		return "0", nil

	case *scalar.Call:
		switch v.Op.Name {
		case operator.Not:
			return renderPredicate(v.Args[0], schema, !want)

		case operator.And, operator.Or:
			l, err := renderPredicate(v.Args[0], schema, want)
			if err != nil {
				return "", err
			}
			r, err := renderPredicate(v.Args[1], schema, want)
			if err != nil {
				return "", err
			}
			// NOT (a AND b) is (NOT a) OR (NOT b)
			op := "&&"
			if (v.Op.Name == operator.Or) == want {
				op = "||"
			}
			return "(" + l + " " + op + " " + r + ")", nil

		case operator.IsNull, operator.IsNotNull:
			col, ok := v.Args[0].(*scalar.ColumnRef)
			if !ok {
				return "", errors.Newf("%s of %s has no AWK form", v.Op.Name, v.Args[0])
			}
			if !schema[col.Index].Nullable {
				if (v.Op.Name == operator.IsNotNull) == want {
					return "1", nil
				}
				return "0", nil
			}
			if (v.Op.Name == operator.IsNull) == want {
				return "(" + field(col.Index) + ` == "")`, nil
			}
			return "(" + field(col.Index) + ` != "")`, nil

		case operator.Like:
			l, ok := v.Args[1].(*scalar.Literal)
			if !ok {
				return "", errors.Newf("LIKE pattern %s is not a literal", v.Args[1])
			}
			x, err := renderOperand(v.Args[0])
			if err != nil {
				return "", err
			}
			return guard("("+x+" ~ /"+sql.LikeToRegex(l.Value.(string))+"/)", v.Args, schema, want), nil
		}

		if op, ok := awkComparison[v.Op.Name]; ok && len(v.Args) == 2 {
			l, err := renderOperand(v.Args[0])
			if err != nil {
				return "", err
			}
			r, err := renderOperand(v.Args[1])
			if err != nil {
				return "", err
			}
			return guard("("+l+" "+op+" "+r+")", v.Args, schema, want), nil
		}
		return "", errors.Newf("operator %s has no AWK form", v.Op.Name)

	default:
		return "", errors.Newf("unexpected expression %s", e)
	}
}

// guard makes cond (or its negation) false whenever a nullable column
// operand is NULL
func guard(cond string, operands []scalar.Expr, schema types.Schema, want bool) string {
	if !want {
		cond = "!" + cond
	}
	parts := []string{}
	for _, a := range operands {
		if col, ok := a.(*scalar.ColumnRef); ok && schema[col.Index].Nullable {
			parts = append(parts, field(col.Index)+` != ""`)
		}
	}
	if len(parts) == 0 {
		return cond
	}
	return "(" + strings.Join(append(parts, cond), " && ") + ")"
}

func renderOperand(e scalar.Expr) (string, error) {
	switch v := e.(type) {
	case *scalar.ColumnRef:
		return field(v.Index), nil
	case *scalar.Literal:
		return renderLiteral(v)
	default:
		return "", errors.Newf("operand %s has no AWK form", e)
	}
}

func renderLiteral(l *scalar.Literal) (string, error) {
	switch v := l.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		if l.Ty.Kind == types.KindDecimal {
			return v, nil
		}
		return strconv.Quote(v), nil
	case time.Time:
		if l.Ty.Kind == types.KindDate {
			return strconv.Quote(v.Format("2006-01-02")), nil
		}
	}
	return "", errors.Newf("literal %s has no AWK form", l)
}

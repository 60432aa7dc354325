package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// ColumnName is the result column alias for a compiled column index. It
// is the column naming every dialect renders, so it is also the
// compiler.ColumnNamer to use with rows returned by these statements.
func ColumnName(columnIndex int) string {
	return fmt.Sprintf("c%d", columnIndex)
}

// tableAlias is the alias of a compiled table index.
func tableAlias(tableIndex int) string {
	return fmt.Sprintf("t%d", tableIndex)
}

// SQLCompiler renders relational IR to parameterized SQL text.
//
// CRITICAL: All values are parameterized, never interpolated. Table and
// column names are quoted by the dialect.
type SQLCompiler struct {
	dialect Dialect
}

// NewSQLCompiler creates a SQLCompiler for d.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *SQLCompiler) Dialect() Dialect {
	return c.dialect
}

// Compile converts a relational query to SQL and its driver arguments.
//
// Every table is aliased t<tableIndex> and every selected column
// c<columnIndex> (see ColumnName). Joins render as LEFT JOIN so a missing
// to-one relation yields nulls rather than dropping the row.
//
// Arguments follow parameter index order for numbered dialects, and
// order of appearance otherwise.
func (c *SQLCompiler) Compile(q sqlast.Query) (string, []any, error) {
	if err := sqlast.CheckParameters(q); err != nil {
		return "", nil, fmt.Errorf("compile query: %w", err)
	}

	r := &render{d: c.dialect, params: q.Parameters, like: map[int]bool{}}
	sql, err := r.query(q.Clauses)
	if err != nil {
		return "", nil, err
	}

	args, err := r.args()
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}

// render is the state of one Compile call.
type render struct {
	d      Dialect
	params []ir.Value
	order  []int        // parameter indexes in order of appearance
	like   map[int]bool // parameters used as LIKE operands
}

func (r *render) query(c sqlast.Clauses) (string, error) {
	if len(c.Select) == 0 {
		return "", fmt.Errorf("compile query: empty select list")
	}

	var b strings.Builder

	b.WriteString("SELECT ")
	for i, sel := range c.Select {
		if i > 0 {
			b.WriteString(", ")
		}
		expr, err := r.columnRef(sel.Ref)
		if err != nil {
			return "", fmt.Errorf("compile select: %w", err)
		}
		fmt.Fprintf(&b, "%s AS %s", expr, ColumnName(sel.ColumnIndex))
	}

	fmt.Fprintf(&b, " FROM %s %s", r.d.QuoteIdentifier(c.From.Table), tableAlias(c.From.TableIndex))

	for _, j := range c.Joins {
		on, err := r.where(j.On)
		if err != nil {
			return "", fmt.Errorf("compile join %s: %w", j.Table, err)
		}
		fmt.Fprintf(&b, " LEFT JOIN %s %s ON %s", r.d.QuoteIdentifier(j.Table), tableAlias(j.TableIndex), on)
	}

	if c.Where != nil {
		w, err := r.where(c.Where)
		if err != nil {
			return "", fmt.Errorf("compile where: %w", err)
		}
		b.WriteString(" WHERE " + w)
	}

	if len(c.Order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range c.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			expr, err := r.columnRef(o.By)
			if err != nil {
				return "", fmt.Errorf("compile order: %w", err)
			}
			fmt.Fprintf(&b, "%s %s", expr, o.Direction)
		}
	}

	switch {
	case c.Limit != nil:
		b.WriteString(" LIMIT " + r.bind(c.Limit.ParameterIndex))
	case c.Offset != nil && r.d.NoLimit() != "":
		b.WriteString(" " + r.d.NoLimit())
	}
	if c.Offset != nil {
		b.WriteString(" OFFSET " + r.bind(c.Offset.ParameterIndex))
	}

	return b.String(), nil
}

func (r *render) bind(i int) string {
	r.order = append(r.order, i)
	return r.d.BindVar(i)
}

func (r *render) column(tableIndex int, column string) string {
	return tableAlias(tableIndex) + "." + r.d.QuoteIdentifier(column)
}

func (r *render) columnRef(ref sqlast.ColumnRef) (string, error) {
	switch col := ref.(type) {
	case sqlast.Column:
		return r.column(col.TableIndex, col.Column), nil
	case sqlast.FnColumn:
		expr := r.column(col.TableIndex, col.Column)
		switch col.Function.Type {
		case queryir.ExtractFn:
			return r.d.Extract(col.Function.Name, expr, col.Function.IsTimestampType)
		case queryir.ArrayFn:
			if col.Function.Name != "count" {
				return "", fmt.Errorf("unsupported array function %q", col.Function.Name)
			}
			return r.d.ArrayLength(expr), nil
		default:
			return "", fmt.Errorf("unsupported function type %q", col.Function.Type)
		}
	default:
		return "", fmt.Errorf("unsupported column reference %T", ref)
	}
}

func (r *render) where(w sqlast.Where) (string, error) {
	switch node := w.(type) {
	case sqlast.ConditionNode:
		cond, err := r.condition(node.Condition)
		if err != nil {
			return "", err
		}
		if node.Negate {
			return "NOT (" + cond + ")", nil
		}
		return cond, nil

	case sqlast.LogicalNode:
		var expr string
		if len(node.Children) == 0 {
			// vacuous truth for AND, falsity for OR
			expr = "1 = 1"
			if node.Operator == queryir.Or {
				expr = "1 = 0"
			}
		} else {
			parts := make([]string, len(node.Children))
			for i, child := range node.Children {
				s, err := r.where(child)
				if err != nil {
					return "", err
				}
				parts[i] = s
			}
			var sep string
			switch node.Operator {
			case queryir.And:
				sep = " AND "
			case queryir.Or:
				sep = " OR "
			default:
				return "", fmt.Errorf("unsupported logical operator %q", node.Operator)
			}
			expr = "(" + strings.Join(parts, sep) + ")"
		}
		if node.Negate {
			return "NOT " + expr, nil
		}
		return expr, nil

	default:
		return "", fmt.Errorf("unsupported where node %T", w)
	}
}

var comparisons = map[queryir.Operator]string{
	queryir.OpEq:  "=",
	queryir.OpLt:  "<",
	queryir.OpLte: "<=",
	queryir.OpGt:  ">",
	queryir.OpGte: ">=",
}

func (r *render) condition(c sqlast.Condition) (string, error) {
	switch cond := c.(type) {
	case sqlast.StringCondition:
		target, err := r.columnRef(cond.Target)
		if err != nil {
			return "", err
		}
		i := cond.CompareTo.ParameterIndex
		switch cond.Operation {
		case queryir.OpEq:
			return target + " = " + r.bind(i), nil
		case queryir.OpContains:
			return r.likeExpr(target, i, true, true), nil
		case queryir.OpStartsWith:
			return r.likeExpr(target, i, false, true), nil
		case queryir.OpEndsWith:
			return r.likeExpr(target, i, true, false), nil
		}
		return "", fmt.Errorf("unsupported string operator %q", cond.Operation)

	case sqlast.NumberCondition:
		target, err := r.columnRef(cond.Target)
		if err != nil {
			return "", err
		}
		op, ok := comparisons[cond.Operation]
		if !ok {
			return "", fmt.Errorf("unsupported number operator %q", cond.Operation)
		}
		return target + " " + op + " " + r.bind(cond.CompareTo.ParameterIndex), nil

	case sqlast.FieldCondition:
		if cond.Operation != queryir.OpEq {
			return "", fmt.Errorf("unsupported field operator %q", cond.Operation)
		}
		left, err := r.columnRef(cond.Target)
		if err != nil {
			return "", err
		}
		right, err := r.columnRef(cond.CompareTo)
		if err != nil {
			return "", err
		}
		return left + " = " + right, nil

	case sqlast.SetCondition:
		if cond.Operation != queryir.OpIn {
			return "", fmt.Errorf("unsupported set operator %q", cond.Operation)
		}
		if len(cond.CompareTo.ParameterIndexes) == 0 {
			return "", fmt.Errorf("empty IN list")
		}
		target, err := r.columnRef(cond.Target)
		if err != nil {
			return "", err
		}
		vars := make([]string, len(cond.CompareTo.ParameterIndexes))
		for k, i := range cond.CompareTo.ParameterIndexes {
			vars[k] = r.bind(i)
		}
		return target + " IN (" + strings.Join(vars, ", ") + ")", nil

	default:
		return "", fmt.Errorf("unsupported condition %T", c)
	}
}

// likeExpr matches target against parameter i with wildcards on the
// requested sides. The parameter is escaped in args() so that % and _
// in the value match literally.
func (r *render) likeExpr(target string, i int, before, after bool) string {
	r.like[i] = true
	parts := []string{r.bind(i)}
	if before {
		parts = append([]string{"'%'"}, parts...)
	}
	if after {
		parts = append(parts, "'%'")
	}
	return fmt.Sprintf("%s LIKE %s ESCAPE '!'", target, r.d.Concat(parts...))
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in
// any supported dialect.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// args converts parameters to driver arguments in the order the dialect
// expects.
func (r *render) args() ([]any, error) {
	order := r.order
	if r.d.Numbered() {
		order = make([]int, len(r.params))
		for i := range order {
			order[i] = i
		}
	}

	args := make([]any, len(order))
	for k, i := range order {
		v := r.params[i]
		if r.like[i] {
			s, ok := v.(ir.String)
			if !ok {
				return nil, fmt.Errorf("parameter %d: LIKE operand is %s, want string", i, ir.Kind(v))
			}
			v = ir.String(likeEscaper.Replace(string(s)))
		}
		a, err := ir.ToDriver(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		args[k] = a
	}
	return args, nil
}

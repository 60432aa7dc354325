package querysql

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect covers the parts of SQL text that differ between databases.
type Dialect interface {
	// Name returns the dialect name, e.g. "sqlite".
	Name() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(s string) string

	// BindVar returns the placeholder for parameter i (0-based).
	BindVar(i int) string

	// Numbered reports whether placeholders carry the parameter index.
	// If false, arguments are passed in order of appearance.
	Numbered() bool

	// Concat joins string expressions.
	Concat(exprs ...string) string

	// Extract renders an extract function (year, month, ...) over expr.
	// isTimestamp is true when the column has a native timestamp type.
	Extract(name, expr string, isTimestamp bool) (string, error)

	// ArrayLength renders the element count of a JSON array column.
	ArrayLength(expr string) string

	// NoLimit is the LIMIT clause to emit when only OFFSET is set, or ""
	// if OFFSET may stand alone.
	NoLimit() string
}

// DialectFor returns the dialect for a dialect or database/sql driver
// name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pq":
		return Postgres{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", name)
	}
}

// SQLite renders for SQLite 3.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (SQLite) BindVar(i int) string { return fmt.Sprintf("?%d", i+1) }

func (SQLite) Numbered() bool { return true }

func (SQLite) Concat(exprs ...string) string { return strings.Join(exprs, " || ") }

var sqliteFormats = map[string]string{
	"year":    "%Y",
	"month":   "%m",
	"week":    "%W",
	"day":     "%d",
	"weekday": "%w",
	"hour":    "%H",
	"minute":  "%M",
	"second":  "%S",
}

// Extract uses strftime, which accepts ISO-8601 text and native values
// alike, so isTimestamp makes no difference.
func (SQLite) Extract(name, expr string, _ bool) (string, error) {
	f, ok := sqliteFormats[name]
	if !ok {
		return "", fmt.Errorf("sqlite: unsupported extract function %q", name)
	}
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", f, expr), nil
}

func (SQLite) ArrayLength(expr string) string { return "json_array_length(" + expr + ")" }

func (SQLite) NoLimit() string { return "LIMIT -1" }

// Postgres renders for PostgreSQL.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(s string) string { return pq.QuoteIdentifier(s) }

func (Postgres) BindVar(i int) string { return fmt.Sprintf("$%d", i+1) }

func (Postgres) Numbered() bool { return true }

func (Postgres) Concat(exprs ...string) string { return strings.Join(exprs, " || ") }

var extractFields = map[string]string{
	"year":    "YEAR",
	"month":   "MONTH",
	"week":    "WEEK",
	"day":     "DAY",
	"weekday": "DOW",
	"hour":    "HOUR",
	"minute":  "MINUTE",
	"second":  "SECOND",
}

func (Postgres) Extract(name, expr string, isTimestamp bool) (string, error) {
	f, ok := extractFields[name]
	if !ok {
		return "", fmt.Errorf("postgres: unsupported extract function %q", name)
	}
	if !isTimestamp {
		expr = "CAST(" + expr + " AS TIMESTAMP)"
	}
	return fmt.Sprintf("CAST(EXTRACT(%s FROM %s) AS INTEGER)", f, expr), nil
}

func (Postgres) ArrayLength(expr string) string {
	return "json_array_length(CAST(" + expr + " AS JSON))"
}

func (Postgres) NoLimit() string { return "" }

// MySQL renders for MySQL and MariaDB.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (MySQL) BindVar(int) string { return "?" }

func (MySQL) Numbered() bool { return false }

func (MySQL) Concat(exprs ...string) string { return "CONCAT(" + strings.Join(exprs, ", ") + ")" }

func (MySQL) Extract(name, expr string, isTimestamp bool) (string, error) {
	if !isTimestamp {
		expr = "CAST(" + expr + " AS DATETIME)"
	}
	if name == "weekday" {
		// DAYOFWEEK is 1-based from Sunday.
		return fmt.Sprintf("(DAYOFWEEK(%s) - 1)", expr), nil
	}
	f, ok := extractFields[name]
	if !ok {
		return "", fmt.Errorf("mysql: unsupported extract function %q", name)
	}
	return fmt.Sprintf("EXTRACT(%s FROM %s)", f, expr), nil
}

func (MySQL) ArrayLength(expr string) string { return "JSON_LENGTH(" + expr + ")" }

// NoLimit uses the largest unsigned BIGINT, MySQL's documented way to
// skip rows without a limit.
func (MySQL) NoLimit() string { return "LIMIT 18446744073709551615" }

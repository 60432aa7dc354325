package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/absql/internal/ir"
)

// Insert writes rows into table in one transaction.
//
// Every row is inserted with the union of the keys of all rows, in sorted
// order. A key missing from a row is written as NULL. Arrays and objects
// are stored as canonical JSON text.
func (s *Store) Insert(ctx context.Context, table string, rows []ir.Object) error {
	if len(rows) == 0 {
		return nil
	}

	var columns []string
	for _, row := range rows {
		for key := range row {
			if !slices.Contains(columns, key) {
				columns = append(columns, key)
			}
		}
	}
	slices.Sort(columns)

	d := s.Dialect()
	quoted := make([]string, len(columns))
	binds := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
		binds[i] = d.BindVar(i)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(binds, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	defer tx.Rollback()

	for n, row := range rows {
		args := make([]any, len(columns))
		for i, c := range columns {
			v, ok := row[c]
			if !ok {
				continue
			}
			a, err := marshalValue(v)
			if err != nil {
				return fmt.Errorf("insert into %s: row %d column %s: %w", table, n, c, err)
			}
			args[i] = a
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", table, n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", table, err)
	}

	s.logger.Debug("inserted rows", "table", table, "rows", len(rows))
	return nil
}

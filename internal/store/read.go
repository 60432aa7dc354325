package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/absql/internal/engine"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/sqlast"
)

// Render returns the SQL text and driver arguments for q in the store's
// dialect.
func (s *Store) Render(q sqlast.Query) (string, []any, error) {
	return s.compiler.Compile(q)
}

// Execute implements engine.Executor. It renders res.Root, runs it, and
// returns a stream over the result rows. Sub-queries of res are left to
// the merge engine.
//
// The query is bound to ctx: cancelling ctx aborts the statement and
// invalidates the stream. Callers must Close the stream.
func (s *Store) Execute(ctx context.Context, res *sqlast.Result) (engine.RowStream, error) {
	query, args, err := s.Render(res.Root)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", res.Root.Clauses.From.Table, err)
	}

	s.logger.Debug("executing query",
		"table", res.Root.Clauses.From.Table,
		"sql", query,
		"args", len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", res.Root.Clauses.From.Table, err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("column types: %w", err)
	}

	return newRows(rows, types), nil
}

// Rows streams the result of one statement as ir.Object values keyed by
// result column name.
type Rows struct {
	mu     sync.Mutex
	rows   *sql.Rows
	names  []string
	kinds  []columnKind
	closed bool
}

func newRows(rows *sql.Rows, types []*sql.ColumnType) *Rows {
	r := &Rows{
		rows:  rows,
		names: make([]string, len(types)),
		kinds: make([]columnKind, len(types)),
	}
	for i, ct := range types {
		r.names[i] = ct.Name()
		r.kinds[i] = kindOf(ct)
	}
	return r
}

// Next returns the next row, or io.EOF after the last one.
func (r *Rows) Next(ctx context.Context) (ir.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, io.EOF
	}

	raw := make([]any, len(r.names))
	dest := make([]any, len(r.names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(ir.Object, len(r.names))
	for i, name := range r.names {
		v, err := unmarshalValue(raw[i], r.kinds[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		row[name] = v
	}
	return row, nil
}

// Close releases the underlying result set. It is idempotent.
func (r *Rows) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}

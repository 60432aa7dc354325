package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/sqlast"
)

// RowStream is a finite, forward-only sequence of flat result rows.
//
// Next returns io.EOF after the last row. Implementations should return
// promptly with ctx.Err() once ctx is cancelled. Close releases the
// stream's resources and may be called more than once.
type RowStream interface {
	Next(ctx context.Context) (ir.Object, error)
	Close() error
}

// Executor runs one compiled statement and returns its rows.
//
// Only q.Root is executed; q.SubQueries are resolved by the engine.
// Retry policy, if any, belongs to the Executor.
type Executor interface {
	Execute(ctx context.Context, q *sqlast.Result) (RowStream, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, q *sqlast.Result) (RowStream, error)

// Execute calls f(ctx, q).
func (f ExecutorFunc) Execute(ctx context.Context, q *sqlast.Result) (RowStream, error) {
	return f(ctx, q)
}

// DefaultConcurrency resolves one root row at a time.
const DefaultConcurrency = 1

// Merger reassembles flat row streams into nested objects.
//
// A Merger holds no per-stream state and is safe for concurrent use;
// each Merge or Run call returns an independent Stream.
type Merger struct {
	exec          Executor
	columnName    compiler.ColumnNamer
	logger        *slog.Logger
	runIDs        RunIDGenerator
	concurrency   int
	maxSubQueries int
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		m.logger = l
	}
}

// WithRunIDGenerator sets the generator for per-stream run IDs.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(m *Merger) {
		m.runIDs = g
	}
}

// WithConcurrency sets how many root rows may be resolved at once.
// Values below 1 are treated as 1 (sequential).
func WithConcurrency(n int) Option {
	return func(m *Merger) {
		if n < 1 {
			n = DefaultConcurrency
		}
		m.concurrency = n
	}
}

// WithMaxSubQueries limits the number of sub-query executions per
// stream, counting nested levels. 0 means unlimited.
func WithMaxSubQueries(n int) Option {
	return func(m *Merger) {
		m.maxSubQueries = n
	}
}

// New creates a Merger that executes statements with exec and reads
// columns from rows with columnName.
func New(exec Executor, columnName compiler.ColumnNamer, opts ...Option) *Merger {
	m := &Merger{
		exec:        exec,
		columnName:  columnName,
		logger:      slog.Default(),
		runIDs:      UUIDv7Generator{},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes res.Root and returns the merged stream of its rows.
func (m *Merger) Run(ctx context.Context, res *sqlast.Result) (*Stream, error) {
	root, err := m.exec.Execute(ctx, res)
	if err != nil {
		return nil, &MergeError{Code: ErrCodeExecutionFailed, Row: -1, Err: err}
	}
	return m.Merge(ctx, root, res)
}

// Merge returns a lazy stream that merges root, the row stream of
// res.Root, according to res.AliasMapping.
//
// Merge takes ownership of root: it is closed when the returned Stream
// is closed, or immediately if Merge fails. The mapping is checked
// against res.SubQueries up front.
//
// Nothing is read until the first call to Next. ctx bounds the whole
// stream, including sub-query executions.
func (m *Merger) Merge(ctx context.Context, root RowStream, res *sqlast.Result) (*Stream, error) {
	if err := checkMapping(res.AliasMapping, len(res.SubQueries), ""); err != nil {
		_ = root.Close()
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		m:      m,
		ctx:    sctx,
		cancel: cancel,
		root:   root,
		res:    res,
		runID:  m.runIDs.Generate(),
		quota:  newSubQueryQuota(m.maxSubQueries),
	}
	s.logger = m.logger.With("run_id", s.runID)
	return s, nil
}

// Collect drains s and closes it. Rows read before a failure are
// returned alongside the error.
func Collect(ctx context.Context, s RowStream) ([]ir.Object, error) {
	var rows []ir.Object
	for {
		row, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return rows, s.Close()
		}
		if err != nil {
			_ = s.Close()
			return rows, err
		}
		rows = append(rows, row)
	}
}

// checkMapping verifies every sub entry points into a list of n
// sub-queries. Nested entries share the list of their statement.
func checkMapping(mapping sqlast.AliasMapping, n int, prefix string) error {
	for _, entry := range mapping {
		if entry == nil {
			return &MergeError{Code: ErrCodeInvalidMapping, Row: -1, Alias: prefix, Err: errors.New("nil alias entry")}
		}
		path := joinAlias(prefix, entry.Key())
		switch e := entry.(type) {
		case sqlast.RootAlias:
		case sqlast.NestedAlias:
			if err := checkMapping(e.Children, n, path); err != nil {
				return err
			}
		case sqlast.SubAlias:
			if e.Index < 0 || e.Index >= n {
				return &MergeError{
					Code:  ErrCodeInvalidMapping,
					Row:   -1,
					Alias: path,
					Err:   errors.New("sub-query index out of range"),
				}
			}
		default:
			return &MergeError{Code: ErrCodeInvalidMapping, Row: -1, Alias: path, Err: errors.New("unknown alias entry")}
		}
	}
	return nil
}

func joinAlias(prefix, alias string) string {
	if prefix == "" {
		return alias
	}
	return prefix + "." + alias
}

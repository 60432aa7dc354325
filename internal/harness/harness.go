package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/engine"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/querysql"
	"github.com/roach88/absql/internal/sqlast"
	"github.com/roach88/absql/internal/store"
	"github.com/roach88/absql/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger

	mu     sync.Mutex
	result *Result
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger passed to the store and the merge engine.
// Defaults to discarding all output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh SQLite database in a temp directory
//  2. Run setup statements and insert table rows
//  3. Decode and compile the query
//  4. Execute and merge with the scenario's concurrency
//  5. Check the expect clause and assertions
//
// A failure of the query itself (compile or merge error) is recorded in
// the result and checked against Expect.Error. Errors returned by Run mean
// the scenario could not be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		result: NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	dir, err := os.MkdirTemp("", "absql-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open("sqlite3", filepath.Join(dir, "scenario.db"), store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario store: %w", err)
	}
	defer st.Close()
	h.store = st

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	q, err := queryir.FromMap(scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to decode query: %w", err)
	}

	result := h.result
	result.RunID = h.runIDs.Generate()

	if err := h.executeQuery(ctx, q, scenario); err != nil {
		return nil, err
	}

	checkExpect(result, scenario.Expect)
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"rows", len(result.Rows),
		"statements", len(result.Statements),
	)
	return result, nil
}

// executeSetup runs setup statements, then fills tables in name order.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario) error {
	for i, stmt := range scenario.Setup {
		if err := h.store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	names := make([]string, 0, len(scenario.Tables))
	for name := range scenario.Tables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		rows, err := convertRows(scenario.Tables[name])
		if err != nil {
			return fmt.Errorf("tables.%s: %w", name, err)
		}
		if err := h.store.Insert(ctx, name, rows); err != nil {
			return err
		}
	}
	return nil
}

// executeQuery compiles, runs and collects q, recording rows, statements
// and the error code in h.result.
func (h *Harness) executeQuery(ctx context.Context, q queryir.Query, scenario *Scenario) error {
	result := h.result

	res, err := compiler.Compile(q)
	if err != nil {
		result.ErrorCode = ErrCodeCompileFailed
		h.logger.Info("query did not compile", "scenario", scenario.Name, "error", err)
		return nil
	}

	m := engine.New(engine.ExecutorFunc(h.execute), querysql.ColumnName,
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithConcurrency(scenario.Concurrency),
		engine.WithMaxSubQueries(scenario.MaxSubQueries),
	)

	stream, err := m.Run(ctx, res)
	if err == nil {
		var rows []ir.Object
		rows, err = engine.Collect(ctx, stream)
		result.Rows = append(result.Rows, rows...)
	}
	if err != nil {
		var me *engine.MergeError
		if !errors.As(err, &me) {
			return fmt.Errorf("failed to run query: %w", err)
		}
		result.ErrorCode = string(me.Code)
		h.logger.Info("query failed", "scenario", scenario.Name, "error", err)
	}
	return nil
}

// execute records the statement, then runs it on the store.
func (h *Harness) execute(ctx context.Context, res *sqlast.Result) (engine.RowStream, error) {
	sql, args, err := h.store.Render(res.Root)
	if err == nil {
		h.mu.Lock()
		h.result.AddStatement(res.Root.Clauses.From.Table, sql, args)
		h.mu.Unlock()
	}
	return h.store.Execute(ctx, res)
}

// checkExpect compares the run against the expect clause. Without an
// expect clause any error fails the scenario.
func checkExpect(result *Result, expect *ExpectClause) {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	if result.ErrorCode != want {
		switch {
		case want == "":
			result.AddError(fmt.Sprintf("unexpected error %s", result.ErrorCode))
		case result.ErrorCode == "":
			result.AddError(fmt.Sprintf("expected error %s, run succeeded", want))
		default:
			result.AddError(fmt.Sprintf("expected error %s, got %s", want, result.ErrorCode))
		}
	}

	if expect == nil || expect.Rows == nil {
		return
	}

	wantRows, err := convertRows(expect.Rows)
	if err != nil {
		result.AddError(fmt.Sprintf("expect.rows: %v", err))
		return
	}
	if err := assertRowsEqual(result.Rows, wantRows); err != nil {
		result.AddError(err.Error())
	}
}

// convertRows converts YAML-parsed rows to ir.Object values.
func convertRows(rows []map[string]any) ([]ir.Object, error) {
	out := make([]ir.Object, len(rows))
	for i, row := range rows {
		obj, err := convertToIRObject(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = obj
	}
	return out, nil
}

// convertToIRObject converts a map[string]any to ir.Object.
// YAML null becomes ir.Null.
func convertToIRObject(m map[string]any) (ir.Object, error) {
	v, err := ir.FromAny(m)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", ir.Kind(v))
	}
	return obj, nil
}

package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roach88/absql/internal/compiler"
	"github.com/roach88/absql/internal/engine"
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// MemoryExecutor runs compiled statements against in-memory tables.
//
// It understands single-table statements: plain column selects, where
// trees of string, number and set conditions, limit and offset. Rows come
// back in table order, keyed by columnName. Comparisons against a missing
// or null column are false, before negation. It is a test double, not a
// SQL engine; statements with joins or functions are rejected.
//
// It implements engine.Executor and records every statement it receives.
//
// Thread-safety: safe for concurrent use.
type MemoryExecutor struct {
	tables     map[string][]ir.Object
	columnName compiler.ColumnNamer

	// Delay, if set, is waited out (or ctx) before each statement runs.
	Delay func(q *sqlast.Result) time.Duration
	// Fail, if set, makes statements on the named tables fail.
	Fail map[string]error

	mu    sync.Mutex
	calls []*sqlast.Result
}

// NewMemoryExecutor returns an executor over tables, keyed by table name.
func NewMemoryExecutor(tables map[string][]ir.Object, columnName compiler.ColumnNamer) *MemoryExecutor {
	return &MemoryExecutor{tables: tables, columnName: columnName}
}

// Execute runs q.Root.
func (e *MemoryExecutor) Execute(ctx context.Context, q *sqlast.Result) (engine.RowStream, error) {
	e.mu.Lock()
	e.calls = append(e.calls, q)
	e.mu.Unlock()

	if e.Delay != nil {
		select {
		case <-time.After(e.Delay(q)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := q.Root.Clauses
	if err := e.Fail[c.From.Table]; err != nil {
		return nil, err
	}
	if len(c.Joins) > 0 {
		return nil, fmt.Errorf("memory executor: joins are not supported")
	}
	table, ok := e.tables[c.From.Table]
	if !ok {
		return nil, fmt.Errorf("memory executor: no such table %q", c.From.Table)
	}

	var out []ir.Object
	for _, row := range table {
		if c.Where != nil {
			match, err := evalWhere(c.Where, row, q.Root.Parameters)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		projected, err := e.project(c.Select, row)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}

	out, err := window(out, c.Limit, c.Offset, q.Root.Parameters)
	if err != nil {
		return nil, err
	}
	return NewSliceStream(out...), nil
}

// Calls returns the statements executed so far, in arrival order.
func (e *MemoryExecutor) Calls() []*sqlast.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*sqlast.Result(nil), e.calls...)
}

func (e *MemoryExecutor) project(selects []sqlast.Select, row ir.Object) (ir.Object, error) {
	out := make(ir.Object, len(selects))
	for _, sel := range selects {
		col, ok := sel.Ref.(sqlast.Column)
		if !ok {
			return nil, fmt.Errorf("memory executor: unsupported select %T", sel.Ref)
		}
		v, ok := row[col.Column]
		if !ok {
			v = ir.Null{}
		}
		out[e.columnName(sel.ColumnIndex)] = v
	}
	return out, nil
}

func window(rows []ir.Object, limit, offset *sqlast.ValueRef, params []ir.Value) ([]ir.Object, error) {
	if offset != nil {
		n, err := intParam(params, offset.ParameterIndex)
		if err != nil {
			return nil, err
		}
		if n >= len(rows) {
			return nil, nil
		}
		rows = rows[n:]
	}
	if limit != nil {
		n, err := intParam(params, limit.ParameterIndex)
		if err != nil {
			return nil, err
		}
		if n < len(rows) {
			rows = rows[:n]
		}
	}
	return rows, nil
}

func intParam(params []ir.Value, i int) (int, error) {
	if i < 0 || i >= len(params) {
		return 0, fmt.Errorf("memory executor: parameter %d out of range", i)
	}
	n, ok := params[i].(ir.Int)
	if !ok {
		return 0, fmt.Errorf("memory executor: parameter %d is %s, want int", i, ir.Kind(params[i]))
	}
	return int(n), nil
}

func evalWhere(w sqlast.Where, row ir.Object, params []ir.Value) (bool, error) {
	switch n := w.(type) {
	case sqlast.ConditionNode:
		ok, err := evalCondition(n.Condition, row, params)
		return ok != n.Negate, err

	case sqlast.LogicalNode:
		result := n.Operator == queryir.And
		for _, child := range n.Children {
			ok, err := evalWhere(child, row, params)
			if err != nil {
				return false, err
			}
			if n.Operator == queryir.And {
				result = result && ok
			} else {
				result = result || ok
			}
		}
		return result != n.Negate, nil

	default:
		return false, fmt.Errorf("memory executor: unsupported where node %T", w)
	}
}

func evalCondition(c sqlast.Condition, row ir.Object, params []ir.Value) (bool, error) {
	var (
		target sqlast.ColumnRef
		op     queryir.Operator
		values []ir.Value
	)
	switch cond := c.(type) {
	case sqlast.StringCondition:
		target, op = cond.Target, cond.Operation
		values = []ir.Value{param(params, cond.CompareTo.ParameterIndex)}
	case sqlast.NumberCondition:
		target, op = cond.Target, cond.Operation
		values = []ir.Value{param(params, cond.CompareTo.ParameterIndex)}
	case sqlast.SetCondition:
		target, op = cond.Target, cond.Operation
		for _, i := range cond.CompareTo.ParameterIndexes {
			values = append(values, param(params, i))
		}
	default:
		return false, fmt.Errorf("memory executor: unsupported condition %T", c)
	}

	col, ok := target.(sqlast.Column)
	if !ok {
		return false, fmt.Errorf("memory executor: unsupported target %T", target)
	}
	v, ok := row[col.Column]
	if !ok {
		return false, nil
	}
	if _, null := v.(ir.Null); null {
		return false, nil
	}

	if op == queryir.OpIn {
		for _, want := range values {
			if cmp, ok := compare(v, want); ok && cmp == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	want := values[0]
	switch op {
	case queryir.OpContains, queryir.OpStartsWith, queryir.OpEndsWith:
		s, ok1 := v.(ir.String)
		p, ok2 := want.(ir.String)
		if !ok1 || !ok2 {
			return false, nil
		}
		switch op {
		case queryir.OpContains:
			return strings.Contains(string(s), string(p)), nil
		case queryir.OpStartsWith:
			return strings.HasPrefix(string(s), string(p)), nil
		default:
			return strings.HasSuffix(string(s), string(p)), nil
		}
	}

	cmp, ok := compare(v, want)
	if !ok {
		return false, nil
	}
	switch op {
	case queryir.OpEq:
		return cmp == 0, nil
	case queryir.OpLt:
		return cmp < 0, nil
	case queryir.OpLte:
		return cmp <= 0, nil
	case queryir.OpGt:
		return cmp > 0, nil
	case queryir.OpGte:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("memory executor: unsupported operator %q", op)
}

func param(params []ir.Value, i int) ir.Value {
	if i < 0 || i >= len(params) {
		return ir.Null{}
	}
	return params[i]
}

// compare orders two scalars of comparable kinds. Integers and floats
// compare numerically.
func compare(a, b ir.Value) (int, bool) {
	if af, ok := number(a); ok {
		bf, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case ir.String:
		bv, ok := b.(ir.String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av), string(bv)), true
	case ir.Bool:
		bv, ok := b.(ir.Bool)
		if !ok || av != bv {
			return 1, ok
		}
		return 0, true
	}
	return 0, false
}

func number(v ir.Value) (float64, bool) {
	switch n := v.(type) {
	case ir.Int:
		return float64(n), true
	case ir.Float:
		return float64(n), true
	}
	return 0, false
}

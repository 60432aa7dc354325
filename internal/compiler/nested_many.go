package compiler

import (
	"fmt"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// nestedManyResult is what a to-many field contributes to its parent
// statement: the local key columns to select, and a template for the
// deferred sub-query.
type nestedManyResult struct {
	selects  []sqlast.Select
	subQuery sqlast.SubQuery
}

// buildNestedMany selects the relation's local key columns on the parent
// table, with fresh column indexes, so the merge engine can read the
// correlation key off each parent row. No join is created.
func buildNestedMany(f queryir.NestedMany, tableIndex int, idx *IndexAllocator) (nestedManyResult, error) {
	local, foreign := f.Nesting.Local.Fields, f.Nesting.Foreign.Fields
	if len(local) == 0 {
		return nestedManyResult{}, shapeErrorf("nesting.local.fields", "relation to %q has no key columns", f.Nesting.Foreign.Collection)
	}
	if len(local) != len(foreign) {
		return nestedManyResult{}, shapeErrorf("nesting", "relation to %q pairs %d local keys with %d foreign keys",
			f.Nesting.Foreign.Collection, len(local), len(foreign))
	}

	res := nestedManyResult{subQuery: sqlast.SubQuery{Field: f, KeyColumns: make([]int, len(local))}}
	for i, column := range local {
		col := idx.NextColumn()
		res.selects = append(res.selects, sqlast.Select{
			Ref:         sqlast.Column{TableIndex: tableIndex, Column: column},
			ColumnIndex: col,
		})
		res.subQuery.KeyColumns[i] = col
	}
	return res, nil
}

// ColumnNamer maps a compiled column index to the key under which the
// execution layer stores that column in a result row.
type ColumnNamer func(columnIndex int) string

// Materialize compiles a sub-query template into a standalone statement
// for one parent row.
//
// The statement gets its own IndexAllocator, so its numbering starts
// again at 0. Its where clause is the relation's own filter (if any)
// combined by "and" with an injected equality on every foreign key
// column. The injected values are read from parentRow through
// columnName and appended after all modifier parameters:
//
//	[filter..., limit, offset, key1, key2, ...]
//
// A numeric key value produces a number condition, anything else a
// string condition. A key column missing from parentRow is an error
// wrapping ErrMissingCorrelationKey.
func Materialize(sq sqlast.SubQuery, parentRow ir.Object, columnName ColumnNamer) (*sqlast.Result, error) {
	f := sq.Field
	foreign := f.Nesting.Foreign.Fields
	if len(sq.KeyColumns) != len(foreign) {
		return nil, internalErrorf(nil, "sub-query %q has %d key columns for %d foreign keys", f.Alias, len(sq.KeyColumns), len(foreign))
	}

	keyValues := make([]ir.Value, len(sq.KeyColumns))
	for i, col := range sq.KeyColumns {
		name := columnName(col)
		v, ok := parentRow[name]
		if !ok {
			return nil, fmt.Errorf("sub-query %q key %q (column %q): %w", f.Alias, f.Nesting.Local.Fields[i], name, ErrMissingCorrelationKey)
		}
		keyValues[i] = v
	}

	q := queryir.Query{
		Store:      f.Nesting.Foreign.Store,
		Collection: f.Nesting.Foreign.Collection,
		Fields:     f.Fields,
		Modifiers:  f.Modifiers,
	}
	if res := queryir.Validate(q); !res.OK() {
		return nil, validationError(res)
	}

	idx := NewIndexAllocator()
	s, err := compileScope(q, idx)
	if err != nil {
		return nil, err
	}

	injected, params := keyFilter(foreign, keyValues, s.tableIndex, idx)
	if s.mods.where != nil {
		s.mods.where = sqlast.LogicalNode{Operator: queryir.And, Children: []sqlast.Where{s.mods.where, injected}}
	} else {
		s.mods.where = injected
	}
	s.mods.parameters = append(s.mods.parameters, params...)

	return s.finish(idx)
}

// keyFilter builds the correlation filter: one equality per foreign key,
// wrapped in an "and" node for composite keys. It has the same shape as a
// join condition but compares against parameters instead of columns.
func keyFilter(foreign []string, values []ir.Value, tableIndex int, idx *IndexAllocator) (sqlast.Where, []ir.Value) {
	conds := make([]sqlast.Where, len(foreign))
	for i, column := range foreign {
		target := sqlast.Column{TableIndex: tableIndex, Column: column}
		ref := sqlast.ValueRef{ParameterIndex: idx.NextParameter()}

		var cond sqlast.Condition = sqlast.StringCondition{Target: target, Operation: queryir.OpEq, CompareTo: ref}
		if ir.IsNumeric(values[i]) {
			cond = sqlast.NumberCondition{Target: target, Operation: queryir.OpEq, CompareTo: ref}
		}
		conds[i] = sqlast.ConditionNode{Condition: cond}
	}

	if len(conds) == 1 {
		return conds[0], values
	}
	return sqlast.LogicalNode{Operator: queryir.And, Children: conds}, values
}

package compiler

import (
	"fmt"

	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// Compile turns an abstract query into a relational statement, an alias
// mapping, and templates for its to-many relations.
//
// The query is validated first; any shape problem fails the whole
// compilation and no partial result is returned. The root collection
// always gets table index 0.
//
// Joins are ordered field joins, then filter joins, then sort joins.
// Parameters are ordered filter, limit, offset; field compilation never
// allocates parameters.
//
// Compile is a pure function. It is safe to call concurrently; each call
// uses its own IndexAllocator.
func Compile(q queryir.Query) (*sqlast.Result, error) {
	if res := queryir.Validate(q); !res.OK() {
		return nil, validationError(res)
	}

	idx := NewIndexAllocator()
	s, err := compileScope(q, idx)
	if err != nil {
		return nil, err
	}
	return s.finish(idx)
}

// scope is one compiled table scope before assembly.
type scope struct {
	tableIndex int
	from       sqlast.From
	fields     *fieldCompiler
	mapping    sqlast.AliasMapping
	mods       modifiersResult
}

// compileScope allocates the scope's table, then compiles fields and
// modifiers against it, in that order.
func compileScope(q queryir.Query, idx *IndexAllocator) (*scope, error) {
	s := &scope{tableIndex: idx.NextTable(), fields: newFieldCompiler(idx)}
	s.from = sqlast.From{Table: q.Collection, TableIndex: s.tableIndex}

	mapping, err := s.fields.convert(q.Fields, s.tableIndex, "fields")
	if err != nil {
		return nil, err
	}
	s.mapping = mapping

	mods, err := convertModifiers(q.Modifiers, s.tableIndex, idx)
	if err != nil {
		return nil, withPath(err, "modifiers")
	}
	s.mods = mods
	return s, nil
}

// finish assembles the Result and checks the parameter invariant.
func (s *scope) finish(idx *IndexAllocator) (*sqlast.Result, error) {
	joins := make([]sqlast.Join, 0, len(s.fields.joins)+len(s.mods.joins))
	joins = append(joins, s.fields.joins...)
	joins = append(joins, s.mods.joins...)

	root := sqlast.Query{
		Clauses: sqlast.Clauses{
			Select: s.fields.selects,
			From:   s.from,
			Joins:  joins,
			Where:  s.mods.where,
			Order:  s.mods.order,
			Limit:  s.mods.limit,
			Offset: s.mods.offset,
		},
		Parameters: s.mods.parameters,
	}

	if _, _, allocated := idx.Allocated(); allocated != len(root.Parameters) {
		return nil, internalErrorf(nil, "allocated %d parameter slots but collected %d values", allocated, len(root.Parameters))
	}
	if err := sqlast.CheckParameters(root); err != nil {
		return nil, internalErrorf(err, "parameter invariant violated")
	}

	return &sqlast.Result{
		Root:         root,
		SubQueries:   s.fields.subQueries,
		AliasMapping: s.mapping,
	}, nil
}

func validationError(res queryir.ValidationResult) *CompileError {
	first := res.Problems[0]
	ce := shapeErrorf(first.Path, "%s", first.Message)
	if n := len(res.Problems); n > 1 {
		rest := queryir.ValidationResult{Problems: res.Problems[1:]}
		ce.Message += fmt.Sprintf(" (and %d more: %s)", n-1, rest.Error())
	}
	return ce
}

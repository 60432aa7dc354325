package compiler

import (
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// targetResult is a resolved column plus the joins needed to reach it.
type targetResult struct {
	value sqlast.ColumnRef
	joins []sqlast.Join
}

// convertTarget resolves a condition or sort target against tableIndex.
//
// A nested target allocates a fresh foreign table index and synthesizes
// its own join every time, even when an identical relation was already
// joined elsewhere in the statement. Its inner target resolves against the
// foreign index; joins for deeper nesting follow the synthesized one.
func convertTarget(t queryir.Target, tableIndex int, idx *IndexAllocator) (targetResult, error) {
	switch target := t.(type) {
	case queryir.TargetPrimitive:
		return targetResult{value: sqlast.Column{TableIndex: tableIndex, Column: target.Field}}, nil

	case queryir.TargetFn:
		return targetResult{value: sqlast.FnColumn{
			Function:   target.Function,
			TableIndex: tableIndex,
			Column:     target.Field,
		}}, nil

	case queryir.TargetNested:
		foreignIndex := idx.NextTable()
		join, err := createJoin(target.Nesting, tableIndex, foreignIndex)
		if err != nil {
			return targetResult{}, err
		}
		inner, err := convertTarget(target.Field, foreignIndex, idx)
		if err != nil {
			return targetResult{}, err
		}
		return targetResult{
			value: inner.value,
			joins: append([]sqlast.Join{join}, inner.joins...),
		}, nil

	default:
		return targetResult{}, shapeErrorf("target", "unknown target node type %T", t)
	}
}

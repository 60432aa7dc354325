package compiler

import (
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// modifiersResult holds the modifier clauses of one scope.
type modifiersResult struct {
	where      sqlast.Where
	order      []sqlast.Order
	limit      *sqlast.ValueRef
	offset     *sqlast.ValueRef
	joins      []sqlast.Join
	parameters []ir.Value
}

// convertModifiers compiles filter, limit, offset and sort for one scope.
//
// The order is fixed because it decides parameter numbering: filter
// parameters first, then limit, then offset. Sort comes last and adds
// only joins, which follow the filter's joins.
func convertModifiers(m queryir.Modifiers, tableIndex int, idx *IndexAllocator) (modifiersResult, error) {
	var res modifiersResult

	if m.Filter != nil {
		fr, err := convertFilter(m.Filter, tableIndex, idx, false)
		if err != nil {
			return modifiersResult{}, err
		}
		res.where = fr.where
		res.joins = append(res.joins, fr.joins...)
		res.parameters = append(res.parameters, fr.parameters...)
	}

	if m.Limit != nil {
		res.limit = &sqlast.ValueRef{ParameterIndex: idx.NextParameter()}
		res.parameters = append(res.parameters, ir.Int(m.Limit.Value))
	}

	if m.Offset != nil {
		res.offset = &sqlast.ValueRef{ParameterIndex: idx.NextParameter()}
		res.parameters = append(res.parameters, ir.Int(m.Offset.Value))
	}

	if len(m.Sort) > 0 {
		orders, joins, err := convertSort(m.Sort, tableIndex, idx)
		if err != nil {
			return modifiersResult{}, err
		}
		res.order = orders
		res.joins = append(res.joins, joins...)
	}

	return res, nil
}

package compiler

import (
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// convertSort compiles sort entries in input order. Sorting never
// allocates parameters.
func convertSort(sorts []queryir.Sort, tableIndex int, idx *IndexAllocator) ([]sqlast.Order, []sqlast.Join, error) {
	orders := make([]sqlast.Order, 0, len(sorts))
	var joins []sqlast.Join
	for _, s := range sorts {
		var dir sqlast.Direction
		switch s.Direction {
		case queryir.Ascending:
			dir = sqlast.Asc
		case queryir.Descending:
			dir = sqlast.Desc
		default:
			return nil, nil, shapeErrorf("sort.direction", "unknown sort direction %q", s.Direction)
		}

		target, err := convertTarget(s.Target, tableIndex, idx)
		if err != nil {
			return nil, nil, err
		}
		orders = append(orders, sqlast.Order{By: target.value, Direction: dir})
		joins = append(joins, target.joins...)
	}
	return orders, joins, nil
}

package compiler

import (
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// createJoin links tableIndex to the already-allocated foreignTableIndex
// over the relation's positionally paired key columns.
//
// A single key pair yields one field-equality condition. A composite key
// yields an "and" node with one equality per pair, in key order. Every
// node has negate=false.
func createJoin(rel queryir.Relation, tableIndex, foreignTableIndex int) (sqlast.Join, error) {
	local, foreign := rel.Local.Fields, rel.Foreign.Fields
	if len(local) == 0 {
		return sqlast.Join{}, shapeErrorf("nesting.local.fields", "relation to %q has no key columns", rel.Foreign.Collection)
	}
	if len(local) != len(foreign) {
		return sqlast.Join{}, shapeErrorf("nesting", "relation to %q pairs %d local keys with %d foreign keys",
			rel.Foreign.Collection, len(local), len(foreign))
	}

	conds := make([]sqlast.Where, len(local))
	for i := range local {
		conds[i] = sqlast.ConditionNode{
			Condition: sqlast.FieldCondition{
				Target:    sqlast.Column{TableIndex: tableIndex, Column: local[i]},
				Operation: queryir.OpEq,
				CompareTo: sqlast.Column{TableIndex: foreignTableIndex, Column: foreign[i]},
			},
		}
	}

	join := sqlast.Join{Table: rel.Foreign.Collection, TableIndex: foreignTableIndex, On: conds[0]}
	if len(conds) > 1 {
		join.On = sqlast.LogicalNode{Operator: queryir.And, Children: conds}
	}
	return join, nil
}

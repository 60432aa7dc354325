package compiler

import (
	"fmt"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

func columnName(i int) string {
	return fmt.Sprintf("c%d", i)
}

func prim(field string) queryir.TargetPrimitive {
	return queryir.TargetPrimitive{Field: field}
}

func numCond(field string, op queryir.Operator, v int64) queryir.Filter {
	return queryir.ConditionFilter{Condition: queryir.NumberCondition{Target: prim(field), Operation: op, CompareTo: ir.Int(v)}}
}

func strCond(field string, op queryir.Operator, v string) queryir.Filter {
	return queryir.ConditionFilter{Condition: queryir.StringCondition{Target: prim(field), Operation: op, CompareTo: v}}
}

func relation(collection string, local, foreign []string) queryir.Relation {
	return queryir.Relation{
		Local:   queryir.LocalKeys{Fields: local},
		Foreign: queryir.ForeignKeys{Store: "main", Collection: collection, Fields: foreign},
	}
}

func col(table int, name string) sqlast.Column {
	return sqlast.Column{TableIndex: table, Column: name}
}

func numLeaf(table int, name string, op queryir.Operator, param int, negate bool) sqlast.ConditionNode {
	return sqlast.ConditionNode{
		Condition: sqlast.NumberCondition{Target: col(table, name), Operation: op, CompareTo: sqlast.ValueRef{ParameterIndex: param}},
		Negate:    negate,
	}
}

func strLeaf(table int, name string, op queryir.Operator, param int, negate bool) sqlast.ConditionNode {
	return sqlast.ConditionNode{
		Condition: sqlast.StringCondition{Target: col(table, name), Operation: op, CompareTo: sqlast.ValueRef{ParameterIndex: param}},
		Negate:    negate,
	}
}

func fieldEq(lt int, lc string, rt int, rc string) sqlast.ConditionNode {
	return sqlast.ConditionNode{Condition: sqlast.FieldCondition{Target: col(lt, lc), Operation: queryir.OpEq, CompareTo: col(rt, rc)}}
}

// ordersQuery is the orders/lineItems query: id, total, and a to-many
// "lineItems" keyed by orders.id = items.order_id, filtered on total > 100
// and limited to 10.
func ordersQuery() queryir.Query {
	return queryir.Query{
		Store:      "main",
		Collection: "orders",
		Fields: []queryir.Field{
			queryir.Primitive{Field: "id", Alias: "id"},
			queryir.Primitive{Field: "total", Alias: "total"},
			queryir.NestedMany{
				Fields:  []queryir.Field{queryir.Primitive{Field: "sku", Alias: "sku"}},
				Nesting: relation("items", []string{"id"}, []string{"order_id"}),
				Alias:   "lineItems",
			},
		},
		Modifiers: queryir.Modifiers{
			Filter: numCond("total", queryir.OpGt, 100),
			Limit:  &queryir.Limit{Value: 10},
		},
	}
}

package testutil

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
)

// ColumnName is the "c<index>" column naming used across tests.
func ColumnName(i int) string {
	return fmt.Sprintf("c%d", i)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrdersQuery requests orders with total > 100, limited to 10, each with
// its line items:
//
//	{ id, total, lineItems: [{ sku, qty }] }
func OrdersQuery() queryir.Query {
	return queryir.Query{
		Store:      "main",
		Collection: "orders",
		Fields: []queryir.Field{
			queryir.Primitive{Field: "id", Alias: "id"},
			queryir.Primitive{Field: "total", Alias: "total"},
			queryir.NestedMany{
				Alias: "lineItems",
				Nesting: queryir.Relation{
					Local:   queryir.LocalKeys{Fields: []string{"id"}},
					Foreign: queryir.ForeignKeys{Store: "main", Collection: "items", Fields: []string{"order_id"}},
				},
				Fields: []queryir.Field{
					queryir.Primitive{Field: "sku", Alias: "sku"},
					queryir.Primitive{Field: "qty", Alias: "qty"},
				},
			},
		},
		Modifiers: queryir.Modifiers{
			Filter: queryir.ConditionFilter{Condition: queryir.NumberCondition{
				Target:    queryir.TargetPrimitive{Field: "total"},
				Operation: queryir.OpGt,
				CompareTo: ir.Int(100),
			}},
			Limit: &queryir.Limit{Value: 10},
		},
	}
}

// OrdersTables is sample data for OrdersQuery. Orders 1 and 3 pass the
// filter; order 3 has no items.
func OrdersTables() map[string][]ir.Object {
	return map[string][]ir.Object{
		"orders": {
			{"id": ir.Int(1), "total": ir.Int(250)},
			{"id": ir.Int(2), "total": ir.Int(40)},
			{"id": ir.Int(3), "total": ir.Int(120)},
		},
		"items": {
			{"order_id": ir.Int(1), "sku": ir.String("A-1"), "qty": ir.Int(2)},
			{"order_id": ir.Int(2), "sku": ir.String("B-1"), "qty": ir.Int(1)},
			{"order_id": ir.Int(1), "sku": ir.String("A-2"), "qty": ir.Int(5)},
		},
	}
}

// OrdersExpected is the merged output of OrdersQuery over OrdersTables.
func OrdersExpected() []ir.Object {
	return []ir.Object{
		{
			"id":    ir.Int(1),
			"total": ir.Int(250),
			"lineItems": ir.Array{
				ir.Object{"sku": ir.String("A-1"), "qty": ir.Int(2)},
				ir.Object{"sku": ir.String("A-2"), "qty": ir.Int(5)},
			},
		},
		{
			"id":        ir.Int(3),
			"total":     ir.Int(120),
			"lineItems": ir.Array{},
		},
	}
}

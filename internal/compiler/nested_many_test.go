package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

func TestBuildNestedMany_SelectsLocalKeys(t *testing.T) {
	idx := NewIndexAllocator()
	idx.NextColumn() // an earlier sibling field

	field := queryir.NestedMany{
		Alias:   "addresses",
		Nesting: relation("addresses", []string{"id", "tenant"}, []string{"customer_id", "tenant_id"}),
		Fields:  []queryir.Field{queryir.Primitive{Field: "city", Alias: "city"}},
	}

	res, err := buildNestedMany(field, 7, idx)
	require.NoError(t, err)

	assert.Equal(t, []sqlast.Select{
		{Ref: col(7, "id"), ColumnIndex: 1},
		{Ref: col(7, "tenant"), ColumnIndex: 2},
	}, res.selects)
	assert.Equal(t, sqlast.SubQuery{Field: field, KeyColumns: []int{1, 2}}, res.subQuery)

	tables, _, params := idx.Allocated()
	assert.Zero(t, tables, "to-many relations are never joined")
	assert.Zero(t, params)
}

func TestBuildNestedMany_KeyMismatch(t *testing.T) {
	field := queryir.NestedMany{
		Alias:   "addresses",
		Nesting: relation("addresses", []string{"id"}, []string{"customer_id", "tenant_id"}),
	}

	_, err := buildNestedMany(field, 0, NewIndexAllocator())
	require.Error(t, err)
	assert.True(t, IsShapeError(err))
}

func TestMaterialize_SingleKey(t *testing.T) {
	res, err := Compile(ordersQuery())
	require.NoError(t, err)

	parent := ir.Object{"c0": ir.Int(42), "c1": ir.Int(250), "c2": ir.Int(42)}
	sub, err := Materialize(res.SubQueries[0], parent, columnName)
	require.NoError(t, err)

	assert.Equal(t, &sqlast.Result{
		Root: sqlast.Query{
			Clauses: sqlast.Clauses{
				Select: []sqlast.Select{{Ref: col(0, "sku"), ColumnIndex: 0}},
				From:   sqlast.From{Table: "items", TableIndex: 0},
				Joins:  []sqlast.Join{},
				Where:  numLeaf(0, "order_id", queryir.OpEq, 0, false),
			},
			Parameters: []ir.Value{ir.Int(42)},
		},
		AliasMapping: sqlast.AliasMapping{sqlast.RootAlias{Alias: "sku", ColumnIndex: 0}},
	}, sub)
}

func TestMaterialize_StringKeyUsesStringCondition(t *testing.T) {
	sq := sqlast.SubQuery{
		Field: queryir.NestedMany{
			Alias:   "items",
			Nesting: relation("items", []string{"uuid"}, []string{"order_uuid"}),
			Fields:  []queryir.Field{queryir.Primitive{Field: "sku", Alias: "sku"}},
		},
		KeyColumns: []int{3},
	}

	sub, err := Materialize(sq, ir.Object{"c3": ir.String("4b1d")}, columnName)
	require.NoError(t, err)

	assert.Equal(t, strLeaf(0, "order_uuid", queryir.OpEq, 0, false), sub.Root.Clauses.Where)
	assert.Equal(t, []ir.Value{ir.String("4b1d")}, sub.Root.Parameters)
}

func TestMaterialize_CompositeKeyWithUserFilter(t *testing.T) {
	// A sub-query filtered on name starts_with "A", keyed (fk1, fk2).
	sq := sqlast.SubQuery{
		Field: queryir.NestedMany{
			Alias:   "children",
			Nesting: relation("children", []string{"k1", "k2"}, []string{"fk1", "fk2"}),
			Fields:  []queryir.Field{queryir.Primitive{Field: "name", Alias: "name"}},
			Modifiers: queryir.Modifiers{
				Filter: strCond("name", queryir.OpStartsWith, "A"),
			},
		},
		KeyColumns: []int{4, 5},
	}
	parent := ir.Object{"c4": ir.String("key-1"), "c5": ir.String("key-2")}

	sub, err := Materialize(sq, parent, columnName)
	require.NoError(t, err)

	assert.Equal(t, sqlast.LogicalNode{
		Operator: queryir.And,
		Children: []sqlast.Where{
			strLeaf(0, "name", queryir.OpStartsWith, 0, false),
			sqlast.LogicalNode{
				Operator: queryir.And,
				Children: []sqlast.Where{
					strLeaf(0, "fk1", queryir.OpEq, 1, false),
					strLeaf(0, "fk2", queryir.OpEq, 2, false),
				},
			},
		},
	}, sub.Root.Clauses.Where)
	assert.Equal(t, []ir.Value{ir.String("A"), ir.String("key-1"), ir.String("key-2")}, sub.Root.Parameters)
}

func TestMaterialize_KeyParametersFollowModifiers(t *testing.T) {
	sq := sqlast.SubQuery{
		Field: queryir.NestedMany{
			Alias:   "items",
			Nesting: relation("items", []string{"id"}, []string{"order_id"}),
			Fields:  []queryir.Field{queryir.Primitive{Field: "sku", Alias: "sku"}},
			Modifiers: queryir.Modifiers{
				Filter: strCond("sku", queryir.OpStartsWith, "X-"),
				Sort:   []queryir.Sort{{Direction: queryir.Ascending, Target: prim("sku")}},
				Limit:  &queryir.Limit{Value: 3},
				Offset: &queryir.Offset{Value: 6},
			},
		},
		KeyColumns: []int{0},
	}

	sub, err := Materialize(sq, ir.Object{"c0": ir.Int(9)}, columnName)
	require.NoError(t, err)

	clauses := sub.Root.Clauses
	assert.Equal(t, []ir.Value{ir.String("X-"), ir.Int(3), ir.Int(6), ir.Int(9)}, sub.Root.Parameters)
	assert.Equal(t, &sqlast.ValueRef{ParameterIndex: 1}, clauses.Limit)
	assert.Equal(t, &sqlast.ValueRef{ParameterIndex: 2}, clauses.Offset)
	assert.Equal(t, []sqlast.Order{{By: col(0, "sku"), Direction: sqlast.Asc}}, clauses.Order)

	and := clauses.Where.(sqlast.LogicalNode)
	require.Len(t, and.Children, 2)
	assert.Equal(t, numLeaf(0, "order_id", queryir.OpEq, 3, false), and.Children[1])
}

func TestMaterialize_NestedSubQueriesAndIndependentNumbering(t *testing.T) {
	// The parent used many indexes; the sub-query restarts at 0 for
	// tables, columns and parameters, and carries its own templates.
	sq := sqlast.SubQuery{
		Field: queryir.NestedMany{
			Alias:   "items",
			Nesting: relation("items", []string{"id"}, []string{"order_id"}),
			Fields: []queryir.Field{
				queryir.Primitive{Field: "sku", Alias: "sku"},
				queryir.NestedOne{
					Alias:   "product",
					Nesting: relation("products", []string{"sku"}, []string{"sku"}),
					Fields:  []queryir.Field{queryir.Primitive{Field: "title", Alias: "title"}},
				},
				queryir.NestedMany{
					Alias:   "discounts",
					Nesting: relation("discounts", []string{"id"}, []string{"item_id"}),
					Fields:  []queryir.Field{queryir.Primitive{Field: "pct", Alias: "pct"}},
				},
			},
		},
		KeyColumns: []int{17},
	}

	sub, err := Materialize(sq, ir.Object{"c17": ir.Int(1)}, columnName)
	require.NoError(t, err)

	assert.Equal(t, sqlast.From{Table: "items", TableIndex: 0}, sub.Root.Clauses.From)
	assert.Equal(t, []sqlast.Select{
		{Ref: col(0, "sku"), ColumnIndex: 0},
		{Ref: col(1, "title"), ColumnIndex: 1},
		{Ref: col(0, "id"), ColumnIndex: 2},
	}, sub.Root.Clauses.Select)
	assert.Equal(t, []sqlast.Join{{Table: "products", TableIndex: 1, On: fieldEq(0, "sku", 1, "sku")}}, sub.Root.Clauses.Joins)
	require.Len(t, sub.SubQueries, 1)
	assert.Equal(t, []int{2}, sub.SubQueries[0].KeyColumns)
	assert.Equal(t, sqlast.SubAlias{Alias: "discounts", Index: 0}, sub.AliasMapping[2])
}

func TestMaterialize_MissingKey(t *testing.T) {
	res, err := Compile(ordersQuery())
	require.NoError(t, err)

	_, err = Materialize(res.SubQueries[0], ir.Object{"c0": ir.Int(1)}, columnName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCorrelationKey))
	assert.Contains(t, err.Error(), `"c2"`)
}

func TestMaterialize_NullKeyStillCompiles(t *testing.T) {
	res, err := Compile(ordersQuery())
	require.NoError(t, err)

	sub, err := Materialize(res.SubQueries[0], ir.Object{"c2": ir.Null{}}, columnName)
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Null{}}, sub.Root.Parameters)
}

func TestMaterialize_CustomColumnNamer(t *testing.T) {
	res, err := Compile(ordersQuery())
	require.NoError(t, err)

	byName := func(i int) string { return []string{"id", "total", "order_key"}[i] }
	sub, err := Materialize(res.SubQueries[0], ir.Object{"order_key": ir.Int(5)}, byName)
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Int(5)}, sub.Root.Parameters)
}

func TestMaterialize_TemplateIsReusable(t *testing.T) {
	res, err := Compile(ordersQuery())
	require.NoError(t, err)
	tmpl := res.SubQueries[0]

	a, err := Materialize(tmpl, ir.Object{"c2": ir.Int(1)}, columnName)
	require.NoError(t, err)
	b, err := Materialize(tmpl, ir.Object{"c2": ir.Int(2)}, columnName)
	require.NoError(t, err)

	assert.Equal(t, a.Root.Clauses, b.Root.Clauses)
	assert.Equal(t, []ir.Value{ir.Int(1)}, a.Root.Parameters)
	assert.Equal(t, []ir.Value{ir.Int(2)}, b.Root.Parameters)
}

func TestMaterialize_BrokenTemplate(t *testing.T) {
	sq := sqlast.SubQuery{
		Field: queryir.NestedMany{
			Alias:   "items",
			Nesting: relation("items", []string{"id"}, []string{"order_id"}),
			Fields:  []queryir.Field{queryir.Primitive{Field: "sku", Alias: "sku"}},
		},
	}

	_, err := Materialize(sq, ir.Object{}, columnName)
	require.Error(t, err)
	assert.True(t, IsInternalError(err))
}

package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
)

func ordersRelation() Relation {
	return Relation{
		Local:   LocalKeys{Fields: []string{"id"}},
		Foreign: ForeignKeys{Store: "main", Collection: "items", Fields: []string{"order_id"}},
	}
}

func validOrdersQuery() Query {
	return Query{
		Store:      "main",
		Collection: "orders",
		Fields: []Field{
			Primitive{Field: "id", Alias: "id"},
			Fn{Function: Function{Type: ExtractFn, Name: "year", IsTimestampType: true}, Field: "created_at", Alias: "year"},
			NestedOne{
				Fields: []Field{Primitive{Field: "name", Alias: "name"}},
				Nesting: Relation{
					Local:   LocalKeys{Fields: []string{"customer_id"}},
					Foreign: ForeignKeys{Collection: "customers", Fields: []string{"id"}},
				},
				Alias: "customer",
			},
			NestedMany{
				Fields:  []Field{Primitive{Field: "sku", Alias: "sku"}},
				Nesting: ordersRelation(),
				Modifiers: Modifiers{
					Sort:  []Sort{{Direction: Ascending, Target: TargetPrimitive{Field: "sku"}}},
					Limit: &Limit{Value: 5},
				},
				Alias: "lineItems",
			},
		},
		Modifiers: Modifiers{
			Filter: LogicalFilter{
				Operator: And,
				Children: []Filter{
					ConditionFilter{Condition: NumberCondition{Target: TargetPrimitive{Field: "total"}, Operation: OpGt, CompareTo: ir.Int(100)}},
					NegateFilter{Child: ConditionFilter{Condition: StringCondition{Target: TargetPrimitive{Field: "status"}, Operation: OpStartsWith, CompareTo: "can"}}},
					ConditionFilter{Condition: SetCondition{Target: TargetPrimitive{Field: "region"}, Operation: OpIn, CompareTo: []ir.Value{ir.String("eu"), ir.String("us")}}},
				},
			},
			Offset: &Offset{Value: 0},
		},
	}
}

func TestValidate_ValidQuery(t *testing.T) {
	result := Validate(validOrdersQuery())

	assert.True(t, result.OK(), result.Error())
	assert.Empty(t, result.Problems)
	assert.Equal(t, "", result.Error())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(q *Query)
		wantPath string
		wantMsg  string
	}{
		{
			name:     "missing collection",
			mutate:   func(q *Query) { q.Collection = "" },
			wantPath: "collection",
			wantMsg:  "collection name is required",
		},
		{
			name:     "no fields",
			mutate:   func(q *Query) { q.Fields = nil },
			wantPath: "fields",
			wantMsg:  "at least one field",
		},
		{
			name: "duplicate alias",
			mutate: func(q *Query) {
				q.Fields = append(q.Fields, Primitive{Field: "other", Alias: "id"})
			},
			wantPath: "fields[4].alias",
			wantMsg:  `duplicate alias "id"`,
		},
		{
			name: "composite key length mismatch",
			mutate: func(q *Query) {
				nm := q.Fields[3].(NestedMany)
				nm.Nesting.Local.Fields = []string{"id", "region"}
				q.Fields[3] = nm
			},
			wantPath: "fields[3].nesting",
			wantMsg:  "differ in length (2 vs 1)",
		},
		{
			name: "empty key list",
			mutate: func(q *Query) {
				no := q.Fields[2].(NestedOne)
				no.Nesting.Local.Fields = nil
				no.Nesting.Foreign.Fields = nil
				q.Fields[2] = no
			},
			wantPath: "fields[2].nesting.local.fields",
			wantMsg:  "at least one key column",
		},
		{
			name: "unknown extract function",
			mutate: func(q *Query) {
				q.Fields[1] = Fn{Function: Function{Type: ExtractFn, Name: "century"}, Field: "created_at", Alias: "year"}
			},
			wantPath: "fields[1].fn",
			wantMsg:  `unknown extract function "century"`,
		},
		{
			name: "string operator on number condition",
			mutate: func(q *Query) {
				q.Modifiers.Filter = ConditionFilter{Condition: NumberCondition{Target: TargetPrimitive{Field: "total"}, Operation: OpContains, CompareTo: ir.Int(1)}}
			},
			wantPath: "modifiers.filter.condition.operation",
			wantMsg:  `operator "contains" is not valid for condition-number`,
		},
		{
			name: "non numeric number literal",
			mutate: func(q *Query) {
				q.Modifiers.Filter = ConditionFilter{Condition: NumberCondition{Target: TargetPrimitive{Field: "total"}, Operation: OpEq, CompareTo: ir.String("1")}}
			},
			wantPath: "modifiers.filter.condition.compareTo",
			wantMsg:  "needs a numeric value, got string",
		},
		{
			name: "empty set",
			mutate: func(q *Query) {
				q.Modifiers.Filter = ConditionFilter{Condition: SetCondition{Target: TargetPrimitive{Field: "region"}, Operation: OpIn}}
			},
			wantPath: "modifiers.filter.condition.compareTo",
			wantMsg:  "at least one value",
		},
		{
			name: "empty logical",
			mutate: func(q *Query) {
				q.Modifiers.Filter = NegateFilter{Child: LogicalFilter{Operator: Or}}
			},
			wantPath: "modifiers.filter.childNode.childNodes",
			wantMsg:  "at least one child",
		},
		{
			name: "unknown logical operator",
			mutate: func(q *Query) {
				q.Modifiers.Filter = LogicalFilter{Operator: "xor", Children: []Filter{ConditionFilter{Condition: FieldCondition{Target: TargetPrimitive{Field: "a"}, Operation: OpEq, CompareTo: TargetPrimitive{Field: "b"}}}}}
			},
			wantPath: "modifiers.filter.operator",
			wantMsg:  `unknown logical operator "xor"`,
		},
		{
			name:     "negative limit",
			mutate:   func(q *Query) { q.Modifiers.Limit = &Limit{Value: -1} },
			wantPath: "modifiers.limit",
			wantMsg:  "must not be negative",
		},
		{
			name: "bad sort direction in sub-query",
			mutate: func(q *Query) {
				nm := q.Fields[3].(NestedMany)
				nm.Modifiers.Sort = []Sort{{Direction: "up", Target: TargetPrimitive{Field: "sku"}}}
				q.Fields[3] = nm
			},
			wantPath: "fields[3].modifiers.sort[0].direction",
			wantMsg:  `unknown sort direction "up"`,
		},
		{
			name: "nested target without field",
			mutate: func(q *Query) {
				q.Modifiers.Sort = []Sort{{Direction: Descending, Target: TargetNested{Nesting: ordersRelation()}}}
			},
			wantPath: "modifiers.sort[0].target.field",
			wantMsg:  "nested target requires a field",
		},
		{
			name: "nil filter child",
			mutate: func(q *Query) {
				q.Modifiers.Filter = LogicalFilter{Operator: And, Children: []Filter{nil}}
			},
			wantPath: "modifiers.filter.childNodes[0]",
			wantMsg:  "filter node is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validOrdersQuery()
			tt.mutate(&q)

			result := Validate(q)

			require.False(t, result.OK())
			require.Len(t, result.Problems, 1, result.Error())
			assert.Equal(t, tt.wantPath, result.Problems[0].Path)
			assert.Contains(t, result.Problems[0].Message, tt.wantMsg)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	q := Query{
		Fields: []Field{
			Primitive{Field: "", Alias: ""},
		},
		Modifiers: Modifiers{
			Limit:  &Limit{Value: -1},
			Offset: &Offset{Value: -2},
		},
	}

	result := Validate(q)

	require.Len(t, result.Problems, 5)
	assert.Equal(t, "collection", result.Problems[0].Path)
	assert.Equal(t, "fields[0].alias", result.Problems[1].Path)
	assert.Equal(t, "fields[0].field", result.Problems[2].Path)
	assert.Equal(t, "modifiers.limit", result.Problems[3].Path)
	assert.Equal(t, "modifiers.offset", result.Problems[4].Path)
	assert.Contains(t, result.Error(), "; ")
}

func TestAliasOf(t *testing.T) {
	for _, f := range validOrdersQuery().Fields {
		assert.NotEmpty(t, AliasOf(f))
	}
	assert.Equal(t, "lineItems", AliasOf(validOrdersQuery().Fields[3]))
}

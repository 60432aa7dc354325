package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
)

func sampleQuery() Query {
	return Query{
		Clauses: Clauses{
			Select: []Select{{Ref: Column{TableIndex: 0, Column: "id"}, ColumnIndex: 0}},
			From:   From{Table: "orders", TableIndex: 0},
			Joins: []Join{{
				Table:      "customers",
				TableIndex: 1,
				On: ConditionNode{Condition: FieldCondition{
					Target:    Column{TableIndex: 0, Column: "customer_id"},
					Operation: queryir.OpEq,
					CompareTo: Column{TableIndex: 1, Column: "id"},
				}},
			}},
			Where: LogicalNode{
				Operator: queryir.And,
				Children: []Where{
					ConditionNode{Condition: NumberCondition{Target: Column{TableIndex: 0, Column: "total"}, Operation: queryir.OpGt, CompareTo: ValueRef{ParameterIndex: 0}}},
					ConditionNode{Condition: SetCondition{Target: Column{TableIndex: 1, Column: "region"}, Operation: queryir.OpIn, CompareTo: ValuesRef{ParameterIndexes: []int{1, 2}}}, Negate: true},
				},
			},
			Limit:  &ValueRef{ParameterIndex: 3},
			Offset: &ValueRef{ParameterIndex: 4},
		},
		Parameters: []ir.Value{ir.Int(100), ir.String("eu"), ir.String("us"), ir.Int(10), ir.Int(0)},
	}
}

func TestParameterIndexes(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ParameterIndexes(sampleQuery()))
	assert.Empty(t, ParameterIndexes(Query{}))
}

func TestCheckParameters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Query)
		wantErr string
	}{
		{
			name:   "consistent",
			mutate: func(q *Query) {},
		},
		{
			name:    "extra parameter",
			mutate:  func(q *Query) { q.Parameters = append(q.Parameters, ir.Int(1)) },
			wantErr: "parameter 5 is never referenced",
		},
		{
			name:    "dangling reference",
			mutate:  func(q *Query) { q.Clauses.Offset = &ValueRef{ParameterIndex: 7} },
			wantErr: "parameter index 7 out of range",
		},
		{
			name:    "duplicate reference",
			mutate:  func(q *Query) { q.Clauses.Limit = &ValueRef{ParameterIndex: 0} },
			wantErr: "parameter index 0 referenced more than once",
		},
		{
			name: "gap",
			mutate: func(q *Query) {
				q.Clauses.Offset = nil
				q.Parameters = q.Parameters[:4]
				q.Clauses.Limit = &ValueRef{ParameterIndex: 3}
				q.Clauses.Where = nil
			},
			wantErr: "parameter 0 is never referenced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuery()
			tt.mutate(&q)

			err := CheckParameters(q)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAliasEntryKeys(t *testing.T) {
	mapping := AliasMapping{
		RootAlias{Alias: "id", ColumnIndex: 0},
		NestedAlias{Alias: "customer", Children: AliasMapping{RootAlias{Alias: "name", ColumnIndex: 1}}},
		SubAlias{Alias: "lineItems", Index: 0},
	}

	keys := make([]string, len(mapping))
	for i, e := range mapping {
		keys[i] = e.Key()
	}
	assert.Equal(t, []string{"id", "customer", "lineItems"}, keys)
}

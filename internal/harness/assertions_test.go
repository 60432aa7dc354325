package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/absql/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.Rows = []ir.Object{
		{"id": ir.Int(1), "name": ir.String("Bob"), "tags": ir.Array{ir.String("a")}},
		{"id": ir.Int(2), "name": ir.String("Carol"), "tags": ir.Array{}},
	}
	r.AddStatement("customers", `SELECT t0."id" AS c0 FROM "customers" t0 ORDER BY t0."name" ASC`, nil)
	r.AddStatement("tags", `SELECT t0."tag" AS c0 FROM "tags" t0 WHERE t0."customer_id" = ?1`, []any{int64(1)})
	r.AddStatement("tags", `SELECT t0."tag" AS c0 FROM "tags" t0 WHERE t0."customer_id" = ?1`, []any{int64(2)})
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertRowCount, Count: 2},
		{Type: AssertRowContains, Row: map[string]any{"name": "Carol", "tags": []any{}}},
		{Type: AssertRowOrder, Field: "id", Values: []any{1, 2}},
		{Type: AssertStatementCount, Count: 3},
		{Type: AssertStatementCount, Table: "tags", Count: 2},
		{Type: AssertStatementContains, Contains: "ORDER BY"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      []string
	}{
		{
			name:      "row count",
			assertion: Assertion{Type: AssertRowCount, Count: 5},
			want:      []string{"Assertion failed: row_count", "Expected: 5 rows", "Actual: 2 rows"},
		},
		{
			name:      "row contains",
			assertion: Assertion{Type: AssertRowContains, Row: map[string]any{"name": "Dave"}},
			want:      []string{"Assertion failed: row_contains", `a row matching {"name":"Dave"}`},
		},
		{
			name:      "row contains compares nested values exactly",
			assertion: Assertion{Type: AssertRowContains, Row: map[string]any{"tags": []any{}, "id": 1}},
			want:      []string{"Assertion failed: row_contains"},
		},
		{
			name:      "row order",
			assertion: Assertion{Type: AssertRowOrder, Field: "name", Values: []any{"Carol", "Bob"}},
			want:      []string{"Assertion failed: row_order", `Actual: ["Bob","Carol"]`},
		},
		{
			name:      "row order on missing field",
			assertion: Assertion{Type: AssertRowOrder, Field: "email", Values: []any{}},
			want:      []string{`field "email" on every row`},
		},
		{
			name:      "statement count",
			assertion: Assertion{Type: AssertStatementCount, Table: "customers", Count: 2},
			want:      []string{"Expected: 2 statements on customers", "Actual: 1 statements on customers", "Executed statements:"},
		},
		{
			name:      "statement contains",
			assertion: Assertion{Type: AssertStatementContains, Contains: "GROUP BY"},
			want:      []string{`a statement containing "GROUP BY"`, "[3] SELECT"},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "bogus"},
			want:      []string{`assertion[0]: unknown assertion type "bogus"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			for _, want := range tt.want {
				assert.Contains(t, errs[0], want)
			}
		})
	}
}

func TestAssertRowsEqual(t *testing.T) {
	rows := sampleResult().Rows

	assert.NoError(t, assertRowsEqual(rows, rows))

	err := assertRowsEqual(rows, rows[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 1 rows")

	changed := []ir.Object{rows[0], {"id": ir.Int(2), "name": ir.String("Carl"), "tags": ir.Array{}}}
	err = assertRowsEqual(rows, changed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 1 = {"id":2,"name":"Carl","tags":[]}`)
}

func TestMatchRow(t *testing.T) {
	row := ir.Object{"a": ir.Int(1), "b": ir.String("x")}

	assert.True(t, matchRow(row, ir.Object{}))
	assert.True(t, matchRow(row, ir.Object{"a": ir.Int(1)}))
	assert.False(t, matchRow(row, ir.Object{"a": ir.Int(2)}))
	assert.False(t, matchRow(row, ir.Object{"c": ir.Null{}}))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

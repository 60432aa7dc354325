package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/absql/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string      // Assertion type for categorization
	Expected   string      // Human-readable expected outcome
	Actual     string      // Human-readable actual outcome
	Statements []Statement // Executed statements for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Statements) > 0 {
		fmt.Fprintf(&buf, "\nExecuted statements:\n")
		for i, st := range e.Statements {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, st.SQL, st.Args)
		}
	}

	return buf.String()
}

// assertRowsEqual checks the merged rows against want, in order.
func assertRowsEqual(rows, want []ir.Object) error {
	if len(rows) != len(want) {
		return &AssertionError{
			Type:     "rows",
			Expected: fmt.Sprintf("%d rows: %s", len(want), formatRows(want)),
			Actual:   fmt.Sprintf("%d rows: %s", len(rows), formatRows(rows)),
		}
	}
	for i := range want {
		if !ir.Equal(rows[i], want[i]) {
			return &AssertionError{
				Type:     "rows",
				Expected: fmt.Sprintf("row %d = %s", i, formatValue(want[i])),
				Actual:   fmt.Sprintf("row %d = %s", i, formatValue(rows[i])),
			}
		}
	}
	return nil
}

// assertRowCount checks the number of output rows.
func assertRowCount(result *Result, assertion Assertion) error {
	if len(result.Rows) != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", assertion.Count),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
		}
	}
	return nil
}

// assertRowContains checks that some output row contains the expected
// fields (subset match). Nested values compare exactly.
func assertRowContains(result *Result, assertion Assertion) error {
	want, err := convertToIRObject(assertion.Row)
	if err != nil {
		return fmt.Errorf("row_contains: %w", err)
	}

	for _, row := range result.Rows {
		if matchRow(row, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertRowContains,
		Expected: fmt.Sprintf("a row matching %s", formatValue(want)),
		Actual:   formatRows(result.Rows),
	}
}

// assertRowOrder checks the values of one top-level field across all
// rows, in order.
func assertRowOrder(result *Result, assertion Assertion) error {
	v, err := ir.FromAny(assertion.Values)
	if err != nil {
		return fmt.Errorf("row_order: %w", err)
	}
	want, _ := v.(ir.Array)
	if want == nil {
		want = ir.Array{}
	}

	got := make(ir.Array, len(result.Rows))
	for i, row := range result.Rows {
		val, ok := row[assertion.Field]
		if !ok {
			return &AssertionError{
				Type:     AssertRowOrder,
				Expected: fmt.Sprintf("field %q on every row", assertion.Field),
				Actual:   fmt.Sprintf("row %d = %s", i, formatValue(row)),
			}
		}
		got[i] = val
	}

	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertRowOrder,
			Expected: fmt.Sprintf("%s in order %s", assertion.Field, formatValue(want)),
			Actual:   formatValue(got),
		}
	}
	return nil
}

// assertStatementCount checks how many statements ran, on one table if
// assertion.Table is set.
func assertStatementCount(result *Result, assertion Assertion) error {
	count := 0
	for _, st := range result.Statements {
		if assertion.Table == "" || st.Table == assertion.Table {
			count++
		}
	}

	if count != assertion.Count {
		what := "statements"
		if assertion.Table != "" {
			what = "statements on " + assertion.Table
		}
		return &AssertionError{
			Type:       AssertStatementCount,
			Expected:   fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:     fmt.Sprintf("%d %s", count, what),
			Statements: result.Statements,
		}
	}
	return nil
}

// assertStatementContains checks that some executed SQL contains the
// expected fragment.
func assertStatementContains(result *Result, assertion Assertion) error {
	for _, st := range result.Statements {
		if strings.Contains(st.SQL, assertion.Contains) {
			return nil
		}
	}
	return &AssertionError{
		Type:       AssertStatementContains,
		Expected:   fmt.Sprintf("a statement containing %q", assertion.Contains),
		Actual:     "not found",
		Statements: result.Statements,
	}
}

// matchRow checks if row contains all fields of want (subset match).
// Extra keys in row are ignored.
func matchRow(row, want ir.Object) bool {
	for key, expected := range want {
		actual, ok := row[key]
		if !ok || !ir.Equal(actual, expected) {
			return false
		}
	}
	return true
}

func formatRows(rows []ir.Object) string {
	arr := make(ir.Array, len(rows))
	for i, row := range rows {
		arr[i] = row
	}
	return formatValue(arr)
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertRowContains:
			err = assertRowContains(result, assertion)
		case AssertRowOrder:
			err = assertRowOrder(result, assertion)
		case AssertStatementCount:
			err = assertStatementCount(result, assertion)
		case AssertStatementContains:
			err = assertStatementContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

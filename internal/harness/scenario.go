package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario seeds a fresh SQLite database, runs one abstract query
// through the compiler, the store and the merge engine, and checks the
// merged rows.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains SQL statements run before the query, typically
	// CREATE TABLE.
	Setup []string `yaml:"setup,omitempty"`

	// Tables contains rows to insert after setup, keyed by table name.
	// Tables are filled in name order.
	Tables map[string][]map[string]any `yaml:"tables,omitempty"`

	// Query is the abstract query in its wire form (see queryir.Decode).
	Query map[string]any `yaml:"query"`

	// Concurrency is the merge engine's sub-query concurrency.
	// Zero means sequential.
	Concurrency int `yaml:"concurrency,omitempty"`

	// MaxSubQueries caps sub-query executions. Zero means unlimited.
	MaxSubQueries int `yaml:"max_sub_queries,omitempty"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`

	// Expect specifies the expected outcome of the run.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the rows and the executed statements.
	// Supported types: row_count, row_contains, row_order, statement_count, statement_contains
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies expected run behavior.
type ExpectClause struct {
	// Rows is the exact expected output, in order.
	// If nil, rows are not compared.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Error is the expected error code (a merge error code or
	// COMPILE_FAILED). If empty, the run must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the rows or statements of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Check the number of output rows
	// - "row_contains": Check some output row matches Row (subset match)
	// - "row_order": Check the values of Field across the rows, in order
	// - "statement_count": Check the number of executed statements (on Table, if set)
	// - "statement_contains": Check some statement's SQL contains Contains
	Type string `yaml:"type"`

	// Count is the expected number (used by row_count and statement_count).
	Count int `yaml:"count,omitempty"`

	// Row are the expected field values (used by row_contains).
	// Subset match - only specified fields are validated.
	Row map[string]any `yaml:"row,omitempty"`

	// Field is the top-level output key (used by row_order).
	Field string `yaml:"field,omitempty"`

	// Values are the expected values of Field (used by row_order).
	Values []any `yaml:"values,omitempty"`

	// Table restricts statement_count to one table.
	Table string `yaml:"table,omitempty"`

	// Contains is the expected SQL fragment (used by statement_contains).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount          = "row_count"
	AssertRowContains       = "row_contains"
	AssertRowOrder          = "row_order"
	AssertStatementCount    = "statement_count"
	AssertStatementContains = "statement_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Query) == 0 {
		return fmt.Errorf("query is required")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative")
	}
	if s.MaxSubQueries < 0 {
		return fmt.Errorf("max_sub_queries must be non-negative")
	}

	for i, stmt := range s.Setup {
		if stmt == "" {
			return fmt.Errorf("setup[%d]: statement is empty", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount, AssertStatementCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertRowContains:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for row_contains", index)
		}
	case AssertRowOrder:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for row_order", index)
		}
	case AssertStatementContains:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for statement_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

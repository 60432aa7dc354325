package harness

import (
	"github.com/roach88/absql/internal/ir"
)

// Statement is one SQL statement the scenario's query executed: the root
// query or a materialized sub-query.
type Statement struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
	Args  []any  `json:"args"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and all assertions match.
	Pass bool `json:"pass"`

	// RunID is the merge run ID the scenario ran under.
	RunID string `json:"run_id"`

	// Rows are the merged output rows, in root order. When the run fails
	// part-way, Rows holds the rows delivered before the failure.
	Rows []ir.Object `json:"rows"`

	// Statements lists every executed statement in execution order.
	// With concurrency above 1 the order of sub-queries varies.
	Statements []Statement `json:"statements"`

	// ErrorCode is the failure code of the run, empty on success. It is a
	// merge error code, or "COMPILE_FAILED" when compilation failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// ErrCodeCompileFailed is the ErrorCode of a scenario whose query did not
// compile.
const ErrCodeCompileFailed = "COMPILE_FAILED"

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Rows:       []ir.Object{},
		Statements: []Statement{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStatement records an executed statement.
func (r *Result) AddStatement(table, sql string, args []any) {
	r.Statements = append(r.Statements, Statement{Table: table, SQL: sql, Args: args})
}

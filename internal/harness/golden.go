package harness

import (
	"cmp"
	"context"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/absql/internal/ir"
)

// Snapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	RunID        string
	Rows         []ir.Object
	ErrorCode    string
	Statements   []Statement
}

// toCanonical converts a Snapshot to an ir.Object for canonical JSON
// serialization. Statements are sorted by SQL text, then arguments, so
// the snapshot does not depend on sub-query scheduling.
func (s *Snapshot) toCanonical() (ir.Object, error) {
	rows := make(ir.Array, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = row
	}

	type keyed struct {
		sql  string
		args string
		obj  ir.Object
	}
	stmts := make([]keyed, len(s.Statements))
	for i, st := range s.Statements {
		args, err := ir.FromAny(st.Args)
		if err != nil {
			return nil, err
		}
		argsJSON, err := ir.MarshalCanonical(args)
		if err != nil {
			return nil, err
		}
		stmts[i] = keyed{
			sql:  st.SQL,
			args: string(argsJSON),
			obj:  ir.Object{"sql": ir.String(st.SQL), "args": args},
		}
	}
	slices.SortStableFunc(stmts, func(a, b keyed) int {
		return cmp.Or(cmp.Compare(a.sql, b.sql), cmp.Compare(a.args, b.args))
	})

	statements := make(ir.Array, len(stmts))
	for i, st := range stmts {
		statements[i] = st.obj
	}

	obj := ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"run_id":        ir.String(s.RunID),
		"rows":          rows,
		"statements":    statements,
	}
	if s.ErrorCode != "" {
		obj["error_code"] = ir.String(s.ErrorCode)
	}
	return obj, nil
}

// MarshalSnapshot returns the canonical JSON of a scenario result.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Rows:         result.Rows,
		ErrorCode:    result.ErrorCode,
		Statements:   result.Statements,
	}
	obj, err := snapshot.toCanonical()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(obj)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

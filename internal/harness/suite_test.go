package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata/scenarios", "customers_sorted.yaml"),
		filepath.Join("testdata/scenarios", "missing_table.yaml"),
		filepath.Join("testdata/scenarios", "orders_with_items.yaml"),
	}, files)

	files, err = FindScenarios("testdata/scenarios/missing_table.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/scenarios/missing_table.yaml"}, files)
}

func TestFindScenarios_NotFound(t *testing.T) {
	_, err := FindScenarios("testdata/nowhere")
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "testdata/nowhere", nf.Path)
}

func TestFindScenarios_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yml", "a.YAML", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.YAML"), filepath.Join(dir, "b.yml")}, files)
}

func TestRunSuite(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)

	result, err := RunSuite(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestRunSuite_Failures(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [\n"), 0o644))

	failing := filepath.Join(dir, "failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`
name: wrong_count
description: Expects a row that is not there
setup:
  - CREATE TABLE t (a INTEGER)
query:
  collection: t
  fields:
    - {type: primitive, field: a, alias: a}
assertions:
  - {type: row_count, count: 1}
`), 0o644))

	result, err := RunSuite(context.Background(), []string{broken, failing, "testdata/scenarios/customers_sorted.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	require.Len(t, result.Failures, 2)
	assert.Equal(t, broken, result.Failures[0].ScenarioPath)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
	assert.Equal(t, "wrong_count", result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Error, "scenario assertions failed")
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunSuite(ctx, []string{"testdata/scenarios/customers_sorted.yaml"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.TotalScenarios)
}

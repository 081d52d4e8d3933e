package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/internal/pipeline"
	"covid-impact-pipeline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testConfigPath = "testdata/pipeline.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&app{logger: zaptest.NewLogger(t)})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pipeline v"+Version)
}

func TestCommandMetadata(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"run", "chart", "datasets", "serve", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.NotEmpty(t, cmd.Short, "%s: Short should not be empty", name)
	}
	for _, flag := range []string{"config", "verbose", "year-min", "year-max", "db"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, run.Aliases)
	for _, flag := range []string{"export-dir", "format", "store"} {
		assert.NotNil(t, run.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config", "--config", testConfigPath, "--year-max", "2019")
	require.NoError(t, err)
	assert.Contains(t, out, "year_min: 2018")
	assert.Contains(t, out, "year_max: 2019")
	assert.Contains(t, out, "id: gdp")
}

func TestChartCommand(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "chart", "gdp-line", "--config", testConfigPath)
		require.NoError(t, err)
		assert.Contains(t, out, "gdp-line (continent-line) economy = GDP")
		assert.Contains(t, out, "Europe")
		assert.Contains(t, out, "South America")
		assert.Contains(t, out, "300")
	})

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "chart", "--config", testConfigPath)
		require.NoError(t, err)
		assert.Contains(t, out, "gdp-line")
		assert.Contains(t, out, "gdp-delta")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "chart", "gdp-delta", "GDP", "--json", "--config", testConfigPath)
		require.NoError(t, err)

		var data model.ChartData
		require.NoError(t, json.Unmarshal([]byte(out), &data))
		assert.Equal(t, model.ChartEntityDelta, data.Kind)
		require.Len(t, data.Deltas, 3)
		for _, d := range data.Deltas {
			assert.Equal(t, 2018, d.FromYear)
			assert.Equal(t, 2019, d.ToYear)
		}
	})

	t.Run("unknown chart", func(t *testing.T) {
		_, err := execute(t, "chart", "nope", "--config", testConfigPath)
		assert.ErrorIs(t, err, pipeline.ErrUnknownChart)
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := execute(t, "chart", "gdp-line", "Trade", "--config", testConfigPath)
		assert.ErrorIs(t, err, pipeline.ErrInvalidSelector)
	})
}

func TestDatasetsCommand(t *testing.T) {
	out, err := execute(t, "datasets", "--config", testConfigPath)
	require.NoError(t, err)
	assert.Contains(t, out, "economy")
	assert.Contains(t, out, "2018-2020")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	out, err := execute(t, "run",
		"--config", testConfigPath,
		"--export-dir", filepath.Join(dir, "out"),
		"--format", "csv,json",
		"--store", "--db", db,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "completed in")

	for _, name := range []string{"economy_aggregates.csv", "economy_records.csv", "economy_GDP_wide.csv", "economy.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, "out", "*", name))
		require.NoError(t, err)
		assert.Len(t, matches, 1, name)
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunCompleted, runs[0].Status)

	aggs, err := st.GetAggregates(context.Background(), runs[0].ID, "economy")
	require.NoError(t, err)
	assert.NotEmpty(t, aggs)

	diags, err := st.GetDiagnostics(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 2, diags[0].ImputedFilled)
}

func TestRunCommandRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pipeline.yaml")
	body, err := os.ReadFile(testConfigPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, body, 0o644))
	db := filepath.Join(dir, "runs.db")

	_, err = execute(t, "run", "--config", cfgPath, "--export-dir", filepath.Join(dir, "out"), "--store", "--db", db)
	require.ErrorIs(t, err, pipeline.ErrSourceNotFound)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "scenario_gdp.csv")
}

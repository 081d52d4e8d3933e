package pipeline

import (
	"errors"
	"testing"

	"covid-impact-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrackerStages(t *testing.T) {
	tr := NewTracker("economy", nil)

	tr.StartStage(StageResolve, 9)
	tr.EndStage(StageResolve, 7)
	tr.EndStage("never-started", 1)

	d := tr.Diagnostics()
	require.Len(t, d.Stages, 1)
	s := d.Stages[0]
	assert.Equal(t, StageResolve, s.StageName)
	assert.Equal(t, 9, s.RecordsIn)
	assert.Equal(t, 7, s.RecordsOut)
	assert.False(t, s.EndTime.Before(s.StartTime))
	assert.Equal(t, StatusRunning, d.Status)
}

func TestTrackerConditions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tr := NewTracker("covid", zap.New(core))

	tr.UpdateSourceMetrics(model.SourceMetrics{Source: "owid", Rows: 5, Records: 4, MissingCount: 1})
	tr.RecordUnresolved([]string{"World", "Euro area"})
	tr.RecordUnresolved([]string{"World"})
	tr.RecordMerge(MergeStats{Kept: 0, Discarded: 8})
	tr.RecordImpute(ImputeStats{
		Metric:       "Consumption",
		Filled:       2,
		Unfilled:     1,
		Coefficients: map[string]float64{"Europe": 0.25},
		Undefined:    []string{"Oceania"},
	})
	tr.Fail(errors.New("boom"))

	d := tr.Diagnostics()
	assert.Equal(t, 4, d.Sources["owid"].Records)
	assert.Equal(t, []string{"Euro area", "World"}, d.UnresolvedEntities)
	assert.True(t, d.EmptyJoin)
	assert.Equal(t, 8, d.JoinDiscarded)
	assert.Equal(t, 2, d.ImputedFilled)
	assert.Equal(t, 1, d.ImputedUnfilled)
	assert.Equal(t, map[string]float64{"Consumption:Europe": 0.25}, d.Coefficients)
	assert.Equal(t, []string{"Consumption:Oceania"}, d.UndefinedCoefficients)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "boom", d.Error)

	assert.Equal(t, 1, logs.FilterMessage(ErrEmptyJoin.Error()).Len())
	assert.Equal(t, 1, logs.FilterMessage("undefined imputation coefficient").Len())

	d.UnresolvedEntities[0] = "changed"
	d.Coefficients["x"] = 1
	again := tr.Diagnostics()
	assert.Equal(t, "Euro area", again.UnresolvedEntities[0])
	assert.NotContains(t, again.Coefficients, "x")
}

package pipeline

import (
	"sort"
	"sync"
	"time"

	"covid-impact-pipeline/internal/model"

	"go.uber.org/zap"
)

// Stage names recorded by the tracker.
const (
	StageLoad      = "load"
	StageTransform = "transform"
	StageReshape   = "reshape"
	StageResolve   = "resolve"
	StageMerge     = "merge"
	StageImpute    = "impute"
	StageAggregate = "aggregate"
)

// Dataset statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Tracker records stage timings and the non-fatal conditions of one dataset
// build.
type Tracker struct {
	mu     sync.Mutex
	diag   model.DatasetDiagnostics
	open   map[string]int
	logger *zap.Logger
}

// NewTracker creates a tracker for a dataset.
func NewTracker(dataset string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		diag: model.DatasetDiagnostics{
			Dataset:      dataset,
			Status:       StatusRunning,
			Sources:      make(map[string]model.SourceMetrics),
			Coefficients: make(map[string]float64),
		},
		open:   make(map[string]int),
		logger: logger.With(zap.String("dataset", dataset)),
	}
}

// StartStage marks the start of a stage.
func (t *Tracker) StartStage(stage string, recordsIn int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open[stage] = len(t.diag.Stages)
	t.diag.Stages = append(t.diag.Stages, model.StageMetrics{
		StageName: stage,
		StartTime: time.Now(),
		RecordsIn: recordsIn,
	})
	t.logger.Debug("stage started", zap.String("stage", stage), zap.Int("records", recordsIn))
}

// EndStage marks the end of a stage started with StartStage.
func (t *Tracker) EndStage(stage string, recordsOut int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.open[stage]
	if !ok {
		return
	}
	delete(t.open, stage)

	s := &t.diag.Stages[i]
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.RecordsOut = recordsOut
	t.logger.Debug("stage completed",
		zap.String("stage", stage),
		zap.Int("records", recordsOut),
		zap.Duration("duration", s.Duration),
	)
}

// UpdateSourceMetrics stores the load metrics of one source.
func (t *Tracker) UpdateSourceMetrics(m model.SourceMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.diag.Sources[m.Source] = m
}

// RecordUnresolved adds entities that resolved to no continent.
func (t *Tracker) RecordUnresolved(entities []string) {
	if len(entities) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool, len(t.diag.UnresolvedEntities))
	for _, e := range t.diag.UnresolvedEntities {
		seen[e] = true
	}
	for _, e := range entities {
		if !seen[e] {
			seen[e] = true
			t.diag.UnresolvedEntities = append(t.diag.UnresolvedEntities, e)
		}
	}
	sort.Strings(t.diag.UnresolvedEntities)
	t.logger.Info("unresolved entities excluded from continent views", zap.Int("count", len(entities)))
}

// RecordMerge stores join statistics. An empty join is logged as a warning.
func (t *Tracker) RecordMerge(stats MergeStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.diag.JoinKept = stats.Kept
	t.diag.JoinDiscarded = stats.Discarded
	t.diag.EmptyJoin = stats.Empty()
	if stats.Empty() {
		t.logger.Warn(ErrEmptyJoin.Error(), zap.Int("discarded_keys", stats.Discarded))
	}
}

// RecordImpute adds the outcome of one imputation pass.
func (t *Tracker) RecordImpute(stats ImputeStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.diag.ImputedFilled += stats.Filled
	t.diag.ImputedUnfilled += stats.Unfilled
	for continent, cv := range stats.Coefficients {
		t.diag.Coefficients[stats.Metric+":"+continent] = cv
	}
	for _, continent := range stats.Undefined {
		t.diag.UndefinedCoefficients = append(t.diag.UndefinedCoefficients, stats.Metric+":"+continent)
	}
	if len(stats.Undefined) > 0 {
		t.logger.Warn("undefined imputation coefficient",
			zap.String("metric", stats.Metric),
			zap.Strings("continents", stats.Undefined),
		)
	}
}

// Complete marks the dataset as built.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.diag.Status = StatusCompleted
}

// Fail marks the dataset as failed.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.diag.Status = StatusFailed
	t.diag.Error = err.Error()
}

// Diagnostics returns a copy of the current diagnostics.
func (t *Tracker) Diagnostics() model.DatasetDiagnostics {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.diag
	d.Stages = append([]model.StageMetrics(nil), t.diag.Stages...)
	d.UnresolvedEntities = append([]string(nil), t.diag.UnresolvedEntities...)
	d.UndefinedCoefficients = append([]string(nil), t.diag.UndefinedCoefficients...)
	d.Sources = make(map[string]model.SourceMetrics, len(t.diag.Sources))
	for k, v := range t.diag.Sources {
		d.Sources[k] = v
	}
	d.Coefficients = make(map[string]float64, len(t.diag.Coefficients))
	for k, v := range t.diag.Coefficients {
		d.Coefficients[k] = v
	}
	return d
}

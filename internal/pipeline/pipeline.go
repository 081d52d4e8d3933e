// Package pipeline turns tabular sources into chart-ready records: load,
// reshape, resolve, merge, impute, aggregate.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/geo"
	"covid-impact-pipeline/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OverallSelector selects every entity of an entity-series chart.
const OverallSelector = "Overall"

// Options tune Build.
type Options struct {
	Logger *zap.Logger
	// Lookup replaces the country table named in the config.
	Lookup geo.Lookup
	// RunID labels the build; a UUID is generated when empty.
	RunID string
}

// Dataset is the built, read-only result of one configured dataset.
type Dataset struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// Records holds every metric in long form, after imputation.
	Records []model.GeoRecord `json:"-"`
	// Merged is set only for datasets built by joining their sources.
	Merged     []model.MergedRecord               `json:"-"`
	Aggregates map[string][]model.AggregateRecord `json:"-"`
	Metrics    []string                           `json:"metrics"`
	Reducers   map[string]model.Reducer           `json:"reducers"`
	Entities   []string                           `json:"entities"`
	Years      []int                              `json:"years"`
}

type chart struct {
	info     model.ChartInfo
	metric   string
	fromYear int
	toYear   int
}

// Pipeline holds the results of one build. It is never mutated after Build
// returns, so any number of goroutines may call its methods.
type Pipeline struct {
	runID    string
	datasets map[string]*Dataset
	order    []string
	charts   map[string]chart
	chartIDs []string
	diag     model.Diagnostics
}

// Build loads and processes every configured dataset. Datasets are built
// concurrently; the stages of one dataset run in sequence. A load or
// reshape failure in any dataset fails the whole build.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger = logger.With(zap.String("run_id", runID))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lookup := opts.Lookup
	if lookup == nil {
		table, err := loadLookup(cfg)
		if err != nil {
			return nil, err
		}
		lookup = table
	}
	resolver := NewResolver(lookup, cfg.OverrideMap(), cfg.OverrideCodes(), logger)

	start := time.Now()
	logger.Info("starting pipeline build", zap.Int("datasets", len(cfg.Datasets)))

	built := make([]*Dataset, len(cfg.Datasets))
	trackers := make([]*Tracker, len(cfg.Datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range cfg.Datasets {
		i, ds := i, ds
		trackers[i] = NewTracker(ds.ID, logger)
		g.Go(func() error {
			d, err := buildDataset(gctx, cfg, ds, resolver, trackers[i], logger)
			if err != nil {
				trackers[i].Fail(err)
				return fmt.Errorf("dataset %s: %w", ds.ID, err)
			}
			trackers[i].Complete()
			built[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("pipeline build failed", zap.Error(err))
		return nil, err
	}

	p := &Pipeline{
		runID:    runID,
		datasets: make(map[string]*Dataset, len(built)),
		charts:   make(map[string]chart, len(cfg.Charts)),
		diag: model.Diagnostics{
			RunID:     runID,
			StartTime: start,
			EndTime:   time.Now(),
		},
	}
	p.diag.Duration = p.diag.EndTime.Sub(start)
	for i, d := range built {
		p.datasets[d.ID] = d
		p.order = append(p.order, d.ID)
		p.diag.Datasets = append(p.diag.Datasets, trackers[i].Diagnostics())
	}
	for _, cc := range cfg.Charts {
		ch, err := p.newChart(cc)
		if err != nil {
			return nil, fmt.Errorf("chart %s: %w", cc.ID, err)
		}
		p.charts[cc.ID] = ch
		p.chartIDs = append(p.chartIDs, cc.ID)
	}

	logger.Info("pipeline build completed", zap.Duration("duration", p.diag.Duration))
	return p, nil
}

func loadLookup(cfg *config.Config) (*geo.Table, error) {
	if cfg.Geo.Table == "" {
		return geo.Default()
	}
	path := cfg.ResolvePath(cfg.Geo.Table)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo table: %w", err)
	}
	defer f.Close()
	return geo.Parse(f)
}

func buildDataset(ctx context.Context, cfg *config.Config, ds config.DatasetConfig, resolver *Resolver, tracker *Tracker, logger *zap.Logger) (*Dataset, error) {
	logger = logger.With(zap.String("dataset", ds.ID))

	var long []model.LongRecord
	for _, id := range ds.Sources {
		src, _ := cfg.Source(id)
		src.Path = cfg.ResolvePath(src.Path)
		recs, err := loadSource(ctx, src, cfg.YearMin, cfg.YearMax, tracker)
		if err != nil {
			return nil, err
		}
		logger.Info("source loaded", zap.String("source", id), zap.Int("records", len(recs)))
		long = append(long, recs...)
	}

	tracker.StartStage(StageResolve, len(long))
	resolved, rstats := resolver.Resolve(long)
	tracker.RecordUnresolved(rstats.Unresolved)
	tracker.EndStage(StageResolve, len(resolved)-countUnresolved(resolved))

	d := &Dataset{
		ID:         ds.ID,
		Title:      ds.Title,
		Aggregates: make(map[string][]model.AggregateRecord, len(ds.Metrics)),
		Reducers:   make(map[string]model.Reducer, len(ds.Metrics)),
	}
	for _, m := range ds.Metrics {
		reducer, err := model.ParseReducer(m.Reducer)
		if err != nil {
			return nil, err
		}
		d.Metrics = append(d.Metrics, m.Name)
		d.Reducers[m.Name] = reducer
	}

	if ds.Merge {
		sets := splitByMetric(resolved)
		tracker.StartStage(StageMerge, len(resolved))
		merged, mstats, err := Merge(sets...)
		if err != nil {
			return nil, err
		}
		tracker.RecordMerge(mstats)
		tracker.EndStage(StageMerge, len(merged))

		if len(ds.Impute) > 0 {
			tracker.StartStage(StageImpute, len(merged))
			for _, metric := range ds.Impute {
				var st ImputeStats
				merged, st = ImputeMerged(merged, metric)
				tracker.RecordImpute(st)
			}
			tracker.EndStage(StageImpute, len(merged))
		}

		tracker.StartStage(StageAggregate, len(merged))
		for _, metric := range d.Metrics {
			d.Aggregates[metric] = AggregateMerged(merged, metric, d.Reducers[metric])
		}
		tracker.EndStage(StageAggregate, countAggregates(d.Aggregates))

		d.Merged = merged
		d.Records = Unmerge(merged)
	} else {
		records := resolved
		if len(ds.Impute) > 0 {
			tracker.StartStage(StageImpute, len(records))
			for _, metric := range ds.Impute {
				var st ImputeStats
				records, st = ImputeGeo(records, metric)
				tracker.RecordImpute(st)
			}
			tracker.EndStage(StageImpute, len(records))
		}

		tracker.StartStage(StageAggregate, len(records))
		for _, metric := range d.Metrics {
			d.Aggregates[metric] = Aggregate(records, metric, d.Reducers[metric])
		}
		tracker.EndStage(StageAggregate, countAggregates(d.Aggregates))

		d.Records = records
	}

	d.Entities, d.Years = entitiesAndYears(d.Records)
	logger.Info("dataset built",
		zap.Int("records", len(d.Records)),
		zap.Int("entities", len(d.Entities)),
		zap.Int("aggregates", countAggregates(d.Aggregates)),
	)
	return d, nil
}

// loadSource runs load, entity transforms and reshape for one source.
func loadSource(ctx context.Context, src config.SourceConfig, yearMin, yearMax int, tracker *Tracker) ([]model.LongRecord, error) {
	started := time.Now()
	stage := StageLoad + ":" + src.ID

	tracker.StartStage(stage, 0)
	table, err := LoadTable(ctx, src)
	if err != nil {
		return nil, err
	}
	tracker.EndStage(stage, len(table.Rows))

	transforms, err := ParseTransformations(src.Transformations, src.Rename, src.Exclude)
	if err != nil {
		return nil, &SourceError{Source: src.ID, Err: err}
	}
	if len(transforms) > 0 {
		stage = StageTransform + ":" + src.ID
		tracker.StartStage(stage, len(table.Rows))
		if src.EntityColumn != "" {
			if table, _, err = TransformEntities(table, src.EntityColumn, transforms); err != nil {
				return nil, err
			}
		} else {
			name, keep := applyTransformations(src.Entity, transforms)
			if !keep {
				table = &model.RawTable{Source: table.Source, Columns: table.Columns}
			}
			src.Entity = name
		}
		tracker.EndStage(stage, len(table.Rows))
	}

	stage = StageReshape + ":" + src.ID
	tracker.StartStage(stage, len(table.Rows))
	var records []model.LongRecord
	if src.Layout == config.LayoutLong {
		records, err = CollapseLong(table, NewLongSpec(src, yearMin, yearMax))
	} else {
		var spec MeltSpec
		if spec, err = NewMeltSpec(src, yearMin, yearMax); err != nil {
			return nil, &SourceError{Source: src.ID, Err: fmt.Errorf("%w: %v", ErrMalformedTable, err)}
		}
		records, err = Melt(table, spec)
	}
	if err != nil {
		return nil, err
	}
	tracker.EndStage(stage, len(records))

	missing := 0
	byYear := make(map[int]int)
	for _, r := range records {
		if r.Value.IsMissing() {
			missing++
			byYear[r.Year]++
		}
	}
	tracker.UpdateSourceMetrics(model.SourceMetrics{
		Source:        src.ID,
		Rows:          len(table.Rows),
		Records:       len(records),
		MissingCount:  missing,
		MissingByYear: byYear,
		LoadTime:      time.Since(started),
	})
	return records, nil
}

// splitByMetric groups records into one NamedSet per metric, in order of
// first appearance.
func splitByMetric(records []model.GeoRecord) []NamedSet {
	var sets []NamedSet
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Metric]
		if !ok {
			i = len(sets)
			index[r.Metric] = i
			sets = append(sets, NamedSet{Metric: r.Metric})
		}
		sets[i].Records = append(sets[i].Records, r)
	}
	return sets
}

func countUnresolved(records []model.GeoRecord) int {
	n := 0
	for _, r := range records {
		if !r.Resolved() {
			n++
		}
	}
	return n
}

func countAggregates(aggs map[string][]model.AggregateRecord) int {
	n := 0
	for _, a := range aggs {
		n += len(a)
	}
	return n
}

func entitiesAndYears(records []model.GeoRecord) ([]string, []int) {
	entities := make(map[string]bool)
	years := make(map[int]bool)
	for _, r := range records {
		entities[r.Entity] = true
		years[r.Year] = true
	}
	es := make([]string, 0, len(entities))
	for e := range entities {
		es = append(es, e)
	}
	ys := make([]int, 0, len(years))
	for y := range years {
		ys = append(ys, y)
	}
	sort.Strings(es)
	sort.Ints(ys)
	return es, ys
}

// RunID returns the identifier of the build.
func (p *Pipeline) RunID() string { return p.runID }

// Dataset returns a built dataset.
func (p *Pipeline) Dataset(id string) (*Dataset, bool) {
	d, ok := p.datasets[id]
	return d, ok
}

// Datasets returns the built datasets in configuration order.
func (p *Pipeline) Datasets() []*Dataset {
	out := make([]*Dataset, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.datasets[id])
	}
	return out
}

// Diagnostics returns the build report.
func (p *Pipeline) Diagnostics() model.Diagnostics {
	d := p.diag
	d.Datasets = append([]model.DatasetDiagnostics(nil), p.diag.Datasets...)
	return d
}

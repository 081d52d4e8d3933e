package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"
)

// ValidateConfig checks what config.Validate cannot: transformation names,
// the metrics each dataset's sources produce, and the metrics each chart
// selects. It expects a config that already passed config.Validate.
func ValidateConfig(cfg *config.Config) error {
	var errs []error

	produced := make(map[string][]string, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if _, err := ParseTransformations(src.Transformations, src.Rename, src.Exclude); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
		}
		produced[src.ID] = sourceMetrics(src)
	}

	datasetMetrics := make(map[string][]string, len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		var available []string
		for _, id := range ds.Sources {
			available = append(available, produced[id]...)
		}
		for _, m := range ds.Metrics {
			if !slices.Contains(available, m.Name) {
				errs = append(errs, fmt.Errorf("dataset %s: metric %q is not produced by any of its sources", ds.ID, m.Name))
			}
			if _, err := model.ParseReducer(m.Reducer); err != nil {
				errs = append(errs, fmt.Errorf("dataset %s: %w", ds.ID, err))
			}
			datasetMetrics[ds.ID] = append(datasetMetrics[ds.ID], m.Name)
		}
		if ds.Merge {
			for _, id := range ds.Sources {
				if len(produced[id]) != 1 {
					errs = append(errs, fmt.Errorf("dataset %s: merged source %s must produce exactly one metric", ds.ID, id))
				}
			}
		}
	}

	for _, ch := range cfg.Charts {
		kind, err := model.ParseChartKind(ch.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("chart %s: %w", ch.ID, err))
			continue
		}
		metrics := datasetMetrics[ch.Dataset]
		for _, m := range ch.Metrics {
			if !slices.Contains(metrics, m) {
				errs = append(errs, fmt.Errorf("chart %s: metric %q is not in dataset %s", ch.ID, m, ch.Dataset))
			}
		}
		if ch.Metric != "" && !slices.Contains(metrics, ch.Metric) {
			errs = append(errs, fmt.Errorf("chart %s: metric %q is not in dataset %s", ch.ID, ch.Metric, ch.Dataset))
		}
		if kind != model.ChartEntitySeries && ch.Default != "" && !slices.Contains(ch.Metrics, ch.Default) {
			errs = append(errs, fmt.Errorf("chart %s: default %q is not one of its metrics", ch.ID, ch.Default))
		}
	}

	return errors.Join(errs...)
}

// sourceMetrics lists the metric names a source yields.
func sourceMetrics(src config.SourceConfig) []string {
	if src.Layout == config.LayoutLong && (src.Metric == "" || len(src.ValueColumns) > 1) {
		return append([]string(nil), src.ValueColumns...)
	}
	return []string{src.Metric}
}

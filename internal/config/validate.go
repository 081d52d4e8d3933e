package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	validReducers   = []string{"sum", "mean"}
	validChartKinds = []string{"continent-line", "choropleth", "entity-series", "entity-delta"}
	validContinents = []string{"Africa", "Antarctica", "Asia", "Europe", "North America", "Oceania", "South America"}
)

// Validate checks the configuration for structural errors. Every problem
// found is reported, not only the first.
func (c *Config) Validate() error {
	var errs []error

	if c.YearMin > c.YearMax {
		errs = append(errs, fmt.Errorf("year_min %d is after year_max %d", c.YearMin, c.YearMax))
	}

	for _, f := range c.Export.Formats {
		if f != FormatCSV && f != FormatJSON {
			errs = append(errs, fmt.Errorf("export.formats: unknown format %q (want csv or json)", f))
		}
	}

	for _, o := range c.Geo.Overrides {
		if strings.TrimSpace(o.Entity) == "" {
			errs = append(errs, fmt.Errorf("geo.overrides: entity is required"))
			continue
		}
		if !slices.Contains(validContinents, o.Continent) {
			errs = append(errs, fmt.Errorf("geo.overrides[%s]: unknown continent %q", o.Entity, o.Continent))
		}
	}

	sourceIDs := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sources: id is required"))
			continue
		}
		if sourceIDs[s.ID] {
			errs = append(errs, fmt.Errorf("sources: duplicate id %q", s.ID))
		}
		sourceIDs[s.ID] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", s.ID, err))
		}
	}

	datasetIDs := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.ID == "" {
			errs = append(errs, fmt.Errorf("datasets: id is required"))
			continue
		}
		if datasetIDs[d.ID] {
			errs = append(errs, fmt.Errorf("datasets: duplicate id %q", d.ID))
		}
		datasetIDs[d.ID] = true
		if err := d.validate(sourceIDs); err != nil {
			errs = append(errs, fmt.Errorf("dataset %s: %w", d.ID, err))
		}
	}

	chartIDs := make(map[string]bool, len(c.Charts))
	for _, ch := range c.Charts {
		if ch.ID == "" {
			errs = append(errs, fmt.Errorf("charts: id is required"))
			continue
		}
		if chartIDs[ch.ID] {
			errs = append(errs, fmt.Errorf("charts: duplicate id %q", ch.ID))
		}
		chartIDs[ch.ID] = true
		if err := ch.validate(datasetIDs); err != nil {
			errs = append(errs, fmt.Errorf("chart %s: %w", ch.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks a single source.
func (s SourceConfig) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path is required")
	}
	if s.HeaderSkipRows < 0 {
		return fmt.Errorf("header_skip_rows must be >= 0, got %d", s.HeaderSkipRows)
	}
	switch s.Format {
	case FormatCSV:
		if len([]rune(s.Delimiter)) != 1 {
			return fmt.Errorf("delimiter must be a single character, got %q", s.Delimiter)
		}
	case FormatXLSX:
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", s.Format)
	}

	switch s.Layout {
	case LayoutWide:
		if s.EntityColumn == "" {
			return fmt.Errorf("entity_column is required for wide sources")
		}
		if s.Metric == "" {
			return fmt.Errorf("metric is required for wide sources")
		}
		if len(s.YearColumns) > 0 && s.YearPattern != "" {
			return fmt.Errorf("year_columns and year_pattern are mutually exclusive")
		}
		if s.YearPattern != "" {
			re, err := regexp.Compile(s.YearPattern)
			if err != nil {
				return fmt.Errorf("year_pattern: %w", err)
			}
			if re.NumSubexp() < 1 {
				return fmt.Errorf("year_pattern %q needs a capture group for the year", s.YearPattern)
			}
		}
	case LayoutLong:
		if s.EntityColumn == "" && s.Entity == "" {
			return fmt.Errorf("entity_column or entity is required for long sources")
		}
		if s.DateColumn == "" {
			return fmt.Errorf("date_column is required for long sources")
		}
		if len(s.ValueColumns) == 0 {
			return fmt.Errorf("value_columns is required for long sources")
		}
		if s.Metric != "" && len(s.ValueColumns) > 1 {
			return fmt.Errorf("metric renames a single value column, got %d", len(s.ValueColumns))
		}
		if s.Collapse != CollapseLast && s.Collapse != CollapseMean {
			return fmt.Errorf("unknown collapse %q (want last or mean)", s.Collapse)
		}
	default:
		return fmt.Errorf("unknown layout %q (want wide or long)", s.Layout)
	}
	return nil
}

func (d DatasetConfig) validate(sources map[string]bool) error {
	if len(d.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for _, id := range d.Sources {
		if !sources[id] {
			return fmt.Errorf("unknown source %q", id)
		}
	}
	if d.Merge && len(d.Sources) < 2 {
		return fmt.Errorf("merge needs at least two sources")
	}
	if len(d.Metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}
	for _, m := range d.Metrics {
		if m.Name == "" {
			return fmt.Errorf("metric name is required")
		}
		if !slices.Contains(validReducers, m.Reducer) {
			return fmt.Errorf("metric %s: unknown reducer %q (want sum or mean)", m.Name, m.Reducer)
		}
	}
	for _, metric := range d.Impute {
		if _, ok := d.Reducer(metric); !ok {
			return fmt.Errorf("impute: %q is not a metric of this dataset", metric)
		}
	}
	return nil
}

func (ch ChartConfig) validate(datasets map[string]bool) error {
	if !slices.Contains(validChartKinds, ch.Kind) {
		return fmt.Errorf("unknown kind %q", ch.Kind)
	}
	if !datasets[ch.Dataset] {
		return fmt.Errorf("unknown dataset %q", ch.Dataset)
	}
	switch ch.Kind {
	case "continent-line", "choropleth":
		if len(ch.Metrics) == 0 {
			return fmt.Errorf("metrics is required for %s charts", ch.Kind)
		}
	case "entity-delta":
		if len(ch.Metrics) == 0 {
			return fmt.Errorf("metrics is required for entity-delta charts")
		}
		if ch.FromYear == 0 || ch.ToYear == 0 || ch.FromYear == ch.ToYear {
			return fmt.Errorf("from_year and to_year must be two different years")
		}
	}
	return nil
}

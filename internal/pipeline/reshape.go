package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/pkg/utils"

	"gonum.org/v1/gonum/stat"
)

// MeltSpec selects the columns of a wide table by name.
type MeltSpec struct {
	EntityColumn string
	Metric       string
	// YearColumns lists year labels explicitly. When empty, every column
	// whose label matches YearPattern is a year column.
	YearColumns []string
	// YearPattern captures the year in its first group. Nil means
	// utils.DefaultYearPattern.
	YearPattern *regexp.Regexp
	// YearMin and YearMax bound the kept years, inclusive. Zero is unbounded.
	YearMin, YearMax int
	Placeholders     []string
	DropEmptyRows    bool
}

// LongSpec describes a table that already has one row per observation,
// such as a daily price series or the OWID case counts.
type LongSpec struct {
	EntityColumn string
	// Entity is used for every row when EntityColumn is empty.
	Entity       string
	DateColumn   string
	ValueColumns []string
	// Metric renames a single value column. Otherwise each value column's
	// label is its metric name.
	Metric          string
	Collapse        string
	ContinentColumn string
	YearMin         int
	YearMax         int
	Placeholders    []string
}

type yearColumn struct {
	index int
	year  int
}

type recordKey struct {
	entity string
	year   int
	metric string
}

// NewMeltSpec builds a MeltSpec from a wide source configuration.
func NewMeltSpec(src config.SourceConfig, yearMin, yearMax int) (MeltSpec, error) {
	spec := MeltSpec{
		EntityColumn:  src.EntityColumn,
		Metric:        src.Metric,
		YearColumns:   src.YearColumns,
		YearMin:       yearMin,
		YearMax:       yearMax,
		Placeholders:  placeholdersOf(src),
		DropEmptyRows: src.DropEmptyRows,
	}
	if src.YearPattern != "" {
		re, err := regexp.Compile(src.YearPattern)
		if err != nil {
			return MeltSpec{}, fmt.Errorf("year_pattern: %w", err)
		}
		spec.YearPattern = re
	}
	return spec, nil
}

// NewLongSpec builds a LongSpec from a long source configuration.
func NewLongSpec(src config.SourceConfig, yearMin, yearMax int) LongSpec {
	return LongSpec{
		EntityColumn:    src.EntityColumn,
		Entity:          src.Entity,
		DateColumn:      src.DateColumn,
		ValueColumns:    src.ValueColumns,
		Metric:          src.Metric,
		Collapse:        src.Collapse,
		ContinentColumn: src.ContinentColumn,
		YearMin:         yearMin,
		YearMax:         yearMax,
		Placeholders:    placeholdersOf(src),
	}
}

func placeholdersOf(src config.SourceConfig) []string {
	if len(src.Placeholders) > 0 {
		return src.Placeholders
	}
	return utils.DefaultPlaceholders
}

func inRange(year, lo, hi int) bool {
	return (lo == 0 || year >= lo) && (hi == 0 || year <= hi)
}

// Melt turns one row per entity with one column per year into one record
// per (entity, year). Non-numeric and placeholder cells become missing
// values. When an entity appears twice for the same year the last row wins.
func Melt(table *model.RawTable, spec MeltSpec) ([]model.LongRecord, error) {
	entityIdx := table.ColumnIndex(spec.EntityColumn)
	if entityIdx < 0 {
		return nil, sourceErr(table.Source, ErrMalformedTable, "entity column %q not found", spec.EntityColumn)
	}

	years, err := selectYearColumns(table, spec)
	if err != nil {
		return nil, err
	}

	placeholders := spec.Placeholders
	if placeholders == nil {
		placeholders = utils.DefaultPlaceholders
	}

	out := make([]model.LongRecord, 0, len(table.Rows)*len(years))
	seen := make(map[recordKey]int, cap(out))
	for _, row := range table.Rows {
		entity := strings.TrimSpace(row[entityIdx])
		if entity == "" {
			continue
		}

		values := make([]model.Value, len(years))
		empty := true
		for i, yc := range years {
			if f, ok := utils.ParseNumber(row[yc.index], placeholders); ok {
				values[i] = model.Present(f)
			}
			if !values[i].IsMissing() {
				empty = false
			}
		}
		if spec.DropEmptyRows && empty {
			continue
		}

		for i, yc := range years {
			rec := model.LongRecord{Entity: entity, Year: yc.year, Metric: spec.Metric, Value: values[i]}
			key := recordKey{entity, yc.year, spec.Metric}
			if at, dup := seen[key]; dup {
				out[at] = rec
				continue
			}
			seen[key] = len(out)
			out = append(out, rec)
		}
	}
	return out, nil
}

func selectYearColumns(table *model.RawTable, spec MeltSpec) ([]yearColumn, error) {
	pattern := spec.YearPattern
	if pattern == nil {
		pattern = utils.DefaultYearPattern
	}

	var years []yearColumn
	if len(spec.YearColumns) > 0 {
		for _, label := range spec.YearColumns {
			idx := table.ColumnIndex(label)
			if idx < 0 {
				return nil, sourceErr(table.Source, ErrMalformedTable, "year column %q not found", label)
			}
			year, ok := utils.ParseYear(label, pattern)
			if !ok {
				return nil, sourceErr(table.Source, ErrMalformedTable, "column %q does not name a year", label)
			}
			if inRange(year, spec.YearMin, spec.YearMax) {
				years = append(years, yearColumn{idx, year})
			}
		}
	} else {
		for idx, label := range table.Columns {
			if year, ok := utils.ParseYear(label, pattern); ok && inRange(year, spec.YearMin, spec.YearMax) {
				years = append(years, yearColumn{idx, year})
			}
		}
	}

	if len(years) == 0 {
		return nil, sourceErr(table.Source, ErrMalformedTable,
			"no year columns between %d and %d", spec.YearMin, spec.YearMax)
	}
	return years, nil
}

// CollapseLong reduces a long table to one record per (entity, year,
// metric). "last" keeps the last observed value of the year, "mean"
// averages the observed values. A year with no observation is missing.
func CollapseLong(table *model.RawTable, spec LongSpec) ([]model.LongRecord, error) {
	entityIdx := -1
	if spec.EntityColumn != "" {
		if entityIdx = table.ColumnIndex(spec.EntityColumn); entityIdx < 0 {
			return nil, sourceErr(table.Source, ErrMalformedTable, "entity column %q not found", spec.EntityColumn)
		}
	} else if spec.Entity == "" {
		return nil, sourceErr(table.Source, ErrMalformedTable, "no entity column or fixed entity")
	}

	dateIdx := table.ColumnIndex(spec.DateColumn)
	if dateIdx < 0 {
		return nil, sourceErr(table.Source, ErrMalformedTable, "date column %q not found", spec.DateColumn)
	}

	continentIdx := -1
	if spec.ContinentColumn != "" {
		if continentIdx = table.ColumnIndex(spec.ContinentColumn); continentIdx < 0 {
			return nil, sourceErr(table.Source, ErrMalformedTable, "continent column %q not found", spec.ContinentColumn)
		}
	}

	if len(spec.ValueColumns) == 0 {
		return nil, sourceErr(table.Source, ErrMalformedTable, "no value columns")
	}
	valueIdx := make([]int, len(spec.ValueColumns))
	metrics := make([]string, len(spec.ValueColumns))
	for i, label := range spec.ValueColumns {
		if valueIdx[i] = table.ColumnIndex(label); valueIdx[i] < 0 {
			return nil, sourceErr(table.Source, ErrMalformedTable, "value column %q not found", label)
		}
		metrics[i] = label
	}
	if spec.Metric != "" && len(metrics) == 1 {
		metrics[0] = spec.Metric
	}

	placeholders := spec.Placeholders
	if placeholders == nil {
		placeholders = utils.DefaultPlaceholders
	}

	type acc struct {
		values []float64
	}
	var keys []recordKey
	accs := make(map[recordKey]*acc)
	hints := make(map[string]string)

	for i, row := range table.Rows {
		entity := spec.Entity
		if entityIdx >= 0 {
			entity = strings.TrimSpace(row[entityIdx])
		}
		if entity == "" {
			continue
		}
		year, ok := utils.ParseDateYear(row[dateIdx])
		if !ok {
			return nil, sourceErr(table.Source, ErrMalformedTable, "row %d: unparseable date %q", i+1, row[dateIdx])
		}
		if !inRange(year, spec.YearMin, spec.YearMax) {
			continue
		}
		if continentIdx >= 0 {
			if c := strings.TrimSpace(row[continentIdx]); c != "" {
				hints[entity] = c
			}
		}

		for j, idx := range valueIdx {
			key := recordKey{entity, year, metrics[j]}
			a, exists := accs[key]
			if !exists {
				a = &acc{}
				accs[key] = a
				keys = append(keys, key)
			}
			if f, ok := utils.ParseNumber(row[idx], placeholders); ok {
				a.values = append(a.values, f)
			}
		}
	}

	out := make([]model.LongRecord, 0, len(keys))
	for _, key := range keys {
		a := accs[key]
		rec := model.LongRecord{Entity: key.entity, Year: key.year, Metric: key.metric, ContinentHint: hints[key.entity]}
		if n := len(a.values); n > 0 {
			if spec.Collapse == config.CollapseMean {
				rec.Value = model.Present(stat.Mean(a.values, nil))
			} else {
				rec.Value = model.Present(a.values[n-1])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// WideTable is long records of one metric re-pivoted to entity × year.
type WideTable struct {
	Metric   string
	Entities []string
	Years    []int
	Values   map[string]map[int]model.Value
}

// Pivot re-pivots the records of one metric. Entities keep first-seen
// order, years are ascending.
func Pivot(records []model.LongRecord, metric string) WideTable {
	w := WideTable{Metric: metric, Values: make(map[string]map[int]model.Value)}
	years := make(map[int]bool)
	for _, r := range records {
		if r.Metric != metric {
			continue
		}
		row, ok := w.Values[r.Entity]
		if !ok {
			row = make(map[int]model.Value)
			w.Values[r.Entity] = row
			w.Entities = append(w.Entities, r.Entity)
		}
		if !years[r.Year] {
			years[r.Year] = true
			w.Years = append(w.Years, r.Year)
		}
		row[r.Year] = r.Value
	}
	sort.Ints(w.Years)
	return w
}

// Value returns the cell for an entity and year; absent cells are missing.
func (w WideTable) Value(entity string, year int) model.Value {
	return w.Values[entity][year]
}

// Table renders the wide view as a RawTable with entityColumn first and
// one column per year. Missing cells are empty.
func (w WideTable) Table(source, entityColumn string) *model.RawTable {
	t := &model.RawTable{Source: source, Columns: []string{entityColumn}}
	for _, y := range w.Years {
		t.Columns = append(t.Columns, strconv.Itoa(y))
	}
	for _, e := range w.Entities {
		row := []string{e}
		for _, y := range w.Years {
			v := w.Value(e, y)
			if v.IsMissing() {
				row = append(row, "")
				continue
			}
			row = append(row, v.String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

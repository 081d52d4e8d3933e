package pipeline

import (
	"math"
	"sort"

	"covid-impact-pipeline/internal/model"

	"gonum.org/v1/gonum/stat"
)

// ImputeStats reports one imputation pass over one metric.
type ImputeStats struct {
	Metric   string `json:"metric"`
	Filled   int    `json:"filled"`
	Unfilled int    `json:"unfilled"`
	// Coefficients holds the continents whose coefficient of variation is
	// defined.
	Coefficients map[string]float64 `json:"coefficients"`
	// Undefined lists continents whose coefficient could not be computed:
	// zero mean, fewer than two observations, or a NaN result.
	Undefined []string `json:"undefined"`
}

// CoefficientOfVariation returns sample stddev / mean. It is undefined for
// fewer than two values, a zero mean, or a non-finite result.
func CoefficientOfVariation(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 || math.IsNaN(mean) || math.IsNaN(std) {
		return 0, false
	}
	cv := std / mean
	if math.IsNaN(cv) || math.IsInf(cv, 0) {
		return 0, false
	}
	return cv, true
}

type imputeCell struct {
	entity    string
	year      int
	continent string
	value     model.Value
}

// ImputeGeo fills missing values of one metric. Records of other metrics
// and observed values are returned untouched.
//
// The fill is a heuristic extrapolation kept for output compatibility:
//  1. per continent, cv = stddev / mean over every observed value of the
//     metric, all entities and years;
//  2. a missing (entity, year) takes the entity's nearest earlier observed
//     value × cv, or failing that its nearest later observed value ÷ cv;
//  3. otherwise it stays missing.
//
// Only originally observed values feed both steps; filled values are never
// reused as neighbours.
func ImputeGeo(records []model.GeoRecord, metric string) ([]model.GeoRecord, ImputeStats) {
	var idx []int
	var cells []imputeCell
	for i, r := range records {
		if r.Metric != metric {
			continue
		}
		idx = append(idx, i)
		cells = append(cells, imputeCell{r.Entity, r.Year, r.Continent, r.Value})
	}

	values, stats := imputeCells(cells)
	stats.Metric = metric

	out := append([]model.GeoRecord(nil), records...)
	for j, i := range idx {
		out[i].Value = values[j]
	}
	return out, stats
}

// ImputeMerged fills missing values of one metric in merged rows, with the
// same algorithm as ImputeGeo.
func ImputeMerged(records []model.MergedRecord, metric string) ([]model.MergedRecord, ImputeStats) {
	var idx []int
	var cells []imputeCell
	for i, r := range records {
		v, ok := r.Values[metric]
		if !ok {
			continue
		}
		idx = append(idx, i)
		cells = append(cells, imputeCell{r.Entity, r.Year, r.Continent, v})
	}

	values, stats := imputeCells(cells)
	stats.Metric = metric

	out := make([]model.MergedRecord, len(records))
	copy(out, records)
	for j, i := range idx {
		if values[j] == records[i].Values[metric] {
			continue
		}
		vals := make(map[string]model.Value, len(records[i].Values))
		for k, v := range records[i].Values {
			vals[k] = v
		}
		vals[metric] = values[j]
		out[i].Values = vals
	}
	return out, stats
}

type observation struct {
	year  int
	value float64
}

func imputeCells(cells []imputeCell) ([]model.Value, ImputeStats) {
	byContinent := make(map[string][]float64)
	series := make(map[string][]observation)
	for _, c := range cells {
		if c.value.IsMissing() {
			continue
		}
		if c.continent != "" {
			byContinent[c.continent] = append(byContinent[c.continent], c.value.Float)
		}
		series[c.entity] = append(series[c.entity], observation{c.year, c.value.Float})
	}
	for _, s := range series {
		sort.Slice(s, func(i, j int) bool { return s[i].year < s[j].year })
	}

	stats := ImputeStats{Coefficients: make(map[string]float64)}
	continents := make(map[string]bool)
	for _, c := range cells {
		if c.continent != "" {
			continents[c.continent] = true
		}
	}
	for continent := range continents {
		if cv, ok := CoefficientOfVariation(byContinent[continent]); ok {
			stats.Coefficients[continent] = cv
		} else {
			stats.Undefined = append(stats.Undefined, continent)
		}
	}
	sort.Strings(stats.Undefined)

	out := make([]model.Value, len(cells))
	for i, c := range cells {
		out[i] = c.value
		if !c.value.IsMissing() {
			continue
		}
		cv, ok := stats.Coefficients[c.continent]
		if !ok {
			stats.Unfilled++
			continue
		}
		if filled, ok := fill(series[c.entity], c.year, cv); ok {
			out[i] = model.Present(filled)
			stats.Filled++
			continue
		}
		stats.Unfilled++
	}
	return out, stats
}

// fill searches backward, then forward, through an entity's observations.
func fill(obs []observation, year int, cv float64) (float64, bool) {
	// first observation at or after year
	next := sort.Search(len(obs), func(i int) bool { return obs[i].year >= year })
	if next > 0 {
		return obs[next-1].value * cv, true
	}
	for ; next < len(obs); next++ {
		if obs[next].year > year {
			if cv == 0 {
				return 0, false
			}
			return obs[next].value / cv, true
		}
	}
	return 0, false
}

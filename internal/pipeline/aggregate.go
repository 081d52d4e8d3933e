package pipeline

import (
	"sort"

	"covid-impact-pipeline/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type groupKey struct {
	continent string
	year      int
}

// Aggregate reduces one metric by (continent, year). Unresolved records and
// missing values are skipped; a group with no value left is omitted.
// Output is sorted by continent, then year.
func Aggregate(records []model.GeoRecord, metric string, reducer model.Reducer) []model.AggregateRecord {
	groups := make(map[groupKey][]float64)
	for _, r := range ResolvedOnly(records) {
		if r.Metric != metric || r.Value.IsMissing() {
			continue
		}
		k := groupKey{r.Continent, r.Year}
		groups[k] = append(groups[k], r.Value.Float)
	}
	return reduceGroups(groups, metric, reducer)
}

// AggregateMerged is Aggregate over merged rows.
func AggregateMerged(records []model.MergedRecord, metric string, reducer model.Reducer) []model.AggregateRecord {
	groups := make(map[groupKey][]float64)
	for _, r := range records {
		v, ok := r.Values[metric]
		if !ok || !r.Resolved() || v.IsMissing() {
			continue
		}
		k := groupKey{r.Continent, r.Year}
		groups[k] = append(groups[k], v.Float)
	}
	return reduceGroups(groups, metric, reducer)
}

func reduceGroups(groups map[groupKey][]float64, metric string, reducer model.Reducer) []model.AggregateRecord {
	out := make([]model.AggregateRecord, 0, len(groups))
	for k, values := range groups {
		rec := model.AggregateRecord{Continent: k.continent, Year: k.year, Metric: metric, Count: len(values)}
		switch reducer {
		case model.ReduceMean:
			rec.Value = stat.Mean(values, nil)
		default:
			rec.Value = floats.Sum(values)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Continent != out[j].Continent {
			return out[i].Continent < out[j].Continent
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// Delta returns, per entity, value(to) - value(from) for one metric. Entities
// missing either year are skipped. Output is sorted by entity.
func Delta(records []model.GeoRecord, metric string, from, to int) []model.DeltaRecord {
	type pair struct {
		rec      model.GeoRecord
		from, to model.Value
	}
	byEntity := make(map[string]*pair)
	for _, r := range records {
		if r.Metric != metric || (r.Year != from && r.Year != to) {
			continue
		}
		p, ok := byEntity[r.Entity]
		if !ok {
			p = &pair{rec: r}
			byEntity[r.Entity] = p
		}
		if r.Year == from {
			p.from = r.Value
		} else {
			p.to = r.Value
		}
	}

	out := make([]model.DeltaRecord, 0, len(byEntity))
	for entity, p := range byEntity {
		if p.from.IsMissing() || p.to.IsMissing() {
			continue
		}
		out = append(out, model.DeltaRecord{
			Entity:    entity,
			Continent: p.rec.Continent,
			ISO3:      p.rec.ISO3,
			Metric:    metric,
			FromYear:  from,
			ToYear:    to,
			Change:    p.to.Float - p.from.Float,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

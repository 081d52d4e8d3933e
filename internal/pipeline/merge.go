package pipeline

import (
	"fmt"
	"sort"

	"covid-impact-pipeline/internal/model"
)

// NamedSet is the records of one metric, ready to join.
type NamedSet struct {
	Metric  string
	Records []model.GeoRecord
}

// MergeStats counts distinct (entity, year) keys kept by and discarded
// from an inner join.
type MergeStats struct {
	Kept      int `json:"kept"`
	Discarded int `json:"discarded"`
}

// Empty reports a join that kept nothing.
func (s MergeStats) Empty() bool { return s.Kept == 0 }

type joinKey struct {
	entity string
	year   int
}

// Merge inner-joins two or more sets on exact (entity, year). A key
// survives only if every set has it; its values are namespaced by metric.
// The result does not depend on argument order and is sorted by entity,
// then year. An empty result is not an error; check MergeStats.Empty.
func Merge(sets ...NamedSet) ([]model.MergedRecord, MergeStats, error) {
	if len(sets) < 2 {
		return nil, MergeStats{}, fmt.Errorf("merge needs at least two record sets, got %d", len(sets))
	}

	ordered := append([]NamedSet(nil), sets...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Metric < ordered[j].Metric })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Metric == ordered[i-1].Metric {
			return nil, MergeStats{}, fmt.Errorf("merge: metric %q appears in more than one set", ordered[i].Metric)
		}
	}

	indexes := make([]map[joinKey]model.GeoRecord, len(ordered))
	union := make(map[joinKey]bool)
	for i, set := range ordered {
		idx := make(map[joinKey]model.GeoRecord, len(set.Records))
		for _, rec := range set.Records {
			k := joinKey{rec.Entity, rec.Year}
			idx[k] = rec
			union[k] = true
		}
		indexes[i] = idx
	}

	var out []model.MergedRecord
	for k := range union {
		merged := model.MergedRecord{
			Entity: k.entity,
			Year:   k.year,
			Values: make(map[string]model.Value, len(ordered)),
		}
		complete := true
		for i, set := range ordered {
			rec, ok := indexes[i][k]
			if !ok {
				complete = false
				break
			}
			merged.Values[set.Metric] = rec.Value
			if merged.Continent == "" {
				merged.Continent = rec.Continent
			}
			if merged.ISO3 == "" {
				merged.ISO3 = rec.ISO3
			}
		}
		if complete {
			out = append(out, merged)
		}
	}

	sortMerged(out)
	return out, MergeStats{Kept: len(out), Discarded: len(union) - len(out)}, nil
}

func sortMerged(recs []model.MergedRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Entity != recs[j].Entity {
			return recs[i].Entity < recs[j].Entity
		}
		return recs[i].Year < recs[j].Year
	})
}

// Unmerge flattens merged rows back into one GeoRecord per metric, in
// merged order and metric-name order.
func Unmerge(records []model.MergedRecord) []model.GeoRecord {
	var out []model.GeoRecord
	for _, m := range records {
		metrics := make([]string, 0, len(m.Values))
		for name := range m.Values {
			metrics = append(metrics, name)
		}
		sort.Strings(metrics)
		for _, name := range metrics {
			out = append(out, model.GeoRecord{
				LongRecord: model.LongRecord{Entity: m.Entity, Year: m.Year, Metric: name, Value: m.Values[name]},
				Continent:  m.Continent,
				ISO3:       m.ISO3,
			})
		}
	}
	return out
}

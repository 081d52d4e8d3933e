package pipeline

import (
	"sort"

	"covid-impact-pipeline/internal/geo"
	"covid-impact-pipeline/internal/model"

	"go.uber.org/zap"
)

// Resolver tags records with a continent and ISO3 code.
//
// The continent comes from, in order of precedence: Overrides, the
// source's own continent hint, then Lookup. ISO3 comes from Codes, then
// Lookup.
type Resolver struct {
	Lookup    geo.Lookup
	Overrides map[string]string
	Codes     map[string]string
	logger    *zap.Logger
}

// ResolveStats reports the outcome of one Resolve call.
type ResolveStats struct {
	Entities   int
	Unresolved []string
}

// NewResolver returns a Resolver. A nil logger discards.
func NewResolver(lookup geo.Lookup, overrides, codes map[string]string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Lookup: lookup, Overrides: overrides, Codes: codes, logger: logger}
}

type resolution struct {
	continent string
	iso3      string
}

// Resolve returns one GeoRecord per input record. Each distinct entity is
// looked up once per call. Entities without a continent are kept with an
// empty Continent and listed in the stats.
func (r *Resolver) Resolve(records []model.LongRecord) ([]model.GeoRecord, ResolveStats) {
	cache := make(map[string]resolution)
	var stats ResolveStats

	out := make([]model.GeoRecord, len(records))
	for i, rec := range records {
		res, ok := cache[rec.Entity]
		if !ok {
			res = r.resolve(rec.Entity, rec.ContinentHint)
			cache[rec.Entity] = res
			stats.Entities++
			if res.continent == "" {
				stats.Unresolved = append(stats.Unresolved, rec.Entity)
				r.logger.Debug("unresolved entity", zap.String("entity", rec.Entity))
			}
		}
		out[i] = model.GeoRecord{LongRecord: rec, Continent: res.continent, ISO3: res.iso3}
	}
	sort.Strings(stats.Unresolved)
	return out, stats
}

func (r *Resolver) resolve(entity, hint string) resolution {
	var res resolution

	if c, ok := r.Overrides[entity]; ok {
		res.continent = c
	} else if hint != "" {
		res.continent = hint
	} else if r.Lookup != nil {
		res.continent, _ = r.Lookup.Continent(entity)
	}

	if code, ok := r.Codes[entity]; ok {
		res.iso3 = code
	} else if r.Lookup != nil {
		res.iso3, _ = r.Lookup.ISO3(entity)
	}
	return res
}

// ResolvedOnly drops records whose continent is unknown.
func ResolvedOnly(records []model.GeoRecord) []model.GeoRecord {
	out := make([]model.GeoRecord, 0, len(records))
	for _, rec := range records {
		if rec.Resolved() {
			out = append(out, rec)
		}
	}
	return out
}

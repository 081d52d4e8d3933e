package pipeline

import (
	"testing"

	"covid-impact-pipeline/internal/geo"
	"covid-impact-pipeline/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingLookup struct {
	geo.Lookup
	calls map[string]int
}

func (c *countingLookup) Continent(name string) (string, bool) {
	c.calls[name]++
	return c.Lookup.Continent(name)
}

func TestResolveScenario(t *testing.T) {
	table, err := geo.Default()
	require.NoError(t, err)
	r := NewResolver(table, nil, nil, zaptest.NewLogger(t))

	records := []model.LongRecord{
		longRec("France", 2018, "GDP", present(100)),
		longRec("Germany", 2018, "GDP", present(200)),
		longRec("Brazil", 2018, "GDP", present(50)),
		longRec("Euro area", 2018, "GDP", present(13790)),
	}
	got, stats := r.Resolve(records)

	want := []model.GeoRecord{
		geoRec("France", 2018, "GDP", present(100), "Europe", "FRA"),
		geoRec("Germany", 2018, "GDP", present(200), "Europe", "DEU"),
		geoRec("Brazil", 2018, "GDP", present(50), "South America", "BRA"),
		geoRec("Euro area", 2018, "GDP", present(13790), "", ""),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, stats.Entities)
	assert.Equal(t, []string{"Euro area"}, stats.Unresolved)
	assert.Len(t, ResolvedOnly(got), 3)
}

func TestResolveOverridesWin(t *testing.T) {
	lookup := geo.NewMapLookup(
		map[string]string{"Russia": "Europe", "Turkey": "Europe", "Egypt": "Africa", "Peru": "South America"},
		map[string]string{"Russia": "RUS", "Turkey": "TUR", "Egypt": "EGY", "Peru": "PER"},
	)
	overrides := map[string]string{"Russia": "Asia", "Turkey": "Asia", "Egypt": "Asia", "Taiwan": "Asia"}
	r := NewResolver(lookup, overrides, map[string]string{"Taiwan": "TWN"}, nil)

	var records []model.LongRecord
	for _, entity := range []string{"Russia", "Turkey", "Egypt", "Taiwan", "Peru"} {
		rec := longRec(entity, 2020, "m", present(1))
		rec.ContinentHint = "Oceania"
		records = append(records, rec)
	}

	got, stats := r.Resolve(records)
	require.Len(t, got, len(records))
	for _, rec := range got {
		if want, ok := overrides[rec.Entity]; ok {
			assert.Equal(t, want, rec.Continent, rec.Entity)
		} else {
			assert.Equal(t, "Oceania", rec.Continent, "hint beats lookup for %s", rec.Entity)
		}
	}
	assert.Equal(t, "TWN", got[3].ISO3)
	assert.Equal(t, "RUS", got[0].ISO3)
	assert.Empty(t, stats.Unresolved)
}

func TestResolveLooksUpEachEntityOnce(t *testing.T) {
	table, err := geo.Default()
	require.NoError(t, err)
	lookup := &countingLookup{Lookup: table, calls: make(map[string]int)}
	r := NewResolver(lookup, nil, nil, nil)

	var records []model.LongRecord
	for year := 2018; year <= 2023; year++ {
		records = append(records, longRec("Japan", year, "m", present(1)), longRec("Atlantis", year, "m", present(1)))
	}

	_, stats := r.Resolve(records)
	assert.Equal(t, map[string]int{"Japan": 1, "Atlantis": 1}, lookup.calls)
	assert.Equal(t, 2, stats.Entities)
	assert.Equal(t, []string{"Atlantis"}, stats.Unresolved)
}

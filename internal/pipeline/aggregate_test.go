package pipeline

import (
	"fmt"
	"math/rand"
	"testing"

	"covid-impact-pipeline/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func scenarioRecords() []model.GeoRecord {
	return []model.GeoRecord{
		geoRec("France", 2018, "GDP", present(100), "Europe", "FRA"),
		geoRec("France", 2019, "GDP", present(110), "Europe", "FRA"),
		geoRec("France", 2020, "GDP", model.Missing, "Europe", "FRA"),
		geoRec("Germany", 2018, "GDP", present(200), "Europe", "DEU"),
		geoRec("Germany", 2019, "GDP", present(210), "Europe", "DEU"),
		geoRec("Germany", 2020, "GDP", present(190), "Europe", "DEU"),
		geoRec("Brazil", 2018, "GDP", present(50), "South America", "BRA"),
		geoRec("Brazil", 2019, "GDP", model.Missing, "South America", "BRA"),
		geoRec("Brazil", 2020, "GDP", present(40), "South America", "BRA"),
	}
}

func TestAggregateSum(t *testing.T) {
	records := append(scenarioRecords(), geoRec("Euro area", 2018, "GDP", present(999), "", ""))

	got := Aggregate(records, "GDP", model.ReduceSum)

	want := []model.AggregateRecord{
		{Continent: "Europe", Year: 2018, Metric: "GDP", Value: 300, Count: 2},
		{Continent: "Europe", Year: 2019, Metric: "GDP", Value: 320, Count: 2},
		{Continent: "Europe", Year: 2020, Metric: "GDP", Value: 190, Count: 1},
		{Continent: "South America", Year: 2018, Metric: "GDP", Value: 50, Count: 1},
		{Continent: "South America", Year: 2020, Metric: "GDP", Value: 40, Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateMean(t *testing.T) {
	got := Aggregate(scenarioRecords(), "GDP", model.ReduceMean)

	assert.Equal(t, model.AggregateRecord{Continent: "Europe", Year: 2018, Metric: "GDP", Value: 150, Count: 2}, got[0])
	assert.Equal(t, model.AggregateRecord{Continent: "Europe", Year: 2020, Metric: "GDP", Value: 190, Count: 1}, got[2])
	assert.Empty(t, Aggregate(scenarioRecords(), "CPI", model.ReduceMean))
}

func TestAggregateSumIsAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	continents := []string{"Africa", "Asia", "Europe"}

	var all []model.GeoRecord
	for e := 0; e < 30; e++ {
		entity := fmt.Sprintf("Entity %d", e)
		for year := 2018; year <= 2021; year++ {
			v := model.Missing
			if rng.Intn(5) > 0 {
				v = model.Present(float64(rng.Intn(10000)) / 4)
			}
			all = append(all, geoRec(entity, year, "m", v, continents[rng.Intn(len(continents))], ""))
		}
	}

	var left, right []model.GeoRecord
	for _, r := range all {
		if rng.Intn(2) == 0 {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	type key struct {
		continent string
		year      int
	}
	combined := make(map[key]model.AggregateRecord)
	for _, part := range [][]model.GeoRecord{left, right} {
		for _, a := range Aggregate(part, "m", model.ReduceSum) {
			k := key{a.Continent, a.Year}
			c := combined[k]
			c.Continent, c.Year, c.Metric = a.Continent, a.Year, a.Metric
			c.Value += a.Value
			c.Count += a.Count
			combined[k] = c
		}
	}

	full := Aggregate(all, "m", model.ReduceSum)
	assert.Len(t, combined, len(full))
	for _, a := range full {
		c := combined[key{a.Continent, a.Year}]
		assert.InDelta(t, a.Value, c.Value, 1e-6, "%s/%d", a.Continent, a.Year)
		assert.Equal(t, a.Count, c.Count)
	}
}

func TestAggregateMerged(t *testing.T) {
	merged := []model.MergedRecord{
		{Entity: "France", Year: 2020, Continent: "Europe", Values: map[string]model.Value{"cases": present(10), "consumption": present(30)}},
		{Entity: "Germany", Year: 2020, Continent: "Europe", Values: map[string]model.Value{"cases": present(50), "consumption": model.Missing}},
		{Entity: "World", Year: 2020, Values: map[string]model.Value{"cases": present(1000), "consumption": present(1)}},
	}

	got := AggregateMerged(merged, "consumption", model.ReduceSum)
	assert.Equal(t, []model.AggregateRecord{{Continent: "Europe", Year: 2020, Metric: "consumption", Value: 30, Count: 1}}, got)
}

func TestDelta(t *testing.T) {
	got := Delta(scenarioRecords(), "GDP", 2019, 2020)

	want := []model.DeltaRecord{
		{Entity: "Germany", Continent: "Europe", ISO3: "DEU", Metric: "GDP", FromYear: 2019, ToYear: 2020, Change: -20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Delta() mismatch (-want +got):\n%s", diff)
	}

	got = Delta(scenarioRecords(), "GDP", 2018, 2020)
	entities := make([]string, 0, len(got))
	for _, d := range got {
		entities = append(entities, d.Entity)
	}
	if diff := cmp.Diff([]string{"Brazil", "Germany"}, entities, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Delta() entities (-want +got):\n%s", diff)
	}
}

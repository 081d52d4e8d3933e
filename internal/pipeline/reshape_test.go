package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeltScenario(t *testing.T) {
	table, err := LoadTable(context.Background(), config.SourceConfig{
		ID:   "gdp",
		Path: "testdata/scenario_gdp.csv",
	})
	require.NoError(t, err)

	records, err := Melt(table, MeltSpec{EntityColumn: "Country", Metric: "GDP", YearMin: 2018, YearMax: 2020})
	require.NoError(t, err)

	want := []model.LongRecord{
		longRec("France", 2018, "GDP", present(100)),
		longRec("France", 2019, "GDP", present(110)),
		longRec("France", 2020, "GDP", model.Missing),
		longRec("Germany", 2018, "GDP", present(200)),
		longRec("Germany", 2019, "GDP", present(210)),
		longRec("Germany", 2020, "GDP", present(190)),
		longRec("Brazil", 2018, "GDP", present(50)),
		longRec("Brazil", 2019, "GDP", model.Missing),
		longRec("Brazil", 2020, "GDP", present(40)),
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Melt() mismatch (-want +got):\n%s", diff)
	}
}

func TestMeltNonFiniteCellsAreMissing(t *testing.T) {
	table := rawTable("gdp", []string{"Country", "2019", "2020"},
		[]string{"France", "Infinity", "-Inf"},
	)

	records, err := Melt(table, MeltSpec{EntityColumn: "Country", Metric: "GDP"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.Value.IsMissing(), "%s/%d", r.Entity, r.Year)
	}

	_, err = json.Marshal(records)
	assert.NoError(t, err)
}

func TestMeltRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	tables := map[string]*model.RawTable{
		"small": rawTable("small", []string{"Country", "2019", "2020"},
			[]string{"France", "1.5", ".."},
			[]string{"Chile", "-3", "4e3"},
		),
		"generated": generatedWideTable(rng, 25, 2000, 2012),
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			records, err := Melt(table, MeltSpec{EntityColumn: "Country", Metric: "m"})
			require.NoError(t, err)

			wide := Pivot(records, "m")
			assert.Len(t, wide.Entities, len(table.Rows))
			for _, row := range table.Rows {
				for col := 1; col < len(table.Columns); col++ {
					year, _ := strconv.Atoi(table.Columns[col])
					want := model.Missing
					if f, err := strconv.ParseFloat(row[col], 64); err == nil {
						want = model.Present(f)
					}
					assert.Equal(t, want, wide.Value(row[0], year), "%s/%d", row[0], year)
				}
			}

			back := wide.Table(table.Source, "Country")
			assert.Equal(t, table.Columns, back.Columns)
			again, err := Melt(back, MeltSpec{EntityColumn: "Country", Metric: "m"})
			require.NoError(t, err)
			if diff := cmp.Diff(records, again); diff != "" {
				t.Errorf("second melt differs (-first +second):\n%s", diff)
			}
		})
	}
}

func generatedWideTable(rng *rand.Rand, entities, fromYear, toYear int) *model.RawTable {
	columns := []string{"Country"}
	for y := fromYear; y <= toYear; y++ {
		columns = append(columns, strconv.Itoa(y))
	}
	table := rawTable("generated", columns)
	for i := 0; i < entities; i++ {
		row := []string{fmt.Sprintf("Entity %02d", i)}
		for y := fromYear; y <= toYear; y++ {
			if rng.Intn(5) == 0 {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(rng.NormFloat64()*1000, 'f', -1, 64))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func TestMeltDuplicateEntityLastRowWins(t *testing.T) {
	table := rawTable("dup", []string{"Country", "2019", "2020"},
		[]string{"France", "1", "2"},
		[]string{"Chile", "5", "6"},
		[]string{"France", "3", ""},
	)

	records, err := Melt(table, MeltSpec{EntityColumn: "Country", Metric: "m"})
	require.NoError(t, err)

	want := []model.LongRecord{
		longRec("France", 2019, "m", present(3)),
		longRec("France", 2020, "m", model.Missing),
		longRec("Chile", 2019, "m", present(5)),
		longRec("Chile", 2020, "m", present(6)),
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Melt() mismatch (-want +got):\n%s", diff)
	}
}

func TestMeltColumnSelection(t *testing.T) {
	table := rawTable("sel", []string{"Country", "Code", "YR2018", "YR2019", "YR2020", "Notes"},
		[]string{"Peru", "PER", "1", "2", "3", "x"},
		[]string{"", "", "9", "9", "9", ""},
		[]string{"Chad", "TCD", "..", "N/A", "", ""},
	)

	tests := []struct {
		name string
		spec MeltSpec
		want []model.LongRecord
	}{
		{
			name: "pattern",
			spec: MeltSpec{EntityColumn: "Country", Metric: "m", YearPattern: regexp.MustCompile(`^YR(\d{4})$`), YearMin: 2019},
			want: []model.LongRecord{
				longRec("Peru", 2019, "m", present(2)),
				longRec("Peru", 2020, "m", present(3)),
				longRec("Chad", 2019, "m", model.Missing),
				longRec("Chad", 2020, "m", model.Missing),
			},
		},
		{
			name: "explicit columns",
			spec: MeltSpec{EntityColumn: "Country", Metric: "m", YearColumns: []string{"YR2018"}, YearPattern: regexp.MustCompile(`^YR(\d{4})$`)},
			want: []model.LongRecord{
				longRec("Peru", 2018, "m", present(1)),
				longRec("Chad", 2018, "m", model.Missing),
			},
		},
		{
			name: "drop empty rows",
			spec: MeltSpec{EntityColumn: "Country", Metric: "m", YearPattern: regexp.MustCompile(`^YR(\d{4})$`), DropEmptyRows: true},
			want: []model.LongRecord{
				longRec("Peru", 2018, "m", present(1)),
				longRec("Peru", 2019, "m", present(2)),
				longRec("Peru", 2020, "m", present(3)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Melt(table, tt.spec)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Melt() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMeltErrors(t *testing.T) {
	table := rawTable("gdp", []string{"Country", "2019"}, []string{"Peru", "1"})

	tests := []struct {
		name   string
		spec   MeltSpec
		errMsg string
	}{
		{"missing entity column", MeltSpec{EntityColumn: "Nation", Metric: "m"}, `entity column "Nation" not found`},
		{"missing year column", MeltSpec{EntityColumn: "Country", Metric: "m", YearColumns: []string{"2020"}}, `year column "2020" not found`},
		{"no years in range", MeltSpec{EntityColumn: "Country", Metric: "m", YearMin: 2020, YearMax: 2023}, "no year columns between 2020 and 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Melt(table, tt.spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedTable)
			assert.Contains(t, err.Error(), tt.errMsg)

			var srcErr *SourceError
			require.True(t, errors.As(err, &srcErr))
			assert.Equal(t, "gdp", srcErr.Source)
		})
	}
}

func TestNewMeltSpec(t *testing.T) {
	spec, err := NewMeltSpec(config.SourceConfig{
		EntityColumn: "Country Name",
		Metric:       "GDP",
		YearPattern:  `^(\d{4}) \[YR\d{4}\]$`,
	}, 2018, 2023)
	require.NoError(t, err)
	assert.Equal(t, 2018, spec.YearMin)
	assert.NotNil(t, spec.YearPattern)
	assert.NotEmpty(t, spec.Placeholders)

	_, err = NewMeltSpec(config.SourceConfig{YearPattern: `(`}, 2018, 2023)
	assert.Error(t, err)
}

func TestCollapseLong(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed entity mean", func(t *testing.T) {
		table, err := LoadTable(ctx, config.SourceConfig{ID: "ftse", Path: "testdata/ftse.csv"})
		require.NoError(t, err)

		records, err := CollapseLong(table, LongSpec{
			Entity:       "United Kingdom",
			DateColumn:   "Date",
			ValueColumns: []string{"Close"},
			Metric:       "FTSE 100",
			Collapse:     config.CollapseMean,
			YearMin:      2018,
			YearMax:      2023,
		})
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, 2019, records[0].Year)
		assert.Equal(t, "FTSE 100", records[0].Metric)
		assert.InDelta(t, (6734.23+7425.63)/2, records[0].Value.Float, 1e-9)
		assert.InDelta(t, (7604.30+6460.52)/2, records[1].Value.Float, 1e-9)
		assert.Equal(t, 2021, records[2].Year)
		assert.True(t, records[2].Value.IsMissing())
	})

	t.Run("entity column last with continent hints", func(t *testing.T) {
		table, err := LoadTable(ctx, config.SourceConfig{ID: "owid", Path: "testdata/owid_cases.csv"})
		require.NoError(t, err)

		records, err := CollapseLong(table, LongSpec{
			EntityColumn:    "location",
			DateColumn:      "date",
			ValueColumns:    []string{"new_cases"},
			Collapse:        config.CollapseLast,
			ContinentColumn: "continent",
		})
		require.NoError(t, err)

		want := []model.LongRecord{
			{Entity: "France", Year: 2020, Metric: "new_cases", Value: present(10), ContinentHint: "Europe"},
			{Entity: "France", Year: 2021, Metric: "new_cases", Value: present(500), ContinentHint: "Europe"},
			{Entity: "Northern Cyprus", Year: 2020, Metric: "new_cases", Value: present(3), ContinentHint: "Asia"},
			{Entity: "World", Year: 2020, Metric: "new_cases", Value: present(1000)},
		}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("CollapseLong() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("several value columns", func(t *testing.T) {
		table := rawTable("px", []string{"Date", "Open", "Close"},
			[]string{"2020-01-02", "1", "2"},
			[]string{"2020-12-30", "3", "4"},
		)
		records, err := CollapseLong(table, LongSpec{
			Entity:       "Japan",
			DateColumn:   "Date",
			ValueColumns: []string{"Open", "Close"},
			Collapse:     config.CollapseLast,
		})
		require.NoError(t, err)

		want := []model.LongRecord{
			longRec("Japan", 2020, "Open", present(3)),
			longRec("Japan", 2020, "Close", present(4)),
		}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("CollapseLong() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unparseable date", func(t *testing.T) {
		table, err := LoadTable(ctx, config.SourceConfig{ID: "undated", Path: "testdata/undated.csv"})
		require.NoError(t, err)

		_, err = CollapseLong(table, LongSpec{Entity: "X", DateColumn: "Date", ValueColumns: []string{"Close"}})
		assert.ErrorIs(t, err, ErrMalformedTable)
		assert.Contains(t, err.Error(), `"yesterday"`)
	})

	t.Run("missing value column", func(t *testing.T) {
		table := rawTable("px", []string{"Date", "Close"})
		_, err := CollapseLong(table, LongSpec{Entity: "X", DateColumn: "Date", ValueColumns: []string{"Adj Close"}})
		assert.ErrorIs(t, err, ErrMalformedTable)
	})
}

func TestPivotTable(t *testing.T) {
	records := []model.LongRecord{
		longRec("Peru", 2020, "m", present(2)),
		longRec("Peru", 2019, "m", present(1.5)),
		longRec("Chad", 2020, "m", model.Missing),
		longRec("Chad", 2020, "other", present(9)),
	}

	wide := Pivot(records, "m")
	assert.Equal(t, []string{"Peru", "Chad"}, wide.Entities)
	assert.Equal(t, []int{2019, 2020}, wide.Years)

	table := wide.Table("src", "Country")
	assert.Equal(t, []string{"Country", "2019", "2020"}, table.Columns)
	assert.Equal(t, [][]string{{"Peru", "1.5", "2"}, {"Chad", "", ""}}, table.Rows)
}

package model

import "time"

// RawTable is a source file as loaded: string cells, labels from the first
// non-skipped row.
type RawTable struct {
	Source  string     `json:"source"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of a column label, or -1.
func (t *RawTable) ColumnIndex(label string) int {
	for i, c := range t.Columns {
		if c == label {
			return i
		}
	}
	return -1
}

// LongRecord is one (entity, year, metric) observation.
type LongRecord struct {
	Entity string `json:"entity"`
	Year   int    `json:"year"`
	Metric string `json:"metric"`
	Value  Value  `json:"value"`

	// ContinentHint is a continent supplied by the source itself, if any.
	ContinentHint string `json:"-"`
}

// GeoRecord is a LongRecord with its resolved continent and ISO3 code.
// An empty Continent or ISO3 means unresolved.
type GeoRecord struct {
	LongRecord
	Continent string `json:"continent"`
	ISO3      string `json:"iso3"`
}

// Resolved reports whether the continent is known.
func (r GeoRecord) Resolved() bool { return r.Continent != "" }

// MergedRecord joins several metrics observed for the same (entity, year).
type MergedRecord struct {
	Entity    string           `json:"entity"`
	Year      int              `json:"year"`
	Continent string           `json:"continent"`
	ISO3      string           `json:"iso3"`
	Values    map[string]Value `json:"values"`
}

// Resolved reports whether the continent is known.
func (r MergedRecord) Resolved() bool { return r.Continent != "" }

// AggregateRecord is a continent-year total or mean of one metric.
type AggregateRecord struct {
	Continent string  `json:"continent"`
	Year      int     `json:"year"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Count     int     `json:"count"`
}

// DeltaRecord is the change of a metric for one entity between two years.
type DeltaRecord struct {
	Entity    string  `json:"entity"`
	Continent string  `json:"continent"`
	ISO3      string  `json:"iso3"`
	Metric    string  `json:"metric"`
	FromYear  int     `json:"from_year"`
	ToYear    int     `json:"to_year"`
	Change    float64 `json:"change"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "database"
	Path        string    `json:"path"` // file path or table name
	Dataset     string    `json:"dataset"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a float that may be missing. A missing value is not zero.
type Value struct {
	Float float64 `json:"-"`
	Valid bool    `json:"-"`
}

// Missing is the zero Value.
var Missing = Value{}

// Present wraps an observed number. NaN is stored as missing.
func Present(f float64) Value {
	if math.IsNaN(f) {
		return Missing
	}
	return Value{Float: f, Valid: true}
}

// IsMissing reports whether v carries no observation.
func (v Value) IsMissing() bool { return !v.Valid }

func (v Value) String() string {
	if !v.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON encodes missing values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = Present(f)
	return nil
}

// Reducer is the per-metric aggregation operator.
type Reducer string

const (
	ReduceSum  Reducer = "sum"  // flow quantities: GDP, trade, consumption
	ReduceMean Reducer = "mean" // rates and indices: unemployment, CPI
)

// ParseReducer validates a configured reducer name.
func ParseReducer(s string) (Reducer, error) {
	switch Reducer(s) {
	case ReduceSum, ReduceMean:
		return Reducer(s), nil
	}
	return "", fmt.Errorf("unknown reducer %q (want sum or mean)", s)
}

// ChartKind tells the rendering collaborator what shape of data it receives.
type ChartKind string

const (
	ChartContinentLine ChartKind = "continent-line"
	ChartChoropleth    ChartKind = "choropleth"
	ChartEntitySeries  ChartKind = "entity-series"
	ChartEntityDelta   ChartKind = "entity-delta"
)

// ParseChartKind validates a configured chart kind.
func ParseChartKind(s string) (ChartKind, error) {
	switch k := ChartKind(s); k {
	case ChartContinentLine, ChartChoropleth, ChartEntitySeries, ChartEntityDelta:
		return k, nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// ChartData is what a selector change hands to the charting collaborator.
// Exactly one of Aggregates, Records or Deltas is populated, depending on Kind.
type ChartData struct {
	Chart      string            `json:"chart"`
	Title      string            `json:"title,omitempty"`
	Kind       ChartKind         `json:"kind"`
	Dataset    string            `json:"dataset"`
	Metric     string            `json:"metric"`
	Selector   string            `json:"selector"`
	Aggregates []AggregateRecord `json:"aggregates,omitempty"`
	Records    []GeoRecord       `json:"records,omitempty"`
	Deltas     []DeltaRecord     `json:"deltas,omitempty"`
}

// ChartInfo describes a registered chart and the selector values it accepts.
type ChartInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Kind      ChartKind `json:"kind"`
	Dataset   string    `json:"dataset"`
	Selectors []string  `json:"selectors"`
	Default   string    `json:"default"`
}

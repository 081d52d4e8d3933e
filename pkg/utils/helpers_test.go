package utils

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   float64
		wantOK bool
	}{
		{name: "integer", in: "100", want: 100, wantOK: true},
		{name: "float with spaces", in: "  12.5 ", want: 12.5, wantOK: true},
		{name: "thousands separator", in: "1,234.5", want: 1234.5, wantOK: true},
		{name: "negative", in: "-3.2", want: -3.2, wantOK: true},
		{name: "percent suffix", in: "4.5%", want: 4.5, wantOK: true},
		{name: "dollar prefix", in: "$4,769.83", want: 4769.83, wantOK: true},
		{name: "world bank placeholder", in: "..", wantOK: false},
		{name: "ellipsis", in: "…", wantOK: false},
		{name: "empty", in: "", wantOK: false},
		{name: "text", in: "n.a.", wantOK: false},
		{name: "infinity", in: "Infinity", wantOK: false},
		{name: "negative inf", in: "-Inf", wantOK: false},
		{name: "nan spelled differently", in: "NAN", wantOK: false},
		{name: "overflow", in: "1e400", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.in, DefaultPlaceholders)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	databank := regexp.MustCompile(`^(\d{4}) \[YR\d{4}\]$`)

	tests := []struct {
		name    string
		label   string
		pattern *regexp.Regexp
		want    int
		wantOK  bool
	}{
		{name: "plain year", label: "2019", want: 2019, wantOK: true},
		{name: "float header", label: "2019.0", want: 2019, wantOK: true},
		{name: "not a year", label: "Country Name", wantOK: false},
		{name: "databank label", label: "2020 [YR2020]", pattern: databank, want: 2020, wantOK: true},
		{name: "databank pattern on plain label", label: "2020", pattern: databank, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseYear(tt.label, tt.pattern)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseDuration("2s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}

func TestParseDateYear(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"2020-03-15", 2020, true},
		{"03/15/2021", 2021, true},
		{"2019", 2019, true},
		{"2022-01-03 00:00:00", 2022, true},
		{"", 0, false},
		{"yesterday", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateYear(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "Country Name", CleanHeader("\ufeff\"Country Name\" "))
}

func TestOutputManager(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	path, err := om.GetOutputFilePath("run-1", "stocks_Close/Last_wide.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(om.BaseOutputDir, "run-1", "stocks_Close_Last_wide.csv"), path)
	assert.DirExists(t, filepath.Dir(path))

	path, err = om.GetOutputFilePath("run-1", "../escape.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(om.BaseOutputDir, "run-1", "_escape.csv"), path)

	assert.Equal(t, "csv", om.GetFileType(path))
	assert.Equal(t, "json", om.GetFileType("x.JSON"))
	assert.Equal(t, "database", om.GetFileType("pipeline.db"))
	assert.Equal(t, "unknown", om.GetFileType("x.parquet"))
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"economy_GDP_wide.csv", "economy_GDP_wide.csv"},
		{"markets_GDP (US$ bn)_wide.csv", "markets_GDP (US$ bn)_wide.csv"},
		{`a\b:c.csv`, "a__b_c.csv"},
		{".hidden", "hidden"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeFileName(tt.in), tt.in)
	}
}

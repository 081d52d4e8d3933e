// Package config loads the pipeline configuration: sources, datasets, charts
// and the operator settings around them.
package config

// Config is the complete pipeline configuration.
type Config struct {
	YearMin  int             `koanf:"year_min" yaml:"year_min"`
	YearMax  int             `koanf:"year_max" yaml:"year_max"`
	Verbose  bool            `koanf:"verbose" yaml:"verbose"`
	Geo      GeoConfig       `koanf:"geo" yaml:"geo"`
	Sources  []SourceConfig  `koanf:"sources" yaml:"sources"`
	Datasets []DatasetConfig `koanf:"datasets" yaml:"datasets"`
	Charts   []ChartConfig   `koanf:"charts" yaml:"charts"`
	Export   ExportConfig    `koanf:"export" yaml:"export"`
	Server   ServerConfig    `koanf:"server" yaml:"server"`
	Store    StoreConfig     `koanf:"store" yaml:"store"`

	// BaseDir anchors relative source paths. It is the directory of the
	// config file, or empty for the working directory.
	BaseDir string `koanf:"-" yaml:"-"`
}

// GeoConfig configures country-name resolution.
type GeoConfig struct {
	// Table optionally replaces the built-in country table with a CSV of
	// iso3,name,continent,regex rows.
	Table     string           `koanf:"table" yaml:"table,omitempty"`
	Overrides []OverrideConfig `koanf:"overrides" yaml:"overrides,omitempty"`
}

// OverrideConfig pins an entity to a continent regardless of the lookup.
type OverrideConfig struct {
	Entity    string `koanf:"entity" yaml:"entity"`
	Continent string `koanf:"continent" yaml:"continent"`
	ISO3      string `koanf:"iso3" yaml:"iso3,omitempty"`
}

// RenameConfig replaces one entity name with another before resolution.
type RenameConfig struct {
	From string `koanf:"from" yaml:"from"`
	To   string `koanf:"to" yaml:"to"`
}

// Source layouts.
const (
	LayoutWide = "wide"
	LayoutLong = "long"
)

// Source and export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Collapse modes for long sources.
const (
	CollapseLast = "last"
	CollapseMean = "mean"
)

// SourceConfig describes one tabular input and how to reshape it.
type SourceConfig struct {
	ID             string `koanf:"id" yaml:"id"`
	Path           string `koanf:"path" yaml:"path"`
	Format         string `koanf:"format" yaml:"format,omitempty"`
	Sheet          string `koanf:"sheet" yaml:"sheet,omitempty"`
	Delimiter      string `koanf:"delimiter" yaml:"delimiter,omitempty"`
	HeaderSkipRows int    `koanf:"header_skip_rows" yaml:"header_skip_rows"`
	Layout         string `koanf:"layout" yaml:"layout,omitempty"`

	EntityColumn string `koanf:"entity_column" yaml:"entity_column,omitempty"`
	// Entity names the single entity of a source without an entity column,
	// such as one stock index per file.
	Entity string `koanf:"entity" yaml:"entity,omitempty"`
	Metric string `koanf:"metric" yaml:"metric,omitempty"`

	// Wide layout.
	YearColumns   []string `koanf:"year_columns" yaml:"year_columns,omitempty"`
	YearPattern   string   `koanf:"year_pattern" yaml:"year_pattern,omitempty"`
	DropEmptyRows bool     `koanf:"drop_empty_rows" yaml:"drop_empty_rows,omitempty"`

	// Long layout.
	DateColumn      string   `koanf:"date_column" yaml:"date_column,omitempty"`
	ValueColumns    []string `koanf:"value_columns" yaml:"value_columns,omitempty"`
	Collapse        string   `koanf:"collapse" yaml:"collapse,omitempty"`
	ContinentColumn string   `koanf:"continent_column" yaml:"continent_column,omitempty"`

	Placeholders    []string       `koanf:"placeholders" yaml:"placeholders,omitempty"`
	Transformations []string       `koanf:"transformations" yaml:"transformations,omitempty"`
	Rename          []RenameConfig `koanf:"rename" yaml:"rename,omitempty"`
	Exclude         []string       `koanf:"exclude" yaml:"exclude,omitempty"`
}

// MetricConfig chooses the continent-level reducer for a metric.
type MetricConfig struct {
	Name    string `koanf:"name" yaml:"name"`
	Reducer string `koanf:"reducer" yaml:"reducer"`
}

// DatasetConfig groups sources into one chartable table.
type DatasetConfig struct {
	ID      string   `koanf:"id" yaml:"id"`
	Title   string   `koanf:"title" yaml:"title,omitempty"`
	Sources []string `koanf:"sources" yaml:"sources"`
	// Merge inner-joins the sources on (entity, year). Without it the
	// sources' records are concatenated.
	Merge   bool           `koanf:"merge" yaml:"merge,omitempty"`
	Impute  []string       `koanf:"impute" yaml:"impute,omitempty"`
	Metrics []MetricConfig `koanf:"metrics" yaml:"metrics"`
}

// ChartConfig registers a chart and the selector values it accepts.
type ChartConfig struct {
	ID      string `koanf:"id" yaml:"id"`
	Title   string `koanf:"title" yaml:"title,omitempty"`
	Kind    string `koanf:"kind" yaml:"kind"`
	Dataset string `koanf:"dataset" yaml:"dataset"`
	// Metrics are the selector values of metric-driven charts.
	Metrics []string `koanf:"metrics" yaml:"metrics,omitempty"`
	// Metric fixes the metric of entity-driven charts.
	Metric   string `koanf:"metric" yaml:"metric,omitempty"`
	FromYear int    `koanf:"from_year" yaml:"from_year,omitempty"`
	ToYear   int    `koanf:"to_year" yaml:"to_year,omitempty"`
	Default  string `koanf:"default" yaml:"default,omitempty"`
}

// ExportConfig controls what `run` writes after a build.
type ExportConfig struct {
	Dir     string   `koanf:"dir" yaml:"dir"`
	Formats []string `koanf:"formats" yaml:"formats,omitempty"`
	Store   bool     `koanf:"store" yaml:"store"`
}

// ServerConfig configures the selector API.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
	// ShutdownTimeout is a duration such as "10s".
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout,omitempty"`
}

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// Source returns the source with the given ID.
func (c *Config) Source(id string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Dataset returns the dataset with the given ID.
func (c *Config) Dataset(id string) (DatasetConfig, bool) {
	for _, d := range c.Datasets {
		if d.ID == id {
			return d, true
		}
	}
	return DatasetConfig{}, false
}

// OverrideMap returns the geo overrides keyed by entity name.
func (c *Config) OverrideMap() map[string]string {
	m := make(map[string]string, len(c.Geo.Overrides))
	for _, o := range c.Geo.Overrides {
		m[o.Entity] = o.Continent
	}
	return m
}

// OverrideCodes returns the ISO3 codes given alongside overrides.
func (c *Config) OverrideCodes() map[string]string {
	m := make(map[string]string)
	for _, o := range c.Geo.Overrides {
		if o.ISO3 != "" {
			m[o.Entity] = o.ISO3
		}
	}
	return m
}

// Reducer returns the configured reducer name for a metric of a dataset.
func (d DatasetConfig) Reducer(metric string) (string, bool) {
	for _, m := range d.Metrics {
		if m.Name == metric {
			return m.Reducer, true
		}
	}
	return "", false
}

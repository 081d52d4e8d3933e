package config

import "strings"

// Default configuration values.
const (
	DefaultYearMin    = 2018
	DefaultYearMax    = 2023
	DefaultAddr       = ":8080"
	DefaultStorePath  = "pipeline.db"
	DefaultExportDir  = "output"
	DefaultFormat     = FormatCSV
	DefaultLayout     = LayoutWide
	DefaultCollapse   = CollapseLast
	DefaultDelimiter  = ","
	DefaultConfigFile = "pipeline.yaml"
)

// defaultValues seeds koanf before any file, env or flag is read.
func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"year_min":       DefaultYearMin,
		"year_max":       DefaultYearMax,
		"verbose":        false,
		"server.addr":    DefaultAddr,
		"store.path":     DefaultStorePath,
		"export.dir":     DefaultExportDir,
		"export.formats": []string{"csv"},
		"export.store":   false,
	}
}

// ApplyDefaults fills unset per-source and per-dataset fields.
func (c *Config) ApplyDefaults() {
	if c.YearMin == 0 {
		c.YearMin = DefaultYearMin
	}
	if c.YearMax == 0 {
		c.YearMax = DefaultYearMax
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Export.Dir == "" {
		c.Export.Dir = DefaultExportDir
	}
	for i := range c.Sources {
		c.Sources[i].ApplyDefaults()
	}
	for i := range c.Datasets {
		for j := range c.Datasets[i].Metrics {
			if c.Datasets[i].Metrics[j].Reducer == "" {
				c.Datasets[i].Metrics[j].Reducer = "sum"
			}
		}
	}
}

// ApplyDefaults fills unset source fields.
func (s *SourceConfig) ApplyDefaults() {
	if s.Format == "" {
		s.Format = formatFromPath(s.Path)
	}
	s.Format = strings.ToLower(s.Format)
	if s.Layout == "" {
		s.Layout = DefaultLayout
	}
	if s.Delimiter == "" {
		s.Delimiter = DefaultDelimiter
	}
	if s.Layout == LayoutLong && s.Collapse == "" {
		s.Collapse = DefaultCollapse
	}
}

func formatFromPath(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return FormatXLSX
	}
	return DefaultFormat
}

package pipeline

import (
	"testing"

	"covid-impact-pipeline/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestSourceMetrics(t *testing.T) {
	tests := []struct {
		name string
		src  config.SourceConfig
		want []string
	}{
		{"wide", config.SourceConfig{Layout: config.LayoutWide, Metric: "GDP"}, []string{"GDP"}},
		{"long renamed", config.SourceConfig{Layout: config.LayoutLong, Metric: "Cases", ValueColumns: []string{"new_cases"}}, []string{"Cases"}},
		{"long by column", config.SourceConfig{Layout: config.LayoutLong, ValueColumns: []string{"Open", "Close"}}, []string{"Open", "Close"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceMetrics(tt.src))
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		errMsg string
	}{
		{"valid", func(cfg *config.Config) {}, ""},
		{
			name:   "metric not produced",
			mutate: func(cfg *config.Config) { cfg.Datasets[0].Metrics[0].Name = "GNP" },
			errMsg: `dataset economy: metric "GNP" is not produced by any of its sources`,
		},
		{
			name: "merged source with two metrics",
			mutate: func(cfg *config.Config) {
				cfg.Sources[3].Metric = ""
				cfg.Sources[3].ValueColumns = []string{"new_cases", "new_deaths"}
			},
			errMsg: "merged source owid must produce exactly one metric",
		},
		{
			name:   "default not a metric",
			mutate: func(cfg *config.Config) { cfg.Charts[4].Default = "Deaths" },
			errMsg: `chart covid-line: default "Deaths" is not one of its metrics`,
		},
		{
			name:   "entity chart metric",
			mutate: func(cfg *config.Config) { cfg.Charts[2].Metric = "GDP" },
			errMsg: `chart cpi-series: metric "GDP" is not in dataset prices`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

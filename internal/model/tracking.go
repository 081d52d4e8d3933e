package model

import "time"

// StageMetrics represents metrics for one stage of one dataset build
type StageMetrics struct {
	StageName  string        `json:"stage_name"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	RecordsIn  int           `json:"records_in"`
	RecordsOut int           `json:"records_out"`
}

// SourceMetrics represents metrics for a specific data source
type SourceMetrics struct {
	Source        string        `json:"source"`
	Rows          int           `json:"rows"`
	Records       int           `json:"records"`
	MissingCount  int           `json:"missing_count"`
	// MissingByYear breaks MissingCount down by year.
	MissingByYear map[int]int   `json:"missing_by_year,omitempty"`
	LoadTime      time.Duration `json:"load_time"`
}

// DatasetDiagnostics collects the non-fatal conditions met while building a
// dataset: unresolved entities, discarded join keys and imputation gaps.
type DatasetDiagnostics struct {
	Dataset               string                   `json:"dataset"`
	Status                string                   `json:"status"`
	Sources               map[string]SourceMetrics `json:"sources"`
	Stages                []StageMetrics           `json:"stages"`
	UnresolvedEntities    []string                 `json:"unresolved_entities"`
	JoinKept              int                      `json:"join_kept"`
	JoinDiscarded         int                      `json:"join_discarded"`
	EmptyJoin             bool                     `json:"empty_join"`
	ImputedFilled         int                      `json:"imputed_filled"`
	ImputedUnfilled       int                      `json:"imputed_unfilled"`
	UndefinedCoefficients []string                 `json:"undefined_coefficients"`
	Coefficients          map[string]float64       `json:"coefficients,omitempty"`
	Error                 string                   `json:"error,omitempty"`
}

// Diagnostics is the build report for a whole pipeline run.
type Diagnostics struct {
	RunID     string               `json:"run_id"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Duration  time.Duration        `json:"duration"`
	Datasets  []DatasetDiagnostics `json:"datasets"`
}

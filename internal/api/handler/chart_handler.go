// Package handler serves the selector boundary over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/internal/pipeline"
	"covid-impact-pipeline/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Selector is the read side of a built pipeline.
type Selector interface {
	Charts() []model.ChartInfo
	Chart(id string) (model.ChartInfo, error)
	ChartData(chartID, selector string) (*model.ChartData, error)
	Datasets() []*pipeline.Dataset
	Dataset(id string) (*pipeline.Dataset, bool)
	Diagnostics() model.Diagnostics
}

// RunStore is the read side of the run history.
type RunStore interface {
	ListRuns(ctx context.Context) ([]store.Run, error)
	GetRun(ctx context.Context, runID string) (*store.Run, error)
	GetDiagnostics(ctx context.Context, runID string) ([]model.DatasetDiagnostics, error)
	GetAggregates(ctx context.Context, runID, dataset string) ([]model.AggregateRecord, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler answers chart, dataset and run queries. Runs may be nil when no
// store is configured.
type Handler struct {
	pipeline Selector
	runs     RunStore
	logger   *zap.Logger
}

// New creates a Handler.
func New(p Selector, runs RunStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pipeline: p, runs: runs, logger: logger}
}

// ListCharts returns every registered chart
// @Summary List charts
// @Description List the registered charts with their accepted selector values
// @Tags charts
// @Produce json
// @Success 200 {array} model.ChartInfo "Registered charts"
// @Router /charts [get]
func (h *Handler) ListCharts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pipeline.Charts())
}

// GetChartData returns the data of a chart for one selector value
// @Summary Get chart data
// @Description Return the records a chart renders for the given selector. An empty selector uses the chart default.
// @Tags charts
// @Produce json
// @Param id path string true "Chart ID"
// @Param selector query string false "Selector value (metric or entity)"
// @Success 200 {object} model.ChartData "Chart data"
// @Failure 400 {object} ErrorResponse "Invalid selector"
// @Failure 404 {object} ErrorResponse "Unknown chart"
// @Router /charts/{id} [get]
func (h *Handler) GetChartData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.pipeline.ChartData(id, r.URL.Query().Get("selector"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

// ListDatasets returns the built datasets
// @Summary List datasets
// @Description List the built datasets with their metrics, entities and years
// @Tags datasets
// @Produce json
// @Success 200 {array} pipeline.Dataset "Built datasets"
// @Router /datasets [get]
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pipeline.Datasets())
}

// GetDatasetAggregates returns the continent aggregates of a dataset
// @Summary Get dataset aggregates
// @Description Return continent-year aggregates of a dataset, keyed by metric, optionally for a single metric
// @Tags datasets
// @Produce json
// @Param id path string true "Dataset ID"
// @Param metric query string false "Metric name"
// @Success 200 {object} map[string][]model.AggregateRecord "Aggregates by metric"
// @Failure 400 {object} ErrorResponse "Unknown metric"
// @Failure 404 {object} ErrorResponse "Unknown dataset"
// @Router /datasets/{id}/aggregates [get]
func (h *Handler) GetDatasetAggregates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := h.pipeline.Dataset(id)
	if !ok {
		h.writeError(w, pipeline.ErrUnknownDataset)
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		h.writeJSON(w, http.StatusOK, d.Aggregates)
		return
	}
	aggs, ok := d.Aggregates[metric]
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown metric " + metric + " for dataset " + id})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]model.AggregateRecord{metric: aggs})
}

// GetDiagnostics returns the build report of the running pipeline
// @Summary Get build diagnostics
// @Description Unresolved entities, join and imputation counts per dataset for the current build
// @Tags diagnostics
// @Produce json
// @Success 200 {object} model.Diagnostics "Build diagnostics"
// @Router /diagnostics [get]
func (h *Handler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pipeline.Diagnostics())
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps boundary errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrUnknownChart),
		errors.Is(err, pipeline.ErrUnknownDataset),
		errors.Is(err, store.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidSelector):
		status = http.StatusBadRequest
	default:
		h.logger.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

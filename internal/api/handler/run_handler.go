package handler

import (
	"net/http"

	"covid-impact-pipeline/internal/model"
	"covid-impact-pipeline/internal/store"

	"github.com/go-chi/chi/v5"
)

// RunDetail is a stored run with its per-dataset reports.
type RunDetail struct {
	store.Run
	Diagnostics []model.DatasetDiagnostics `json:"diagnostics"`
}

// ListRuns retrieves the run history
// @Summary List runs
// @Description List stored pipeline runs, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} store.Run "Stored runs"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Failure 503 {object} ErrorResponse "No run store configured"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one stored run
// @Summary Get run
// @Description Retrieve a stored run and its diagnostics
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} RunDetail "Run details"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 503 {object} ErrorResponse "No run store configured"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	diags, err := h.runs.GetDiagnostics(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RunDetail{Run: *run, Diagnostics: diags})
}

// GetRunAggregates retrieves the aggregates saved by a run
// @Summary Get run aggregates
// @Description Retrieve the continent aggregates a run saved for one dataset
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param dataset query string true "Dataset ID"
// @Success 200 {array} model.AggregateRecord "Stored aggregates"
// @Failure 400 {object} ErrorResponse "Missing dataset"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 503 {object} ErrorResponse "No run store configured"
// @Router /runs/{id}/aggregates [get]
func (h *Handler) GetRunAggregates(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "dataset query parameter is required"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.runs.GetRun(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	aggs, err := h.runs.GetAggregates(r.Context(), id, dataset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if aggs == nil {
		aggs = []model.AggregateRecord{}
	}
	h.writeJSON(w, http.StatusOK, aggs)
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.runs == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "run store not configured"})
		return false
	}
	return true
}

// Package api exposes a built pipeline over HTTP.
//
// @title COVID Impact Pipeline API
// @version 1.0
// @description Chart data, datasets and build diagnostics of the COVID economic-impact pipeline.
// @BasePath /api/v1
package api

import (
	"covid-impact-pipeline/internal/api/handler"
	"covid-impact-pipeline/pkg/router"

	_ "covid-impact-pipeline/internal/api/docs"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// NewRouter creates a router serving p and, when runs is non-nil, the run
// history.
func NewRouter(p handler.Selector, runs handler.RunStore, logger *zap.Logger, opts ...router.Option) *router.Router {
	r := router.New(logger, opts...)
	RegisterRoutes(r, handler.New(p, runs, logger))
	return r
}

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/health", h.Health)

	r.GET("/api/v1/charts", h.ListCharts)
	r.GET("/api/v1/charts/{id}", h.GetChartData)
	r.GET("/api/v1/datasets", h.ListDatasets)
	r.GET("/api/v1/datasets/{id}/aggregates", h.GetDatasetAggregates)
	r.GET("/api/v1/diagnostics", h.GetDiagnostics)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/{id}", h.GetRun)
	r.GET("/api/v1/runs/{id}/aggregates", h.GetRunAggregates)

	r.Handle("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

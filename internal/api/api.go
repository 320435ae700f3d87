// Package api serves dashboard queries over HTTP.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vinceanalytics/tally/internal/imports"
	"github.com/vinceanalytics/tally/internal/metrics"
	"github.com/vinceanalytics/tally/internal/plug"
	"github.com/vinceanalytics/tally/internal/stats"
)

type API struct {
	Stats   *stats.Service
	Imports *imports.Service
	// Ping checks dependencies for /health. Optional.
	Ping func(r *http.Request) error
}

// Handler routes api requests. Requests under /api/ go through the api
// pipeline.
func (a *API) Handler(g prometheus.Gatherer, origins ...string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/sites/{site}/pageview-counts", a.PageviewCounts)
	api.HandleFunc("GET /api/sites/{site}/pageviews", a.Pageviews)
	api.HandleFunc("GET /api/sites/{site}/users", a.Users)
	api.HandleFunc("GET /api/sites/{site}/imports", a.ListImports)
	api.HandleFunc("POST /api/sites/{site}/imports", a.CreateImport)
	api.HandleFunc("PUT /api/sites/{site}/imports/{importId}/file", a.UploadImport)
	api.HandleFunc("DELETE /api/sites/{site}/imports/{importId}", a.DeleteImport)

	mux := http.NewServeMux()
	mux.Handle("/api/", plug.API(origins...).Pass(api))
	mux.Handle("GET /metrics", metrics.New(g))
	mux.HandleFunc("GET /health", a.Health)
	mux.HandleFunc("GET /version", Version)
	return mux
}

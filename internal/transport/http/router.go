// Package httptransport exposes the watch daemon's admin API: run history,
// health, and Prometheus metrics.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pacwatch/internal/platform/metrics"
	"pacwatch/internal/platform/middleware"
)

// NewRouter assembles the admin API with its middleware chain.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	h.Register(r)
	return r
}

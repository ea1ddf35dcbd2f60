package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pacwatch/internal/pipeline"
	"pacwatch/pkg/platform/httputil"
	"pacwatch/pkg/requestcontext"
)

// RunHistory provides read access to recorded watch-mode runs.
type RunHistory interface {
	Recent() []*pipeline.RunReport
	Find(id string) (*pipeline.RunReport, bool)
}

// Handler wires admin endpoints to the run history.
type Handler struct {
	history RunHistory
	logger  *slog.Logger
}

// New constructs an admin handler with its dependencies.
func New(history RunHistory, logger *slog.Logger) *Handler {
	return &Handler{
		history: history,
		logger:  logger,
	}
}

// Register mounts run-report endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Get("/{runID}", h.HandleGetRun)
	})
}

// HandleListRuns handles GET /api/v1/runs requests. Reports are returned
// newest first.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.history.Recent())
}

// HandleGetRun handles GET /api/v1/runs/{runID} requests.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	report, ok := h.history.Find(runID)
	if !ok {
		h.logger.DebugContext(ctx, "run not found",
			"request_id", requestcontext.RequestID(ctx),
			"run_id", runID,
		)
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no run with that ID")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleHealth handles GET /healthz requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

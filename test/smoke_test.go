package test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"pacwatch/internal/pipeline"
	httptransport "pacwatch/internal/transport/http"
	"pacwatch/pkg/testutil"
)

// Smoke test for the assembled admin router: every endpoint reachable
// through the full middleware chain.
func TestAdminRouterSmoke(t *testing.T) {
	testutil.Given(t, "the assembled admin router", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		history := pipeline.NewHistory(5)
		history.Add(&pipeline.RunReport{ID: "run-1"})
		router := httptransport.NewRouter(httptransport.New(history, logger), logger)

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should respond ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling GET /api/v1/runs", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should list the recorded run", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				reports := testutil.UnmarshalResponse[[]*pipeline.RunReport](t, rec)
				if len(*reports) != 1 || (*reports)[0].ID != "run-1" {
					t.Fatalf("expected the seeded run, got %+v", *reports)
				}
			})
		})

		testutil.When(t, "calling GET /metrics", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should expose Prometheus metrics", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})
	})
}

package gateway

import (
	"net/http"
	"strings"

	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/pkg/models"
)

// handleRunEvents returns the recorded timeline for one run under
// /runs/{run_id}/events.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, models.Errorf(models.ErrArtifactUnavailable, "event store is not configured"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	runID, tail, ok := strings.Cut(rest, "/")
	if !ok || runID == "" || tail != "events" {
		writeError(w, http.StatusNotFound, models.Errorf(models.ErrMalformedRequest, "unknown route %s", r.URL.Path))
		return
	}

	events, err := s.events.GetByRunID(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "load events: %v", err))
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, models.Errorf(models.ErrArtifactUnavailable, "run %q has no recorded events", runID))
		return
	}
	writeJSON(w, http.StatusOK, observability.BuildTimeline(events))
}

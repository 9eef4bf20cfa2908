package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/quarry/pkg/models"
)

// handleExtract runs a batch extraction. Per-document failures come back
// inside the 200 response; only a request that never fans out fails the
// call as a whole.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	var req models.ExtractionRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "decode request: %v", err))
		return
	}

	res, err := s.batcher.Run(r.Context(), req)
	if err != nil {
		var info *models.ErrorInfo
		switch {
		case errors.As(err, &info) && info.Kind == models.ErrMalformedRequest:
			writeError(w, http.StatusBadRequest, info)
		case errors.As(err, &info):
			writeError(w, http.StatusInternalServerError, info)
		default:
			writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "start batch: %v", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/quarry/internal/fewshot"
	"github.com/haasonsaas/quarry/pkg/models"
)

type fewShotListResponse struct {
	Examples []fewshot.Example `json:"examples"`
	Total    int               `json:"total"`
}

// handleFewShots lists registered examples on GET and registers one on
// POST. Requests referencing an example by name resolve against this
// registry.
func (s *Server) handleFewShots(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, models.Errorf(models.ErrArtifactUnavailable, "few-shot registry is not configured"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listFewShots(w, r)
	case http.MethodPost:
		s.putFewShot(w, r)
	}
}

func (s *Server) listFewShots(w http.ResponseWriter, r *http.Request) {
	examples, err := s.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "list examples: %v", err))
		return
	}
	if examples == nil {
		examples = []fewshot.Example{}
	}
	writeJSON(w, http.StatusOK, fewShotListResponse{Examples: examples, Total: len(examples)})
}

func (s *Server) putFewShot(w http.ResponseWriter, r *http.Request) {
	var example fewshot.Example
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&example); err != nil {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "decode example: %v", err))
		return
	}

	if err := s.registry.Put(r.Context(), example); err != nil {
		var info *models.ErrorInfo
		if errors.As(err, &info) && info.Kind == models.ErrMalformedRequest {
			writeError(w, http.StatusBadRequest, info)
			return
		}
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "store example: %v", err))
		return
	}

	stored, err := s.registry.Get(r.Context(), example.Name)
	if err != nil {
		// Registered but unreadable; report the registration anyway.
		stored = example
	}
	writeJSON(w, http.StatusCreated, stored)
}

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/haasonsaas/quarry/internal/store"
	"github.com/haasonsaas/quarry/pkg/models"
)

type uploadGrantRequest struct {
	FileName string `json:"file_name"`
}

type uploadGrantResponse struct {
	Post *models.UploadGrant `json:"post"`
}

// handleUploadGrant issues a time-limited grant for uploading one document.
// The grant's key field is the artifact reference callers pass to /extract.
func (s *Server) handleUploadGrant(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	var req uploadGrantRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "decode request: %v", err))
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "file_name is required"))
		return
	}

	grant, err := s.store.PresignUpload(r.Context(), req.FileName, s.cfg.Store.GrantTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "issue upload grant: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, uploadGrantResponse{Post: grant})
}

// handleUpload accepts the multipart form POST named by a local grant. It
// mirrors the S3 form-POST contract: the form's key field addresses the
// object, the file field carries the bytes, and success is a bare 204.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "parse multipart form: %v", err))
		return
	}
	key := r.FormValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "form field key is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "form field file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = store.ContentTypeFor(key)
	}
	if err := s.store.Put(r.Context(), key, file, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "store upload: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleArtifact streams a stored object back to the caller.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if key == "" {
		writeError(w, http.StatusBadRequest, models.Errorf(models.ErrMalformedRequest, "artifact key is required"))
		return
	}

	rc, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, models.Errorf(models.ErrArtifactUnavailable, "artifact %q not found", key))
			return
		}
		writeError(w, http.StatusInternalServerError, models.Errorf(models.ErrArtifactUnavailable, "fetch artifact %q: %v", key, err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", store.ContentTypeFor(key))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

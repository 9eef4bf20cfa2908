package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/quarry/pkg/models"
)

// errorResponse is the envelope for every non-panic error the API returns.
type errorResponse struct {
	Error *models.ErrorInfo `json:"error"`
}

// writeJSON writes a JSON response. Encoding failures after the header is
// out cannot be reported to the client, so they are swallowed.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return
	}
}

func writeError(w http.ResponseWriter, status int, info *models.ErrorInfo) {
	writeJSON(w, status, errorResponse{Error: info})
}

// methodNotAllowed rejects requests whose method is not in allowed. It
// returns true when the request was rejected.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	for _, m := range allowed {
		if r.Method == m {
			return false
		}
	}
	writeError(w, http.StatusMethodNotAllowed, models.Errorf(models.ErrMalformedRequest, "method %s not allowed", r.Method))
	return true
}

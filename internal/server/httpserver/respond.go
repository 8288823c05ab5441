package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/logging"
)

// envelope is the response body shape shared by every endpoint.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, message string, extra envelope) {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError renders err as {success:false, message}. Only AppError messages
// reach the client; anything else is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, envelope{"success": false, "message": appErr.Message})
		return
	}

	logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, envelope{"success": false, "message": "Internal Server Error"})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return common.BadRequest("Invalid request body")
	}
	return nil
}

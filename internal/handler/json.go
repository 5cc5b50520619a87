package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeFailure sends the failure envelope. Failures always answer HTTP 200:
// existing clients key off the success field, never the status code.
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"err":     err.Error(),
	})
}

// readJSON decodes the request body into the given destination.
func readJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

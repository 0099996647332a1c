// Package web holds the JSON request/response helpers shared by handlers.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell-app/backend/internal/apierr"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes err as a single-line {"error": "..."} response, mapping it
// through the apierr taxonomy for the status code.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierr.From(err)
	JSON(w, apiErr.Status, map[string]string{"error": apiErr.Message})
}

// Decode parses the request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Validation("invalid request body")
	}
	return nil
}

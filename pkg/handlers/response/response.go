// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/rs/zerolog"
)

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

// Error writes the error envelope. detail is dropped when empty.
func Error(w http.ResponseWriter, r *http.Request, status int, message, detail string) {
	JSON(w, r, status, api.ErrorResponse{
		Status:  api.StatusError,
		Message: message,
		Error:   detail,
	})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusNotFound, "Route not found", "")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusMethodNotAllowed, "Method not allowed", "")
}

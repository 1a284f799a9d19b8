package web

// errors.go provides unified error response handling for the web layer.
// Technical detail is logged server-side with the request ID; clients get
// a sanitized JSON message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/seisops/db2qml/internal/convert"
	"github.com/seisops/db2qml/internal/db"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs the technical error and writes the JSON response with
// a status derived from the error class.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, status, msg)
}

// classify maps converter and reader errors onto HTTP statuses and
// client-safe messages.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, convert.ErrNoRecords):
		return http.StatusNotFound, "no records for event"
	default:
		return http.StatusInternalServerError, "conversion failed"
	}
}

func respondErrorJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// respondJSON encodes v as JSON. Encoding errors are logged since headers
// are already sent.
func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// streamHeaders describe a media body and must not leak onto an error response.
var streamHeaders = []string{"Content-Length", "Content-Range", "Accept-Ranges", "Content-Disposition"}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes data as an uncacheable JSON response.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// Error writes the JSON error envelope tagged with the request id.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	clearStreamHeaders(w)
	JSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// Text writes a bare status response, for clients that only look at the status line.
func Text(w http.ResponseWriter, status int) {
	clearStreamHeaders(w)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, http.StatusText(status), status)
}

func clearStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	for _, k := range streamHeaders {
		h.Del(k)
	}
}

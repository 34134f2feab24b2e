package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/common"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// statusForError maps the shared error classes onto HTTP status codes and
// machine-readable codes.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, common.ErrUnavailable):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeServiceError writes err with the status of its class. Internal errors
// are logged and masked.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		WriteErrorWithCode(w, status, "Internal server error", code)
		return
	}
	WriteErrorWithCode(w, status, err.Error(), code)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For /api/investments/{id}, PathParam(r, "/api/investments/", "") returns {id}.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

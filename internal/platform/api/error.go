package api

import (
	"net/http"
	"time"
)

// DeveloperMessage marks failures that carry a deliberate HTTP status
// (domain errors and request validation).
const DeveloperMessage = "A ResponseStatusException Happened"

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Timestamp        time.Time `json:"timestamp"`
	Path             string    `json:"path"`
	Status           int       `json:"status"`
	Error            string    `json:"error"`
	Message          string    `json:"message,omitempty"`
	RequestID        string    `json:"requestId,omitempty"`
	DeveloperMessage string    `json:"developerMessage,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, message, path, requestID, developerMessage string) {
	WriteJSON(w, status, ErrorResponse{
		Timestamp:        time.Now().UTC(),
		Path:             path,
		Status:           status,
		Error:            http.StatusText(status),
		Message:          message,
		RequestID:        requestID,
		DeveloperMessage: developerMessage,
	})
}

// Convenience helpers
func BadRequest(w http.ResponseWriter, message, path, requestID string) {
	WriteError(w, http.StatusBadRequest, message, path, requestID, DeveloperMessage)
}

func NotFound(w http.ResponseWriter, message, path, requestID string) {
	WriteError(w, http.StatusNotFound, message, path, requestID, DeveloperMessage)
}

func Unauthorized(w http.ResponseWriter, realm, path, requestID string) {
	if realm != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	}
	WriteError(w, http.StatusUnauthorized, "authentication required", path, requestID, "")
}

func Forbidden(w http.ResponseWriter, path, requestID string) {
	WriteError(w, http.StatusForbidden, "access denied", path, requestID, "")
}

func RateLimited(w http.ResponseWriter, path, requestID string) {
	WriteError(w, http.StatusTooManyRequests, "too many requests", path, requestID, "")
}

func Internal(w http.ResponseWriter, path, requestID string) {
	WriteError(w, http.StatusInternalServerError, "internal server error", path, requestID, "")
}

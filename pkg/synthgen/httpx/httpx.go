// Package httpx holds the JSON response helpers shared by synthgen HTTP
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// HandlerFunc is a function that handles HTTP requests and may return an error
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap converts a HandlerFunc to an http.HandlerFunc, answering returned
// errors with the status from Status.
func Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			Error(w, Status(err), err.Error())
		}
	}
}

// Status maps synthgen errors to HTTP status codes.
func Status(err error) int {
	switch {
	case errors.Is(err, synthgen.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, synthgen.ErrUnsupportedKind):
		return http.StatusNotFound
	case errors.Is(err, synthgen.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, synthgen.ErrStorage), errors.Is(err, synthgen.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response with the given status code and message
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

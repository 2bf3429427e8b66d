// Package apierr writes JSON responses for the /api handlers.
package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/inputval"
	"go.uber.org/zap"
)

// Body is the error envelope.
type Body struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write sends an error envelope.
func Write(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Body{Error: msg})
}

// WriteExtra sends an error envelope with additional string values.
func WriteExtra(w http.ResponseWriter, status int, msg string, extra map[string]string) {
	JSON(w, status, Body{Error: msg, Extra: extra})
}

// Invalid sends 422 with per-field messages.
func Invalid(w http.ResponseWriter, errs inputval.Errors) {
	JSON(w, http.StatusUnprocessableEntity, Body{Error: "validation failed", Fields: errs})
}

// BadJSON sends 400 for an undecodable body.
func BadJSON(w http.ResponseWriter) {
	Write(w, http.StatusBadRequest, "request body must be valid JSON")
}

// Internal logs err and sends a generic 500. Details never reach the client.
func Internal(w http.ResponseWriter, r *http.Request, logger *zap.Logger, msg string, err error) {
	logger.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	Write(w, http.StatusInternalServerError, "something went wrong; please try again")
}

// Decode reads a JSON body into v and validates it. It writes the error
// response itself and returns false when the caller should stop.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		BadJSON(w)
		return false
	}
	if err := inputval.Struct(v); err != nil {
		if fields, ok := err.(inputval.Errors); ok {
			Invalid(w, fields)
			return false
		}
		Write(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

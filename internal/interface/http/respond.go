package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
)

// JSON writes data with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// ErrorStatus maps a use case error to an HTTP status and a stable kind
func ErrorStatus(err error) (int, string) {
	var ve *workflow.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation"
	case workflow.IsTransitionError(err):
		return http.StatusConflict, "transition"
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// Error writes err using ErrorStatus. Internal errors are not echoed to the client.
func Error(w http.ResponseWriter, err error) {
	status, kind := ErrorStatus(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind}
	var ve *workflow.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	JSON(w, status, resp)
}

// BadRequest writes a 400 with msg
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: "bad_request"})
}

// decode reads one JSON object from the request body
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if dec.More() {
		BadRequest(w, "invalid JSON (extra content)")
		return false
	}
	return true
}

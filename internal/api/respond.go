package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps the engine's error taxonomy to an HTTP status.
func classify(err error) (int, string) {
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperr.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case apperr.IsInvalidState(err):
		return http.StatusConflict, "invalid_state"
	case apperr.IsConflict(err):
		return http.StatusConflict, "conflict"
	case apperr.IsConfiguration(err):
		return http.StatusInternalServerError, "configuration"
	case errors.Is(err, apperr.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	body := errorBody{Error: err.Error(), Kind: kind}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if kind == "internal" {
			body.Error = http.StatusText(status)
		}
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v and runs its validate tags. Numbers in
// untyped fields stay json.Number so answers keep their exact text.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "request body is empty")
		}
		return &apperr.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err), Err: err}
	}
	if dec.More() {
		return apperr.Invalid("body", "request body must hold a single JSON object")
	}
	return apperr.ValidateStruct(v)
}

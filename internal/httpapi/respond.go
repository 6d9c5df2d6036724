package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"vinoclub/internal/apperr"
	"vinoclub/internal/payments"
	"vinoclub/shared/go/logging"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type processorErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Code  string `json:"code,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps a service error to its response. Unexpected errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var procErr *payments.ProcessorError
	if errors.As(err, &procErr) {
		status := procErr.Status
		if status < 400 {
			status = http.StatusInternalServerError
		}
		logging.FromContext(r.Context()).Warn().Err(err).Str("type", procErr.Type).Msg("payment processor error")
		writeJSON(w, status, processorErrorResponse{Error: procErr.Message, Type: procErr.Type, Code: procErr.Code})
		return
	}

	status, msg := apperrStatus(r, err)
	writeJSON(w, status, errorResponse{Error: msg})
}

func apperrStatus(r *http.Request, err error) (int, string) {
	status, msg := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	return status, msg
}

// decodeJSON reads the request body into dst. An empty body leaves dst unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON payload"})
		return false
	}
	return true
}

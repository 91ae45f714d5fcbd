// Package httpjson holds the JSON request and response helpers shared by the
// API handlers.
package httpjson

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/anhkiet307/swapstation/core/logger"
)

const bodyLimit = 1 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ReqID returns the chi request id or "-".
func ReqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

// Write encodes v with the given status.
func Write(w http.ResponseWriter, r *http.Request, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil && log != nil {
		log.Errorf("req_id=%s json encode error: %v", ReqID(r.Context()), err)
	}
}

// Error writes an ErrorResponse.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, status int, code, msg string) {
	if log != nil {
		log.Warnf("req_id=%s http_error status=%d code=%s msg=%q", ReqID(r.Context()), status, code, msg)
	}
	Write(w, r, log, status, ErrorResponse{Error: msg, Code: code})
}

// Decode reads one JSON document into dst and rejects unknown fields and
// trailing data. It writes a 400 and returns false on failure.
func Decode[T any](w http.ResponseWriter, r *http.Request, log logger.Logger, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		Error(w, r, log, http.StatusBadRequest, "invalid_json", "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); !errors.Is(err, io.EOF) {
		Error(w, r, log, http.StatusBadRequest, "invalid_json", "invalid json: trailing data")
		return false
	}
	return true
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

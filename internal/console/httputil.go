package console

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/activity"
	"github.com/matthewbaird/abiconsole/internal/emit"
	"github.com/matthewbaird/abiconsole/internal/invoke"
)

// maxBodyBytes bounds uploaded interface descriptions and invoke bodies.
const maxBodyBytes = 8 << 20

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseHistoryQuery extracts journal filters from query params.
func parseHistoryQuery(r *http.Request, op string) (activity.QueryOptions, error) {
	q := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	opts.Operation = op
	opts.Outcome = q.Get("outcome")
	opts.Cursor = q.Get("cursor")
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("limit must be an integer")
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("since must be an RFC 3339 timestamp")
		}
		opts.Since = &t
	}
	return opts, nil
}

// errorStatus maps engine and load errors to an HTTP status and code.
func errorStatus(err error) (int, string) {
	var se *abi.SchemaError
	if errors.As(err, &se) {
		return http.StatusBadRequest, strings.ToUpper(string(se.Code))
	}
	if errors.Is(err, emit.ErrNoSchema) {
		return http.StatusNotFound, "NO_SCHEMA"
	}
	if errors.Is(err, errBadSelector) {
		return http.StatusBadRequest, "INVALID_QUERY"
	}

	code := invoke.ErrorCode(err)
	var ae *invoke.ArgumentError
	var ie *invoke.InvocationError
	switch {
	case errors.As(err, &ae):
		return http.StatusUnprocessableEntity, code
	case errors.Is(err, invoke.ErrUnknownOperation):
		return http.StatusNotFound, code
	case errors.Is(err, invoke.ErrUnknownField):
		return http.StatusBadRequest, code
	case errors.Is(err, invoke.ErrEndpointUnavailable):
		return http.StatusServiceUnavailable, code
	case errors.As(err, &ie):
		return http.StatusBadGateway, code
	}
	return http.StatusInternalServerError, code
}

func errorData(err error) *ErrorData {
	_, code := errorStatus(err)
	return &ErrorData{Code: code, Message: err.Error()}
}

package notesapp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/notes"
	"github.com/notesapp/notesd/pkg/store"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeBadRequest       = "BAD_REQUEST"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeReadOnly         = "READ_ONLY"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

const (
	msgConflict   = "The note was modified by another user. Please refresh and try again."
	msgValidation = "Validation failed"
	msgReadOnly   = "The application is in read-only maintenance mode. Please try again later."
	msgInternal   = "An unexpected error occurred"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// badRequestError marks malformed input: unreadable JSON, bad IDs or headers.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

// routeError is used for requests that match no handler.
type routeError struct {
	status int
	code   string
	msg    string
}

func (e *routeError) Error() string { return e.msg }

// classify maps err onto a status code and response body.
func classify(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Timestamp: time.Now().UTC()}

	var (
		nf    *notes.NotFoundError
		ce    *notes.ConflictError
		ve    *notes.ValidationError
		fe    models.FieldErrors
		br    *badRequestError
		big   *http.MaxBytesError
		route *routeError
	)
	switch {
	case errors.As(err, &ve):
		resp.Code, resp.Message, resp.FieldErrors = CodeValidation, msgValidation, ve.Fields
		return http.StatusBadRequest, resp
	case errors.As(err, &fe):
		resp.Code, resp.Message, resp.FieldErrors = CodeValidation, msgValidation, fe
		return http.StatusBadRequest, resp
	case errors.As(err, &nf):
		resp.Code, resp.Message = CodeNotFound, nf.Error()
		return http.StatusNotFound, resp
	case errors.Is(err, store.ErrNotFound):
		resp.Code, resp.Message = CodeNotFound, "Note not found"
		return http.StatusNotFound, resp
	case errors.As(err, &ce), errors.Is(err, store.ErrConflict):
		resp.Code, resp.Message = CodeConflict, msgConflict
		return http.StatusConflict, resp
	case errors.Is(err, store.ErrReadOnly):
		resp.Code, resp.Message = CodeReadOnly, msgReadOnly
		return http.StatusServiceUnavailable, resp
	case errors.As(err, &big):
		resp.Code = CodePayloadTooLarge
		resp.Message = "Request body exceeds " + strconv.FormatInt(big.Limit, 10) + " bytes"
		return http.StatusRequestEntityTooLarge, resp
	case errors.As(err, &br):
		resp.Code, resp.Message = CodeBadRequest, br.Error()
		return http.StatusBadRequest, resp
	case errors.As(err, &route):
		resp.Code, resp.Message = route.code, route.msg
		return route.status, resp
	default:
		resp.Code, resp.Message = CodeInternal, msgInternal
		return http.StatusInternalServerError, resp
	}
}

// writeError is the single place where failures become HTTP responses.
// Internal errors are logged with their detail; the client only sees a
// generic message.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)

	ev := a.log.Debug()
	if status >= http.StatusInternalServerError && resp.Code != CodeReadOnly {
		ev = a.log.Error()
	}
	ev.Err(err).
		Str("request_id", requestIDFrom(r.Context())).
		Str("code", resp.Code).
		Int("status", status).
		Msg("request failed")

	a.metrics.errorsTotal.WithLabelValues(resp.Code).Inc()
	respondJSON(w, status, resp)
}

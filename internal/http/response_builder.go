// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the mapping from domain error kinds to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

// MessageBody is the shape of every error and acknowledgement response.
type MessageBody struct {
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(MessageBody{Message: msg})
}

// Write encodes the body before touching the ResponseWriter so an encoding
// failure can still produce a clean 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload, err := json.Marshal(b.body)
	if err != nil {
		payload = []byte(`{"message":"Server error"}`)
		b.statusCode = http.StatusInternalServerError
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// MessageResponse creates a {"message": ...} response with the given status.
func MessageResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return MessageResponse(http.StatusBadRequest, message)
}

// StatusForError maps a domain error to its HTTP status.
func StatusForError(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation, core.KindConflict:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse renders err with its mapped status and caller-facing message.
func ErrorResponse(err error) *JSONResponseBuilder {
	return MessageResponse(StatusForError(err), core.MessageOf(err))
}

// writeError logs server failures and writes err. Client errors are logged
// at debug only.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorResponse(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if resp.statusCode >= http.StatusInternalServerError {
		var domainErr *core.Error
		errorType := "untyped"
		if errors.As(err, &domainErr) {
			errorType = domainErr.Kind.String()
		}
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err.Error(),
			log.FieldErrorType, errorType,
			log.FieldPath, r.URL.Path,
		)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, resp.statusCode,
			log.FieldError, core.MessageOf(err),
		)
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	MessageResponse(status, msg).Write(w)
}

// Package errors defines the sentinel errors shared across docsearch, an
// AppError type that carries an HTTP status, and the JSON error body written
// by every HTTP handler.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
	ErrUnavailable      = errors.New("service unavailable")
)

// Error codes used in Response bodies.
const (
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidDocument  = "INVALID_DOCUMENT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTimeout          = "TIMEOUT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// DocumentNotFound returns an error for a document id that could not be
// resolved for the given owner.
func DocumentNotFound(id int64) *AppError {
	return Newf(ErrDocumentNotFound, http.StatusNotFound, "document not found with id=%d", id)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the Response code matching err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return CodeDocumentNotFound
	case errors.Is(err, ErrInvalidDocument):
		return CodeInvalidDocument
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Response is the JSON body of every error reply.
type Response struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes a Response with the given status. Internal errors never
// leak their message to the client.
func WriteJSON(w http.ResponseWriter, status int, code, message string) {
	if code == CodeInternal {
		message = "unexpected error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Write maps err to a status and code and writes the Response.
func Write(w http.ResponseWriter, err error) {
	WriteJSON(w, HTTPStatusCode(err), Code(err), err.Error())
}

package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// GatewayError is any failure reported by (or while reaching) an upstream service.
// StatusCode is 0 for pure transport failures.
type GatewayError struct {
	StatusCode int
	Message    string
}

func NewGatewayError(statusCode int, message string) *GatewayError {
	if message == "" {
		message = "operation failed" // generic fallback; never surface an empty reason
	}
	return &GatewayError{StatusCode: statusCode, Message: message}
}

func (err *GatewayError) Error() string { return err.Message }

func (err *GatewayError) Timeout() bool {
	return err.StatusCode == http.StatusRequestTimeout || err.StatusCode == http.StatusGatewayTimeout
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

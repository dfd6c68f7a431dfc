package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// CodeTransient marks timeouts and rate-limit style failures that are
	// safe to retry with backoff.
	CodeTransient Code = "TRANSIENT"
	// CodeConfiguration marks bad credentials or endpoints; never retried.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeContentRejected means the safety gate blocked input or output, or
	// safety could not be verified at all (fail-closed).
	CodeContentRejected Code = "CONTENT_REJECTED"
	// CodeScriptFormat marks generation output that could not be parsed.
	CodeScriptFormat Code = "SCRIPT_FORMAT"
	// CodeScriptTooShort marks truncated generation output.
	CodeScriptTooShort Code = "SCRIPT_TOO_SHORT"
	// CodeTTSProvider marks synthesis failure after retries and fallback.
	CodeTTSProvider Code = "TTS_PROVIDER"
	// CodeCancelled marks a cooperative cancellation between stages.
	CodeCancelled Code = "CANCELLED"

	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

// AppError is the unified error contract across layers.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "ScriptGenerator.Generate"
	Message string // safe message
	Err     error  // wrapped error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf extracts the classification of an error; unknown errors are INTERNAL.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsTransient reports whether the error may be retried with backoff.
func IsTransient(err error) bool {
	return IsCode(err, CodeTransient)
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeContentRejected:
			return http.StatusUnprocessableEntity
		case CodeTransient:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Backward-compatible sentinel errors
var (
	ErrNotFound = errors.New("not found")
)

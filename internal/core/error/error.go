package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Kind classifies an AppError for propagation decisions.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindSecurityRejection   Kind = "security_rejection"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal"
)

// AppError wraps an underlying error with a kind, an HTTP-ish status and a
// safe message. Message is the only part that may reach an end user.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation reports input that has a disallowed shape or is missing a field.
func Validation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Err: err, Status: http.StatusBadRequest, Message: message}
}

// NotFound reports an empty result or missing record.
func NotFound(message string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Err: err, Status: http.StatusNotFound, Message: message}
}

// Security reports input rejected by a safety gate.
func Security(message string, err error) *AppError {
	return &AppError{Kind: KindSecurityRejection, Err: err, Status: http.StatusForbidden, Message: message}
}

// Upstream reports an unavailable external provider. Callers are expected to
// recover from it locally.
func Upstream(message string, err error) *AppError {
	return &AppError{Kind: KindUpstreamUnavailable, Err: err, Status: http.StatusBadGateway, Message: message}
}

// Internal reports an unexpected fault. The message stays generic.
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Err: err, Status: http.StatusInternalServerError, Message: SystemErrorMessage}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// SafeMessage returns text that can be shown to an end user. Only AppError
// messages are trusted; anything else collapses to fallback.
func SafeMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, caller-visible reason string. Callers key behavior
// off Kind, never off Detail or a stack trace.
type ErrorKind string

const (
	ErrInvalidUrl           ErrorKind = "InvalidUrl"
	ErrInvalidItem          ErrorKind = "InvalidItem"
	ErrWrongApplication     ErrorKind = "WrongApplication"
	ErrCapacityExhausted    ErrorKind = "CapacityExhausted"
	ErrSecondFactorRequired ErrorKind = "SecondFactorRequired"
	ErrAccessDenied         ErrorKind = "AccessDenied"
	ErrNotFound             ErrorKind = "NotFound"
	ErrTimeout              ErrorKind = "Timeout"
	ErrNoContent            ErrorKind = "NoContent"
	ErrArchiveTooSmall      ErrorKind = "ArchiveTooSmall"
	ErrTransientFailure     ErrorKind = "TransientFailure"
	ErrRangeNotSatisfiable  ErrorKind = "RangeNotSatisfiable"
	ErrCancelled            ErrorKind = "Cancelled"
	ErrInternal             ErrorKind = "Internal"
)

// Retryable reports whether an Adapter outcome of this kind should be
// retried by the caller rather than propagated immediately (§4.1, §4.4).
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTransientFailure, ErrTimeout:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a stable kind to the status code used at the API surface
// when the kind is surfaced synchronously (Submit-time failures). Job-time
// failures never reach this: they are recorded as Job.LastError instead.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrInvalidUrl, ErrInvalidItem, ErrWrongApplication:
		return 400
	case ErrCapacityExhausted:
		return 429
	case ErrAccessDenied:
		return 403
	case ErrNotFound:
		return 404
	case ErrRangeNotSatisfiable:
		return 416
	default:
		return 500
	}
}

// AppError wraps a stable Kind with free-form detail and an optional cause.
// Leaf components raise these; the Orchestrator records Kind as
// Job.LastError and never leaks Detail or Cause to callers (§7). Data
// carries the small set of structured fields a handful of kinds require
// alongside the message, e.g. CapacityExhausted's current/max occupancy.
type AppError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
	Data   map[string]interface{}
}

func NewAppError(kind ErrorKind, detail string) *AppError {
	return &AppError{Kind: kind, Detail: detail}
}

func WrapAppError(kind ErrorKind, detail string, cause error) *AppError {
	return &AppError{Kind: kind, Detail: detail, Cause: cause}
}

// NewAppErrorWithData is NewAppError plus a structured payload the API
// surface should echo back alongside kind and message.
func NewAppErrorWithData(kind ErrorKind, detail string, data map[string]interface{}) *AppError {
	return &AppError{Kind: kind, Detail: detail, Data: data}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Cause }

// KindOf extracts the stable ErrorKind from any error, defaulting to
// ErrInternal for errors that were never classified.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}

// DataOf extracts the structured payload from a classified error, if any.
func DataOf(err error) map[string]interface{} {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Data
	}
	return nil
}

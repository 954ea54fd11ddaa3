package lib

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindValidation
	KindConfiguration
	KindBackend
	KindUnprocessable
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindBackend:
		return "backend"
	case KindUnprocessable:
		return "unprocessable"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is what every Service operation fails with. Message is safe to show
// to the caller; Err is the cause and is only logged.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError converts any error into an *Error, treating unknown errors as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal(err)
}

func unauthorized(err error) *Error {
	return &Error{KindUnauthorized, http.StatusUnauthorized, "Unauthorized", err}
}

func validation(msg string) *Error {
	return &Error{KindValidation, http.StatusBadRequest, msg, nil}
}

func misconfigured(err error) *Error {
	return &Error{KindConfiguration, http.StatusInternalServerError, "Server configuration error", err}
}

func internal(err error) *Error {
	return &Error{KindInternal, http.StatusInternalServerError, "Internal server error", err}
}

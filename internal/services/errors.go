package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable class of a failed operation.
type ErrorKind string

const (
	KindUnauthenticated    ErrorKind = "Unauthenticated"
	KindForbidden          ErrorKind = "Forbidden"
	KindNotFound           ErrorKind = "NotFound"
	KindPreconditionFailed ErrorKind = "PreconditionFailed"
	KindSignatureInvalid   ErrorKind = "SignatureInvalid"
	KindGateway            ErrorKind = "GatewayError"
	KindStore              ErrorKind = "StoreError"
	KindInvalidArgument    ErrorKind = "InvalidArgument"
	KindInternal           ErrorKind = "InternalError"
)

// Error is returned by every service operation. Nothing is retried internally;
// Retryable tells the caller whether re-issuing the same request is safe.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Retryable() bool {
	return e.Kind == KindGateway || e.Kind == KindStore
}

func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusConflict
	case KindSignatureInvalid, KindInvalidArgument:
		return http.StatusBadRequest
	case KindGateway:
		return http.StatusBadGateway
	case KindStore:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func unauthenticated() *Error {
	return newError(KindUnauthenticated, "authentication required", nil)
}

func forbidden(message string) *Error {
	return newError(KindForbidden, message, nil)
}

func notFound(message string) *Error {
	return newError(KindNotFound, message, nil)
}

func preconditionFailed(message string) *Error {
	return newError(KindPreconditionFailed, message, nil)
}

func storeError(message string, err error) *Error {
	return newError(KindStore, message, err)
}

func internalError(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

// KindOf extracts the kind of err, or "" if err is not a service error.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

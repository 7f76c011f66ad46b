package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers of the draft lifecycle.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStateConflict Kind = "state_conflict"
	KindRemote        Kind = "remote"
	KindUnexpected    Kind = "unexpected"
)

// RemoteKind subdivides failures reported by the mail or completion service.
type RemoteKind string

const (
	RemoteUnauthorized    RemoteKind = "unauthorized"
	RemoteForbidden       RemoteKind = "forbidden"
	RemoteNotFound        RemoteKind = "remote_not_found"
	RemoteClientError     RemoteKind = "client_error"
	RemoteTransientServer RemoteKind = "transient_server_error"
)

// Error is a local failure tagged with its Kind.
type Error struct {
	Kind    Kind
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

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// RemoteError is a failure returned by an external service. StatusCode is
// zero when the call never produced an HTTP status (transport, timeout).
type RemoteError struct {
	Service    string
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Service, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// RemoteKind maps the HTTP status onto the remote failure taxonomy.
func (e *RemoteError) RemoteKind() RemoteKind {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return RemoteUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return RemoteForbidden
	case e.StatusCode == http.StatusNotFound:
		return RemoteNotFound
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return RemoteClientError
	default:
		return RemoteTransientServer
	}
}

// IsClientError reports whether the remote rejected the request permanently.
func (e *RemoteError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// NewRemoteError builds a RemoteError with the standard message for the status.
func NewRemoteError(service string, statusCode int, operation string, body string, err error) *RemoteError {
	message := "failed to " + operation
	switch statusCode {
	case http.StatusUnauthorized:
		message = service + " authentication failed, please reconnect your account"
	case http.StatusForbidden:
		message = service + " access forbidden, please check your permissions"
	case http.StatusNotFound:
		message = operation + ": resource not found"
	}
	return &RemoteError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
		Err:        err,
	}
}

// KindOf returns the Kind of err, or KindUnexpected for untagged errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return KindRemote
	}
	return KindUnexpected
}

// Detail returns the most specific discriminant for err: the remote subkind
// for remote failures, the Kind otherwise.
func Detail(err error) string {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return string(remoteErr.RemoteKind())
		}
	}
	return string(KindOf(err))
}

// HTTPStatus maps err onto the status code reported to the request layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindValidation, KindStateConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsRemoteNotFound reports whether err is a remote 404.
func IsRemoteNotFound(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusNotFound
}

package wire

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a fabric error carrying the HTTP status it should surface as.
// context.Call unwraps an error body shaped {status, message} from a remote
// service and re-raises one of these, so a cross-service failure keeps its
// original classification all the way back to the original caller.
type Error struct {
	Status  int
	Kind    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(status int, kind, format string, args ...any) *Error {
	return &Error{Status: status, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports bad input: empty name, invalid characters, invalid URL,
// missing required header. Never retried.
func Validation(format string, args ...any) *Error {
	return newErr(http.StatusBadRequest, "ValidationError", format, args...)
}

// Auth reports a missing or invalid user token or registry token.
func Auth(status int, format string, args ...any) *Error {
	return newErr(status, "AuthError", format, args...)
}

// NotFound reports no such service, route, or subscription. Callers may
// retry after refreshing their cache.
func NotFound(format string, args ...any) *Error {
	return newErr(http.StatusNotFound, "NotFoundError", format, args...)
}

// Unavailable reports a transient lookup or reach failure: registry down,
// auth service down, target down. Context.Call does not retry it; the only
// retried outbound call is the service-setup request made during Register,
// which retries any failure with linear backoff.
func Unavailable(format string, args ...any) *Error {
	return newErr(http.StatusServiceUnavailable, "UnavailableError", format, args...)
}

// Proxy reports an upstream failure during proxying.
func Proxy(format string, args ...any) *Error {
	return newErr(http.StatusBadGateway, "ProxyError", format, args...)
}

// Timeout reports an outbound call exceeding its deadline. Like Unavailable,
// it is not retried by Context.Call.
func Timeout(format string, args ...any) *Error {
	return newErr(http.StatusRequestTimeout, "TimeoutError", format, args...)
}

// Internal reports everything else. Diagnostic detail is only emitted in
// non-production environments: WriteError replaces an Internal error's
// message with "internal error" when its production flag is set.
func Internal(cause error, format string, args ...any) *Error {
	e := newErr(http.StatusInternalServerError, "InternalError", format, args...)
	e.cause = cause
	return e
}

// StatusOf returns the HTTP status an error should surface as, defaulting to
// 500 for errors that never opted into the taxonomy.
func StatusOf(err error) int {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Status
	}
	return http.StatusInternalServerError
}

// errorBody is the wire shape of an Error, used both when writing an HTTP
// error response and when a caller in context.Call needs to rebuild one.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
}

// WriteError writes err to w as a JSON {status, message, error} body and
// returns the status code it chose. In production, Internal error messages
// are redacted to avoid leaking framework internals to external clients.
func WriteError(w http.ResponseWriter, err error, production bool) int {
	status := StatusOf(err)
	msg := err.Error()
	kind := "InternalError"
	var werr *Error
	if errors.As(err, &werr) {
		kind = werr.Kind
		msg = werr.Message
	}
	if production && kind == "InternalError" {
		msg = "internal error"
	}
	body := errorBody{Status: status, Message: msg, Kind: kind, Error: msg}
	_ = JSON(body).WriteTo(w, status)
	return status
}

// ParseErrorBody reconstructs a typed *Error from a remote {status, message}
// JSON body, used by context.Call when unwrapping a failed outbound call so
// the caller's stack names both the caller and the target service.
func ParseErrorBody(status int, message, kind, caller, target string) *Error {
	wrapped := fmt.Sprintf("%s -> %s: %s", caller, target, message)
	if kind == "" {
		kind = kindForStatus(status)
	}
	return newErr(status, kind, "%s", wrapped)
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "AuthError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusServiceUnavailable:
		return "UnavailableError"
	case http.StatusRequestTimeout:
		return "TimeoutError"
	case http.StatusBadGateway:
		return "ProxyError"
	default:
		return "InternalError"
	}
}

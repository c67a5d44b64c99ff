package mautrix

import (
	"fmt"
	"net/http"
)

// RespError is the error body the homeserver sends for any non-2xx response.
// https://spec.matrix.org/v1.11/client-server-api/#standard-error-response
type RespError struct {
	ErrCode string `json:"errcode"`
	Err     string `json:"error"`

	// SoftLogout is set on M_UNKNOWN_TOKEN responses when the access token
	// merely expired and a refresh is expected to fix it, as opposed to the
	// session having been fully revoked.
	SoftLogout bool `json:"soft_logout,omitempty"`

	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

func (e RespError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Err)
}

const (
	ErrCodeUnknownToken = "M_UNKNOWN_TOKEN"
	ErrCodeForbidden    = "M_FORBIDDEN"
	ErrCodeNotFound     = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
)

// HTTPError is returned for any request that either failed at the transport
// level or received a non-2xx response. RespError is populated when the
// homeserver's error body could be parsed.
type HTTPError struct {
	Request  *http.Request
	Response *http.Response

	Message      string
	ResponseBody string

	RespError    *RespError
	WrappedError error
}

func (e HTTPError) Error() string {
	if e.RespError != nil {
		return e.RespError.Error()
	}
	if e.WrappedError != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.WrappedError)
	}
	return e.Message
}

func (e HTTPError) Unwrap() error {
	return e.WrappedError
}

func (e HTTPError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// IsSoftLogout reports whether this error is an M_UNKNOWN_TOKEN response
// with soft_logout set, meaning a token refresh should be attempted before
// giving up on the request that triggered it.
func (e HTTPError) IsSoftLogout() bool {
	return e.RespError != nil && e.RespError.ErrCode == ErrCodeUnknownToken && e.RespError.SoftLogout
}

// IsHardLogout reports whether this error is an M_UNKNOWN_TOKEN response
// without soft_logout, meaning the session has been fully revoked and no
// refresh will fix it.
func (e HTTPError) IsHardLogout() bool {
	return e.RespError != nil && e.RespError.ErrCode == ErrCodeUnknownToken && !e.RespError.SoftLogout
}

// ErrLoginRequired is returned by any Client method that requires an access
// token when the client has none and has no way to obtain one.
var ErrLoginRequired = fmt.Errorf("this operation requires a logged-in session")

// ErrInvalidOperation is returned when a caller asks a component to do
// something its current state can't support, e.g. creating a room with only
// one half of the predecessor room/event id pair set.
type ErrInvalidOperation struct {
	Reason string
}

func (e ErrInvalidOperation) Error() string {
	return "invalid operation: " + e.Reason
}

// Is reports any ErrInvalidOperation as matching, regardless of Reason, so
// callers can do errors.Is(err, mautrix.ErrInvalidOperation{}) without
// caring about the message. state.ErrInvalidOperation and
// timeline.ErrInvalidOperation are separate types with the same pattern
// rather than wrapping this one: both packages are imported by this one, so
// wrapping this sentinel from either would be an import cycle.
func (e ErrInvalidOperation) Is(target error) bool {
	_, ok := target.(ErrInvalidOperation)
	return ok
}

// ErrInternal describes an internal bookkeeping structure (the global
// event-id index, a timeline handle) being asked to resolve an event id it
// has no record of. No function in this package returns it; the timeline
// package reports that condition as timeline.ErrInternal.
var ErrInternal = fmt.Errorf("internal error: event id not present in index")

// errRetryRequested is an internal sentinel: it never escapes past the
// wrapper loop that consumes it, so it doesn't need to be exported or
// support errors.Is machinery.
type errRetryRequested struct {
	after HTTPError
}

func (e errRetryRequested) Error() string {
	return "retry requested after: " + e.after.Error()
}

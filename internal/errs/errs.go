// Package errs defines the coded error taxonomy shared by the capture, live
// and backend layers.
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeDeviceUnavailable means capture could not acquire an audio device.
	CodeDeviceUnavailable Code = "DEVICE_UNAVAILABLE"
	// CodeInvalidStateTransition means a capture operation was called from the wrong state.
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	// CodeTransportDisconnected means the live channel dropped. Recoverable by re-subscribing.
	CodeTransportDisconnected Code = "TRANSPORT_DISCONNECTED"
	// CodeUpstreamUnavailable means a backend call failed.
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	// CodeMalformedFragment means a live fragment was missing required fields.
	CodeMalformedFragment Code = "MALFORMED_FRAGMENT"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrDeviceUnavailable      = &Error{Code: CodeDeviceUnavailable}
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition}
	ErrTransportDisconnected  = &Error{Code: CodeTransportDisconnected}
	ErrUpstreamUnavailable    = &Error{Code: CodeUpstreamUnavailable}
	ErrMalformedFragment      = &Error{Code: CodeMalformedFragment}
)

// Error is the coded error type.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Details   map[string]any
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail sets a single detail key and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// DeviceUnavailable reports that capture cannot start.
func DeviceUnavailable(cause error) *Error {
	return &Error{Code: CodeDeviceUnavailable, Message: "audio device unavailable", Cause: cause}
}

// InvalidTransition reports an illegal capture call. op is the attempted
// operation, from the state it was attempted in.
func InvalidTransition(op, from string) *Error {
	return &Error{
		Code:    CodeInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s while %s", op, from),
		Details: map[string]any{"op": op, "state": from},
	}
}

// TransportDisconnected reports a dropped live channel.
func TransportDisconnected(cause error) *Error {
	return &Error{Code: CodeTransportDisconnected, Message: "live channel disconnected", Retryable: true, Cause: cause}
}

// UpstreamUnavailable reports a failed backend call. status is the HTTP
// status code, or 0 when no response was received.
func UpstreamUnavailable(op string, status int, cause error) *Error {
	e := &Error{
		Code:    CodeUpstreamUnavailable,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
		Details: map[string]any{"op": op},
	}
	if status != 0 {
		e.Message = fmt.Sprintf("%s failed (HTTP %d)", op, status)
		e.Details["status"] = status
	}
	return e
}

// MalformedFragment reports a live fragment that cannot be merged.
func MalformedFragment(reason string) *Error {
	return &Error{Code: CodeMalformedFragment, Message: reason}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

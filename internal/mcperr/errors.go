// Package mcperr defines the error kinds raised across relaymcp's
// transports and their propagation policy.
package mcperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the proxy distinguishes
// when deciding whether to drop a frame, tear down a Session, or fail
// startup.
type Kind string

const (
	// MalformedFrame means the raw bytes of a frame could not be
	// parsed as JSON at all.
	MalformedFrame Kind = "malformed_frame"
	// SchemaViolation means the frame parsed as JSON but violates the
	// JSON-RPC 2.0 discriminant rules (wrong jsonrpc value, both
	// result and error present, disallowed id type).
	SchemaViolation Kind = "schema_violation"
	// SpawnFailed means a child process could not be started.
	SpawnFailed Kind = "spawn_failed"
	// TransportClosed means a transport ended, gracefully or not.
	TransportClosed Kind = "transport_closed"
	// UpstreamHTTPError means a remote HTTP endpoint returned an
	// unexpected status or malformed response.
	UpstreamHTTPError Kind = "upstream_http_error"
	// RouteNotFound means no router table entry matched a request path.
	RouteNotFound Kind = "route_not_found"
	// ConfigInvalid means startup configuration failed validation.
	ConfigInvalid Kind = "config_invalid"
	// BindFailed means the HTTP listener could not bind its address.
	BindFailed Kind = "bind_failed"
	// Cancelled means an operation ended because of a shutdown signal
	// or context cancellation, not because of a genuine failure.
	Cancelled Kind = "cancelled"
)

// Error is a typed error carrying a Kind plus whatever underlying
// cause produced it. Callers check the Kind with errors.As, not by
// string-matching Error().
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, mcperr.New(mcperr.SpawnFailed, "", nil)) style checks
// as well as direct Kind comparisons via errors.As.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs an *Error of the given Kind.
func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Wrap is a convenience for New(kind, "", err).
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the Kind from err, or "" if err is not (and does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package mcpreg

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed identifier or configuration passed to
// AddServer. It is always returned synchronously, before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mcpreg: invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a lookup or removal against an identifier with no
// matching registration (or, for session lookups, no live session).
type NotFoundError struct {
	Name   string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("mcpreg: server %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("mcpreg: server %q is not registered", e.Name)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConnectionErrorKind distinguishes the ways establishing a session can fail.
type ConnectionErrorKind string

const (
	// ConnectionFailed covers connector construction, connect, and initialize
	// failures other than a deadline expiry.
	ConnectionFailed ConnectionErrorKind = "failed"
	// ConnectionTimeout indicates the connect+initialize phase exceeded its
	// deadline.
	ConnectionTimeout ConnectionErrorKind = "timeout"
)

// ConnectionError reports a failed CreateSession call. The registry guarantees
// no partial session remains registered when one is returned.
type ConnectionError struct {
	Name string
	Kind ConnectionErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcpreg: connecting to %q (%s): %v", e.Name, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a ConnectionError of kind
// ConnectionTimeout.
func IsTimeout(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Kind == ConnectionTimeout
}

// CloseError reports a failure while tearing down a session. It is always
// non-fatal: the registry entry the session belonged to has already been
// updated by the time a CloseError surfaces.
type CloseError struct {
	Name string
	Err  error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("mcpreg: closing session for %q: %v", e.Name, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }

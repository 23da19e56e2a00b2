// internal/jboss/errors.go
package jboss

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed management call. Every kind maps to
// instance_status=down for the caller; the kind itself is kept for logging.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindAuthFailure       ErrorKind = "auth_failure"
	KindProtocolError     ErrorKind = "protocol_error"
)

type CheckError struct {
	Kind ErrorKind
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain, defaulting to
// protocol_error for anything unclassified.
func KindOf(err error) ErrorKind {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindProtocolError
}

package dispatch

import (
	"errors"
	"fmt"

	"notifer/internal/credentials"
	"notifer/internal/notifications"
)

// ErrInvalidInvocation reports caller input the dispatcher cannot act on,
// such as a blank topic or an unknown outcome.
var ErrInvalidInvocation = errors.New("invalid invocation")

// FatalError is returned when an invocation must fail the calling step. It
// records the stage that failed.
type FatalError struct {
	Stage State
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("notifer %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies the failure for operators: "credential_backend" when a
// credential store could not be read, "not_found" for missing credentials,
// "transport" for delivery failures, "configuration" otherwise.
func (e *FatalError) ErrorKind() string {
	return Classify(e.Err)
}

// Classify returns the error kind used in logs and history records.
func Classify(err error) string {
	var te *notifications.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, credentials.ErrBackendUnavailable):
		return "credential_backend"
	case errors.Is(err, credentials.ErrCredentialNotFound):
		return "not_found"
	case errors.As(err, &te):
		return "transport"
	default:
		return "configuration"
	}
}

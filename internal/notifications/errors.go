package notifications

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindNetwork covers DNS, connection and timeout failures. No status code.
	KindNetwork Kind = iota + 1
	// KindStatus is a non-2xx response.
	KindStatus
	// KindDecode is a 2xx response whose body could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error reports a failed send.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body == "" {
			return fmt.Sprintf("notifer API returned status %d", e.StatusCode)
		}
		return fmt.Sprintf("notifer API returned status %d: %s", e.StatusCode, e.Body)
	case KindDecode:
		return fmt.Sprintf("decode notifer response: %v", e.Err)
	default:
		return fmt.Sprintf("send notification: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind implements the classifier consumed by the dispatcher.
func (e *Error) ErrorKind() string {
	return "transport"
}

// IsStatus reports whether err is a non-2xx response and returns its code.
func IsStatus(err error) (int, bool) {
	var te *Error
	if errors.As(err, &te) && te.Kind == KindStatus {
		return te.StatusCode, true
	}
	return 0, false
}

// IsNetwork reports whether err is a network-layer failure.
func IsNetwork(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindNetwork
}

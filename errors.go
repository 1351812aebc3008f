package notify2

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by every operation that needs the
	// connection while the session is uninitialized.
	ErrNotInitialized = errors.New("notify2: you must call Init() before using the notification features")

	// ErrInvalidArgument is returned when a caller supplies a value outside
	// the domain an operation accepts.
	ErrInvalidArgument = errors.New("notify2: invalid argument")

	// ErrShowFailed matches a *CallError for the Notify method.
	ErrShowFailed = errors.New("notify2: show failed")

	// ErrCloseFailed matches a *CallError for the CloseNotification method.
	ErrCloseFailed = errors.New("notify2: close failed")
)

// ConnectionError reports a transport level failure: the bus could not be
// reached, the notification service is not running, or a call could not be
// delivered.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("notify2: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CallError reports a method level fault returned by the notification server.
type CallError struct {
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("notify2: %s returned an error: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrShowFailed and ErrCloseFailed.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrShowFailed:
		return e.Method == methodNotify
	case ErrCloseFailed:
		return e.Method == methodCloseNotification
	}
	return false
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

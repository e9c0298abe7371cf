package procdog

import (
	"errors"
	"fmt"
)

// Common errors returned by procdog operations
var (
	// ErrNotRunning indicates no monitor is listening for the identifier
	// when one was required
	ErrNotRunning = errors.New("procdog: not running")

	// ErrAlreadyRunning indicates a strict start hit a live monitor
	ErrAlreadyRunning = errors.New("procdog: already running")

	// ErrStartTimeout indicates the start handshake never observed a
	// reachable monitor within its bound
	ErrStartTimeout = errors.New("procdog: monitor did not come up")

	// ErrEndpointBusy indicates a live listener already holds the
	// control socket address
	ErrEndpointBusy = errors.New("procdog: control socket already bound")

	// ErrBadIdentifier indicates an empty identifier or one that cannot
	// name a socket file
	ErrBadIdentifier = errors.New("procdog: invalid identifier")

	// ErrProtocol indicates a malformed or truncated control message
	ErrProtocol = errors.New("procdog: protocol error")
)

// OpError represents an error from a procdog operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the socket or file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("procdog %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

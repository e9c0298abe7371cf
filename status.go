package procdog

import (
	"fmt"
	"strconv"
	"strings"
)

// State represents the reported state of a supervised process
type State int

const (
	// StateUnknown indicates the state could not be determined
	StateUnknown State = iota
	// StateStopped indicates no monitor is listening for the identifier
	StateStopped
	// StateRunning indicates the supervised process is alive
	StateRunning
	// StateKilled indicates a stop request just terminated the process
	StateKilled
	// StateExited indicates the process has exited and the monitor is lingering
	StateExited
	// StateInvalid indicates the monitor rejected an unrecognized command
	StateInvalid
	// StateError indicates a monitor-side failure, carried in Message
	StateError
)

// State string constants; these are the wire tags
const (
	stateUnknownStr = "unknown"
	stateStoppedStr = "stopped"
	stateRunningStr = "running"
	stateKilledStr  = "killed"
	stateExitedStr  = "exited"
	stateInvalidStr = "invalid"
	stateErrorStr   = "error"
)

// String returns the wire tag for the state
func (s State) String() string {
	switch s {
	case StateStopped:
		return stateStoppedStr
	case StateRunning:
		return stateRunningStr
	case StateKilled:
		return stateKilledStr
	case StateExited:
		return stateExitedStr
	case StateInvalid:
		return stateInvalidStr
	case StateError:
		return stateErrorStr
	default:
		return stateUnknownStr
	}
}

// Status is the typed form of one control protocol response
type Status struct {
	// State is the response tag
	State State
	// PID is the supervised process ID (running responses only)
	PID int
	// Code is the exit code (exited responses only). A negative value is
	// the number of the signal that terminated the process.
	Code int
	// Message carries the failure text of error responses
	Message string
}

// Wire field prefixes
const (
	fieldPID  = "pid="
	fieldCode = "code="
)

// Encode serializes the status to its single-line wire form:
//
//	<tag>[, pid=<int>][, code=<int>]
//	error: <message>
//
// ParseStatus is its lossless inverse.
func (s Status) Encode() string {
	switch s.State {
	case StateRunning:
		return fmt.Sprintf("%s, %s%d", stateRunningStr, fieldPID, s.PID)
	case StateExited:
		return fmt.Sprintf("%s, %s%d", stateExitedStr, fieldCode, s.Code)
	case StateError:
		return fmt.Sprintf("%s: %s", stateErrorStr, s.Message)
	default:
		return s.State.String()
	}
}

// ParseStatus decodes a single response line into a Status. It accepts the
// general line grammar, not just the forms Encode produces, so a monitor
// from a newer version may attach fields this version does not emit.
func ParseStatus(line string) (Status, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Status{}, fmt.Errorf("%w: empty response", ErrProtocol)
	}

	if msg, ok := strings.CutPrefix(line, stateErrorStr+":"); ok {
		return Status{State: StateError, Message: strings.TrimSpace(msg)}, nil
	}

	fields := strings.Split(line, ",")

	var st Status
	switch strings.TrimSpace(fields[0]) {
	case stateStoppedStr:
		st.State = StateStopped
	case stateRunningStr:
		st.State = StateRunning
	case stateKilledStr:
		st.State = StateKilled
	case stateExitedStr:
		st.State = StateExited
	case stateInvalidStr:
		st.State = StateInvalid
	default:
		return Status{}, fmt.Errorf("%w: unknown tag in %q", ErrProtocol, line)
	}

	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		switch {
		case strings.HasPrefix(f, fieldPID):
			n, err := strconv.Atoi(f[len(fieldPID):])
			if err != nil {
				return Status{}, fmt.Errorf("%w: bad pid field in %q", ErrProtocol, line)
			}
			st.PID = n
		case strings.HasPrefix(f, fieldCode):
			n, err := strconv.Atoi(f[len(fieldCode):])
			if err != nil {
				return Status{}, fmt.Errorf("%w: bad code field in %q", ErrProtocol, line)
			}
			st.Code = n
		default:
			return Status{}, fmt.Errorf("%w: unknown field %q in %q", ErrProtocol, f, line)
		}
	}

	return st, nil
}

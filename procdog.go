package procdog

import (
	"os"
	"path/filepath"
	"time"
)

// Socket and status record naming constants
const (
	// SocketSuffix is appended to an identifier to name its control socket
	SocketSuffix = ".sock"

	// StatusFileSuffix is appended to an identifier to name its status record
	StatusFileSuffix = ".status"

	// MaxLineBytes caps a single control protocol line. Commands and
	// responses are sub-kilobyte by design; anything longer is junk.
	MaxLineBytes = 1024
)

// Default timing constants
const (
	// DefaultLinger is how long a monitor keeps answering status queries
	// after the supervised command has exited
	DefaultLinger = 3 * time.Second

	// DefaultDialTimeout is the default timeout for control socket connections
	DefaultDialTimeout = 2 * time.Second

	// DefaultReadTimeout is the monitor-side timeout for reading a command line
	DefaultReadTimeout = 1 * time.Second

	// DefaultWriteTimeout is the monitor-side timeout for writing a response line
	DefaultWriteTimeout = 1 * time.Second

	// DefaultResponseTimeout bounds the client-side wait for a response line.
	// It is generous because a stop exchange blocks while the child shuts down.
	DefaultResponseTimeout = 10 * time.Second

	// DefaultStartTimeout bounds the start handshake: how long Client.Start
	// waits for a freshly spawned monitor to begin answering
	DefaultStartTimeout = 10 * time.Second

	// DefaultStartPoll is the sleep between start handshake attempts
	DefaultStartPoll = 50 * time.Millisecond
)

// File modes
const (
	// DirMode is the mode for the socket directory; sockets are per-user
	DirMode = 0o700

	// FileMode is the mode for redirection targets and status records
	FileMode = 0o644
)

// DefaultSocketDir returns the default directory holding control sockets
// and status records, one pair per identifier.
func DefaultSocketDir() string {
	return filepath.Join(os.TempDir(), "procdog")
}

// Command represents a parsed control command
type Command int

const (
	// CmdInvalid represents an unrecognized command
	CmdInvalid Command = iota
	// CmdStatus queries the supervised process state
	CmdStatus
	// CmdStop requests graceful termination of the supervised process
	CmdStop
)

// Command string constants
const (
	cmdStatusStr  = "status"
	cmdStopStr    = "stop"
	cmdInvalidStr = "invalid"
)

// ParseCommand maps a wire command line to a Command. The empty string is
// a status query, not an error.
func ParseCommand(s string) Command {
	switch s {
	case "", cmdStatusStr:
		return CmdStatus
	case cmdStopStr:
		return CmdStop
	default:
		return CmdInvalid
	}
}

// String returns the wire representation of the command
func (c Command) String() string {
	switch c {
	case CmdStatus:
		return cmdStatusStr
	case CmdStop:
		return cmdStopStr
	default:
		return cmdInvalidStr
	}
}

// Operation identifies which client or monitor operation an error came from
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpStart is the start operation, including the spawn handshake
	OpStart
	// OpStop is the stop operation
	OpStop
	// OpStatus is the status operation
	OpStatus
	// OpBind is the monitor binding its control socket
	OpBind
	// OpMonitor is the monitor run loop itself
	OpMonitor
	// OpWatch is the status record watch operation
	OpWatch
)

// Operation string constants
const (
	opUnknownStr = "unknown"
	opStartStr   = "start"
	opStopStr    = "stop"
	opStatusStr  = "status"
	opBindStr    = "bind"
	opMonitorStr = "monitor"
	opWatchStr   = "watch"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpStatus:
		return opStatusStr
	case OpBind:
		return opBindStr
	case OpMonitor:
		return opMonitorStr
	case OpWatch:
		return opWatchStr
	default:
		return opUnknownStr
	}
}

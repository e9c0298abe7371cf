package procdog

import "context"

// handleCommand maps one decoded command line to a response. It is a pure
// function of the supervised handle and the command text and owns no I/O;
// the monitor loop does the socket work around it.
//
// spawnErr is the captured launch failure, if any. A monitor whose spawn
// failed still answers every command, reporting that failure.
//
// Failures while signaling or awaiting the child are folded into an error
// response rather than propagated, so one bad exchange never takes the
// monitor down.
func handleCommand(ctx context.Context, c *child, spawnErr error, raw string) Status {
	if spawnErr != nil {
		return Status{State: StateError, Message: spawnErr.Error()}
	}

	switch ParseCommand(raw) {
	case CmdStatus:
		if c.Running() {
			return Status{State: StateRunning, PID: c.PID()}
		}
		return Status{State: StateExited, Code: c.ExitCode()}

	case CmdStop:
		// Stopping an already-exited process is idempotent at this layer.
		if !c.Running() {
			return Status{State: StateExited, Code: c.ExitCode()}
		}
		if err := c.Terminate(ctx); err != nil {
			return Status{State: StateError, Message: err.Error()}
		}
		return Status{State: StateKilled}

	default:
		return Status{State: StateInvalid}
	}
}

package procdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/brivio/procdog/internal/proc"
)

// StartOptions configures how a supervised command is launched. It is
// constructed once by the caller and consumed once at spawn time.
type StartOptions struct {
	// StdinPath, if set, is opened read-only as the command's stdin
	StdinPath string
	// StdoutPath, if set, receives the command's stdout
	StdoutPath string
	// StderrPath, if set, receives the command's stderr. If it names the
	// same target as StdoutPath both streams share one open file.
	StderrPath string
	// Append opens output targets in append mode instead of truncating
	Append bool
	// Linger is how long the monitor keeps answering after the command
	// exits. Zero selects DefaultLinger.
	Linger time.Duration
}

// child wraps the supervised OS process. It is owned exclusively by the
// monitor; clients only ever see its pid and exit code in responses.
//
// A single reaper goroutine performs the one permitted Wait; everything
// else observes the process through the done channel, which makes liveness
// checks safe for concurrent readers.
type child struct {
	cmd  *exec.Cmd
	done chan struct{}
	code int // valid once done is closed
}

// spawnChild parses the shell-syntax command line, opens the requested
// redirections, and launches the process in its own session. Every failure
// comes back as an error value; the monitor stays up to report it.
func spawnChild(command string, opts StartOptions) (*child, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command %q", command)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = proc.DetachedSysProcAttr()

	// The child inherits duplicated descriptors at start; the parent's
	// copies are closed afterwards.
	var open []*os.File
	defer func() {
		for _, f := range open {
			_ = f.Close()
		}
	}()

	if opts.StdinPath != "" {
		in, err := os.Open(opts.StdinPath)
		if err != nil {
			return nil, fmt.Errorf("opening stdin for %q: %w", command, err)
		}
		open = append(open, in)
		cmd.Stdin = in
	}

	outFlag := os.O_CREATE | os.O_WRONLY
	if opts.Append {
		outFlag |= os.O_APPEND
	} else {
		outFlag |= os.O_TRUNC
	}

	if opts.StdoutPath != "" {
		out, err := os.OpenFile(opts.StdoutPath, outFlag, FileMode)
		if err != nil {
			return nil, fmt.Errorf("opening stdout for %q: %w", command, err)
		}
		open = append(open, out)
		cmd.Stdout = out
	}

	if opts.StderrPath != "" {
		// Sharing one file keeps interleaved output sane: two opens of
		// the same path would write through independent offsets.
		if opts.StderrPath == opts.StdoutPath && cmd.Stdout != nil {
			cmd.Stderr = cmd.Stdout
		} else {
			errOut, err := os.OpenFile(opts.StderrPath, outFlag, FileMode)
			if err != nil {
				return nil, fmt.Errorf("opening stderr for %q: %w", command, err)
			}
			open = append(open, errOut)
			cmd.Stderr = errOut
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching %q: %w", command, err)
	}

	c := &child{cmd: cmd, done: make(chan struct{})}
	go c.reap()
	return c, nil
}

// reap waits for the process and records its exit code before signaling
// completion through the done channel.
func (c *child) reap() {
	_ = c.cmd.Wait()
	c.code = exitCode(c.cmd.ProcessState)
	close(c.done)
}

// PID returns the supervised process ID.
func (c *child) PID() int {
	return c.cmd.Process.Pid
}

// Running reports whether the process has not yet been reaped.
func (c *child) Running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the recorded exit code. Only meaningful once Running
// reports false.
func (c *child) ExitCode() int {
	select {
	case <-c.done:
		return c.code
	default:
		return -1
	}
}

// Done exposes process completion to the monitor's wait step.
func (c *child) Done() <-chan struct{} {
	return c.done
}

// Terminate requests graceful termination and blocks until the reaper
// observes the exit. Signaling a process that just exited is not an error.
func (c *child) Terminate(ctx context.Context) error {
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("terminating pid %d: %w", c.PID(), err)
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exitCode derives the reported exit code from a reaped process state.
// Signal deaths map to the negative signal number, so SIGTERM reports -15.
func exitCode(ps *os.ProcessState) int {
	if ps == nil {
		// Wait failed before producing a state (e.g. already reaped
		// elsewhere); there is no code to report.
		return -1
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}

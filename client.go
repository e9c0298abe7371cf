package procdog

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/brivio/procdog/internal/proc"
)

// Spawner launches a detached monitor process for an identifier. It is a
// client hook so embedders and tests can substitute their own process
// plumbing for the default re-exec of the current binary.
type Spawner func(ctx context.Context, id, command string, opts StartOptions, socketDir string) error

// Client provides start, stop and status operations for supervised
// processes. Every call is an independent, synchronous exchange with the
// identifier's monitor; the zero cost of construction makes a Client per
// invocation reasonable.
type Client struct {
	// SocketDir is the directory holding control sockets and status records
	SocketDir string

	// DialTimeout is the timeout for control socket connections
	DialTimeout time.Duration

	// ResponseTimeout bounds waiting for a response line. Stop exchanges
	// block while the child shuts down, so this is deliberately generous.
	ResponseTimeout time.Duration

	// StartTimeout bounds the handshake that waits for a freshly spawned
	// monitor to come up
	StartTimeout time.Duration

	// StartPoll is the sleep between handshake attempts
	StartPoll time.Duration

	// Strict makes start-on-running and stop-on-stopped explicit failures
	// instead of no-ops
	Strict bool

	// Logger receives client-side diagnostics
	Logger *slog.Logger

	spawn Spawner
}

// Option configures a Client
type Option func(*Client)

// WithSocketDir overrides the socket directory
func WithSocketDir(dir string) Option {
	return func(c *Client) {
		c.SocketDir = dir
	}
}

// WithDialTimeout sets the timeout for control socket connections
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.DialTimeout = d
	}
}

// WithResponseTimeout sets the bound on waiting for a response line
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.ResponseTimeout = d
	}
}

// WithStartTimeout sets the bound on the start handshake
func WithStartTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.StartTimeout = d
	}
}

// WithStartPoll sets the sleep between start handshake attempts
func WithStartPoll(d time.Duration) Option {
	return func(c *Client) {
		c.StartPoll = d
	}
}

// WithStrict selects strict mode
func WithStrict(strict bool) Option {
	return func(c *Client) {
		c.Strict = strict
	}
}

// WithLogger sets the client's logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithSpawner replaces the default monitor spawner
func WithSpawner(s Spawner) Option {
	return func(c *Client) {
		c.spawn = s
	}
}

// New creates a Client with default settings and applies any options.
func New(opts ...Option) *Client {
	c := &Client{
		SocketDir:       DefaultSocketDir(),
		DialTimeout:     DefaultDialTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		StartTimeout:    DefaultStartTimeout,
		StartPoll:       DefaultStartPoll,
		Logger:          slog.New(slog.DiscardHandler),
		spawn:           ExecSpawner(""),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Status queries the identifier's monitor. Nothing listening reads as
// stopped: not-running is the default interpretation of an unreachable
// endpoint, not an error.
func (c *Client) Status(ctx context.Context, id string) (Status, error) {
	if err := ValidateIdentifier(id); err != nil {
		return Status{}, err
	}
	st, reachable, err := c.exchange(ctx, OpStatus, id, cmdStatusStr)
	if err != nil {
		return Status{}, err
	}
	if !reachable {
		return Status{State: StateStopped}, nil
	}
	return st, nil
}

// Stop requests graceful termination of the identifier's process and
// reports the result. In lenient mode an unreachable monitor reads as
// already stopped; in strict mode it is an ErrNotRunning failure.
func (c *Client) Stop(ctx context.Context, id string) (Status, error) {
	if err := ValidateIdentifier(id); err != nil {
		return Status{}, err
	}
	st, reachable, err := c.exchange(ctx, OpStop, id, cmdStopStr)
	if err != nil {
		return Status{}, err
	}
	if !reachable {
		if c.Strict {
			return Status{}, &OpError{Op: OpStop, Path: c.socketPath(id), Err: ErrNotRunning}
		}
		return Status{State: StateStopped}, nil
	}
	return st, nil
}

// Start launches a monitor for the identifier unless one is already up.
// In lenient mode an existing monitor's status comes back unchanged and no
// new process is spawned; in strict mode that is an ErrAlreadyRunning
// failure. After spawning, Start performs the connect handshake: it polls
// the socket until the monitor answers or StartTimeout elapses, then
// returns one final status exchange.
func (c *Client) Start(ctx context.Context, id, command string, opts StartOptions) (Status, error) {
	if err := ValidateIdentifier(id); err != nil {
		return Status{}, err
	}

	current, err := c.Status(ctx, id)
	if err != nil {
		return Status{}, err
	}
	if current.State != StateStopped {
		if c.Strict {
			return current, &OpError{Op: OpStart, Path: c.socketPath(id), Err: ErrAlreadyRunning}
		}
		c.Logger.Debug("already running, not spawning", "id", id)
		return current, nil
	}

	if err := c.spawn(ctx, id, command, opts, c.SocketDir); err != nil {
		return Status{}, &OpError{Op: OpStart, Path: c.socketPath(id), Err: err}
	}
	c.Logger.Debug("monitor spawned", "id", id, "command", command)

	deadline := time.Now().Add(c.StartTimeout)
	for {
		_, reachable, err := c.exchange(ctx, OpStart, id, cmdStatusStr)
		if err == nil && reachable {
			break
		}
		if time.Now().After(deadline) {
			return Status{}, &OpError{Op: OpStart, Path: c.socketPath(id), Err: ErrStartTimeout}
		}
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-time.After(c.StartPoll):
		}
	}

	return c.Status(ctx, id)
}

func (c *Client) socketPath(id string) string {
	return SocketPath(c.SocketDir, id)
}

// exchange performs the single request/response round trip. The reachable
// result distinguishes "nothing is listening" from a failed exchange with
// a live monitor: dial failures are not errors, everything after a
// successful dial is.
func (c *Client) exchange(ctx context.Context, op Operation, id, command string) (Status, bool, error) {
	path := c.socketPath(id)

	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		if ctx.Err() != nil {
			return Status{}, false, ctx.Err()
		}
		return Status{}, false, nil
	}
	defer func() { _ = conn.Close() }()

	if c.DialTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.DialTimeout))
	}
	if err := writeLine(conn, command); err != nil {
		return Status{}, true, &OpError{Op: op, Path: path, Err: err}
	}

	if c.ResponseTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.ResponseTimeout))
	}
	line, err := readLine(conn)
	if err != nil {
		return Status{}, true, &OpError{Op: op, Path: path, Err: err}
	}

	st, err := ParseStatus(line)
	if err != nil {
		return Status{}, true, &OpError{Op: op, Path: path, Err: err}
	}
	return st, true, nil
}

// ExecSpawner returns a Spawner that launches `binary monitor ...` in its
// own session with the standard descriptors on /dev/null and releases the
// process handle. An empty binary means the current executable, which is
// the default Client behavior and what cmd/procdog relies on; embedders
// point it at an installed procdog binary instead:
//
//	client := procdog.New(procdog.WithSpawner(procdog.ExecSpawner("procdog")))
func ExecSpawner(binary string) Spawner {
	return func(_ context.Context, id, command string, opts StartOptions, socketDir string) error {
		self := binary
		if self == "" {
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			self = exe
		}

		args := []string{"monitor", "--id", id, "--dir", socketDir}
		if opts.StdinPath != "" {
			args = append(args, "--in", opts.StdinPath)
		}
		if opts.StdoutPath != "" {
			args = append(args, "--out", opts.StdoutPath)
		}
		if opts.StderrPath != "" {
			args = append(args, "--err", opts.StderrPath)
		}
		if opts.Append {
			args = append(args, "--append")
		}
		if opts.Linger > 0 {
			args = append(args, "--linger", opts.Linger.String())
		}
		args = append(args, "--", command)

		cmd := exec.Command(self, args...)
		cmd.SysProcAttr = proc.DetachedSysProcAttr()
		// Stdin, Stdout and Stderr left nil: exec connects them to /dev/null.
		if err := cmd.Start(); err != nil {
			return err
		}
		return cmd.Process.Release()
	}
}

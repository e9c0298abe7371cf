package procdog

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"time"

	"vawter.tech/stopper"
)

// Monitor supervises one process on behalf of one identifier: it spawns
// the command, serves control requests on the identifier's socket, waits
// for the process to exit, lingers, and tears the socket down.
//
// A Monitor is single-use. It normally runs in its own detached process
// (see Client.Start and the procdog monitor subcommand), but Run works in
// any process that can own the identifier's socket.
type Monitor struct {
	// ID is the identifier whose socket this monitor owns
	ID string

	// Command is the shell-syntax command line to supervise
	Command string

	// Options configures redirections and linger
	Options StartOptions

	// SocketDir is the directory holding sockets and status records
	SocketDir string

	// DialTimeout bounds the liveness probe against a pre-existing socket
	DialTimeout time.Duration

	// ReadTimeout bounds reading one command line from a connection
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one response line to a connection
	WriteTimeout time.Duration

	// Logger receives monitor lifecycle and per-connection events
	Logger *slog.Logger
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithMonitorSocketDir overrides the socket directory
func WithMonitorSocketDir(dir string) MonitorOption {
	return func(m *Monitor) {
		m.SocketDir = dir
	}
}

// WithMonitorLogger sets the monitor's logger
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.Logger = logger
	}
}

// WithMonitorTimeouts overrides the per-connection read and write bounds
func WithMonitorTimeouts(read, write time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.ReadTimeout = read
		m.WriteTimeout = write
	}
}

// NewMonitor creates a Monitor for the identifier and command. A zero
// Options.Linger selects DefaultLinger.
func NewMonitor(id, command string, opts StartOptions, mopts ...MonitorOption) (*Monitor, error) {
	if err := ValidateIdentifier(id); err != nil {
		return nil, err
	}

	if opts.Linger == 0 {
		opts.Linger = DefaultLinger
	}

	m := &Monitor{
		ID:           id,
		Command:      command,
		Options:      opts,
		SocketDir:    DefaultSocketDir(),
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		Logger:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range mopts {
		opt(m)
	}

	return m, nil
}

// Run executes the full supervision sequence and blocks until teardown.
//
// Spawn failures do not abort the run: the monitor binds its socket anyway
// and answers every command with the captured failure, so a client can
// always learn why its command never came up. Run returns an error only
// when the control socket itself cannot be established; the supervised
// command's exit code travels through the protocol, never through Run's
// return value.
func (m *Monitor) Run(ctx context.Context) error {
	ch, spawnErr := spawnChild(m.Command, m.Options)
	if spawnErr != nil {
		m.Logger.Error("spawn failed", "id", m.ID, "command", m.Command, "err", spawnErr)
	} else {
		m.Logger.Info("child started", "id", m.ID, "pid", ch.PID())
	}

	if err := os.MkdirAll(m.SocketDir, DirMode); err != nil {
		return &OpError{Op: OpMonitor, Path: m.SocketDir, Err: err}
	}

	sockPath := SocketPath(m.SocketDir, m.ID)
	ln, err := bindEndpoint(sockPath, m.DialTimeout)
	if err != nil {
		// Without the socket this monitor must not supervise: another
		// monitor may own the identifier. Undo the spawn and bail.
		m.Logger.Error("bind failed", "id", m.ID, "path", sockPath, "err", err)
		if spawnErr == nil {
			_ = ch.Terminate(ctx)
		}
		return err
	}

	m.record(statusAtSpawn(ch, spawnErr))

	sctx := stopper.WithContext(ctx)
	sctx.Go(func(sctx *stopper.Context) error {
		m.serve(ctx, sctx, ln, ch, spawnErr)
		return nil
	})

	if spawnErr == nil {
		select {
		case <-ch.Done():
			m.Logger.Info("child exited", "id", m.ID, "code", ch.ExitCode())
			m.record(Status{State: StateExited, Code: ch.ExitCode()})
		case <-ctx.Done():
		}
	}

	// Keep answering exited(code) for late status checks.
	if m.Options.Linger > 0 && ctx.Err() == nil {
		select {
		case <-time.After(m.Options.Linger):
		case <-ctx.Done():
		}
	}

	_ = ln.Close()
	sctx.Stop(100 * time.Millisecond)
	_ = sctx.Wait()

	removeEndpoint(sockPath)
	removeStatusFile(m.SocketDir, m.ID)
	m.Logger.Info("monitor done", "id", m.ID)
	return nil
}

// serve accepts connections serially until the listener closes. One
// exchange per connection; a failed exchange drops only that connection.
func (m *Monitor) serve(ctx context.Context, sctx *stopper.Context, ln net.Listener, ch *child, spawnErr error) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || sctx.IsStopping() {
				return
			}
			m.Logger.Warn("accept failed", "id", m.ID, "err", err)
			continue
		}
		m.serveConn(ctx, conn, ch, spawnErr)
	}
}

// serveConn performs the single request/response exchange on one
// connection.
func (m *Monitor) serveConn(ctx context.Context, conn net.Conn, ch *child, spawnErr error) {
	defer func() { _ = conn.Close() }()

	if m.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(m.ReadTimeout))
	}
	raw, err := readLine(conn)
	if err != nil {
		m.Logger.Warn("dropping connection", "id", m.ID, "err", err)
		return
	}

	resp := handleCommand(ctx, ch, spawnErr, raw)
	m.Logger.Debug("handled command", "id", m.ID, "command", raw, "response", resp.Encode())

	if resp.State == StateKilled {
		// The stop exchange observed the exit before the wait step does;
		// late status checks should already see the code.
		m.record(Status{State: StateExited, Code: ch.ExitCode()})
	}

	if m.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(m.WriteTimeout))
	}
	if err := writeLine(conn, resp.Encode()); err != nil {
		m.Logger.Warn("response write failed", "id", m.ID, "err", err)
	}
}

// record mirrors the monitor's current answer into the status record.
// Failures are logged only; the record is advisory.
func (m *Monitor) record(st Status) {
	if err := writeStatusFile(m.SocketDir, m.ID, st); err != nil {
		m.Logger.Warn("status record write failed", "id", m.ID, "err", err)
	}
}

// statusAtSpawn is the monitor's initial answer, before any exchange.
func statusAtSpawn(ch *child, spawnErr error) Status {
	if spawnErr != nil {
		return Status{State: StateError, Message: spawnErr.Error()}
	}
	return Status{State: StateRunning, PID: ch.PID()}
}

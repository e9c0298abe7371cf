package procdog

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SocketPath returns the control socket address for an identifier.
func SocketPath(dir, id string) string {
	return filepath.Join(dir, id+SocketSuffix)
}

// StatusFilePath returns the status record path for an identifier.
func StatusFilePath(dir, id string) string {
	return filepath.Join(dir, id+StatusFileSuffix)
}

// ValidateIdentifier reports whether id can name a socket file. Identifiers
// are opaque otherwise.
func ValidateIdentifier(id string) error {
	if id == "" || id == "." || id == ".." {
		return ErrBadIdentifier
	}
	if strings.ContainsAny(id, "/\x00") {
		return ErrBadIdentifier
	}
	return nil
}

// bindEndpoint claims the control socket address for a monitor. A live
// listener on the address is an ErrEndpointBusy failure; a stale socket
// file left by a crashed monitor is removed silently. Removal failures
// other than absence (e.g. permission) are surfaced.
func bindEndpoint(path string, dialTimeout time.Duration) (net.Listener, error) {
	if conn, err := net.DialTimeout("unix", path, dialTimeout); err == nil {
		_ = conn.Close()
		return nil, &OpError{Op: OpBind, Path: path, Err: ErrEndpointBusy}
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &OpError{Op: OpBind, Path: path, Err: err}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, &OpError{Op: OpBind, Path: path, Err: err}
	}
	return ln, nil
}

// removeEndpoint is the best-effort teardown counterpart of bindEndpoint.
// The next start rebinds over anything left behind, so errors are ignored.
func removeEndpoint(path string) {
	_ = os.Remove(path)
}

// readLine reads one command or response line: up to a newline or
// end-of-stream, with trailing whitespace stripped. The empty string is a
// valid result, not an error. Reads are capped at MaxLineBytes; an
// oversized line comes back truncated and fails command or status parsing
// downstream.
func readLine(conn net.Conn) (string, error) {
	r := bufio.NewReaderSize(io.LimitReader(conn, MaxLineBytes), MaxLineBytes)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, " \t\r\n"), nil
}

// writeLine sends one line with its newline delimiter. Partial writes and
// resets surface as errors; there is no retry at this layer.
func writeLine(conn net.Conn, s string) error {
	_, err := io.WriteString(conn, s+"\n")
	return err
}

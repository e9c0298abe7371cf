package procdog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitChild(t *testing.T, c *child) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("child did not exit")
	}
}

func TestSpawnChild(t *testing.T) {
	t.Run("clean exit", func(t *testing.T) {
		c, err := spawnChild("true", StartOptions{})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		if c.Running() {
			t.Error("Running() = true after exit")
		}
		if code := c.ExitCode(); code != 0 {
			t.Errorf("ExitCode() = %d, want 0", code)
		}
	})

	t.Run("nonzero exit code", func(t *testing.T) {
		c, err := spawnChild("sh -c 'exit 3'", StartOptions{})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		if code := c.ExitCode(); code != 3 {
			t.Errorf("ExitCode() = %d, want 3", code)
		}
	})

	t.Run("running process", func(t *testing.T) {
		c, err := spawnChild("sleep 30", StartOptions{})
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			_ = c.Terminate(context.Background())
		}()

		if !c.Running() {
			t.Error("Running() = false for live process")
		}
		if c.PID() <= 0 {
			t.Errorf("PID() = %d, want positive", c.PID())
		}
		if code := c.ExitCode(); code != -1 {
			t.Errorf("ExitCode() = %d for live process, want -1", code)
		}
	})

	t.Run("terminate reports signal-derived code", func(t *testing.T) {
		c, err := spawnChild("sleep 30", StartOptions{})
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Fatal(err)
		}

		if code := c.ExitCode(); code != -15 {
			t.Errorf("ExitCode() = %d, want -15 (SIGTERM)", code)
		}
	})

	t.Run("terminate already-exited process", func(t *testing.T) {
		c, err := spawnChild("true", StartOptions{})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		if err := c.Terminate(context.Background()); err != nil {
			t.Errorf("Terminate after exit: %v", err)
		}
	})
}

func TestSpawnChildFailures(t *testing.T) {
	tests := []struct {
		name    string
		command string
		// contains must appear in the error so clients can see what failed
		contains string
	}{
		{"missing binary", "/nonexistent-binary-procdog", "/nonexistent-binary-procdog"},
		{"unbalanced quoting", "sh -c 'unclosed", "sh -c 'unclosed"},
		{"empty command", "", "empty command"},
		{"blank command", "   ", "empty command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := spawnChild(tt.command, StartOptions{})
			if err == nil {
				t.Fatal("expected spawn error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}

	t.Run("unreadable stdin target", func(t *testing.T) {
		_, err := spawnChild("cat", StartOptions{
			StdinPath: filepath.Join(t.TempDir(), "missing-input"),
		})
		if err == nil {
			t.Fatal("expected spawn error")
		}
	})
}

func TestSpawnChildRedirection(t *testing.T) {
	t.Run("stdin and stdout", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.txt")
		out := filepath.Join(dir, "out.txt")
		if err := os.WriteFile(in, []byte("hello procdog\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		c, err := spawnChild("cat", StartOptions{StdinPath: in, StdoutPath: out})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "hello procdog\n" {
			t.Errorf("stdout = %q", data)
		}
	})

	t.Run("shared stdout and stderr target", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "both.txt")

		c, err := spawnChild("sh -c 'echo to-out; echo to-err >&2'", StartOptions{
			StdoutPath: out,
			StderrPath: out,
		})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "to-out") || !strings.Contains(string(data), "to-err") {
			t.Errorf("shared target missing a stream: %q", data)
		}
	})

	t.Run("truncate by default", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")
		if err := os.WriteFile(out, []byte("old contents\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		c, err := spawnChild("sh -c 'echo new'", StartOptions{StdoutPath: out})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "new\n" {
			t.Errorf("stdout = %q, want truncated", data)
		}
	})

	t.Run("append mode", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")
		if err := os.WriteFile(out, []byte("first\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		c, err := spawnChild("sh -c 'echo second'", StartOptions{StdoutPath: out, Append: true})
		if err != nil {
			t.Fatal(err)
		}
		waitChild(t, c)

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "first\nsecond\n" {
			t.Errorf("stdout = %q, want appended", data)
		}
	})
}

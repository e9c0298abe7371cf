// Command procdog starts, stops and inspects supervised processes by
// identifier. It is a thin front end over the procdog library: all state
// lives with the per-identifier monitor processes, which this binary also
// hosts through the hidden monitor subcommand.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/brivio/procdog"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Expected conditions get a clean one-line diagnostic.
		switch {
		case errors.Is(err, procdog.ErrNotRunning):
			fmt.Fprintln(os.Stderr, "procdog: not running")
		case errors.Is(err, procdog.ErrAlreadyRunning):
			fmt.Fprintln(os.Stderr, "procdog: already running")
		case errors.Is(err, procdog.ErrStartTimeout):
			fmt.Fprintln(os.Stderr, "procdog: monitor did not come up")
		default:
			fmt.Fprintf(os.Stderr, "procdog: %v\n", err)
		}
		os.Exit(1)
	}
}

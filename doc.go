// Package procdog provides a minimal single-process supervisor with a
// line-oriented control protocol over local unix sockets.
//
// Each supervised process is named by a caller-chosen identifier. Starting
// an identifier launches a detached monitor process that spawns the target
// command, serves status/stop requests on the identifier's control socket,
// and lingers briefly after the command exits so late status checks still
// see the exit code.
//
// The Client type is the caller-side facade:
//
//	client := procdog.New()
//
//	// Launch "sleep 60" under the identifier "worker"
//	status, err := client.Start(ctx, "worker", "sleep 60", procdog.StartOptions{})
//
//	// Query it
//	status, err = client.Status(ctx, "worker")
//	fmt.Printf("state=%v pid=%d\n", status.State, status.PID)
//
//	// Tear it down
//	status, err = client.Stop(ctx, "worker")
//
// # Monitor
//
// The Monitor type is the supervisor side. It normally runs in a process of
// its own: Client.Start re-execs the current binary with a hidden monitor
// subcommand, and cmd/procdog wires that subcommand to Monitor.Run. Embedders
// with their own process plumbing can run a Monitor directly:
//
//	mon, err := procdog.NewMonitor("worker", "sleep 60", procdog.StartOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = mon.Run(context.Background())
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - A debuggable text protocol (a raw socket can be queried by hand)
//   - Typed statuses and error kinds (no string matching by callers)
//   - Context-aware operations with bounded round trips
//   - Explicit configuration threaded through constructors (no globals)
//
// Strictness is a client setting: in lenient mode, starting a running
// identifier or stopping a stopped one is a no-op that reports the current
// state; in strict mode both are errors the caller can match on.
//
// A concurrent double-start race on one identifier is not fully serialized:
// the control socket is the only shared state and it is claimed by
// remove-then-bind, not by a lock. This is a known, accepted limitation.
package procdog

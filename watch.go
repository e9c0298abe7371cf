package procdog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// WatchEvent represents a state change observed for an identifier
type WatchEvent struct {
	Status Status
	Err    error
}

// WatchCleanupFunc stops a watch and releases its resources
type WatchCleanupFunc func() error

// DefaultWatchDebounce coalesces rapid status record rewrites
const DefaultWatchDebounce = 25 * time.Millisecond

// Watch monitors the identifier's status record and emits an event for
// each observed state change, starting with the current state. Removal of
// the record at monitor teardown is emitted as a stopped event. The
// returned cleanup function must be called to release the watcher.
//
// The watch observes the status record, not the socket, so it keeps
// working across monitor restarts for the identifier.
func (c *Client) Watch(ctx context.Context, id string) (<-chan WatchEvent, WatchCleanupFunc, error) {
	if err := ValidateIdentifier(id); err != nil {
		return nil, nil, err
	}

	// The watched directory has to exist before fsnotify can attach.
	if err := os.MkdirAll(c.SocketDir, DirMode); err != nil {
		return nil, nil, &OpError{Op: OpWatch, Path: c.SocketDir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpWatch, Path: c.SocketDir, Err: err}
	}
	if err := watcher.Add(c.SocketDir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: OpWatch, Path: c.SocketDir, Err: err}
	}

	ch := make(chan WatchEvent, 10)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	recordName := id + StatusFileSuffix

	var mu sync.Mutex
	var lastLine string
	var debouncer *time.Timer

	readAndSend := func() {
		if sctx.IsStopping() {
			return
		}

		status, err := ReadStatusFile(c.SocketDir, id)
		if err != nil {
			select {
			case ch <- WatchEvent{Err: err}:
			case <-sctx.Stopping():
			}
			return
		}

		mu.Lock()
		line := status.Encode()
		changed := line != lastLine
		if changed {
			lastLine = line
		}
		mu.Unlock()

		if changed && !sctx.IsStopping() {
			select {
			case ch <- WatchEvent{Status: status}:
			case <-sctx.Stopping():
			}
		}
	}

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	// Initial read
	readAndSend()

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			mu.Lock()
			if debouncer != nil {
				debouncer.Stop()
			}
			mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != recordName {
					continue
				}
				mu.Lock()
				if debouncer != nil {
					debouncer.Stop()
				}
				debouncer = time.AfterFunc(DefaultWatchDebounce, readAndSend)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !sctx.IsStopping() {
					select {
					case ch <- WatchEvent{Err: err}:
					case <-sctx.Stopping():
						return nil
					}
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}

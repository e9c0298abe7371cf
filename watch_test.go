package procdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nextEvent waits for one watch event, skipping nothing.
func nextEvent(t *testing.T, events <-chan WatchEvent) WatchEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("no watch event")
		return WatchEvent{}
	}
}

func TestWatchObservesRecordTransitions(t *testing.T) {
	dir := t.TempDir()
	client := New(WithSocketDir(dir))

	events, cleanup, err := client.Watch(context.Background(), "svc")
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	// Initial state: no record, reads as stopped.
	ev := nextEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, StateStopped, ev.Status.State)

	// Record appears: running.
	require.NoError(t, writeStatusFile(dir, "svc", Status{State: StateRunning, PID: 77}))
	ev = nextEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, StateRunning, ev.Status.State)
	assert.Equal(t, 77, ev.Status.PID)

	// Record flips to exited.
	require.NoError(t, writeStatusFile(dir, "svc", Status{State: StateExited, Code: 1}))
	ev = nextEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, StateExited, ev.Status.State)
	assert.Equal(t, 1, ev.Status.Code)

	// Record removed at teardown: stopped again.
	removeStatusFile(dir, "svc")
	ev = nextEvent(t, events)
	require.NoError(t, ev.Err)
	assert.Equal(t, StateStopped, ev.Status.State)
}

func TestWatchIgnoresOtherIdentifiers(t *testing.T) {
	dir := t.TempDir()
	client := New(WithSocketDir(dir))

	events, cleanup, err := client.Watch(context.Background(), "mine")
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	ev := nextEvent(t, events)
	assert.Equal(t, StateStopped, ev.Status.State)

	// Activity on a sibling identifier must not surface.
	require.NoError(t, writeStatusFile(dir, "other", Status{State: StateRunning, PID: 1}))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for sibling identifier: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchCleanupClosesChannel(t *testing.T) {
	client := New(WithSocketDir(t.TempDir()))

	events, cleanup, err := client.Watch(context.Background(), "svc")
	require.NoError(t, err)

	// Drain the initial event, then stop.
	nextEvent(t, events)
	require.NoError(t, cleanup())

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should be closed after cleanup")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cleanup")
	}
}

func TestWatchBadIdentifier(t *testing.T) {
	client := New(WithSocketDir(t.TempDir()))
	_, _, err := client.Watch(context.Background(), "a/b")
	require.ErrorIs(t, err, ErrBadIdentifier)
}

func TestWatchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	client := New(
		WithSocketDir(dir),
		WithSpawner(goroutineSpawner(t)),
		WithStartPoll(10*time.Millisecond),
	)
	ctx := context.Background()

	events, cleanup, err := client.Watch(ctx, "job")
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	ev := nextEvent(t, events)
	require.Equal(t, StateStopped, ev.Status.State)

	_, err = client.Start(ctx, "job", "sleep 30", StartOptions{Linger: 300 * time.Millisecond})
	require.NoError(t, err)

	ev = nextEvent(t, events)
	require.NoError(t, ev.Err)
	require.Equal(t, StateRunning, ev.Status.State)

	_, err = client.Stop(ctx, "job")
	require.NoError(t, err)

	// Exit surfaces first, teardown last.
	sawExited := false
	for {
		ev = nextEvent(t, events)
		require.NoError(t, ev.Err)
		if ev.Status.State == StateExited {
			require.Equal(t, -15, ev.Status.Code)
			sawExited = true
			continue
		}
		if ev.Status.State == StateStopped {
			break
		}
	}
	assert.True(t, sawExited, "never observed the exited state")
}

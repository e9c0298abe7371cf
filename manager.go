package procdog

import (
	"context"
	"sync"
	"time"
)

// Manager handles operations on multiple identifiers concurrently. It is a
// convenience for callers tearing down or inspecting whole groups of
// supervised processes; the Client covers everything single-identifier.
type Manager struct {
	// Client performs the per-identifier operations
	Client *Client
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout
	Timeout time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// WithClient sets the Client used for per-identifier operations
func WithClient(c *Client) ManagerOption {
	return func(m *Manager) {
		m.Client = c
	}
}

// NewManager creates a Manager with default settings
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		Client:      New(),
		Concurrency: 10,
		Timeout:     30 * time.Second,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

func (m *Manager) execute(ctx context.Context, ids []string, op func(context.Context, string) error) error {
	if len(ids) == 0 {
		return nil
	}

	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, id); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(id)
	}

	wg.Wait()

	return merr.Err()
}

// StopAll stops the specified identifiers concurrently
func (m *Manager) StopAll(ctx context.Context, ids ...string) error {
	return m.execute(ctx, ids, func(ctx context.Context, id string) error {
		_, err := m.Client.Stop(ctx, id)
		return err
	})
}

// Statuses queries the specified identifiers concurrently. The returned
// map has an entry for every identifier whose query succeeded.
func (m *Manager) Statuses(ctx context.Context, ids ...string) (map[string]Status, error) {
	var mu sync.Mutex
	out := make(map[string]Status, len(ids))

	err := m.execute(ctx, ids, func(ctx context.Context, id string) error {
		st, err := m.Client.Status(ctx, id)
		if err != nil {
			return err
		}
		mu.Lock()
		out[id] = st
		mu.Unlock()
		return nil
	})

	return out, err
}

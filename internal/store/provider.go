package store

import (
	"sync"
	"sync/atomic"

	"todolist/internal/logging"
)

// Provider lazily opens one TaskStore and hands the same instance to every
// caller. Callers construct it explicitly and pass it around; there is no
// package-level instance.
type Provider struct {
	opts   Options
	mu     sync.Mutex
	store  atomic.Pointer[TaskStore]
	closed bool
	opens  atomic.Int32
}

// NewProvider returns a provider that will open a store with opts on first use.
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts}
}

// Get returns the shared store, opening it on the first call. Concurrent
// first calls open exactly one database handle. A failed open is not cached.
func (p *Provider) Get() (*TaskStore, error) {
	if s := p.store.Load(); s != nil {
		return s, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	// Double-check after acquiring the lock
	if s := p.store.Load(); s != nil {
		return s, nil
	}

	s, err := Open(p.opts)
	if err != nil {
		return nil, err
	}
	p.opens.Add(1)
	p.store.Store(s)
	logging.StoreDebug("Provider opened store (%s)", p.opts.Path)
	return s, nil
}

// Close closes the store if it was opened. Get fails with ErrClosed afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	s := p.store.Swap(nil)
	if s == nil {
		return nil
	}
	return s.Close()
}

// ABOUTME: Lazily opened, explicitly owned database handle
// ABOUTME: Opens the store once on first use and closes it at shutdown

package store

import (
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Pool.Store after Close.
var ErrPoolClosed = errors.New("store pool closed")

// Opener creates a Store for a database path.
type Opener func(path string) (Store, error)

// Pool owns a single Store, opened on first use. It replaces any
// package-level database global: callers receive the Pool explicitly.
type Pool struct {
	path string
	open Opener

	once  sync.Once
	store Store
	err   error

	mu     sync.Mutex
	closed bool
}

// NewPool returns a Pool that opens a SQLite store at path on first use.
func NewPool(path string) *Pool {
	return NewPoolWithOpener(path, func(p string) (Store, error) {
		return NewSQLiteStore(p)
	})
}

// NewPoolWithOpener returns a Pool using a custom opener.
func NewPoolWithOpener(path string, open Opener) *Pool {
	return &Pool{path: path, open: open}
}

// Store returns the shared store, opening it if needed. An open failure
// is sticky: later calls return the same error.
func (p *Pool) Store() (Store, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	p.once.Do(func() {
		p.store, p.err = p.open(p.path)
	})
	return p.store, p.err
}

// Close closes the store if it was opened. Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Prevent a later first-use from opening after close.
	p.once.Do(func() { p.err = ErrPoolClosed })

	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

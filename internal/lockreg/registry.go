// Package lockreg serializes generation requests that compete for the same
// (kind, blur id) token.
package lockreg

import (
	"context"
	"sync"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// Token identifies the contended resource.
type Token struct {
	Kind   synthgen.Kind
	BlurID string
}

type entry struct {
	sem  chan struct{}
	refs int
}

// Registry hands out one lock per token. Entries live only while someone holds
// or waits for them.
type Registry struct {
	mu      sync.Mutex
	entries map[Token]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[Token]*entry)}
}

// Acquire blocks until the caller owns token or ctx is done. The returned
// release func must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, token Token) (func(), error) {
	e := r.retain(token)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		r.drop(token, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			r.drop(token, e)
		})
	}, nil
}

func (r *Registry) retain(token Token) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		r.entries[token] = e
	}
	e.refs++
	return e
}

func (r *Registry) drop(token Token, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.refs--
	if e.refs == 0 && r.entries[token] == e {
		delete(r.entries, token)
	}
}

// Len returns the number of live tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops idle tokens. A token that is held or awaited keeps its entry,
// so later callers still queue behind the holder.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, e := range r.entries {
		if e.refs == 0 {
			delete(r.entries, token)
		}
	}
}

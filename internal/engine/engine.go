package engine

import (
	"github.com/engramdb/engram/internal/store"
)

// Engine is the materialization and consistency core of the memory
// store. Every externally visible mutation runs inside exactly one
// storage transaction on the calling goroutine; there is no background
// work and no internal locking beyond SQLite's own serialization.
type Engine struct {
	store    *store.Store
	clock    Clock
	ids      IDGenerator
	observer Observer
}

// New creates an engine over an open store. Nil clock, ids, or
// observer fall back to the system clock, UUIDv7 ids, and a no-op
// observer.
func New(st *store.Store, clock Clock, ids IDGenerator, obs Observer) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if obs == nil {
		obs = NoopObserver{}
	}
	return &Engine{store: st, clock: clock, ids: ids, observer: obs}
}

// Store exposes the underlying store, mainly for admin commands.
func (e *Engine) Store() *store.Store {
	return e.store
}

// now returns the current clock reading in storage encoding.
func (e *Engine) now() string {
	return store.FormatTime(e.clock.Now())
}

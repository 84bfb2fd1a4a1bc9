// Package waitmap parks readers until data might have arrived at a
// path they care about.
//
// Registrations are keyed by the literal path string the reader asked
// for, glob or concrete. A notification for a path wakes every
// registration it matches, checked in both directions so a concrete
// insert wakes glob waiters and a glob insert wakes concrete waiters.
package waitmap

import (
	"sync"
	"time"
)

type entry struct {
	components []string
	// generation channel, closed and replaced on every notification
	ch      chan struct{}
	waiters int
}

// WaitMap is safe for concurrent use.
type WaitMap struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *WaitMap {
	return &WaitMap{entries: make(map[string]*entry)}
}

// Wait registers interest in pathStr and returns a Guard the caller
// must Release. components is the parsed chain behind pathStr.
func (w *WaitMap) Wait(pathStr string, components []string) *Guard {
	w.mu.Lock()
	e, ok := w.entries[pathStr]
	if !ok {
		e = &entry{components: components, ch: make(chan struct{})}
		w.entries[pathStr] = e
	}
	e.waiters++
	w.mu.Unlock()
	return &Guard{w: w, key: pathStr, e: e}
}

// Notify wakes every waiter whose registration matches components, with
// matching applied pattern-against-path in both directions.
func (w *WaitMap) Notify(components []string, match func(a, b []string) bool) {
	w.mu.Lock()
	for _, e := range w.entries {
		if match(e.components, components) || match(components, e.components) {
			close(e.ch)
			e.ch = make(chan struct{})
		}
	}
	w.mu.Unlock()
}

// NotifyAll wakes every waiter unconditionally.
func (w *WaitMap) NotifyAll() {
	w.mu.Lock()
	for _, e := range w.entries {
		close(e.ch)
		e.ch = make(chan struct{})
	}
	w.mu.Unlock()
}

// HasWaiters reports whether anyone is currently registered.
func (w *WaitMap) HasWaiters() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries) > 0
}

// Clear drops all registrations. Guards released afterwards are no-ops.
func (w *WaitMap) Clear() {
	w.mu.Lock()
	for _, e := range w.entries {
		close(e.ch)
		e.ch = make(chan struct{})
	}
	w.entries = make(map[string]*entry)
	w.mu.Unlock()
}

// Guard is one reader's registration. Release it when done waiting.
type Guard struct {
	w   *WaitMap
	key string
	e   *entry
}

// WaitUntil blocks until pred returns true or the deadline passes. pred
// is evaluated before the first sleep, so data that arrived between the
// caller's miss and the registration is not lost. Returns the final
// pred result.
func (g *Guard) WaitUntil(deadline time.Time, pred func() bool) bool {
	for {
		g.w.mu.Lock()
		ch := g.e.ch
		g.w.mu.Unlock()

		if pred() {
			return true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return pred()
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return pred()
		}
	}
}

// Release drops the registration. The entry disappears once its last
// guard is released.
func (g *Guard) Release() {
	g.w.mu.Lock()
	if e, ok := g.w.entries[g.key]; ok && e == g.e {
		e.waiters--
		if e.waiters <= 0 {
			delete(g.w.entries, g.key)
		}
	}
	g.w.mu.Unlock()
}

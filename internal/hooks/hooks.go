// Package hooks keeps the ordered handler lists behind stream subscriptions.
package hooks

import "sync"

type entry[H any] struct {
	id uint64
	h  H
}

// List is an ordered set of handlers addressed by the id returned from Add.
type List[H any] struct {
	mu      sync.Mutex
	next    uint64
	entries []entry[H]
}

// Add appends h and returns its id.
func (l *List[H]) Add(h H) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.entries = append(l.entries, entry[H]{id: l.next, h: h})
	return l.next
}

// Remove deletes the handler with the given id. It reports whether one was found.
func (l *List[H]) Remove(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns the handlers in registration order. Callers invoke the
// copy without holding any lock, so handlers may Add or Remove freely.
func (l *List[H]) Snapshot() []H {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]H, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.h
	}
	return out
}

// Len returns the number of registered handlers.
func (l *List[H]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes every handler.
func (l *List[H]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Package mailbox provides a single-slot buffer where the latest value wins.
package mailbox

import (
	"context"
	"sync"
)

// Mailbox holds at most one pending value. It is NOT a queue: Put overwrites
// a value nobody has taken yet.
type Mailbox[T any] struct {
	mu     sync.Mutex
	value  *T
	notify chan struct{}
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Put stores v, replacing any pending value. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.value = &v
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Take blocks until a value is available or ctx is done.
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		if v := m.TryTake(); v != nil {
			return *v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-m.notify:
		}
	}
}

// TryTake returns the pending value, or nil if the slot is empty.
func (m *Mailbox[T]) TryTake() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.value
	m.value = nil
	return v
}

func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value != nil
}

package bridge

import (
	"sync"
)

// Mailbox hands values to a single reader without ever blocking the writer.
// It holds at most one unread value; a new value replaces a stale one.
type Mailbox[T any] struct {
	ch     chan T
	mu     sync.Mutex
	closed bool
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// C is closed after Close.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Put stores msg, dropping the unread value if there is one. It reports false
// once the mailbox is closed.
func (m *Mailbox[T]) Put(msg T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	select {
	case m.ch <- msg:
	default:
		// reader is behind, drop the stale value
		select {
		case <-m.ch:
		default:
		}
		m.ch <- msg
	}
	return true
}

func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}

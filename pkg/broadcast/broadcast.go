package broadcast

import (
	"sync"
)

// Subscriber receives values published to a Feed.
type Subscriber[T any] interface {
	// Receive returns the channel values arrive on. It is closed when the
	// subscription or the feed is closed.
	Receive() <-chan T

	// Close ends the subscription. Idempotent.
	Close() error
}

// subscriber holds at most one pending value. A newer value replaces an
// unread one, so a slow reader always sees the latest state.
type subscriber[T any] struct {
	ch     chan T
	doneCh chan struct{}
	closed bool
	mu     sync.Mutex
	onDone func(*subscriber[T])
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, 1), doneCh: make(chan struct{})}
}

func (s *subscriber[T]) Receive() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	close(s.doneCh)
	onDone := s.onDone
	s.mu.Unlock()

	if onDone != nil {
		onDone(s)
	}
	return nil
}

func (s *subscriber[T]) done() <-chan struct{} {
	return s.doneCh
}

func (s *subscriber[T]) send(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
	}
	// Buffer full: drop the unread value. This goroutine is the only sender,
	// so the buffer has room after the drain.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
	return true
}

package broadcast

import (
	"context"
	"sync"
)

// Feed publishes successive values of T to any number of subscribers.
// A new subscriber first receives the current value. All methods are safe for
// concurrent use.
type Feed[T any] struct {
	mu          sync.RWMutex
	value       T
	subscribers map[*subscriber[T]]struct{}
	closed      bool
	cleanupWg   sync.WaitGroup
}

// NewFeed creates a Feed holding initial.
func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{
		value:       initial,
		subscribers: make(map[*subscriber[T]]struct{}),
	}
}

// Load returns the latest published value.
func (f *Feed[T]) Load() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Subscribe registers a subscriber and delivers the current value to it.
// The subscription ends when ctx is done or Close is called. Subscribing to a
// closed feed yields a closed subscriber.
func (f *Feed[T]) Subscribe(ctx context.Context) Subscriber[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := newSubscriber[T]()
	if f.closed {
		_ = sub.Close()
		return sub
	}
	sub.onDone = f.unsubscribe
	f.subscribers[sub] = struct{}{}
	sub.send(f.value)

	if ctx != nil && ctx.Done() != nil {
		f.cleanupWg.Add(1)
		go func() {
			defer f.cleanupWg.Done()
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done():
			}
		}()
	}
	return sub
}

// Publish stores v and delivers it to every subscriber without blocking.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.value = v
	for sub := range f.subscribers {
		sub.send(v)
	}
}

// Len returns the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Close closes every subscriber. Later publishes are ignored. Idempotent.
func (f *Feed[T]) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	subs := make([]*subscriber[T], 0, len(f.subscribers))
	for sub := range f.subscribers {
		subs = append(subs, sub)
	}
	clear(f.subscribers)
	f.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	f.cleanupWg.Wait()
	return nil
}

func (f *Feed[T]) unsubscribe(sub *subscriber[T]) {
	f.mu.Lock()
	delete(f.subscribers, sub)
	f.mu.Unlock()
}

// Package eventbus is a synchronous, typed, in-process publish/subscribe bus.
package eventbus

import "sync"

// Handler is invoked for every event published after it subscribed.
type Handler[T any] func(T)

// Bus dispatches events of type T to its subscribers. Publish runs handlers inline, in subscription order, after releasing the bus lock, so a handler may
// subscribe, unsubscribe, or publish without deadlocking. The zero value is ready to use. A Bus must not be copied after first use.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn Handler[T]
}

// Subscribe registers fn and returns a function that removes it. Calling the returned function more than once is a no-op, and it never affects other subscribers.
func (b *Bus[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			// Copy so that a Publish already iterating its snapshot is unaffected.
			subs := make([]subscription[T], 0, len(b.subs)-1)
			subs = append(subs, b.subs[:i]...)
			b.subs = append(subs, b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus[T]) Publish(ev T) {
	b.mu.Lock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

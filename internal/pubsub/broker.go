package pubsub

import (
	"sync"
)

// Broker fans out published values to subscribers, in process.
// Subscribers are called synchronously, in subscription order, on the publishing goroutine.
type Broker[T any] struct {
	mutex       sync.RWMutex
	nextID      int
	subscribers map[int]func(T)
	order       []int
	closed      bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[int]func(T)),
	}
}

// Subscribe registers fn and returns the handle that removes it. Calling cancel more than
// once is a no-op. Subscribing to a closed broker returns a no-op cancel.
func (b *Broker[T]) Subscribe(fn func(T)) (cancel func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsubscribe(id)
		})
	}
}

func (b *Broker[T]) unsubscribe(id int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	delete(b.subscribers, id)
	for i, sid := range b.order {
		if sid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers v to all current subscribers.
func (b *Broker[T]) Publish(v T) {
	b.mutex.RLock()
	if b.closed {
		b.mutex.RUnlock()
		return
	}
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subscribers[id])
	}
	b.mutex.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (b *Broker[T]) SubscribersCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subscribers)
}

// Close drops all subscribers; later publishes are ignored.
func (b *Broker[T]) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.closed = true
	b.subscribers = make(map[int]func(T))
	b.order = nil
}

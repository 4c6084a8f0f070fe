package identity

import (
	"sync"

	"promptarchitect/internal/domain"
)

// Event announces a session change on one device. A nil Session means the
// device signed out.
type Event struct {
	DeviceID string
	Session  *domain.Session
}

// Broker fans session changes out to subscribers.
type Broker struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns the function that removes it.
func (b *Broker) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	key := b.next
	b.next++
	b.subs[key] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, key)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber synchronously.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package events

import "sync"

const defaultBuffer = 16

// Bus fans events out to subscribers over buffered channels. Delivery is
// best effort: a subscriber that stops draining loses events rather than
// stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Event]map[int]chan any
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Event]map[int]chan any)}
}

// Subscribe returns a receive channel for e and a cancel function. Cancel is
// idempotent and closes the channel.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan any, buffer)

	b.mu.Lock()
	if b.subs[e] == nil {
		b.subs[e] = make(map[int]chan any)
	}
	id := b.nextID
	b.nextID++
	b.subs[e][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[e], id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers payload to every subscriber of e with buffer room left.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default: // subscriber is behind, drop
		}
	}
}

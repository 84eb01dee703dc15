// Package dispatch implements the event bus and packet dispatcher
// (spec.md §4.7): routing a decoded ParsedPacket to its mapped handler,
// to low-priority observers, and to any domain events a sub-parser
// attached to the packet.
package dispatch

import "sync"

// Observer receives every dispatched packet regardless of id.
type Observer func(packetID int, name string, data map[string]any)

type subscription struct {
	token int
	fn    func(data map[string]any)
}

// EventBus implements publish/subscribe with atomic-snapshot emission
// semantics (spec.md §4.7/§5, §8 testable property 7): a subscriber added
// or removed during Emit never affects the in-flight emission, only
// subsequent ones.
type EventBus struct {
	mu     sync.Mutex
	subs   map[string][]subscription
	nextID int
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for topic and returns an unsubscribe func.
func (b *EventBus) Subscribe(topic string, fn func(data map[string]any)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	token := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{token: token, fn: fn})
	return func() { b.unsubscribe(topic, token) }
}

func (b *EventBus) unsubscribe(topic string, token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.subs[topic]
	for i, s := range cur {
		if s.token == token {
			b.subs[topic] = append(append([]subscription{}, cur[:i]...), cur[i+1:]...)
			return
		}
	}
}

// Emit calls every subscriber registered for topic at the moment Emit
// was called, using a snapshot taken under the lock so that concurrent
// Subscribe/unsubscribe calls never race with delivery.
func (b *EventBus) Emit(topic string, data map[string]any) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs[topic]))
	copy(snapshot, b.subs[topic])
	b.mu.Unlock()

	for _, s := range snapshot {
		s.fn(data)
	}
}

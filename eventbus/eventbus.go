// Package eventbus is a small generic, typed publish/subscribe layer
// used in place of the observer-pattern objects a naive port of this
// design would reach for. Each subscriber gets its own buffered
// channel; a slow subscriber never blocks the publisher or other
// subscribers, it just drops its oldest buffered event.
package eventbus

import (
	"sync"

	"github.com/floxnode/floxnode/log"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// DefaultBufferSize is the per-subscriber channel capacity used when a
// caller does not specify one via Subscribe's bufSize argument.
const DefaultBufferSize = 32

// Bus is a typed, in-process event bus for a single event payload
// type T. A Bus is safe for concurrent Publish and Subscribe calls.
type Bus[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

// New returns an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscription is a live subscription returned by Subscribe. Callers
// must call Unsubscribe when done listening.
type Subscription[T any] struct {
	bus *Bus[T]
	id  int
	ch  chan T
}

// C returns the channel events arrive on.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Unsubscribe stops delivery and releases the subscriber's channel.
func (s *Subscription[T]) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if ch, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(ch)
	}
}

// Subscribe registers a new subscriber with the given channel buffer
// size (DefaultBufferSize if bufSize <= 0).
func (b *Bus[T]) Subscribe(bufSize int) *Subscription[T] {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan T, bufSize)
	b.subs[id] = ch
	return &Subscription[T]{bus: b, id: id, ch: ch}
}

// Publish delivers event to every current subscriber. Delivery is
// non-blocking: a subscriber whose buffer is full has its oldest
// pending event dropped to make room, and the drop is logged at Warn.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
				logger.Warnf("eventbus: dropped oldest event for subscriber %d, buffer full", id)
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Close unsubscribes and closes every subscriber channel. The bus must
// not be used after Close.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Package broadcast fans seat events out to live viewer connections.
// The subscriber registry is owned by the Broadcaster and scoped to its
// lifetime; connections join and leave through Subscribe/Unsubscribe.
package broadcast

import (
	"sync"

	"github.com/rmaksimov/seat-sync/internal/domain"
	"github.com/rmaksimov/seat-sync/internal/observability"
)

const defaultBuffer = 32

// Subscriber is one live connection. Its channel is closed when the
// subscriber leaves, the broadcaster shuts down, or the subscriber falls
// too far behind.
type Subscriber struct {
	id uint64
	ch chan domain.SeatEvent
}

func (s *Subscriber) Events() <-chan domain.SeatEvent { return s.ch }

type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscriber
	nextID uint64
	seq    uint64
	buffer int
	closed bool
	logger observability.Logger
}

func NewBroadcaster(buffer int, logger observability.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster{
		subs:   make(map[uint64]*Subscriber),
		buffer: buffer,
		logger: logger,
	}
}

func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscriber{id: b.nextID, ch: make(chan domain.SeatEvent, b.buffer)}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	observability.BroadcastSubscribers.Set(float64(len(b.subs)))
	return sub
}

func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
	observability.BroadcastSubscribers.Set(float64(len(b.subs)))
}

// Publish stamps the event with the next global sequence number and
// delivers it to every current subscriber. Delivery happens under one
// lock, so all subscribers observe the same order. The send never
// blocks: a subscriber whose buffer is full is evicted, not waited on.
func (b *Broadcaster) Publish(event domain.SeatEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.seq++
	event.Seq = b.seq
	for id, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			delete(b.subs, id)
			close(sub.ch)
			observability.BroadcastDropped.Inc()
			b.logger.WithField("subscriber", id).Warn("dropping slow subscriber")
		}
	}
	observability.BroadcastSubscribers.Set(float64(len(b.subs)))
}

// Close evicts all subscribers. Further publishes are discarded and
// further subscribes get an already-closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
	observability.BroadcastSubscribers.Set(0)
}

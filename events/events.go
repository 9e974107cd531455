// Package events carries process-wide registry signals between components.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event is a typed signal published on a Bus.
type Event interface {
	// Name is the wire name of the signal.
	Name() string
}

// ReloadRequested asks subscribers to re-fetch and recompute the product view.
type ReloadRequested struct {
	Reason string
	At     time.Time
}

func (ReloadRequested) Name() string { return "reload-products" }

// CacheInvalidated asks subscribers to drop cached query results before reloading.
type CacheInvalidated struct {
	Reason string
	At     time.Time
}

func (CacheInvalidated) Name() string { return "invalidate-product-cache" }

// Bus fans events out to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the event; signals here are
// idempotent requests so a pending one already covers it.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// function unsubscribes and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers e to every subscriber that has room for it and returns
// the number of subscribers reached.
func (b *Bus) Publish(e Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for id, ch := range b.subs {
		select {
		case ch <- e:
			delivered++
		default:
			b.logger.Debug("subscriber buffer full, event coalesced",
				"event", e.Name(), "subscriber", id)
		}
	}
	return delivered
}

// RequestReload publishes a ReloadRequested event.
func (b *Bus) RequestReload(reason string) {
	b.Publish(ReloadRequested{Reason: reason, At: time.Now()})
}

// InvalidateCache publishes a CacheInvalidated event.
func (b *Bus) InvalidateCache(reason string) {
	b.Publish(CacheInvalidated{Reason: reason, At: time.Now()})
}

// Close unsubscribes everyone. Later Subscribe calls get a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Package messaging implements the subscription streams the tracker exposes
// to the UI layer: a progress snapshot stream and an achievement event
// stream. Delivery is in-process and best-effort; there is no replay for
// late subscribers.
package messaging

import (
	"log/slog"
	"sync"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 8

// Broadcaster fan-outs values to all current subscribers without ever
// blocking the publisher. Two drop policies exist:
//
//   - latest-wins (progress snapshots): when a subscriber's buffer is full,
//     the oldest buffered value is discarded so the newest always lands. A
//     slow consumer misses intermediate states but converges on the latest.
//   - at-most-once (achievement events): when the buffer is full the value
//     is dropped for that subscriber. No delivery guarantee, no replay.
type Broadcaster[T any] struct {
	mu         sync.Mutex
	subs       map[int]chan T
	nextID     int
	buffer     int
	latestWins bool
	closed     bool
	logger     *slog.Logger
}

// NewBroadcaster creates a broadcaster with the given buffer size and drop
// policy.
func NewBroadcaster[T any](buffer int, latestWins bool, logger *slog.Logger) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster[T]{
		subs:       make(map[int]chan T),
		buffer:     buffer,
		latestWins: latestWins,
		logger:     logger,
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. The channel is closed on cancel and on broadcaster Close.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers v to every subscriber under the configured drop policy.
// Never blocks.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- v:
		default:
			if b.latestWins {
				// Drop the oldest buffered value to make room for the newest.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- v:
				default:
				}
			} else {
				b.logger.Debug("dropping event for slow subscriber", "subscriber", id)
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Broadcaster[T]) Close() {
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

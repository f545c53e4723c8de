package telemetry

import (
	"sync"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// DefaultCapacity is the backlog size used when none is configured.
const DefaultCapacity = 200

// subscriberBuffer bounds each live client's queue.
const subscriberBuffer = 100

// Hub keeps a bounded backlog of the agent's log records and fans new ones
// out to live subscribers.
type Hub struct {
	mu          sync.RWMutex
	ring        []domain.LogRecord
	start       int // index of the oldest record once the ring is full
	capacity    int
	subscribers map[chan domain.LogRecord]struct{}
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		ring:        make([]domain.LogRecord, 0, capacity),
		capacity:    capacity,
		subscribers: make(map[chan domain.LogRecord]struct{}),
	}
}

// Publish appends a record to the backlog and broadcasts it to every subscriber.
func (h *Hub) Publish(rec domain.LogRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.ring) < h.capacity {
		h.ring = append(h.ring, rec)
	} else {
		h.ring[h.start] = rec
		h.start = (h.start + 1) % h.capacity
	}

	for ch := range h.subscribers {
		select {
		case ch <- rec:
		default: // Drop message if buffer is full so a slow client never blocks logging
		}
	}
}

// Recent returns the backlog, oldest first.
func (h *Hub) Recent() []domain.LogRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

// Subscribe registers a live client. The backlog is captured under the same
// lock, so no record is both missing from the backlog and skipped on the channel.
func (h *Hub) Subscribe() (chan domain.LogRecord, []domain.LogRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.LogRecord, subscriberBuffer)
	h.subscribers[ch] = struct{}{}
	return ch, h.snapshotLocked()
}

// Unsubscribe removes a client channel and closes it.
func (h *Hub) Unsubscribe(ch chan domain.LogRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Subscribers reports the number of live clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) snapshotLocked() []domain.LogRecord {
	out := make([]domain.LogRecord, 0, len(h.ring))
	out = append(out, h.ring[h.start:]...)
	out = append(out, h.ring[:h.start]...)
	return out
}

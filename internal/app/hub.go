package app

import (
	"log/slog"
	"sync"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
)

const subscriberBuffer = 16

// Hub fans notifications out to every live subscriber. Publishing never
// blocks: a subscriber that stops draining loses notifications rather than
// stalling the pollers.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[int]chan domain.Notification
	next int
	last map[domain.NotificationType]domain.Notification
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:  logger,
		subs: make(map[int]chan domain.Notification),
		last: make(map[domain.NotificationType]domain.Notification),
	}
}

func (h *Hub) Publish(n domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[n.Type] = n
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.log.Warn("dropping notification for slow subscriber", "subscriber", id, "type", string(n.Type))
		}
	}
}

// Subscribe registers a new listener and replays the most recent
// notification of each type so late subscribers learn the current state.
// The returned cancel func must be called exactly once.
func (h *Hub) Subscribe() (<-chan domain.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan domain.Notification, subscriberBuffer)
	for _, n := range h.last {
		ch <- n
	}
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if ch, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

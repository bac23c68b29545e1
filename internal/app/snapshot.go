package app

import (
	"sync"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"github.com/sevenofnine/google-calendar-bridge/internal/pipeline"
	"google.golang.org/api/calendar/v3"
)

// SnapshotStore holds the latest raw batch per calendar. Each successful
// fetch replaces that calendar's batch wholesale; other calendars are
// untouched.
type SnapshotStore struct {
	mu      sync.RWMutex
	batches map[string][]*calendar.Event
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{batches: make(map[string][]*calendar.Event)}
}

func (s *SnapshotStore) Store(calendarID string, events []*calendar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[calendarID] = events
}

// Batches assembles the pipeline input in subscription order so equal-start
// events keep a deterministic cross-calendar order.
func (s *SnapshotStore) Batches(subs []domain.CalendarSubscription) []pipeline.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Batch, 0, len(subs))
	for _, sub := range subs {
		out = append(out, pipeline.Batch{Subscription: sub, Events: s.batches[sub.CalendarID]})
	}
	return out
}

// Raw returns a shallow copy of the current snapshot map.
func (s *SnapshotStore) Raw() map[string][]*calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]*calendar.Event, len(s.batches))
	for id, events := range s.batches {
		out[id] = events
	}
	return out
}

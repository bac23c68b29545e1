package app

import (
	"testing"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"google.golang.org/api/calendar/v3"
)

func TestSnapshotStoreReplacesWholesale(t *testing.T) {
	s := NewSnapshotStore()
	s.Store("primary", []*calendar.Event{{Id: "a"}, {Id: "b"}})
	s.Store("primary", []*calendar.Event{{Id: "c"}})
	s.Store("work", []*calendar.Event{{Id: "w"}})

	raw := s.Raw()
	if len(raw["primary"]) != 1 || raw["primary"][0].Id != "c" {
		t.Fatalf("primary batch = %+v", raw["primary"])
	}
	if len(raw["work"]) != 1 {
		t.Fatalf("work batch = %+v", raw["work"])
	}
}

func TestSnapshotBatchesFollowSubscriptionOrder(t *testing.T) {
	s := NewSnapshotStore()
	s.Store("b", []*calendar.Event{{Id: "b1"}})
	s.Store("a", []*calendar.Event{{Id: "a1"}})

	subs := []domain.CalendarSubscription{
		{ID: "m1", CalendarID: "a"},
		{ID: "m2", CalendarID: "b"},
		{ID: "m3", CalendarID: "never-fetched"},
	}
	batches := s.Batches(subs)
	if len(batches) != 3 {
		t.Fatalf("batches = %d", len(batches))
	}
	if batches[0].Events[0].Id != "a1" || batches[1].Events[0].Id != "b1" {
		t.Fatal("batches out of subscription order")
	}
	if batches[2].Events != nil {
		t.Fatal("expected empty batch for unfetched calendar")
	}
}

package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"github.com/sevenofnine/google-calendar-bridge/internal/googlecal"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

type fakeSource struct {
	queries []googlecal.Query
	batches [][]*calendar.Event
	errs    []error
	calls   int
}

func (f *fakeSource) ListEvents(_ context.Context, q googlecal.Query) ([]*calendar.Event, error) {
	f.queries = append(f.queries, q)
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var batch []*calendar.Event
	if i < len(f.batches) {
		batch = f.batches[i]
	}
	return batch, err
}

func testSubscription() domain.CalendarSubscription {
	return domain.CalendarSubscription{
		ID:                  "module-1",
		CalendarID:          "primary",
		FetchInterval:       5 * time.Minute,
		MaximumEntries:      10,
		MaximumNumberOfDays: 365,
		PastDaysCount:       1,
	}
}

func TestSchedulerFetchesAndNotifies(t *testing.T) {
	batch := []*calendar.Event{{Id: "e1", Summary: "Event"}}
	source := &fakeSource{batches: [][]*calendar.Event{batch}}

	var notes []domain.Notification
	var stored []*calendar.Event
	ticks := 0
	s := New(Options{
		Subscription: testSubscription(),
		Source:       source,
		Notify:       func(n domain.Notification) { notes = append(notes, n) },
		Store:        func(id string, events []*calendar.Event) { stored = events },
		Now:          func() time.Time { return time.Date(2024, 2, 26, 10, 0, 0, 0, time.UTC) },
		Wait: func(ctx context.Context, d time.Duration) error {
			ticks++
			if ticks >= 1 {
				return context.Canceled
			}
			return nil
		},
	})
	s.Run(context.Background())

	if len(notes) != 1 || notes[0].Type != domain.NotifyCalendarEvents {
		t.Fatalf("expected one CALENDAR_EVENTS notification, got %+v", notes)
	}
	if notes[0].Events.ID != "module-1" || notes[0].Events.CalendarID != "primary" {
		t.Fatalf("notification tags wrong: %+v", notes[0].Events)
	}
	if len(stored) != 1 || stored[0].Id != "e1" {
		t.Fatalf("expected batch stored, got %+v", stored)
	}

	q := source.queries[0]
	if q.CalendarID != "primary" || q.MaxResults != 10 {
		t.Fatalf("unexpected query: %+v", q)
	}
	wantFrom := time.Date(2024, 2, 25, 10, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 2, 25, 10, 0, 0, 0, time.UTC)
	if !q.From.Equal(wantFrom) || !q.To.Equal(wantTo) {
		t.Fatalf("window = [%v, %v], want [%v, %v]", q.From, q.To, wantFrom, wantTo)
	}
}

func TestSchedulerRetriesForeverAtFixedInterval(t *testing.T) {
	// Three consecutive failures: three CALENDAR_ERROR signals, each
	// rescheduled after exactly the fetch interval, loop still live until
	// told to stop.
	source := &fakeSource{errs: []error{
		&googleapi.Error{Code: 500},
		&googleapi.Error{Code: 500},
		&googleapi.Error{Code: 500},
	}}

	var notes []domain.Notification
	var delays []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Options{
		Subscription: testSubscription(),
		Source:       source,
		Notify:       func(n domain.Notification) { notes = append(notes, n) },
		Wait: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			if len(delays) == 3 {
				cancel()
			}
			return nil
		},
	})
	s.Run(ctx)

	if len(notes) != 3 {
		t.Fatalf("expected 3 CALENDAR_ERROR signals, got %d", len(notes))
	}
	for i, n := range notes {
		if n.Type != domain.NotifyCalendarError {
			t.Fatalf("notification %d type = %s", i, n.Type)
		}
		if n.Error.ID != "module-1" || n.Error.ErrorType != googlecal.FetchErrorUpstream {
			t.Fatalf("notification %d = %+v", i, n.Error)
		}
	}
	for i, d := range delays {
		if d != 5*time.Minute {
			t.Fatalf("delay %d = %v, want fixed 5m cadence", i, d)
		}
	}
}

func TestSchedulerFailureThenRecovery(t *testing.T) {
	source := &fakeSource{
		errs:    []error{errors.New("boom"), nil},
		batches: [][]*calendar.Event{nil, {{Id: "e1"}}},
	}
	var notes []domain.Notification
	ctx, cancel := context.WithCancel(context.Background())
	waits := 0
	s := New(Options{
		Subscription: testSubscription(),
		Source:       source,
		Notify:       func(n domain.Notification) { notes = append(notes, n) },
		Wait: func(_ context.Context, _ time.Duration) error {
			waits++
			if waits == 2 {
				cancel()
			}
			return nil
		},
	})
	s.Run(ctx)

	if len(notes) != 2 {
		t.Fatalf("expected error then events, got %+v", notes)
	}
	if notes[0].Type != domain.NotifyCalendarError || notes[0].Error.ErrorType != googlecal.FetchErrorUnspecified {
		t.Fatalf("first notification = %+v", notes[0])
	}
	if notes[1].Type != domain.NotifyCalendarEvents {
		t.Fatalf("second notification = %+v", notes[1])
	}
}

func TestSchedulerStopsWhenActiveCleared(t *testing.T) {
	source := &fakeSource{}
	var active atomic.Bool
	active.Store(true)
	s := New(Options{
		Subscription: testSubscription(),
		Source:       source,
		Active:       &active,
		Wait: func(_ context.Context, _ time.Duration) error {
			active.Store(false)
			return nil
		},
	})
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after active flag cleared")
	}
	if source.calls != 1 {
		t.Fatalf("expected exactly one fetch before stop, got %d", source.calls)
	}
}

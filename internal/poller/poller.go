// Package poller runs one fetch loop per calendar subscription: fetch,
// classify, notify, wait a fixed interval, repeat. Failures never stop a
// loop and loops never influence one another.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"github.com/sevenofnine/google-calendar-bridge/internal/googlecal"
	"google.golang.org/api/calendar/v3"
)

// EventSource issues one windowed event query against the upstream
// calendar provider.
type EventSource interface {
	ListEvents(ctx context.Context, q googlecal.Query) ([]*calendar.Event, error)
}

type Options struct {
	Subscription domain.CalendarSubscription
	Source       EventSource
	// Notify receives CALENDAR_EVENTS and CALENDAR_ERROR signals.
	Notify func(domain.Notification)
	// Store receives each successful raw batch for the snapshot map.
	Store func(calendarID string, events []*calendar.Event)
	// Active is the process-wide flag; once cleared no scheduler
	// re-enters fetching.
	Active *atomic.Bool
	Logger *slog.Logger
	Now    func() time.Time
	// Wait blocks for the fetch interval; tests replace it.
	Wait func(ctx context.Context, d time.Duration) error
}

type Scheduler struct {
	sub    domain.CalendarSubscription
	source EventSource
	notify func(domain.Notification)
	store  func(string, []*calendar.Event)
	active *atomic.Bool
	log    *slog.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sub:    opts.Subscription,
		source: opts.Source,
		notify: opts.Notify,
		store:  opts.Store,
		active: opts.Active,
		log:    logger.With("subscription", opts.Subscription.ID, "calendar_id", opts.Subscription.CalendarID),
		now:    opts.Now,
		wait:   opts.Wait,
	}
	if s.notify == nil {
		s.notify = func(domain.Notification) {}
	}
	if s.store == nil {
		s.store = func(string, []*calendar.Event) {}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.wait == nil {
		s.wait = sleep
	}
	return s
}

// Run loops fetch → notify → wait until the context is canceled or the
// active flag clears. It never returns an error: upstream failures are
// classified, signaled, and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.fetchOnce(ctx)
		if err := s.wait(ctx, s.sub.FetchInterval); err != nil {
			return
		}
		if s.stopped(ctx) {
			return
		}
	}
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return s.active != nil && !s.active.Load()
}

func (s *Scheduler) fetchOnce(ctx context.Context) {
	now := s.now()
	events, err := s.source.ListEvents(ctx, googlecal.Query{
		CalendarID: s.sub.CalendarID,
		From:       now.AddDate(0, 0, -s.sub.PastDaysCount),
		To:         now.AddDate(0, 0, s.sub.MaximumNumberOfDays),
		MaxResults: s.sub.MaximumEntries,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		errType := googlecal.ClassifyFetchError(err)
		s.log.Error("calendar fetch failed", "error_type", errType, "err", err)
		s.notify(domain.Notification{
			Type:  domain.NotifyCalendarError,
			Error: &domain.CalendarErrorNotfn{ID: s.sub.ID, ErrorType: errType},
		})
		return
	}

	s.log.Info("calendar fetch complete", "events", len(events))
	s.store(s.sub.CalendarID, events)
	s.notify(domain.Notification{
		Type: domain.NotifyCalendarEvents,
		Events: &domain.CalendarEventsNotfn{
			ID:         s.sub.ID,
			CalendarID: s.sub.CalendarID,
			Events:     events,
		},
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package pipeline turns raw calendar-provider event batches into the
// deduplicated, time-windowed, display-ordered event list consumed by the
// rendering host. It is pure: no I/O, no shared state between runs, and
// deterministic output for a given snapshot, configuration and clock.
package pipeline

import (
	"log/slog"
	"sort"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
	"google.golang.org/api/calendar/v3"
)

// Options configure one Builder. ExcludedEvents, HidePrivate, HideOngoing
// and HideDuplicates mirror the host display settings; a subscription with
// its own exclusion list overrides the global one.
type Options struct {
	MaximumEntries      int
	MaximumNumberOfDays int
	LimitDays           int
	HidePrivate         bool
	HideOngoing         bool
	HideDuplicates      bool
	SliceMultiDayEvents bool
	ExcludedEvents      []string
	Location            *time.Location
	Now                 func() time.Time
}

// Batch is the raw snapshot of one calendar at pipeline time. Batches are
// processed in slice order so equal-start events keep first-seen order.
type Batch struct {
	Subscription domain.CalendarSubscription
	Events       []*calendar.Event
}

type Builder struct {
	opts Options
	log  *slog.Logger
}

func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaximumEntries <= 0 {
		opts.MaximumEntries = 10
	}
	if opts.MaximumNumberOfDays <= 0 {
		opts.MaximumNumberOfDays = 365
	}
	return &Builder{opts: opts, log: logger}
}

// Build runs the full pipeline over the given snapshot: normalize, filter,
// slice, sort, day-limit, cap. The input batches are never mutated.
func (b *Builder) Build(batches []Batch) []domain.DisplayEvent {
	loc := b.opts.Location
	now := b.opts.Now().In(loc)
	todayStart := startOfDay(now, loc)
	future := todayStart.AddDate(0, 0, b.opts.MaximumNumberOfDays)

	accepted := make([]domain.DisplayEvent, 0)
	display := make([]domain.DisplayEvent, 0)

	for _, batch := range batches {
		rules := filterRules{
			excluded:       b.opts.ExcludedEvents,
			hidePrivate:    b.opts.HidePrivate,
			hideDuplicates: b.opts.HideDuplicates,
			hideOngoing:    b.opts.HideOngoing,
		}
		if len(batch.Subscription.ExcludedEvents) > 0 {
			rules.excluded = batch.Subscription.ExcludedEvents
		}

		for _, raw := range batch.Events {
			ev, err := b.normalize(raw, batch.Subscription.CalendarID, todayStart, now)
			if err != nil {
				b.log.Warn("dropping malformed event",
					"calendar_id", batch.Subscription.CalendarID,
					"event_id", raw.Id,
					"err", err)
				continue
			}
			if ev.End.Before(now) && !batch.Subscription.BroadcastPastEvents {
				continue
			}
			if shouldDrop(ev, accepted, rules, now) {
				continue
			}
			accepted = append(accepted, ev)

			if total := spanDays(ev, loc); b.opts.SliceMultiDayEvents && total > 1 {
				display = append(display, sliceMultiDay(ev, total, now, todayStart, future, loc)...)
			} else {
				display = append(display, ev)
			}
		}
	}

	sort.SliceStable(display, func(i, j int) bool {
		return display[i].Start.Before(display[j].Start)
	})

	if b.opts.LimitDays > 0 {
		display = limitDays(display, b.opts.LimitDays, todayStart, loc)
	}

	if len(display) > b.opts.MaximumEntries {
		display = display[:b.opts.MaximumEntries]
	}
	return display
}

// normalize builds a DisplayEvent from a raw provider record. The raw
// record is read-only; every derived field lives on the copy.
func (b *Builder) normalize(raw *calendar.Event, calendarID string, todayStart, now time.Time) (domain.DisplayEvent, error) {
	loc := b.opts.Location
	start, startDateOnly, err := extractInstant(raw.Start, loc)
	if err != nil {
		return domain.DisplayEvent{}, err
	}
	end, endDateOnly, err := extractInstant(raw.End, loc)
	if err != nil {
		return domain.DisplayEvent{}, err
	}

	ev := domain.DisplayEvent{
		ID:         raw.Id,
		CalendarID: calendarID,
		Title:      raw.Summary,
		Location:   raw.Location,
		Visibility: raw.Visibility,
		Start:      start,
		End:        end,
		FullDay:    startDateOnly && endDateOnly,
		Today:      isToday(start, todayStart, loc),
		Ongoing:    start.Before(now) && now.Before(end),
		URL:        raw.HtmlLink,
	}
	if raw.RecurringEventId != "" && raw.Created != "" {
		if created, err := time.Parse(time.RFC3339, raw.Created); err == nil {
			ev.FirstYear = created.In(loc).Year()
		}
	}
	return ev, nil
}

// limitDays keeps events from at most limit distinct calendar days,
// scanning the sorted sequence once, forward only. A first day holding a
// single full-day event does not count against the limit; a day once
// excluded never reopens.
func limitDays(events []domain.DisplayEvent, limit int, todayStart time.Time, loc *time.Location) []domain.DisplayEvent {
	kept := make([]domain.DisplayEvent, 0, len(events))
	lastDate := todayStart.AddDate(0, 0, -1).Format("20060102")
	days := 0
	for _, ev := range events {
		eventDate := ev.Start.In(loc).Format("20060102")
		if eventDate > lastDate {
			if len(kept) == 1 && days == 1 && kept[0].FullDay {
				days--
			}
			days++
			if days > limit {
				continue
			}
			lastDate = eventDate
		}
		kept = append(kept, ev)
	}
	return kept
}

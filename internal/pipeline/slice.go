package pipeline

import (
	"fmt"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
)

const dayMillis = 24 * 60 * 60 * 1000

// spanDays returns the number of day fragments an event covers, counting
// every local midnight the event crosses. Events contained in a single
// day return 1.
func spanDays(ev domain.DisplayEvent, loc *time.Location) int {
	endOfStartDay := nextMidnight(ev.Start, loc).UnixMilli() - 1
	overshoot := ev.End.UnixMilli() - 1 - endOfStartDay
	if overshoot <= 0 {
		return 1
	}
	return int((overshoot+dayMillis-1)/dayMillis) + 1
}

// sliceMultiDay splits ev into one fragment per covered day. Each fragment
// keeps the original title plus a " (k/N)" suffix, ends are clamped to the
// next local midnight (the final fragment keeps the true end), and Today
// is recomputed from the fragment's own start. Fragments whose end falls
// outside (now, future] are dropped individually.
func sliceMultiDay(ev domain.DisplayEvent, total int, now, todayStart, future time.Time, loc *time.Location) []domain.DisplayEvent {
	fragments := make([]domain.DisplayEvent, 0, total)
	title := ev.Title
	midnight := nextMidnight(ev.Start, loc)
	count := 1
	for ev.End.After(midnight) {
		fragment := ev
		fragment.Title = fmt.Sprintf("%s (%d/%d)", title, count, total)
		fragment.End = midnight
		fragment.Today = isToday(fragment.Start, todayStart, loc)
		fragment.FragmentIndex = count
		fragment.FragmentCount = total
		fragments = append(fragments, fragment)

		ev.Start = midnight
		count++
		midnight = nextMidnight(midnight, loc)
	}
	ev.Title = fmt.Sprintf("%s (%d/%d)", title, count, total)
	ev.Today = isToday(ev.Start, todayStart, loc)
	ev.FragmentIndex = count
	ev.FragmentCount = total
	fragments = append(fragments, ev)

	kept := fragments[:0]
	for _, fragment := range fragments {
		if fragment.End.After(now) && !fragment.End.After(future) {
			kept = append(kept, fragment)
		}
	}
	return kept
}

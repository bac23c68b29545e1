package pipeline

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// MalformedDateError reports an event boundary that carries neither a
// parsable date nor a parsable dateTime value.
type MalformedDateError struct {
	Value string
}

func (e MalformedDateError) Error() string {
	return fmt.Sprintf("malformed event boundary: %q", e.Value)
}

// extractInstant normalizes a provider boundary into an absolute instant.
// A date-only value wins over dateTime and maps to local midnight of that
// day in loc. The second return value reports whether the boundary was
// date-only, i.e. part of a full-day event.
func extractInstant(boundary *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if boundary == nil {
		return time.Time{}, false, MalformedDateError{}
	}
	if boundary.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", boundary.Date, loc)
		if err != nil {
			return time.Time{}, false, MalformedDateError{Value: boundary.Date}
		}
		return t, true, nil
	}
	if boundary.DateTime != "" {
		t, err := time.Parse(time.RFC3339, boundary.DateTime)
		if err != nil {
			return time.Time{}, false, MalformedDateError{Value: boundary.DateTime}
		}
		return t.In(loc), false, nil
	}
	return time.Time{}, false, MalformedDateError{}
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// nextMidnight returns the first local midnight strictly after the day
// containing t. DST transitions are absorbed by the calendar arithmetic.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

func isToday(start, todayStart time.Time, loc *time.Location) bool {
	tomorrow := nextMidnight(todayStart, loc)
	return !start.Before(todayStart) && start.Before(tomorrow)
}

package domain

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// DisplayEvent is one renderable entry produced by the event pipeline.
// Multi-day events may be sliced into several DisplayEvents, one per
// covered day, numbered via FragmentIndex/FragmentCount.
type DisplayEvent struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location,omitempty"`
	Visibility string    `json:"visibility,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	FullDay    bool      `json:"full_day"`
	Today      bool      `json:"today"`
	Ongoing    bool      `json:"ongoing"`
	URL        string    `json:"url,omitempty"`

	// FragmentCount is zero for unsliced events.
	FragmentIndex int `json:"fragment_index,omitempty"`
	FragmentCount int `json:"fragment_count,omitempty"`

	// FirstYear carries the first occurrence year of recurring events so
	// the host can render an "Nth anniversary" style repeating count.
	FirstYear int `json:"first_year,omitempty"`
}

// CalendarSubscription binds one poll loop to one upstream calendar.
// Built once from configuration at startup and read-only afterwards.
type CalendarSubscription struct {
	ID                  string        `json:"id"`
	CalendarID          string        `json:"calendar_id"`
	Name                string        `json:"name,omitempty"`
	FetchInterval       time.Duration `json:"fetch_interval"`
	MaximumEntries      int64         `json:"maximum_entries"`
	MaximumNumberOfDays int           `json:"maximum_number_of_days"`
	PastDaysCount       int           `json:"past_days_count"`
	ExcludedEvents      []string      `json:"excluded_events,omitempty"`
	BroadcastPastEvents bool          `json:"broadcast_past_events"`
}

type NotificationType string

const (
	NotifyCalendarEvents NotificationType = "CALENDAR_EVENTS"
	NotifyCalendarError  NotificationType = "CALENDAR_ERROR"
	NotifyAuthNeeded     NotificationType = "AUTH_NEEDED"
	NotifyAuthFailed     NotificationType = "AUTH_FAILED"
	NotifyServiceReady   NotificationType = "SERVICE_READY"
)

// Notification is one signal emitted towards the rendering host. At most
// one payload field is populated, matching Type.
type Notification struct {
	Type       NotificationType     `json:"type"`
	Events     *CalendarEventsNotfn `json:"events,omitempty"`
	Error      *CalendarErrorNotfn  `json:"error,omitempty"`
	AuthNeeded *AuthNeededNotfn     `json:"auth_needed,omitempty"`
	AuthFailed *AuthFailedNotfn     `json:"auth_failed,omitempty"`
}

// CalendarEventsNotfn carries one successfully fetched raw batch.
type CalendarEventsNotfn struct {
	ID         string            `json:"id"`
	CalendarID string            `json:"calendar_id"`
	Events     []*calendar.Event `json:"events"`
}

type CalendarErrorNotfn struct {
	ID        string `json:"id"`
	ErrorType string `json:"error_type"`
}

type AuthNeededNotfn struct {
	URL            string `json:"url"`
	CredentialType string `json:"credential_type"`
}

type AuthFailedNotfn struct {
	ErrorType string `json:"error_type"`
}

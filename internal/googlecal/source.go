package googlecal

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Query is one time-windowed event fetch: recurring instances expanded,
// ordered by start, capped at MaxResults.
type Query struct {
	CalendarID string
	From       time.Time
	To         time.Time
	MaxResults int64
}

// Source runs queries against an authorized calendar service.
type Source struct {
	svc *calendar.Service
}

func NewSource(svc *calendar.Service) *Source {
	return &Source{svc: svc}
}

func (s *Source) ListEvents(ctx context.Context, q Query) ([]*calendar.Event, error) {
	call := s.svc.Events.List(q.CalendarID).
		Context(ctx).
		TimeMin(q.From.Format(time.RFC3339)).
		TimeMax(q.To.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

package pipeline

import (
	"strings"
	"time"

	"github.com/sevenofnine/google-calendar-bridge/internal/domain"
)

// isDuplicate reports whether candidate matches an already accepted event.
// Identity is exact title equality (pre-transform, case-sensitive) plus an
// equal normalized start instant.
func isDuplicate(accepted []domain.DisplayEvent, candidate domain.DisplayEvent) bool {
	for _, e := range accepted {
		if e.Title == candidate.Title && e.Start.Equal(candidate.Start) {
			return true
		}
	}
	return false
}

type filterRules struct {
	excluded       []string
	hidePrivate    bool
	hideDuplicates bool
	hideOngoing    bool
}

// shouldDrop applies the exclusion rules in fixed order, short-circuiting
// on the first match. Events dropped by an earlier rule never enter the
// accept-set, so they cannot shadow later candidates in duplicate
// detection.
func shouldDrop(ev domain.DisplayEvent, accepted []domain.DisplayEvent, rules filterRules, now time.Time) bool {
	for _, excluded := range rules.excluded {
		if ev.Title == excluded {
			return true
		}
	}
	if rules.hidePrivate {
		switch strings.ToLower(ev.Visibility) {
		case "private", "confidential":
			return true
		}
	}
	if rules.hideDuplicates && isDuplicate(accepted, ev) {
		return true
	}
	if rules.hideOngoing && ev.Start.Before(now) && now.Before(ev.End) {
		return true
	}
	return false
}

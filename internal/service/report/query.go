package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/region-insights/internal/domain"
)

// Query selects the reporting window and, optionally, a subset of the
// tracked regions. Both window bounds are inclusive.
type Query struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Regions []domain.Region `json:"regions,omitempty"`
}

// Validate checks the window.
func (q Query) Validate() error {
	if q.From.IsZero() || q.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidWindow)
	}
	if q.To.Before(q.From) {
		return fmt.Errorf("%w: to (%s) is before from (%s)", ErrInvalidWindow,
			q.To.Format(time.RFC3339), q.From.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (q Query) Contains(t time.Time) bool {
	return !t.Before(q.From) && !t.After(q.To)
}

// CacheKey identifies the query for the report cache.
func (q Query) CacheKey() string {
	codes := make([]string, len(q.Regions))
	for i, r := range q.Regions {
		codes[i] = string(r)
	}
	return fmt.Sprintf("overview:%s:%s:%s",
		q.From.UTC().Format(time.RFC3339), q.To.UTC().Format(time.RFC3339), strings.Join(codes, ","))
}

// DayWindow returns a window of exactly days whole calendar days ending
// with the day containing now, in now's zone. Today counts as the first day.
func DayWindow(now time.Time, days int) Query {
	if days < 1 {
		days = 1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Query{
		From: today.AddDate(0, 0, -(days - 1)),
		To:   EndOfDay(today),
	}
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Package digest defines the normalized record model shared by all source
// adapters and the capability interface the report assembler consumes.
package digest

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a provider that could not be reached or refused the
// request. An empty result set is not an error and is returned as a nil
// error with an empty slice.
var ErrUnavailable = errors.New("provider unavailable")

// Record is one normalized fact pulled from an external source: a calendar
// entry, an earnings date, or a post. Immutable once fetched.
type Record struct {
	Source   string    // adapter name, e.g. "tradingeconomics"
	Time     time.Time
	DateOnly bool // calendar entries carry a date, not an intraday time
	Subject  string // country/category, symbol, @handle, r/name or u/name
	Title    string
	Body     string
	URL      string
	Details  []string // short annotations: eps estimates, importance, score
}

// Source is implemented by every adapter wrapping one external provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Record, error)
}

// Window is the inclusive date range a calendar adapter should cover.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFrom builds a Window spanning start and the daysAhead days after it.
// Both bounds are normalized to midnight in start's location.
func WindowFrom(start time.Time, daysAhead int) Window {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return Window{Start: s, End: s.AddDate(0, 0, daysAhead)}
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.Start.Location())
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns each day of the window in order, from Start to End.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

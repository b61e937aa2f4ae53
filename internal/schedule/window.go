// Package schedule holds the time arithmetic behind showings: the
// half-open TimeWindow value and the parser that turns a staff member's
// comma separated showtime list into windows.
package schedule

import (
	"errors"
	"time"
)

// ErrNonPositiveDuration is returned when a window would have zero or
// negative length.
var ErrNonPositiveDuration = errors.New("duration must be positive")

// TimeWindow is a [start, end) interval in UTC.  The zero value is not a
// valid window; build one with NewTimeWindow.
type TimeWindow struct {
	start time.Time
	end   time.Time
}

// NewTimeWindow returns the window that begins at start and lasts d.
func NewTimeWindow(start time.Time, d time.Duration) (TimeWindow, error) {
	if d <= 0 {
		return TimeWindow{}, ErrNonPositiveDuration
	}
	start = start.UTC()
	return TimeWindow{start: start, end: start.Add(d)}, nil
}

// WindowBetween rebuilds a window from stored bounds (start, end).
func WindowBetween(start, end time.Time) (TimeWindow, error) {
	return NewTimeWindow(start, end.Sub(start))
}

func (w TimeWindow) Start() time.Time { return w.start }
func (w TimeWindow) End() time.Time   { return w.end }

func (w TimeWindow) Duration() time.Duration { return w.end.Sub(w.start) }

// IsZero reports whether w was never initialised.
func (w TimeWindow) IsZero() bool { return w.start.IsZero() && w.end.IsZero() }

// Overlaps reports whether the two windows share any instant.  Windows that
// only touch at a boundary (one ends exactly when the other starts) do not
// overlap.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.start.Before(o.end) && o.start.Before(w.end)
}

// Contains reports whether t falls inside [start, end).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

func (w TimeWindow) String() string {
	return w.start.Format(time.RFC3339) + "/" + w.end.Format(time.RFC3339)
}

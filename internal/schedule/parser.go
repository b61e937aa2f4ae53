package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ShowtimeLayout is the accepted showtime format: DD/MM/YY HH:MM.  Day,
// month and hour may be written without a leading zero.
const ShowtimeLayout = "2/1/06 15:04"

// ParseError describes why a showtime list was rejected.  Index is the
// zero-based position of the offending item, or -1 when the list as a
// whole is at fault.
type ParseError struct {
	Index  int
	Item   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return "showtimes: " + e.Reason
	}
	return fmt.Sprintf("showtimes: item %d (%q): %s", e.Index+1, e.Item, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseShowtime parses a single DD/MM/YY HH:MM value as UTC.
func ParseShowtime(item string) (time.Time, error) {
	item = strings.TrimSpace(item)
	t, err := time.ParseInLocation(ShowtimeLayout, item, time.UTC)
	if err != nil {
		return time.Time{}, &ParseError{Index: 0, Item: item, Reason: "expected DD/MM/YY HH:MM", Err: err}
	}
	return t, nil
}

// ParseShowtimes converts a comma separated list of showtimes into windows
// of length d, keeping the order the caller wrote them in.  Every window
// must end no later than the next one in the list starts; a list that is
// not in chronological order is therefore rejected even if no two shows
// would actually overlap.
func ParseShowtimes(raw string, d time.Duration) ([]TimeWindow, error) {
	if d <= 0 {
		return nil, ErrNonPositiveDuration
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Index: -1, Reason: "no showtimes given"}
	}

	items := strings.Split(raw, ",")
	windows := make([]TimeWindow, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		t, err := time.ParseInLocation(ShowtimeLayout, item, time.UTC)
		if err != nil {
			return nil, &ParseError{Index: i, Item: item, Reason: "expected DD/MM/YY HH:MM", Err: err}
		}
		w, err := NewTimeWindow(t, d)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		if prev.End().After(cur.Start()) {
			return nil, &ParseError{
				Index:  i,
				Item:   strings.TrimSpace(items[i]),
				Reason: fmt.Sprintf("show at %q doesn't end before the next one starts (times must be listed in order)", strings.TrimSpace(items[i-1])),
			}
		}
	}
	return windows, nil
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// ParseError is returned unchanged from the showtime parser.
type ParseError = schedule.ParseError

// ValidationError reports malformed input such as a non-positive duration
// or a seat number outside the showing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown hall, movie, showing or booking.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// Collision pairs one requested window with the persisted showings it
// overlaps.
type Collision struct {
	Window   schedule.TimeWindow
	Existing []model.Showing
}

// CollisionError rejects an add-film batch.  It lists every requested
// window that overlapped something, not just the first.
type CollisionError struct {
	HallID    uint64
	Conflicts []Collision
}

func (e *CollisionError) Error() string {
	n := 0
	for _, c := range e.Conflicts {
		n += len(c.Existing)
	}
	return fmt.Sprintf("%d showtime(s) collide with %d existing showing(s) in hall %d", len(e.Conflicts), n, e.HallID)
}

// ConflictError reports a seat that is already reserved.
type ConflictError struct {
	ShowingID uint64
	Seat      int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat %d of showing %d is already reserved", e.Seat, e.ShowingID)
}

// ErrShowingBusy is returned when the per-showing lock could not be taken
// in time.  Callers may retry.
var ErrShowingBusy = errors.New("showing is busy, try again")

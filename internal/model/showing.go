package model

import (
    "sort"
    "time"

    "github.com/iliyamo/cinema-booking/internal/schedule"
)

// Showing is one screening of a Movie in a Hall.  SeatCapacity is copied
// from the hall when the showing is created so later hall edits do not
// change existing showings.
//
// The reservation state obeys
//
//  AvailableCount == SeatCapacity - len(ReservedSeats)
//
// with ReservedSeats kept sorted, duplicate free and inside
// 1..SeatCapacity.  Only Reserve and Release should touch it.  Version
// is bumped by the repository on every seat update and used as the
// optimistic-lock predicate.
type Showing struct {
    ID             uint64    `json:"id"`              // showings.id
    MovieID        uint64    `json:"movie_id"`        // showings.movie_id
    HallID         uint64    `json:"hall_id"`         // showings.hall_id
    StartsAt       time.Time `json:"starts_at"`       // showings.starts_at (UTC)
    EndsAt         time.Time `json:"ends_at"`         // showings.ends_at (UTC)
    SeatCapacity   int       `json:"seat_capacity"`   // showings.seat_capacity
    ReservedSeats  []int     `json:"reserved_seats"`  // showings.reserved_seats (JSON array)
    AvailableCount int       `json:"available_count"` // showings.available_count
    Version        uint64    `json:"-"`               // showings.version
    CreatedAt      time.Time `json:"created_at"`      // showings.created_at
}

// NewShowing returns an empty showing of the given hall over w.
func NewShowing(movieID uint64, hall Hall, w schedule.TimeWindow) Showing {
    return Showing{
        MovieID:        movieID,
        HallID:         hall.ID,
        StartsAt:       w.Start(),
        EndsAt:         w.End(),
        SeatCapacity:   hall.SeatCapacity,
        ReservedSeats:  []int{},
        AvailableCount: hall.SeatCapacity,
    }
}

// Window returns the showing's time slot.
func (s Showing) Window() schedule.TimeWindow {
    w, _ := schedule.WindowBetween(s.StartsAt, s.EndsAt)
    return w
}

// ValidSeat reports whether seat exists in this showing.
func (s Showing) ValidSeat(seat int) bool {
    return seat >= 1 && seat <= s.SeatCapacity
}

// IsReserved reports whether seat is currently taken.
func (s Showing) IsReserved(seat int) bool {
    i := sort.SearchInts(s.ReservedSeats, seat)
    return i < len(s.ReservedSeats) && s.ReservedSeats[i] == seat
}

// Reserve marks seat as taken.  It returns false without changing anything
// when the seat is out of range, already taken, or the showing is full.
func (s *Showing) Reserve(seat int) bool {
    if !s.ValidSeat(seat) || s.IsReserved(seat) || s.AvailableCount <= 0 {
        return false
    }
    i := sort.SearchInts(s.ReservedSeats, seat)
    s.ReservedSeats = append(s.ReservedSeats, 0)
    copy(s.ReservedSeats[i+1:], s.ReservedSeats[i:])
    s.ReservedSeats[i] = seat
    s.AvailableCount--
    return true
}

// Release frees seat.  It returns false when the seat was not reserved.
func (s *Showing) Release(seat int) bool {
    i := sort.SearchInts(s.ReservedSeats, seat)
    if i >= len(s.ReservedSeats) || s.ReservedSeats[i] != seat {
        return false
    }
    s.ReservedSeats = append(s.ReservedSeats[:i], s.ReservedSeats[i+1:]...)
    s.AvailableCount++
    return true
}

// Consistent checks the reservation invariant.
func (s Showing) Consistent() bool {
    if s.AvailableCount < 0 || s.AvailableCount != s.SeatCapacity-len(s.ReservedSeats) {
        return false
    }
    prev := 0
    for _, n := range s.ReservedSeats {
        if n <= prev || n > s.SeatCapacity {
            return false
        }
        prev = n
    }
    return true
}

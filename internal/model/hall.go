package model

import "time"

// Hall represents a screening room.  Seats are numbered 1..SeatCapacity
// and laid out row by row, SeatsPerRow to a row; the last row may be
// short when the capacity is not a multiple of the row width.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – unique human readable label.
//  SeatCapacity – number of bookable seats (> 0).
//  SeatsPerRow  – width of the seat grid (> 0).
//  CreatedAt    – creation timestamp.
type Hall struct {
    ID           uint64    `json:"id"`            // halls.id
    Name         string    `json:"name"`          // halls.name
    SeatCapacity int       `json:"seat_capacity"` // halls.seat_capacity
    SeatsPerRow  int       `json:"seats_per_row"` // halls.seats_per_row
    CreatedAt    time.Time `json:"created_at"`    // halls.created_at
}

// Rows returns how many grid rows are needed to hold every seat.
func (h Hall) Rows() int {
    if h.SeatsPerRow <= 0 {
        return 0
    }
    return (h.SeatCapacity + h.SeatsPerRow - 1) / h.SeatsPerRow
}

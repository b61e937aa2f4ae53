package model

import "time"

// Booking records one customer holding one seat of one showing.
// Cancelling sets Cancelled and CancelledAt; rows are never deleted so the
// customer's history stays intact.
//
// Fields:
//  ID          – primary key identifier.
//  ShowingID   – the showing the seat belongs to.
//  CustomerID  – user ID of the customer.
//  Seat        – 1-indexed seat number.
//  BookedAt    – when the booking was made.
//  Cancelled   – whether the booking was cancelled.
//  CancelledAt – when it was cancelled (nil while active).
type Booking struct {
    ID          uint64     `json:"id"`                     // bookings.id
    ShowingID   uint64     `json:"showing_id"`             // bookings.showing_id
    CustomerID  uint64     `json:"customer_id"`            // bookings.customer_id
    Seat        int        `json:"seat"`                   // bookings.seat
    BookedAt    time.Time  `json:"booked_at"`              // bookings.booked_at
    Cancelled   bool       `json:"cancelled"`              // bookings.cancelled
    CancelledAt *time.Time `json:"cancelled_at,omitempty"` // bookings.cancelled_at (nullable)
}

// Active reports whether the booking still holds its seat.
func (b Booking) Active() bool { return !b.Cancelled }

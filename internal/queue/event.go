// Package queue defines the message payloads exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import "time"

// Queue names.  Messages go through the default exchange with the queue
// name as routing key.
const (
    QueueShowingsScheduled = "showings.scheduled"
    QueueBookingConfirmed  = "booking.confirmed"
    QueueBookingCancelled  = "booking.cancelled"
)

// AllQueues lists every queue the consumer subscribes to.
var AllQueues = []string{QueueShowingsScheduled, QueueBookingConfirmed, QueueBookingCancelled}

// ShowingsScheduledEvent is published after an add-film request commits.
type ShowingsScheduledEvent struct {
    EventID    string      `json:"event_id"`
    MovieID    uint64      `json:"movie_id"`
    MovieTitle string      `json:"movie_title"`
    HallID     uint64      `json:"hall_id"`
    StaffID    uint64      `json:"staff_id"`
    Showings   []ShowingAt `json:"showings"`
    OccurredAt time.Time   `json:"occurred_at"`
}

// ShowingAt is one scheduled slot inside ShowingsScheduledEvent.
type ShowingAt struct {
    ShowingID uint64    `json:"showing_id"`
    StartsAt  time.Time `json:"starts_at"`
    EndsAt    time.Time `json:"ends_at"`
}

// BookingEvent is published when a seat is booked or a booking cancelled.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
    EventID        string    `json:"event_id"`
    BookingID      uint64    `json:"booking_id"`
    ShowingID      uint64    `json:"showing_id"`
    HallID         uint64    `json:"hall_id"`
    CustomerID     uint64    `json:"customer_id"`
    Seat           int       `json:"seat"`
    AvailableCount int       `json:"available_count"`
    OccurredAt     time.Time `json:"occurred_at"`
}

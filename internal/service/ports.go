// Package service holds the booking core: scheduling new films into halls
// without overlaps, and booking or cancelling seats of a showing.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// The store interfaces are satisfied by the MySQL repositories.  Methods
// ending in Tx run inside the transaction they are given.

type HallStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
	LockTx(ctx context.Context, tx database.Tx, id uint64) (*model.Hall, error)
}

type MovieStore interface {
	GetByTitleTx(ctx context.Context, tx database.Tx, title string) (*model.Movie, error)
	CreateTx(ctx context.Context, tx database.Tx, m *model.Movie) error
	LinkStaffTx(ctx context.Context, tx database.Tx, movieID, staffID uint64) error
	Search(ctx context.Context, q string) ([]model.Movie, error)
}

type ShowingStore interface {
	FindOverlapping(ctx context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error)
	FindOverlappingTx(ctx context.Context, tx database.Tx, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error)
	CreateTx(ctx context.Context, tx database.Tx, s *model.Showing) error
	GetByID(ctx context.Context, id uint64) (*model.Showing, error)
	GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Showing, error)
	UpdateSeatsTx(ctx context.Context, tx database.Tx, s *model.Showing) error
}

type BookingStore interface {
	CreateTx(ctx context.Context, tx database.Tx, b *model.Booking) error
	FindActiveTx(ctx context.Context, tx database.Tx, showingID, customerID uint64, seat int) (*model.Booking, error)
	CancelTx(ctx context.Context, tx database.Tx, id uint64, at time.Time) error
}

// EventPublisher sends domain events.  Failures never fail the operation
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// rollback is deferred after Begin; it is a no-op once committed.
func rollback(tx database.Tx, committed *bool) {
	if !*committed {
		_ = tx.Rollback()
	}
}

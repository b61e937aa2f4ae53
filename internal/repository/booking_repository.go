package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

const bookingColumns = `id, showing_id, customer_id, seat, booked_at, cancelled, cancelled_at`

// BookingRepo stores one row per booked seat.  Rows are soft-cancelled,
// never deleted.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// CreateTx inserts b.  The unique index over (showing_id, active seat)
// turns a second active booking of the same seat into ErrDuplicate.
func (r *BookingRepo) CreateTx(ctx context.Context, tx database.Tx, b *model.Booking) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	res, err := database.UnwrapTx(tx).ExecContext(ctx,
		`INSERT INTO bookings (showing_id, customer_id, seat, booked_at) VALUES (?, ?, ?, ?)`,
		b.ShowingID, b.CustomerID, b.Seat, b.BookedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// FindActiveTx returns the non-cancelled booking of seat by customerID, or
// ErrBookingNotFound.
func (r *BookingRepo) FindActiveTx(ctx context.Context, tx database.Tx, showingID, customerID uint64, seat int) (*model.Booking, error) {
	if err := unwrap(tx); err != nil {
		return nil, err
	}
	row := database.UnwrapTx(tx).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE showing_id = ? AND customer_id = ? AND seat = ? AND cancelled = 0
		 LIMIT 1 FOR UPDATE`,
		showingID, customerID, seat)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// CancelTx marks the booking cancelled at the given instant.
func (r *BookingRepo) CancelTx(ctx context.Context, tx database.Tx, id uint64, at time.Time) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	res, err := database.UnwrapTx(tx).ExecContext(ctx,
		`UPDATE bookings SET cancelled = 1, cancelled_at = ? WHERE id = ? AND cancelled = 0`, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByCustomer returns the customer's bookings, newest first, including
// cancelled ones.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_id = ? ORDER BY booked_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(rs rowScanner) (*model.Booking, error) {
	var (
		b           model.Booking
		cancelledAt sql.NullTime
	)
	if err := rs.Scan(&b.ID, &b.ShowingID, &b.CustomerID, &b.Seat, &b.BookedAt, &b.Cancelled, &cancelledAt); err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/lock"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// maxStaleRetries bounds how often a book or cancel is replayed after the
// versioned update lost a race.
const maxStaleRetries = 3

// SeatLedger books and cancels seats.  Calls for one showing are
// serialized twice over: by the Locker (in-process or Redis) and by the
// row lock plus version check in the store.  Different showings never
// wait on each other.
type SeatLedger struct {
	txm       database.TxManager
	showings  ShowingStore
	bookings  BookingStore
	locker    lock.Locker
	cache     cache.Cache
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewSeatLedger(txm database.TxManager, showings ShowingStore, bookings BookingStore, locker lock.Locker,
	c cache.Cache, pub EventPublisher, m *metrics.Metrics) *SeatLedger {
	if txm == nil || showings == nil || bookings == nil || c == nil {
		panic("nil dependency passed to NewSeatLedger")
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &SeatLedger{txm: txm, showings: showings, bookings: bookings, locker: locker,
		cache: c, publisher: pub, metrics: m, now: time.Now}
}

func showingKey(id uint64) string { return "showing:" + strconv.FormatUint(id, 10) }

func (l *SeatLedger) acquire(ctx context.Context, showingID uint64) (func(), error) {
	start := time.Now()
	unlock, err := l.locker.Lock(ctx, showingKey(showingID))
	if err != nil {
		l.metrics.LockWaitDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrShowingBusy
		}
		return nil, err
	}
	l.metrics.LockWaitDuration.WithLabelValues("acquired").Observe(time.Since(start).Seconds())
	return unlock, nil
}

// Book reserves seat of showingID for customerID.  It fails with
// NotFoundError for an unknown showing, ValidationError when seat is not
// in 1..capacity and ConflictError when the seat is already taken.  On
// success the showing's available count has dropped by exactly one.
func (l *SeatLedger) Book(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error) {
	unlock, err := l.acquire(ctx, showingID)
	if err != nil {
		l.count("book", err)
		return nil, err
	}
	defer unlock()

	var (
		b  *model.Booking
		sh *model.Showing
	)
	for attempt := 0; ; attempt++ {
		b, sh, err = l.bookOnce(ctx, showingID, customerID, seat)
		if errors.Is(err, repository.ErrStaleShowing) && attempt < maxStaleRetries {
			continue
		}
		break
	}
	l.count("book", err)
	if err != nil {
		return nil, err
	}

	l.afterWrite(ctx, queue.QueueBookingConfirmed, b, sh)
	return b, nil
}

func (l *SeatLedger) bookOnce(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, *model.Showing, error) {
	tx, err := l.txm.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer rollback(tx, &committed)

	sh, err := l.showings.GetForUpdateTx(ctx, tx, showingID)
	if err != nil {
		if errors.Is(err, repository.ErrShowingNotFound) {
			return nil, nil, &NotFoundError{Entity: "showing", ID: showingID}
		}
		return nil, nil, err
	}
	if !sh.ValidSeat(seat) {
		return nil, nil, &ValidationError{Field: "seat", Reason: "must be between 1 and " + strconv.Itoa(sh.SeatCapacity)}
	}
	if !sh.Reserve(seat) {
		return nil, nil, &ConflictError{ShowingID: showingID, Seat: seat}
	}
	if err := l.showings.UpdateSeatsTx(ctx, tx, sh); err != nil {
		return nil, nil, err
	}

	b := &model.Booking{
		ShowingID:  showingID,
		CustomerID: customerID,
		Seat:       seat,
		BookedAt:   l.now().UTC(),
	}
	if err := l.bookings.CreateTx(ctx, tx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, &ConflictError{ShowingID: showingID, Seat: seat}
		}
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return b, sh, nil
}

// Cancel releases customerID's active booking of seat.  It fails with
// NotFoundError when the showing is unknown or no such active booking
// exists.  The booking row is kept, marked cancelled.
func (l *SeatLedger) Cancel(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error) {
	unlock, err := l.acquire(ctx, showingID)
	if err != nil {
		l.count("cancel", err)
		return nil, err
	}
	defer unlock()

	var (
		b  *model.Booking
		sh *model.Showing
	)
	for attempt := 0; ; attempt++ {
		b, sh, err = l.cancelOnce(ctx, showingID, customerID, seat)
		if errors.Is(err, repository.ErrStaleShowing) && attempt < maxStaleRetries {
			continue
		}
		break
	}
	l.count("cancel", err)
	if err != nil {
		return nil, err
	}

	l.afterWrite(ctx, queue.QueueBookingCancelled, b, sh)
	return b, nil
}

func (l *SeatLedger) cancelOnce(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, *model.Showing, error) {
	tx, err := l.txm.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer rollback(tx, &committed)

	sh, err := l.showings.GetForUpdateTx(ctx, tx, showingID)
	if err != nil {
		if errors.Is(err, repository.ErrShowingNotFound) {
			return nil, nil, &NotFoundError{Entity: "showing", ID: showingID}
		}
		return nil, nil, err
	}
	b, err := l.bookings.FindActiveTx(ctx, tx, showingID, customerID, seat)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, nil, &NotFoundError{Entity: "booking", ID: showingKey(showingID) + "/seat:" + strconv.Itoa(seat)}
		}
		return nil, nil, err
	}

	if sh.Release(seat) {
		if err := l.showings.UpdateSeatsTx(ctx, tx, sh); err != nil {
			return nil, nil, err
		}
	} else {
		logger.Warn("active booking for a seat the showing does not hold",
			zap.Uint64("showing_id", showingID), zap.Int("seat", seat), zap.Uint64("booking_id", b.ID))
	}

	at := l.now().UTC()
	if err := l.bookings.CancelTx(ctx, tx, b.ID, at); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, nil, &NotFoundError{Entity: "booking", ID: b.ID}
		}
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	b.Cancelled = true
	b.CancelledAt = &at
	return b, sh, nil
}

// afterWrite runs once a book or cancel committed: drop the hall's cached
// seat maps and publish the event.
func (l *SeatLedger) afterWrite(ctx context.Context, q string, b *model.Booking, sh *model.Showing) {
	ns := cache.SeatMapNS(sh.HallID)
	if err := l.cache.Invalidate(ctx, ns); err != nil {
		logger.Warn("cache invalidate failed", zap.String("namespace", ns), zap.Error(err))
	}
	_ = l.publisher.Publish(ctx, q, queue.BookingEvent{
		EventID:        uuid.NewString(),
		BookingID:      b.ID,
		ShowingID:      b.ShowingID,
		HallID:         sh.HallID,
		CustomerID:     b.CustomerID,
		Seat:           b.Seat,
		AvailableCount: sh.AvailableCount,
		OccurredAt:     l.now().UTC(),
	})
	logger.Debug(q, zap.Uint64("showing_id", b.ShowingID), zap.Int("seat", b.Seat), zap.Int("available", sh.AvailableCount))
}

func (l *SeatLedger) count(op string, err error) {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
	)
	result := "success"
	switch {
	case err == nil:
	case errors.As(err, &ce):
		result = "conflict"
	case errors.As(err, &nf):
		result = "not_found"
	case errors.As(err, &ve):
		result = "invalid"
	case errors.Is(err, ErrShowingBusy):
		result = "busy"
	default:
		result = "error"
	}
	l.metrics.BookingsTotal.WithLabelValues(op, result).Inc()
}

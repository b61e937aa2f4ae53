package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

const showingColumns = `id, movie_id, hall_id, starts_at, ends_at, seat_capacity, reserved_seats, available_count, version, created_at`

// overlapPredicate selects rows whose [starts_at, ends_at) shares an
// instant with the candidate window: NOT (ends before it starts OR starts
// after it ends).
const overlapPredicate = `hall_id = ? AND NOT (ends_at <= ? OR starts_at >= ?)`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ShowingRepo manages persistence for showings, including their seat
// reservation state.
type ShowingRepo struct {
	db *sql.DB
}

// NewShowingRepo constructs a ShowingRepo with the given DB handle.
func NewShowingRepo(db *sql.DB) *ShowingRepo {
	return &ShowingRepo{db: db}
}

// FindOverlapping returns every showing in hallID whose time slot overlaps
// w, ordered by start time.  It returns an empty slice when there are none.
func (r *ShowingRepo) FindOverlapping(ctx context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	return r.findOverlapping(ctx, r.db, hallID, w)
}

// FindOverlappingTx is FindOverlapping evaluated inside tx, so it sees the
// same snapshot the caller is about to write against.
func (r *ShowingRepo) FindOverlappingTx(ctx context.Context, tx database.Tx, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	if err := unwrap(tx); err != nil {
		return nil, err
	}
	return r.findOverlapping(ctx, database.UnwrapTx(tx), hallID, w)
}

func (r *ShowingRepo) findOverlapping(ctx context.Context, q queryer, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+showingColumns+` FROM showings WHERE `+overlapPredicate+` ORDER BY starts_at ASC`,
		hallID, w.Start(), w.End())
	if err != nil {
		return nil, err
	}
	return scanShowings(rows)
}

// CreateTx inserts s inside tx.  ID, Version and CreatedAt are filled in.
func (r *ShowingRepo) CreateTx(ctx context.Context, tx database.Tx, s *model.Showing) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	seats, err := encodeSeats(s.ReservedSeats)
	if err != nil {
		return err
	}
	sqlTx := database.UnwrapTx(tx)
	res, err := sqlTx.ExecContext(ctx,
		`INSERT INTO showings (movie_id, hall_id, starts_at, ends_at, seat_capacity, reserved_seats, available_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.MovieID, s.HallID, s.StartsAt, s.EndsAt, s.SeatCapacity, seats, s.AvailableCount)
	if err != nil {
		return wrapf(err, "insert showing")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanShowing(sqlTx.QueryRowContext(ctx, `SELECT `+showingColumns+` FROM showings WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetByID returns ErrShowingNotFound when no row matches.
func (r *ShowingRepo) GetByID(ctx context.Context, id uint64) (*model.Showing, error) {
	return scanShowing(r.db.QueryRowContext(ctx, `SELECT `+showingColumns+` FROM showings WHERE id = ?`, id))
}

// GetForUpdateTx reads the showing with an exclusive row lock held until
// tx ends.
func (r *ShowingRepo) GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Showing, error) {
	if err := unwrap(tx); err != nil {
		return nil, err
	}
	return scanShowing(database.UnwrapTx(tx).QueryRowContext(ctx,
		`SELECT `+showingColumns+` FROM showings WHERE id = ? FOR UPDATE`, id))
}

// UpdateSeatsTx writes the reservation state of s, provided the stored
// version still equals s.Version.  On success s.Version is incremented; if
// another writer got there first ErrStaleShowing is returned.
func (r *ShowingRepo) UpdateSeatsTx(ctx context.Context, tx database.Tx, s *model.Showing) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	seats, err := encodeSeats(s.ReservedSeats)
	if err != nil {
		return err
	}
	res, err := database.UnwrapTx(tx).ExecContext(ctx,
		`UPDATE showings SET reserved_seats = ?, available_count = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		seats, s.AvailableCount, s.ID, s.Version)
	if err != nil {
		return wrapf(err, "update showing %d", s.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleShowing
	}
	s.Version++
	return nil
}

// ListByMovie returns the showings of a movie ordered by start time.
func (r *ShowingRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showingColumns+` FROM showings WHERE movie_id = ? ORDER BY starts_at ASC`, movieID)
	if err != nil {
		return nil, err
	}
	return scanShowings(rows)
}

// ListByHall returns the showings scheduled in a hall ordered by start time.
func (r *ShowingRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Showing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showingColumns+` FROM showings WHERE hall_id = ? ORDER BY starts_at ASC`, hallID)
	if err != nil {
		return nil, err
	}
	return scanShowings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShowingRow(rs rowScanner) (*model.Showing, error) {
	var (
		s   model.Showing
		raw []byte
	)
	if err := rs.Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartsAt, &s.EndsAt,
		&s.SeatCapacity, &raw, &s.AvailableCount, &s.Version, &s.CreatedAt); err != nil {
		return nil, err
	}
	seats, err := decodeSeats(raw)
	if err != nil {
		return nil, wrapf(err, "showing %d reserved_seats", s.ID)
	}
	s.ReservedSeats = seats
	return &s, nil
}

func scanShowing(row *sql.Row) (*model.Showing, error) {
	s, err := scanShowingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowingNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanShowings(rows *sql.Rows) ([]model.Showing, error) {
	defer rows.Close()
	out := []model.Showing{}
	for rows.Next() {
		s, err := scanShowingRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeSeats(seats []int) ([]byte, error) {
	if seats == nil {
		seats = []int{}
	}
	return json.Marshal(seats)
}

func decodeSeats(raw []byte) ([]int, error) {
	seats := []int{}
	if len(raw) == 0 {
		return seats, nil
	}
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

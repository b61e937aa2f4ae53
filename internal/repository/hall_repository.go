package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

const hallColumns = `id, name, seat_capacity, seats_per_row, created_at`

// HallRepo provides methods to create and retrieve halls.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

// Create inserts a new hall and reads back the stored row so CreatedAt is
// populated.  A taken name yields ErrHallNameExists.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	const qInsert = `INSERT INTO halls (name, seat_capacity, seats_per_row) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, h.Name, h.SeatCapacity, h.SeatsPerRow)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrHallNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)

	got, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// GetByID retrieves a hall by its ID.  It returns ErrHallNotFound when no
// row is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id)
	return scanHall(row)
}

// LockTx reads the hall inside tx with an exclusive row lock.  Scheduling
// takes this lock so concurrent add-film requests for one hall serialize.
func (r *HallRepo) LockTx(ctx context.Context, tx database.Tx, id uint64) (*model.Hall, error) {
	if err := unwrap(tx); err != nil {
		return nil, err
	}
	row := database.UnwrapTx(tx).QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ? FOR UPDATE`, id)
	return scanHall(row)
}

// List returns every hall ordered by name.
func (r *HallRepo) List(ctx context.Context) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM halls ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Hall{}
	for rows.Next() {
		var h model.Hall
		if err := rows.Scan(&h.ID, &h.Name, &h.SeatCapacity, &h.SeatsPerRow, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanHall(row *sql.Row) (*model.Hall, error) {
	var h model.Hall
	err := row.Scan(&h.ID, &h.Name, &h.SeatCapacity, &h.SeatsPerRow, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return &h, nil
}

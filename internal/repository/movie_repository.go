package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
)

const movieColumns = `id, title, description, duration_minutes, created_at`

// MovieRepo persists movies and the staff members who added them.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// GetByID returns ErrMovieNotFound when no row matches.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	return scanMovie(row)
}

// GetByTitleTx looks a movie up by exact title inside tx and locks the row
// so two add-film requests for the same title cannot both insert it.
func (r *MovieRepo) GetByTitleTx(ctx context.Context, tx database.Tx, title string) (*model.Movie, error) {
	if err := unwrap(tx); err != nil {
		return nil, err
	}
	row := database.UnwrapTx(tx).QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE title = ? FOR UPDATE`, title)
	return scanMovie(row)
}

// CreateTx inserts m and fills in its ID.
func (r *MovieRepo) CreateTx(ctx context.Context, tx database.Tx, m *model.Movie) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	res, err := database.UnwrapTx(tx).ExecContext(ctx,
		`INSERT INTO movies (title, description, duration_minutes) VALUES (?, ?, ?)`,
		m.Title, m.Description, m.DurationMinutes)
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
	m.ID = uint64(id)
	return nil
}

// LinkStaffTx records that staffID added movieID.  Linking twice is a no-op.
func (r *MovieRepo) LinkStaffTx(ctx context.Context, tx database.Tx, movieID, staffID uint64) error {
	if err := unwrap(tx); err != nil {
		return err
	}
	_, err := database.UnwrapTx(tx).ExecContext(ctx,
		`INSERT IGNORE INTO movie_staff (movie_id, staff_id) VALUES (?, ?)`, movieID, staffID)
	return err
}

// Search returns movies whose title or description contains a word starting
// with q, case-insensitively, ordered by title.  An empty q lists all movies.
func (r *MovieRepo) Search(ctx context.Context, q string) ([]model.Movie, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title ASC`)
	} else {
		p := likePrefix(q)
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+movieColumns+` FROM movies
			 WHERE LOWER(title) LIKE LOWER(CONCAT(?, '%')) OR LOWER(title) LIKE LOWER(CONCAT('% ', ?, '%'))
			    OR LOWER(description) LIKE LOWER(CONCAT(?, '%')) OR LOWER(description) LIKE LOWER(CONCAT('% ', ?, '%'))
			 ORDER BY title ASC`, p, p, p, p)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMovie(row *sql.Row) (*model.Movie, error) {
	var m model.Movie
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

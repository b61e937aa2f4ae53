package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

var (
	hallCols    = []string{"id", "name", "seat_capacity", "seats_per_row", "created_at"}
	movieCols   = []string{"id", "title", "description", "duration_minutes", "created_at"}
	showingCols = []string{"id", "movie_id", "hall_id", "starts_at", "ends_at", "seat_capacity", "reserved_seats", "available_count", "version", "created_at"}
	bookingCols = []string{"id", "showing_id", "customer_id", "seat", "booked_at", "cancelled", "cancelled_at"}
	userCols    = []string{"id", "username", "email", "first_name", "last_name", "password_hash", "role", "created_at"}
)

var created = time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) database.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := database.NewTxManager(db).Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func q(s string) string { return regexp.QuoteMeta(s) }

var errDup = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

type foreignTx struct{}

func (foreignTx) Commit() error   { return nil }
func (foreignTx) Rollback() error { return nil }

func TestHallRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHallRepo(db)

	mock.ExpectExec(q("INSERT INTO halls (name, seat_capacity, seats_per_row) VALUES (?, ?, ?)")).
		WithArgs("Main", 120, 12).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(q("FROM halls WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(hallCols).AddRow(7, "Main", 120, 12, created))

	h := &model.Hall{Name: "Main", SeatCapacity: 120, SeatsPerRow: 12}
	require.NoError(t, repo.Create(context.Background(), h))
	assert.Equal(t, uint64(7), h.ID)
	assert.Equal(t, created, h.CreatedAt)
}

func TestHallRepo_CreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHallRepo(db)

	mock.ExpectExec("INSERT INTO halls").WillReturnError(errDup)

	err := repo.Create(context.Background(), &model.Hall{Name: "Main", SeatCapacity: 10, SeatsPerRow: 5})
	assert.ErrorIs(t, err, ErrHallNameExists)
}

func TestHallRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHallRepo(db)

	mock.ExpectQuery(q("FROM halls WHERE id = ?")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(hallCols))

	_, err := repo.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrHallNotFound)
}

func TestHallRepo_LockTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHallRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery(q("FROM halls WHERE id = ? FOR UPDATE")).WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(hallCols).AddRow(2, "Small", 20, 5, created))
	mock.ExpectRollback()

	h, err := repo.LockTx(context.Background(), tx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Small", h.Name)
	require.NoError(t, tx.Rollback())
}

func TestHallRepo_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHallRepo(db)

	mock.ExpectQuery(q("FROM halls ORDER BY name")).
		WillReturnRows(sqlmock.NewRows(hallCols).
			AddRow(1, "A", 10, 5, created).
			AddRow(2, "B", 20, 5, created))

	halls, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, halls, 2)
	assert.Equal(t, "B", halls[1].Name)
}

func TestShowingRepo_FindOverlapping(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)

	start := time.Date(2024, 12, 10, 18, 0, 0, 0, time.UTC)
	w, err := schedule.NewTimeWindow(start, 2*time.Hour)
	require.NoError(t, err)

	mock.ExpectQuery(q("FROM showings WHERE hall_id = ? AND NOT (ends_at <= ? OR starts_at >= ?) ORDER BY starts_at ASC")).
		WithArgs(uint64(4), w.Start(), w.End()).
		WillReturnRows(sqlmock.NewRows(showingCols).
			AddRow(11, 3, 4, start.Add(-time.Hour), start.Add(30*time.Minute), 20, []byte("[2,7]"), 18, 5, created))

	got, err := repo.FindOverlapping(context.Background(), 4, w)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(11), got[0].ID)
	assert.Equal(t, []int{2, 7}, got[0].ReservedSeats)
	assert.Equal(t, int64(5), int64(got[0].Version))
}

func TestShowingRepo_FindOverlappingNoneIsEmptySlice(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)

	w, err := schedule.NewTimeWindow(created, time.Hour)
	require.NoError(t, err)
	mock.ExpectQuery("FROM showings WHERE hall_id").WillReturnRows(sqlmock.NewRows(showingCols))

	got, err := repo.FindOverlapping(context.Background(), 1, w)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestShowingRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)

	mock.ExpectQuery(q("FROM showings WHERE id = ?")).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(showingCols))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrShowingNotFound)
}

func TestShowingRepo_GetByIDEmptySeatColumn(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)

	mock.ExpectQuery(q("FROM showings WHERE id = ?")).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(showingCols).
			AddRow(9, 1, 1, created, created.Add(time.Hour), 10, nil, 10, 0, created))

	s, err := repo.GetByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []int{}, s.ReservedSeats)
}

func TestShowingRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)
	tx := beginTx(t, db, mock)

	starts := time.Date(2024, 12, 10, 18, 0, 0, 0, time.UTC)
	ends := starts.Add(90 * time.Minute)

	mock.ExpectExec("INSERT INTO showings").
		WithArgs(uint64(3), uint64(4), starts, ends, 20, []byte("[]"), 20).
		WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectQuery(q("FROM showings WHERE id = ?")).WithArgs(int64(15)).
		WillReturnRows(sqlmock.NewRows(showingCols).
			AddRow(15, 3, 4, starts, ends, 20, []byte("[]"), 20, 0, created))
	mock.ExpectCommit()

	s := &model.Showing{MovieID: 3, HallID: 4, StartsAt: starts, EndsAt: ends, SeatCapacity: 20, AvailableCount: 20}
	require.NoError(t, repo.CreateTx(context.Background(), tx, s))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(15), s.ID)
	assert.Equal(t, created, s.CreatedAt)
}

func TestShowingRepo_UpdateSeatsTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(q("UPDATE showings SET reserved_seats = ?")).
		WithArgs([]byte("[1,5]"), 18, uint64(3), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &model.Showing{ID: 3, ReservedSeats: []int{1, 5}, AvailableCount: 18, Version: 2}
	require.NoError(t, repo.UpdateSeatsTx(context.Background(), tx, s))
	require.NoError(t, tx.Commit())
	assert.EqualValues(t, 3, s.Version)
}

func TestShowingRepo_UpdateSeatsTxStale(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShowingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(q("UPDATE showings SET reserved_seats = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := &model.Showing{ID: 3, ReservedSeats: []int{1}, AvailableCount: 19, Version: 2}
	err := repo.UpdateSeatsTx(context.Background(), tx, s)
	assert.ErrorIs(t, err, ErrStaleShowing)
	assert.EqualValues(t, 2, s.Version)
	require.NoError(t, tx.Rollback())
}

func TestShowingRepo_RejectsForeignTx(t *testing.T) {
	db, _ := newMock(t)
	repo := NewShowingRepo(db)

	err := repo.UpdateSeatsTx(context.Background(), foreignTx{}, &model.Showing{ID: 1})
	assert.ErrorIs(t, err, errForeignTx)
	_, err = repo.GetForUpdateTx(context.Background(), foreignTx{}, 1)
	assert.ErrorIs(t, err, errForeignTx)
}

func TestBookingRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(uint64(3), uint64(8), 5, created).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	b := &model.Booking{ShowingID: 3, CustomerID: 8, Seat: 5, BookedAt: created}
	require.NoError(t, repo.CreateTx(context.Background(), tx, b))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(41), b.ID)
}

func TestBookingRepo_CreateTxDuplicateSeat(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO bookings").WillReturnError(errDup)
	mock.ExpectRollback()

	err := repo.CreateTx(context.Background(), tx, &model.Booking{ShowingID: 3, CustomerID: 8, Seat: 5, BookedAt: created})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, tx.Rollback())
}

func TestBookingRepo_FindActiveTxNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery(q("AND cancelled = 0")).
		WithArgs(uint64(3), uint64(8), 5).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectRollback()

	_, err := repo.FindActiveTx(context.Background(), tx, 3, 8, 5)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	require.NoError(t, tx.Rollback())
}

func TestBookingRepo_CancelTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	tx := beginTx(t, db, mock)
	at := created.Add(time.Hour)

	mock.ExpectExec(q("UPDATE bookings SET cancelled = 1")).
		WithArgs(at, uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE bookings SET cancelled = 1")).
		WithArgs(at, uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.CancelTx(context.Background(), tx, 41, at))
	assert.ErrorIs(t, repo.CancelTx(context.Background(), tx, 41, at), ErrBookingNotFound)
	require.NoError(t, tx.Commit())
}

func TestBookingRepo_ListByCustomer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	cancelledAt := created.Add(2 * time.Hour)

	mock.ExpectQuery(q("FROM bookings WHERE customer_id = ?")).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(42, 3, 8, 6, created.Add(time.Hour), false, nil).
			AddRow(41, 3, 8, 5, created, true, cancelledAt))

	got, err := repo.ListByCustomer(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Active())
	assert.Nil(t, got[0].CancelledAt)
	assert.False(t, got[1].Active())
	require.NotNil(t, got[1].CancelledAt)
	assert.Equal(t, cancelledAt, *got[1].CancelledAt)
}

func TestMovieRepo_SearchEmptyListsAll(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	mock.ExpectQuery(q("FROM movies ORDER BY title ASC")).
		WillReturnRows(sqlmock.NewRows(movieCols).
			AddRow(1, "Alien", "", 117, created).
			AddRow(2, "Heat", "", 170, created))

	got, err := repo.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMovieRepo_SearchEscapesWildcards(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)

	p := `50\%\_off`
	mock.ExpectQuery("LIKE").WithArgs(p, p, p, p).
		WillReturnRows(sqlmock.NewRows(movieCols))

	got, err := repo.Search(context.Background(), "50%_off")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMovieRepo_GetByTitleTxNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery(q("FROM movies WHERE title = ? FOR UPDATE")).WithArgs("Heat").
		WillReturnRows(sqlmock.NewRows(movieCols))
	mock.ExpectRollback()

	_, err := repo.GetByTitleTx(context.Background(), tx, "Heat")
	assert.ErrorIs(t, err, ErrMovieNotFound)
	require.NoError(t, tx.Rollback())
}

func TestMovieRepo_CreateAndLinkTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMovieRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO movies").WithArgs("Heat", "", 170).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT IGNORE INTO movie_staff").WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := &model.Movie{Title: "Heat", DurationMinutes: 170}
	require.NoError(t, repo.CreateTx(context.Background(), tx, m))
	require.NoError(t, repo.LinkStaffTx(context.Background(), tx, m.ID, 2))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(5), m.ID)
}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "", "", sqlmock.AnyArg(), model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(12, 1))

	u := &model.User{Username: "  Alice ", Email: "Alice@Example.com", Role: model.RoleCustomer}
	id, err := repo.Create(context.Background(), u, "s3cretpass", 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(errDup)

	_, err := repo.Create(context.Background(), &model.User{Username: "alice", Role: model.RoleStaff}, "s3cretpass", 4)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(q("FROM users WHERE username=?")).WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "bob", nil, "Bob", "", "hash", model.RoleStaff, created))
	mock.ExpectQuery(q("FROM users WHERE id=?")).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := repo.GetByUsername(context.Background(), " BOB ")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, "", u.Email)

	_, err = repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `a\\b`, likePrefix(`a\b`))
	assert.Equal(t, "plain", likePrefix("plain"))
}

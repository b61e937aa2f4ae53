package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// memStore is an in-memory stand-in for the MySQL repositories.  Writes made
// through a fakeTx are applied immediately and undone on Rollback.
type memStore struct {
	mu        sync.Mutex
	nextID    uint64
	halls     map[uint64]model.Hall
	movies    map[uint64]model.Movie
	links     map[[2]uint64]bool
	showings  map[uint64]model.Showing
	bookings  map[uint64]model.Booking
	searches  int
	commits   int
	rollbacks int

	// failShowingCreate makes the n-th CreateTx on showings fail (1-based).
	failShowingCreate int
	showingCreates    int
}

func newMemStore() *memStore {
	return &memStore{
		halls:    map[uint64]model.Hall{},
		movies:   map[uint64]model.Movie{},
		links:    map[[2]uint64]bool{},
		showings: map[uint64]model.Showing{},
		bookings: map[uint64]model.Booking{},
	}
}

type fakeTx struct {
	s    *memStore
	undo []func()
	done bool
}

func (t *fakeTx) Commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.undo = nil
	t.s.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.rollbacks++
	return nil
}

func (s *memStore) Begin(context.Context) (database.Tx, error) {
	return &fakeTx{s: s}, nil
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) onUndo(tx database.Tx, f func()) {
	ft := tx.(*fakeTx)
	ft.undo = append(ft.undo, f)
}

func clone(sh model.Showing) model.Showing {
	sh.ReservedSeats = append([]int{}, sh.ReservedSeats...)
	return sh
}

// seeding helpers

func (s *memStore) addHall(capacity, perRow int) model.Hall {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := model.Hall{ID: s.id(), Name: "Hall", SeatCapacity: capacity, SeatsPerRow: perRow}
	s.halls[h.ID] = h
	return h
}

func (s *memStore) addShowing(hall model.Hall, start time.Time, d time.Duration) model.Showing {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, _ := schedule.NewTimeWindow(start, d)
	sh := model.NewShowing(0, hall, w)
	sh.ID = s.id()
	s.showings[sh.ID] = clone(sh)
	return sh
}

func (s *memStore) showing(id uint64) model.Showing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.showings[id])
}

func (s *memStore) showingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.showings)
}

func (s *memStore) movieCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

func (s *memStore) activeBookings(showingID uint64) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ShowingID == showingID && !b.Cancelled {
			out = append(out, b)
		}
	}
	return out
}

// hallStore

type hallStore struct{ *memStore }

func (h hallStore) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hall, ok := h.halls[id]
	if !ok {
		return nil, repository.ErrHallNotFound
	}
	return &hall, nil
}

func (h hallStore) LockTx(ctx context.Context, _ database.Tx, id uint64) (*model.Hall, error) {
	return h.GetByID(ctx, id)
}

// movieStore

type movieStore struct{ *memStore }

func (m movieStore) GetByTitleTx(_ context.Context, _ database.Tx, title string) (*model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range m.movies {
		if mv.Title == title {
			mv := mv
			return &mv, nil
		}
	}
	return nil, repository.ErrMovieNotFound
}

func (m movieStore) CreateTx(_ context.Context, tx database.Tx, mv *model.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv.ID = m.id()
	m.movies[mv.ID] = *mv
	id := mv.ID
	m.onUndo(tx, func() { delete(m.movies, id) })
	return nil
}

func (m movieStore) LinkStaffTx(_ context.Context, tx database.Tx, movieID, staffID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]uint64{movieID, staffID}
	if m.links[k] {
		return nil
	}
	m.links[k] = true
	m.onUndo(tx, func() { delete(m.links, k) })
	return nil
}

func (m movieStore) Search(_ context.Context, q string) ([]model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	out := []model.Movie{}
	for _, mv := range m.movies {
		if q == "" || wordPrefix(mv.Title, q) || wordPrefix(mv.Description, q) {
			out = append(out, mv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func wordPrefix(text, q string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if strings.HasPrefix(w, q) {
			return true
		}
	}
	return false
}

// showingStore

type showingStore struct{ *memStore }

func (s showingStore) FindOverlapping(_ context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Showing{}
	for _, sh := range s.showings {
		if sh.HallID == hallID && sh.EndsAt.After(w.Start()) && sh.StartsAt.Before(w.End()) {
			out = append(out, clone(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s showingStore) FindOverlappingTx(ctx context.Context, _ database.Tx, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	return s.FindOverlapping(ctx, hallID, w)
}

func (s showingStore) CreateTx(_ context.Context, tx database.Tx, sh *model.Showing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showingCreates++
	if s.failShowingCreate > 0 && s.showingCreates == s.failShowingCreate {
		return errors.New("disk full")
	}
	sh.ID = s.id()
	s.showings[sh.ID] = clone(*sh)
	id := sh.ID
	s.onUndo(tx, func() { delete(s.showings, id) })
	return nil
}

func (s showingStore) GetByID(_ context.Context, id uint64) (*model.Showing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.showings[id]
	if !ok {
		return nil, repository.ErrShowingNotFound
	}
	sh = clone(sh)
	return &sh, nil
}

func (s showingStore) GetForUpdateTx(ctx context.Context, _ database.Tx, id uint64) (*model.Showing, error) {
	return s.GetByID(ctx, id)
}

func (s showingStore) UpdateSeatsTx(_ context.Context, tx database.Tx, sh *model.Showing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.showings[sh.ID]
	if !ok || cur.Version != sh.Version {
		return repository.ErrStaleShowing
	}
	next := clone(*sh)
	next.Version++
	s.showings[sh.ID] = next
	sh.Version++
	s.onUndo(tx, func() { s.showings[cur.ID] = cur })
	return nil
}

// bookingStore

type bookingStore struct{ *memStore }

func (b bookingStore) CreateTx(_ context.Context, tx database.Tx, bk *model.Booking) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ex := range b.bookings {
		if ex.ShowingID == bk.ShowingID && ex.Seat == bk.Seat && !ex.Cancelled {
			return repository.ErrDuplicate
		}
	}
	bk.ID = b.id()
	b.bookings[bk.ID] = *bk
	id := bk.ID
	b.onUndo(tx, func() { delete(b.bookings, id) })
	return nil
}

func (b bookingStore) FindActiveTx(_ context.Context, _ database.Tx, showingID, customerID uint64, seat int) (*model.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ex := range b.bookings {
		if ex.ShowingID == showingID && ex.CustomerID == customerID && ex.Seat == seat && !ex.Cancelled {
			ex := ex
			return &ex, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (b bookingStore) CancelTx(_ context.Context, tx database.Tx, id uint64, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.bookings[id]
	if !ok || cur.Cancelled {
		return repository.ErrBookingNotFound
	}
	next := cur
	next.Cancelled = true
	next.CancelledAt = &at
	b.bookings[id] = next
	b.onUndo(tx, func() { b.bookings[id] = cur })
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, queue string, payload any) error {
	args := m.Called(ctx, queue, payload)
	return args.Error(0)
}

// primeCache stores a placeholder under the current generation of ns.
func primeCache(t *testing.T, c cache.Cache, ns, field string) {
	t.Helper()
	ctx := context.Background()
	gen, err := c.Generation(ctx, ns)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, ns, gen, field, []byte(`{}`)))
}

// cached reports whether ns currently serves an entry for field.
func cached(c cache.Cache, ns, field string) bool {
	ctx := context.Background()
	gen, err := c.Generation(ctx, ns)
	if err != nil {
		return false
	}
	_, ok, _ := c.Get(ctx, ns, gen, field)
	return ok
}

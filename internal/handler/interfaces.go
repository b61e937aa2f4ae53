package handler

import (
    "context"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/schedule"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// The handlers depend on these narrow views of the repositories and
// services so they can be exercised with mocks.

type UserStore interface {
    Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error)
    GetByUsername(ctx context.Context, username string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

type HallAdmin interface {
    Create(ctx context.Context, h *model.Hall) error
    GetByID(ctx context.Context, id uint64) (*model.Hall, error)
    List(ctx context.Context) ([]model.Hall, error)
}

type MovieReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

type ShowingReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Showing, error)
    ListByMovie(ctx context.Context, movieID uint64) ([]model.Showing, error)
    ListByHall(ctx context.Context, hallID uint64) ([]model.Showing, error)
}

type BookingReader interface {
    ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error)
}

type FilmScheduler interface {
    AddFilm(ctx context.Context, in service.AddFilmInput) ([]model.Showing, error)
}

type SlotChecker interface {
    Collides(ctx context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error)
}

type SeatBooker interface {
    Book(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error)
    Cancel(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error)
}

type MovieSearcher interface {
    Search(ctx context.Context, q string) ([]model.Movie, error)
}

type SeatMapper interface {
    Render(ctx context.Context, hallID uint64, reserved []int) (*service.SeatMapView, error)
}

package handler

import (
    "context"
    "net/http/httptest"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/mock"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/schedule"
    "github.com/iliyamo/cinema-booking/internal/service"
)

type MockUserStore struct{ mock.Mock }

func (m *MockUserStore) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
    args := m.Called(ctx, u, password, cost)
    return args.Get(0).(uint64), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
    args := m.Called(ctx, username)
    return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
    args := m.Called(ctx, id)
    return args.Get(0).(model.User), args.Error(1)
}

type MockHalls struct{ mock.Mock }

func (m *MockHalls) Create(ctx context.Context, h *model.Hall) error {
    return m.Called(ctx, h).Error(0)
}

func (m *MockHalls) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
    args := m.Called(ctx, id)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Hall), args.Error(1)
}

func (m *MockHalls) List(ctx context.Context) ([]model.Hall, error) {
    args := m.Called(ctx)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Hall), args.Error(1)
}

type MockMovies struct{ mock.Mock }

func (m *MockMovies) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
    args := m.Called(ctx, id)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Movie), args.Error(1)
}

type MockShowings struct{ mock.Mock }

func (m *MockShowings) GetByID(ctx context.Context, id uint64) (*model.Showing, error) {
    args := m.Called(ctx, id)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Showing), args.Error(1)
}

func (m *MockShowings) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showing, error) {
    args := m.Called(ctx, movieID)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Showing), args.Error(1)
}

func (m *MockShowings) ListByHall(ctx context.Context, hallID uint64) ([]model.Showing, error) {
    args := m.Called(ctx, hallID)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Showing), args.Error(1)
}

type MockBookings struct{ mock.Mock }

func (m *MockBookings) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
    args := m.Called(ctx, customerID)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Booking), args.Error(1)
}

type MockScheduler struct{ mock.Mock }

func (m *MockScheduler) AddFilm(ctx context.Context, in service.AddFilmInput) ([]model.Showing, error) {
    args := m.Called(ctx, in)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Showing), args.Error(1)
}

type MockDetector struct{ mock.Mock }

func (m *MockDetector) Collides(ctx context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
    args := m.Called(ctx, hallID, w)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Showing), args.Error(1)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) Book(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error) {
    args := m.Called(ctx, showingID, customerID, seat)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockLedger) Cancel(ctx context.Context, showingID, customerID uint64, seat int) (*model.Booking, error) {
    args := m.Called(ctx, showingID, customerID, seat)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Booking), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) Search(ctx context.Context, q string) ([]model.Movie, error) {
    args := m.Called(ctx, q)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Movie), args.Error(1)
}

type MockSeatMaps struct{ mock.Mock }

func (m *MockSeatMaps) Render(ctx context.Context, hallID uint64, reserved []int) (*service.SeatMapView, error) {
    args := m.Called(ctx, hallID, reserved)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*service.SeatMapView), args.Error(1)
}

// newTestContext builds an echo context for calling a handler directly.
// userID 0 means anonymous; params alternates name, value.
func newTestContext(method, target, body string, userID uint64, params ...string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    e.Validator = NewValidator()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if userID != 0 {
        c.Set("user_id", userID)
    }
    var names, values []string
    for i := 0; i+1 < len(params); i += 2 {
        names = append(names, params[i])
        values = append(values, params[i+1])
    }
    c.SetParamNames(names...)
    c.SetParamValues(values...)
    return c, rec
}

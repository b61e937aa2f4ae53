package handler

import (
    "encoding/json"
    "errors"
    "net/http"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/schedule"
    "github.com/iliyamo/cinema-booking/internal/service"
)

func christmas(hour int) time.Time {
    return time.Date(2024, 12, 25, hour, 0, 0, 0, time.UTC)
}

func newStaff() (*StaffHandler, *MockHalls, *MockScheduler, *MockDetector) {
    halls, sched, det := new(MockHalls), new(MockScheduler), new(MockDetector)
    return NewStaffHandler(halls, sched, det), halls, sched, det
}

func TestStaffHandler_AddFilm(t *testing.T) {
    body := `{"title":"Alien","duration_minutes":117,"hall_id":2,"showtimes":"25/12/24 20:00"}`
    in := service.AddFilmInput{Title: "Alien", DurationMinutes: 117, HallID: 2, RawTimes: "25/12/24 20:00", StaffID: 7}
    w, err := schedule.NewTimeWindow(christmas(20), 117*time.Minute)
    require.NoError(t, err)

    t.Run("created", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        sh := model.NewShowing(1, model.Hall{ID: 2, SeatCapacity: 20, SeatsPerRow: 5}, w)
        sh.ID = 11
        sched.On("AddFilm", mock.Anything, in).Return([]model.Showing{sh}, nil)

        c, rec := newTestContext(http.MethodPost, "/v1/films", body, 7)
        require.NoError(t, h.AddFilm(c))

        assert.Equal(t, http.StatusCreated, rec.Code)
        var resp struct {
            Showings []model.Showing `json:"showings"`
        }
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
        require.Len(t, resp.Showings, 1)
        assert.Equal(t, uint64(11), resp.Showings[0].ID)
        assert.Equal(t, 20, resp.Showings[0].AvailableCount)
        sched.AssertExpectations(t)
    })

    t.Run("collision lists existing showings", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        existing := model.Showing{ID: 9, MovieID: 3, HallID: 2, StartsAt: christmas(19), EndsAt: christmas(21)}
        sched.On("AddFilm", mock.Anything, in).Return(nil, &service.CollisionError{
            HallID:    2,
            Conflicts: []service.Collision{{Window: w, Existing: []model.Showing{existing}}},
        })

        c, rec := newTestContext(http.MethodPost, "/v1/films", body, 7)
        require.NoError(t, h.AddFilm(c))

        assert.Equal(t, http.StatusConflict, rec.Code)
        var resp struct {
            Error      string          `json:"error"`
            Collisions []collisionBody `json:"collisions"`
        }
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
        require.Len(t, resp.Collisions, 1)
        assert.True(t, resp.Collisions[0].Start.Equal(christmas(20)))
        require.Len(t, resp.Collisions[0].Existing, 1)
        assert.Equal(t, uint64(9), resp.Collisions[0].Existing[0].ShowingID)
    })

    t.Run("parse error names the item", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        sched.On("AddFilm", mock.Anything, mock.Anything).
            Return(nil, &schedule.ParseError{Index: 1, Item: "32/12/24 10:00", Reason: "expected DD/MM/YY HH:MM"})

        c, rec := newTestContext(http.MethodPost, "/v1/films", body, 7)
        require.NoError(t, h.AddFilm(c))

        assert.Equal(t, http.StatusBadRequest, rec.Code)
        assert.JSONEq(t, `{"error":"showtimes: item 2 (\"32/12/24 10:00\"): expected DD/MM/YY HH:MM","index":1,"item":"32/12/24 10:00"}`, rec.Body.String())
    })

    t.Run("unknown hall", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        sched.On("AddFilm", mock.Anything, mock.Anything).Return(nil, &service.NotFoundError{Entity: "hall", ID: uint64(2)})

        c, rec := newTestContext(http.MethodPost, "/v1/films", body, 7)
        require.NoError(t, h.AddFilm(c))
        assert.Equal(t, http.StatusNotFound, rec.Code)
    })

    t.Run("oversized duration never reaches the scheduler", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        for _, d := range []string{"1441", "200000000", "400000000"} {
            c, rec := newTestContext(http.MethodPost, "/v1/films",
                `{"title":"Alien","duration_minutes":`+d+`,"hall_id":2,"showtimes":"25/12/24 20:00"}`, 7)
            require.NoError(t, h.AddFilm(c))
            assert.Equal(t, http.StatusBadRequest, rec.Code, d)
        }
        sched.AssertNotCalled(t, "AddFilm", mock.Anything, mock.Anything)
    })

    t.Run("missing title never reaches the scheduler", func(t *testing.T) {
        h, _, sched, _ := newStaff()
        c, rec := newTestContext(http.MethodPost, "/v1/films", `{"hall_id":2,"duration_minutes":90}`, 7)
        require.NoError(t, h.AddFilm(c))
        assert.Equal(t, http.StatusBadRequest, rec.Code)
        sched.AssertNotCalled(t, "AddFilm", mock.Anything, mock.Anything)
    })
}

func TestStaffHandler_CreateHall(t *testing.T) {
    t.Run("created", func(t *testing.T) {
        h, halls, _, _ := newStaff()
        halls.On("Create", mock.Anything, mock.MatchedBy(func(hl *model.Hall) bool {
            return hl.Name == "Hall 1" && hl.SeatCapacity == 120 && hl.SeatsPerRow == 12
        })).Run(func(args mock.Arguments) {
            args.Get(1).(*model.Hall).ID = 4
        }).Return(nil)

        c, rec := newTestContext(http.MethodPost, "/v1/halls", `{"name":" Hall 1 ","seat_capacity":120,"seats_per_row":12}`, 1)
        require.NoError(t, h.CreateHall(c))
        assert.Equal(t, http.StatusCreated, rec.Code)
        assert.Contains(t, rec.Body.String(), `"id":4`)
    })

    t.Run("invalid capacity", func(t *testing.T) {
        h, halls, _, _ := newStaff()
        c, rec := newTestContext(http.MethodPost, "/v1/halls", `{"name":"Hall 1","seat_capacity":0,"seats_per_row":12}`, 1)
        require.NoError(t, h.CreateHall(c))
        assert.Equal(t, http.StatusBadRequest, rec.Code)
        halls.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
    })

    t.Run("duplicate name", func(t *testing.T) {
        h, halls, _, _ := newStaff()
        halls.On("Create", mock.Anything, mock.Anything).Return(repository.ErrHallNameExists)
        c, rec := newTestContext(http.MethodPost, "/v1/halls", `{"name":"Hall 1","seat_capacity":10,"seats_per_row":5}`, 1)
        require.NoError(t, h.CreateHall(c))
        assert.Equal(t, http.StatusConflict, rec.Code)
    })
}

func TestStaffHandler_ListHalls(t *testing.T) {
    h, halls, _, _ := newStaff()
    halls.On("List", mock.Anything).Return([]model.Hall{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, nil)

    c, rec := newTestContext(http.MethodGet, "/v1/halls", "", 1)
    require.NoError(t, h.ListHalls(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Items []model.Hall `json:"items"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Len(t, resp.Items, 2)
}

func TestStaffHandler_Collisions(t *testing.T) {
    target := "/v1/halls/2/collisions?start=25%2F12%2F24+20%3A00&duration=60"

    t.Run("free slot", func(t *testing.T) {
        h, halls, _, det := newStaff()
        halls.On("GetByID", mock.Anything, uint64(2)).Return(&model.Hall{ID: 2}, nil)
        det.On("Collides", mock.Anything, uint64(2), mock.MatchedBy(func(w schedule.TimeWindow) bool {
            return w.Start().Equal(christmas(20)) && w.Duration() == time.Hour
        })).Return([]model.Showing{}, nil)

        c, rec := newTestContext(http.MethodGet, target, "", 1, "id", "2")
        require.NoError(t, h.Collisions(c))
        assert.Equal(t, http.StatusOK, rec.Code)

        var resp map[string]any
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
        assert.Equal(t, true, resp["free"])
        det.AssertExpectations(t)
    })

    t.Run("taken slot", func(t *testing.T) {
        h, halls, _, det := newStaff()
        halls.On("GetByID", mock.Anything, uint64(2)).Return(&model.Hall{ID: 2}, nil)
        det.On("Collides", mock.Anything, uint64(2), mock.Anything).
            Return([]model.Showing{{ID: 5, StartsAt: christmas(19), EndsAt: christmas(21)}}, nil)

        c, rec := newTestContext(http.MethodGet, target, "", 1, "id", "2")
        require.NoError(t, h.Collisions(c))

        var resp struct {
            Free       bool          `json:"free"`
            Collisions []showingSlot `json:"collisions"`
        }
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
        assert.False(t, resp.Free)
        require.Len(t, resp.Collisions, 1)
        assert.Equal(t, uint64(5), resp.Collisions[0].ShowingID)
    })

    t.Run("unknown hall", func(t *testing.T) {
        h, halls, _, _ := newStaff()
        halls.On("GetByID", mock.Anything, uint64(2)).Return(nil, repository.ErrHallNotFound)
        c, rec := newTestContext(http.MethodGet, target, "", 1, "id", "2")
        require.NoError(t, h.Collisions(c))
        assert.Equal(t, http.StatusNotFound, rec.Code)
    })

    t.Run("bad query", func(t *testing.T) {
        h, _, _, _ := newStaff()
        for _, q := range []string{
            "/v1/halls/2/collisions?start=25%2F12%2F24+20%3A00",
            "/v1/halls/2/collisions?start=25%2F12%2F24+20%3A00&duration=-5",
            "/v1/halls/2/collisions?start=25%2F12%2F24+20%3A00&duration=1441",
            "/v1/halls/2/collisions?start=25%2F12%2F24+20%3A00&duration=400000000",
            "/v1/halls/2/collisions?start=tomorrow&duration=60",
        } {
            c, rec := newTestContext(http.MethodGet, q, "", 1, "id", "2")
            require.NoError(t, h.Collisions(c))
            assert.Equal(t, http.StatusBadRequest, rec.Code, q)
        }
    })

    t.Run("store failure", func(t *testing.T) {
        h, halls, _, det := newStaff()
        halls.On("GetByID", mock.Anything, uint64(2)).Return(&model.Hall{ID: 2}, nil)
        det.On("Collides", mock.Anything, uint64(2), mock.Anything).Return(nil, errors.New("db down"))
        c, rec := newTestContext(http.MethodGet, target, "", 1, "id", "2")
        require.NoError(t, h.Collisions(c))
        assert.Equal(t, http.StatusInternalServerError, rec.Code)
        assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
    })
}

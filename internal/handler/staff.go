package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/middleware"
    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/schedule"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// StaffHandler serves the staff-only endpoints: hall administration,
// scheduling films and checking a slot for collisions.
type StaffHandler struct {
    Halls     HallAdmin
    Scheduler FilmScheduler
    Detector  SlotChecker
}

func NewStaffHandler(halls HallAdmin, sched FilmScheduler, det SlotChecker) *StaffHandler {
    if halls == nil || sched == nil || det == nil {
        panic("nil dependency passed to NewStaffHandler")
    }
    return &StaffHandler{Halls: halls, Scheduler: sched, Detector: det}
}

type createHallReq struct {
    Name         string `json:"name" validate:"required,max=100"`
    SeatCapacity int    `json:"seat_capacity" validate:"required,gt=0,lte=10000"`
    SeatsPerRow  int    `json:"seats_per_row" validate:"required,gt=0,lte=500"`
}

// CreateHall: POST /v1/halls
func (h *StaffHandler) CreateHall(c echo.Context) error {
    var req createHallReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    hall := model.Hall{Name: strings.TrimSpace(req.Name), SeatCapacity: req.SeatCapacity, SeatsPerRow: req.SeatsPerRow}
    if err := h.Halls.Create(ctx, &hall); err != nil {
        if errors.Is(err, repository.ErrHallNameExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "hall name already exists"})
        }
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, hall)
}

// ListHalls: GET /v1/halls
func (h *StaffHandler) ListHalls(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    halls, err := h.Halls.List(ctx)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": halls})
}

type addFilmReq struct {
    Title           string `json:"title" validate:"required,max=255"`
    Description     string `json:"description" validate:"max=2000"`
    DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
    HallID          uint64 `json:"hall_id" validate:"required"`
    Showtimes       string `json:"showtimes"`
}

// AddFilm: POST /v1/films
//
// showtimes is the raw "DD/MM/YY HH:MM, ..." list; it is parsed and checked
// by the scheduler so parse errors come back with the offending item.
func (h *StaffHandler) AddFilm(c echo.Context) error {
    var req addFilmReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    staffID, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    created, err := h.Scheduler.AddFilm(ctx, service.AddFilmInput{
        Title:           req.Title,
        Description:     req.Description,
        DurationMinutes: req.DurationMinutes,
        HallID:          req.HallID,
        RawTimes:        req.Showtimes,
        StaffID:         staffID,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"showings": created})
}

// Collisions: GET /v1/halls/:id/collisions?start=DD/MM/YY HH:MM&duration=N
//
// Reports which showings of the hall a candidate slot would overlap.
func (h *StaffHandler) Collisions(c echo.Context) error {
    hallID, ok := pathID(c, "id")
    if !ok {
        return badID(c, "hall id")
    }
    minutes, err := strconv.Atoi(c.QueryParam("duration"))
    if err != nil || minutes <= 0 || minutes > service.MaxDurationMinutes {
        return writeError(c, &service.ValidationError{
            Field:  "duration",
            Reason: "must be between 1 and " + strconv.Itoa(service.MaxDurationMinutes) + " minutes",
        })
    }
    start, err := schedule.ParseShowtime(strings.TrimSpace(c.QueryParam("start")))
    if err != nil {
        return writeError(c, err)
    }
    w, err := schedule.NewTimeWindow(start, time.Duration(minutes)*time.Minute)
    if err != nil {
        return writeError(c, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if _, err := h.Halls.GetByID(ctx, hallID); err != nil {
        if errors.Is(err, repository.ErrHallNotFound) {
            return writeError(c, &service.NotFoundError{Entity: "hall", ID: hallID})
        }
        return writeError(c, err)
    }
    hits, err := h.Detector.Collides(ctx, hallID, w)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "hall_id":    hallID,
        "start":      w.Start(),
        "end":        w.End(),
        "free":       len(hits) == 0,
        "collisions": slots(hits),
    })
}

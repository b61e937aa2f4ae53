package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking/internal/logger"
    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/schedule"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

type collisionBody struct {
    Start    time.Time     `json:"start"`
    End      time.Time     `json:"end"`
    Existing []showingSlot `json:"existing"`
}

type showingSlot struct {
    ShowingID uint64    `json:"showing_id"`
    MovieID   uint64    `json:"movie_id"`
    StartsAt  time.Time `json:"starts_at"`
    EndsAt    time.Time `json:"ends_at"`
}

func slots(in []model.Showing) []showingSlot {
    out := make([]showingSlot, 0, len(in))
    for _, s := range in {
        out = append(out, showingSlot{ShowingID: s.ID, MovieID: s.MovieID, StartsAt: s.StartsAt, EndsAt: s.EndsAt})
    }
    return out
}

// writeError maps service errors onto HTTP responses:
//
//  ValidationError, ParseError -> 400
//  schedule.ErrNonPositiveDuration -> 400
//  NotFoundError               -> 404
//  CollisionError              -> 409 with the colliding showings
//  ConflictError               -> 409
//  ErrShowingBusy              -> 503
//
// Anything else is logged and answered with 500.
func writeError(c echo.Context, err error) error {
    var (
        ve  *service.ValidationError
        pe  *service.ParseError
        nf  *service.NotFoundError
        col *service.CollisionError
        ce  *service.ConflictError
    )
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
    case errors.Is(err, schedule.ErrNonPositiveDuration):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "duration"})
    case errors.As(err, &pe):
        body := echo.Map{"error": pe.Error()}
        if pe.Index >= 0 {
            body["index"] = pe.Index
            body["item"] = pe.Item
        }
        return c.JSON(http.StatusBadRequest, body)
    case errors.As(err, &nf):
        return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
    case errors.As(err, &col):
        conflicts := make([]collisionBody, 0, len(col.Conflicts))
        for _, cc := range col.Conflicts {
            conflicts = append(conflicts, collisionBody{Start: cc.Window.Start(), End: cc.Window.End(), Existing: slots(cc.Existing)})
        }
        return c.JSON(http.StatusConflict, echo.Map{"error": col.Error(), "collisions": conflicts})
    case errors.As(err, &ce):
        return c.JSON(http.StatusConflict, echo.Map{"error": ce.Error(), "seat": ce.Seat})
    case errors.Is(err, service.ErrShowingBusy):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
    }
    logger.Error("request failed",
        zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    return n, err == nil && n > 0
}

func badID(c echo.Context, name string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

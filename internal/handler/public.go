package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/model"
    "github.com/iliyamo/cinema-booking/internal/repository"
    "github.com/iliyamo/cinema-booking/internal/service"
)

// PublicHandler serves the unauthenticated browse endpoints.
type PublicHandler struct {
    Catalog  MovieSearcher
    Movies   MovieReader
    Halls    HallAdmin
    Showings ShowingReader
    SeatMaps SeatMapper
}

func NewPublicHandler(catalog MovieSearcher, movies MovieReader, halls HallAdmin, showings ShowingReader, seatMaps SeatMapper) *PublicHandler {
    if catalog == nil || movies == nil || halls == nil || showings == nil || seatMaps == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Catalog: catalog, Movies: movies, Halls: halls, Showings: showings, SeatMaps: seatMaps}
}

// SearchMovies: GET /v1/movies?q=
func (h *PublicHandler) SearchMovies(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    items, err := h.Catalog.Search(ctx, c.QueryParam("q"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MovieShowings: GET /v1/movies/:id/showings
func (h *PublicHandler) MovieShowings(c echo.Context) error {
    movieID, ok := pathID(c, "id")
    if !ok {
        return badID(c, "movie id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    movie, err := h.Movies.GetByID(ctx, movieID)
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return writeError(c, &service.NotFoundError{Entity: "movie", ID: movieID})
        }
        return writeError(c, err)
    }
    items, err := h.Showings.ListByMovie(ctx, movieID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"movie": movie, "items": items})
}

// HallShowings: GET /v1/halls/:id/showings
func (h *PublicHandler) HallShowings(c echo.Context) error {
    hallID, ok := pathID(c, "id")
    if !ok {
        return badID(c, "hall id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    hall, err := h.Halls.GetByID(ctx, hallID)
    if err != nil {
        if errors.Is(err, repository.ErrHallNotFound) {
            return writeError(c, &service.NotFoundError{Entity: "hall", ID: hallID})
        }
        return writeError(c, err)
    }
    items, err := h.Showings.ListByHall(ctx, hallID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"hall": hall, "items": items})
}

// GetShowing: GET /v1/showings/:id
func (h *PublicHandler) GetShowing(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sh, err := h.showing(ctx, c)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, sh)
}

// SeatMap: GET /v1/showings/:id/seat-map
func (h *PublicHandler) SeatMap(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sh, err := h.showing(ctx, c)
    if err != nil {
        return writeError(c, err)
    }
    view, err := h.SeatMaps.Render(ctx, sh.HallID, sh.ReservedSeats)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "showing_id":      sh.ID,
        "available_count": sh.AvailableCount,
        "seat_map":        view,
    })
}

// showing loads the showing named by the :id parameter.
func (h *PublicHandler) showing(ctx context.Context, c echo.Context) (*model.Showing, error) {
    id, ok := pathID(c, "id")
    if !ok {
        return nil, &service.ValidationError{Field: "showing id", Reason: "must be a positive integer"}
    }
    sh, err := h.Showings.GetByID(ctx, id)
    if errors.Is(err, repository.ErrShowingNotFound) {
        return nil, &service.NotFoundError{Entity: "showing", ID: id}
    }
    return sh, err
}

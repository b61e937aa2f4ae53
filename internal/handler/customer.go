package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking/internal/middleware"
)

// CustomerHandler serves seat booking for authenticated customers.
type CustomerHandler struct {
    Ledger   SeatBooker
    Bookings BookingReader
}

func NewCustomerHandler(ledger SeatBooker, bookings BookingReader) *CustomerHandler {
    if ledger == nil || bookings == nil {
        panic("nil dependency passed to NewCustomerHandler")
    }
    return &CustomerHandler{Ledger: ledger, Bookings: bookings}
}

type bookReq struct {
    Seat int `json:"seat"`
}

// Book: POST /v1/showings/:id/bookings {seat}
func (h *CustomerHandler) Book(c echo.Context) error {
    showingID, ok := pathID(c, "id")
    if !ok {
        return badID(c, "showing id")
    }
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    b, err := h.Ledger.Book(ctx, showingID, uid, req.Seat)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Cancel: DELETE /v1/showings/:id/bookings/:seat
func (h *CustomerHandler) Cancel(c echo.Context) error {
    showingID, ok := pathID(c, "id")
    if !ok {
        return badID(c, "showing id")
    }
    seat, err := strconv.Atoi(c.Param("seat"))
    if err != nil {
        return badID(c, "seat")
    }
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    b, err := h.Ledger.Cancel(ctx, showingID, uid, seat)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// MyBookings: GET /v1/my-bookings, newest first, cancelled rows included.
func (h *CustomerHandler) MyBookings(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    items, err := h.Bookings.ListByCustomer(ctx, uid)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

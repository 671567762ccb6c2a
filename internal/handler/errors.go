// Package handler exposes the HTTP API: catalog browsing and maintenance,
// seat maps, booking commits and the bookings report.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string   `json:"error"`
	Seats []string `json:"seats,omitempty"`
}

// writeError maps booking errors onto HTTP statuses.  Unknown errors are
// logged and reported as 500 without detail.
func writeError(c echo.Context, err error) error {
	var taken *booking.SeatTakenError
	switch {
	case errors.As(err, &taken):
		return c.JSON(http.StatusConflict, errorBody{Error: booking.ErrSeatAlreadyTaken.Error(), Seats: taken.Seats})
	case errors.Is(err, booking.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, booking.ErrUniquenessViolation):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, booking.ErrStorageUnavailable):
		log.FromContext(c.Request().Context()).WithError(err).Warn("storage unavailable")
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "service temporarily unavailable, try again"})
	default:
		log.FromContext(c.Request().Context()).WithError(err).Error("unhandled error")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

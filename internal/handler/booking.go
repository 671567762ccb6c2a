package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// BookingHandler commits bookings and serves the bookings report.
type BookingHandler struct {
	Engine  *booking.Engine
	Reports *booking.Reports
}

type commitReq struct {
	MovieID      uint64   `json:"movie_id"`
	TheatreID    uint64   `json:"theatre_id"`
	Date         string   `json:"date"`
	Seats        []string `json:"seats"`
	CustomerName string   `json:"customer_name"`
	Phone        string   `json:"phone"`
}

// Commit handles POST /v1/bookings.  201 with the receipt on success, 409
// with the contested seats when any seat is already sold.
func (h *BookingHandler) Commit(c echo.Context) error {
	var req commitReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rcpt, err := h.Engine.CommitBooking(c.Request().Context(), booking.Request{
		Screening: model.Screening{
			MovieID:   req.MovieID,
			TheatreID: req.TheatreID,
			Date:      model.Date(req.Date),
		},
		Seats:        req.Seats,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rcpt)
}

// List handles GET /v1/bookings.  With ?grouped=true rows are folded into
// purchases.
func (h *BookingHandler) List(c echo.Context) error {
	grouped := false
	if v := c.QueryParam("grouped"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid grouped")
		}
		grouped = b
	}
	rows, err := h.Reports.ListAllBookings(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if grouped {
		return c.JSON(http.StatusOK, echo.Map{"purchases": booking.GroupPurchases(rows, booking.DefaultPurchaseTolerance)})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": rows})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// ScreeningHandler renders seat maps.
type ScreeningHandler struct {
	Availability *booking.Availability
}

// SeatMap handles GET /v1/screenings/seats?movie_id=&theatre_id=&date=.
func (h *ScreeningHandler) SeatMap(c echo.Context) error {
	s, err := screeningFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	m, err := h.Availability.SeatMap(c.Request().Context(), s)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func screeningFromQuery(c echo.Context) (model.Screening, error) {
	movieID, err := strconv.ParseUint(c.QueryParam("movie_id"), 10, 64)
	if err != nil || movieID == 0 {
		return model.Screening{}, errInvalidParam("movie_id")
	}
	theatreID, err := strconv.ParseUint(c.QueryParam("theatre_id"), 10, 64)
	if err != nil || theatreID == 0 {
		return model.Screening{}, errInvalidParam("theatre_id")
	}
	date, err := model.ParseDate(c.QueryParam("date"))
	if err != nil {
		return model.Screening{}, err
	}
	return model.Screening{MovieID: movieID, TheatreID: theatreID, Date: date}, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string { return "invalid " + string(e) }

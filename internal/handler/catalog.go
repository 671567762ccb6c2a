package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// CatalogHandler serves movies, theatres and the bookable dates.
type CatalogHandler struct {
	Catalog *booking.Catalog
	// OnChange runs after a successful insert, e.g. to purge cached lists.
	OnChange func(ctx context.Context) error
	Now      func() time.Time
}

type movieReq struct {
	Name            string `json:"name"`
	Genre           string `json:"genre"`
	DurationMinutes int    `json:"duration_minutes"`
	Rating          string `json:"rating"`
}

type theatreReq struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	TotalSeats int    `json:"total_seats"`
}

func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.Catalog.ListMovies(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": movies})
}

func (h *CatalogHandler) ListTheatres(c echo.Context) error {
	theatres, err := h.Catalog.ListTheatres(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"theatres": theatres})
}

func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx := c.Request().Context()
	m, err := h.Catalog.AddMovie(ctx, req.Name, req.Genre, req.DurationMinutes, req.Rating)
	if err != nil {
		return writeError(c, err)
	}
	h.changed(ctx)
	return c.JSON(http.StatusCreated, m)
}

func (h *CatalogHandler) CreateTheatre(c echo.Context) error {
	var req theatreReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx := c.Request().Context()
	t, err := h.Catalog.AddTheatre(ctx, req.Name, req.Location, req.TotalSeats)
	if err != nil {
		return writeError(c, err)
	}
	h.changed(ctx)
	return c.JSON(http.StatusCreated, t)
}

// ListDates returns today and the following six days.
func (h *CatalogHandler) ListDates(c echo.Context) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": model.CandidateDates(now())})
}

func (h *CatalogHandler) changed(ctx context.Context) {
	if h.OnChange == nil {
		return
	}
	if err := h.OnChange(ctx); err != nil {
		log.FromContext(ctx).WithError(err).Warn("catalog change hook failed")
	}
}

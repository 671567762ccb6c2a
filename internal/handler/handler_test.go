package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
	"github.com/iliyamo/screening-seat-booking/internal/handler"
	"github.com/iliyamo/screening-seat-booking/internal/middleware"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
	"github.com/iliyamo/screening-seat-booking/internal/router"
	"github.com/iliyamo/screening-seat-booking/internal/utils"
)

const secret = "test-secret"

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type api struct {
	e       *echo.Echo
	catalog *booking.Catalog
	changes int
	mu      sync.Mutex
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := repository.NewMemoryStore()
	catalog := booking.NewCatalog(store.Movies(), store.Theatres())
	ledger := store.Bookings()
	avail := booking.NewAvailability(ledger, nil)
	clock := func() time.Time { return fixedNow }
	engine := booking.NewEngine(catalog, ledger, avail, booking.WithClock(clock))

	hash, err := utils.HashPassword("letmein", bcrypt.MinCost)
	require.NoError(t, err)

	a := &api{e: echo.New(), catalog: catalog}
	a.e.Use(middleware.RequestLogger())
	router.RegisterRoutes(a.e, nil)
	router.RegisterAuth(a.e, &handler.AdminAuthHandler{Username: "admin", PasswordHash: hash, JWTSecret: secret, AccessTTLMin: 5})
	router.RegisterCatalog(a.e, &handler.CatalogHandler{
		Catalog: catalog,
		Now:     clock,
		OnChange: func(context.Context) error {
			a.mu.Lock()
			a.changes++
			a.mu.Unlock()
			return nil
		},
	}, secret, func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	router.RegisterBooking(a.e,
		&handler.ScreeningHandler{Availability: avail},
		&handler.BookingHandler{Engine: engine, Reports: booking.NewReports(ledger)},
		secret, func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	return a
}

func (a *api) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) login(t *testing.T) string {
	rec := a.do(t, http.MethodPost, "/v1/admin/login", `{"username":"admin","password":"letmein"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok utils.AccessToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAdminLogin(t *testing.T) {
	a := newAPI(t)
	assert.NotEmpty(t, a.login(t))

	rec := a.do(t, http.MethodPost, "/v1/admin/login", `{"username":"admin","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/admin/login", `{"username":"root","password":"letmein"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/admin/login", `{"username":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodPost, "/v1/movies", `{"name":"Inception","duration_minutes":148}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := a.login(t)
	rec = a.do(t, http.MethodPost, "/v1/movies", `{"name":"Inception","genre":"Sci-Fi","duration_minutes":148,"rating":"PG-13"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/movies", `{"name":"Inception","duration_minutes":90}`, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/movies", `{"name":" ","duration_minutes":90}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/theatres", `{"name":"PVR Cinemas","location":"Mall Road","total_seats":80}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/v1/movies", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var movies struct {
		Movies []struct {
			Name string `json:"name"`
		} `json:"movies"`
	}
	decode(t, rec, &movies)
	require.Len(t, movies.Movies, 1)
	assert.Equal(t, "Inception", movies.Movies[0].Name)

	rec = a.do(t, http.MethodGet, "/v1/theatres", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PVR Cinemas")

	assert.Equal(t, 2, a.changes)
}

func TestDates(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodGet, "/v1/dates", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Dates []string `json:"dates"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Dates, 7)
	assert.Equal(t, "2025-06-01", body.Dates[0])
	assert.Equal(t, "2025-06-07", body.Dates[6])
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	_, err := a.catalog.AddMovie(ctx, "Inception", "Sci-Fi", 148, "PG-13")
	require.NoError(t, err)
	_, err = a.catalog.AddTheatre(ctx, "PVR Cinemas", "Mall Road", 80)
	require.NoError(t, err)

	seatsPath := "/v1/screenings/seats?movie_id=1&theatre_id=1&date=2025-06-01"
	rec := a.do(t, http.MethodGet, seatsPath, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var seatMap booking.SeatMap
	decode(t, rec, &seatMap)
	assert.Empty(t, seatMap.Booked)
	assert.Len(t, seatMap.Available, 80)

	body := `{"movie_id":1,"theatre_id":1,"date":"2025-06-01","seats":["A1","A2"],"customer_name":"Jane","phone":"555"}`
	rec = a.do(t, http.MethodPost, "/v1/bookings", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rcpt struct {
		Seats []string `json:"seats"`
		Total string   `json:"total"`
		Movie string   `json:"movie"`
	}
	decode(t, rec, &rcpt)
	assert.Equal(t, []string{"A1", "A2"}, rcpt.Seats)
	assert.Equal(t, "500", rcpt.Total)
	assert.Equal(t, "Inception", rcpt.Movie)

	body = `{"movie_id":1,"theatre_id":1,"date":"2025-06-01","seats":["A2","A3"],"customer_name":"Bob","phone":"1"}`
	rec = a.do(t, http.MethodPost, "/v1/bookings", body, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Seats []string `json:"seats"`
	}
	decode(t, rec, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)

	body = `{"movie_id":1,"theatre_id":1,"date":"2025-06-01","seats":[],"customer_name":"Bob","phone":"1"}`
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/bookings", body, "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/bookings", `{not json`, "").Code)

	rec = a.do(t, http.MethodGet, seatsPath, "", "")
	decode(t, rec, &seatMap)
	assert.Equal(t, []string{"A1", "A2"}, seatMap.Booked)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/screenings/seats?movie_id=x&theatre_id=1&date=2025-06-01", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/screenings/seats?movie_id=1&theatre_id=1&date=june", "", "").Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/bookings", "", "").Code)
	viewer, err := utils.NewAccessToken(secret, "bob", "VIEWER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/v1/bookings", "", viewer.Token).Code)

	token := a.login(t)
	rec = a.do(t, http.MethodGet, "/v1/bookings", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		Bookings []struct {
			Seat     string `json:"seat"`
			Customer string `json:"customer_name"`
		} `json:"bookings"`
	}
	decode(t, rec, &report)
	require.Len(t, report.Bookings, 2)
	assert.Equal(t, "Jane", report.Bookings[0].Customer)

	rec = a.do(t, http.MethodGet, "/v1/bookings?grouped=true", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped struct {
		Purchases []booking.Purchase `json:"purchases"`
	}
	decode(t, rec, &grouped)
	require.Len(t, grouped.Purchases, 1)
	assert.Equal(t, []string{"A1", "A2"}, grouped.Purchases[0].Seats)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/bookings?grouped=maybe", "", token).Code)
}

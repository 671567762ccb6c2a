package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/screening-seat-booking/internal/config"
	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/utils"
)

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}, JWTAuth("secret"), RequireRole("ADMIN"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	viewer, err := utils.NewAccessToken("secret", "bob", "VIEWER", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+viewer.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	forged, err := utils.NewAccessToken("wrong", "admin", "ADMIN", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+forged.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	admin, err := utils.NewAccessToken("secret", "admin", "ADMIN", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestRequestLoggerCorrelationID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	var seen interface{}
	e.GET("/ping", func(c echo.Context) error {
		seen = log.FromContext(c.Request().Context()).Data["correlation_id"]
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationHeader, "abc123")
	rec := serve(e, req)
	assert.Equal(t, "abc123", rec.Header().Get(CorrelationHeader))
	assert.Equal(t, "abc123", seen)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(CorrelationHeader))
	assert.Equal(t, rec.Header().Get(CorrelationHeader), seen)
}

func TestRequestLoggerWritesHandlerErrors(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e.POST("/v1/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, serve(e, httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)).Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /v1/bookings",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))
	c.Set("user_id", "admin")
	assert.Equal(t, "rl:user:admin",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(201, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, 201, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}

func TestRedisCacheMissThenHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}

	calls := 0
	e := echo.New()
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "hello")
	}, NewRedisCache(cfg, db))

	keyCtx := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/movies", nil), httptest.NewRecorder())
	keyCtx.SetPath("/v1/movies")
	key := cacheKeyFrom(cfg, keyCtx, "0")
	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {echo.MIMETextPlainCharsetUTF8}}, []byte("hello"))
	require.NoError(t, err)

	mock.ExpectGet("cache:gen").RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectGet("cache:gen").RedisNil()
	mock.ExpectGet(key).SetVal(string(payload))

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeResponseCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db, mock := redismock.NewClientMock()
	mock.ExpectIncr("cache:gen").SetVal(1)
	require.NoError(t, PurgeResponseCache(ctx, config.CacheConfig{Prefix: "cache"}, db))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, PurgeResponseCache(ctx, config.CacheConfig{Prefix: "cache"}, nil))
}

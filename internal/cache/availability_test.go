package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

var screening = model.Screening{MovieID: 3, TheatreID: 2, Date: "2025-06-01"}

func loader(calls *int, seats ...string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		*calls++
		return seats, nil
	}
}

func TestSeatCacheMissInitialisesVersionAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)
	c.now = func() time.Time { return time.Unix(0, 42) }

	mock.ExpectGet("seats:ver:3:2:2025-06-01").RedisNil()
	mock.ExpectSetNX("seats:ver:3:2:2025-06-01", "42", 0).SetVal(true)
	mock.ExpectGet("seats:3:2:2025-06-01:42").RedisNil()
	mock.ExpectSet("seats:3:2:2025-06-01:42", `["A1","C5"]`, time.Minute).SetVal("OK")

	calls := 0
	seats, err := c.Get(context.Background(), screening, loader(&calls, "A1", "C5"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "C5"}, seats)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)

	mock.ExpectGet("seats:ver:3:2:2025-06-01").SetVal("7")
	mock.ExpectGet("seats:3:2:2025-06-01:7").SetVal(`["B2"]`)

	calls := 0
	seats, err := c.Get(context.Background(), screening, loader(&calls))
	require.NoError(t, err)
	assert.Equal(t, []string{"B2"}, seats)
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheInvalidateBumpsVersion(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)
	c.now = func() time.Time { return time.Unix(0, 42) }

	mock.ExpectEvalSha(bumpVersion.Hash(), []string{"seats:ver:3:2:2025-06-01"}, "42").SetVal(int64(8))
	require.NoError(t, c.Invalidate(context.Background(), screening))

	// the next read uses the new version and misses
	mock.ExpectGet("seats:ver:3:2:2025-06-01").SetVal("8")
	mock.ExpectGet("seats:3:2:2025-06-01:8").RedisNil()
	mock.ExpectSet("seats:3:2:2025-06-01:8", `["B2","B3"]`, time.Minute).SetVal("OK")

	calls := 0
	seats, err := c.Get(context.Background(), screening, loader(&calls, "B2", "B3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B3"}, seats)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheFallsBackWhenRedisFails(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)

	mock.ExpectGet("seats:ver:3:2:2025-06-01").SetErr(errors.New("connection refused"))

	calls := 0
	seats, err := c.Get(context.Background(), screening, loader(&calls, "D1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, seats)
	assert.Equal(t, 1, calls)
}

func TestSeatCacheLoaderErrorIsReturned(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)

	mock.ExpectGet("seats:ver:3:2:2025-06-01").SetVal("1")
	mock.ExpectGet("seats:3:2:2025-06-01:1").RedisNil()

	boom := errors.New("db down")
	_, err := c.Get(context.Background(), screening, func(context.Context) ([]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheInvalidateSeedsEvictedVersionFromClock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewSeatCache(db, time.Minute)
	c.now = func() time.Time { return time.Unix(0, 1_700_000_000_000_000_000) }

	// Redis reports the seeded value when the counter had been evicted
	mock.ExpectEvalSha(bumpVersion.Hash(), []string{"seats:ver:3:2:2025-06-01"}, "1700000000000000000").
		SetVal("1700000000000000000")
	require.NoError(t, c.Invalidate(context.Background(), screening))

	mock.ExpectGet("seats:ver:3:2:2025-06-01").SetVal("1700000000000000000")
	mock.ExpectGet("seats:3:2:2025-06-01:1700000000000000000").RedisNil()
	mock.ExpectSet("seats:3:2:2025-06-01:1700000000000000000", `["E4"]`, time.Minute).SetVal("OK")

	calls := 0
	seats, err := c.Get(context.Background(), screening, loader(&calls, "E4"))
	require.NoError(t, err)
	assert.Equal(t, []string{"E4"}, seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package cache keeps booked-seat lists of screenings in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// SeatCache is a versioned cache-aside store.  Every screening has a
// version counter at <prefix>:ver:<screening>; seat lists are stored under
// <prefix>:<screening>:<version> with a TTL.  Invalidate bumps the counter,
// so once it returns no reader can reach an entry written for an older
// version.  Misses for the same entry are collapsed with singleflight.
type SeatCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	group  singleflight.Group
	now    func() time.Time
}

// NewSeatCache returns a cache with the "seats" key prefix.
func NewSeatCache(rdb redis.Cmdable, ttl time.Duration) *SeatCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SeatCache{rdb: rdb, ttl: ttl, prefix: "seats", now: time.Now}
}

func (c *SeatCache) versionKey(s model.Screening) string {
	return c.prefix + ":ver:" + s.Key()
}

func (c *SeatCache) entryKey(s model.Screening, ver string) string {
	return c.prefix + ":" + s.Key() + ":" + ver
}

// version reads the screening's counter.  A missing counter (never bumped,
// or evicted) is initialised from the clock so it cannot reuse a version
// some older entry may still be stored under.
func (c *SeatCache) version(ctx context.Context, s model.Screening) (string, error) {
	key := c.versionKey(s)
	v, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", err
	}
	fresh := strconv.FormatInt(c.now().UnixNano(), 10)
	created, err := c.rdb.SetNX(ctx, key, fresh, 0).Result()
	if err != nil {
		return "", err
	}
	if created {
		return fresh, nil
	}
	return c.rdb.Get(ctx, key).Result()
}

// Get returns the cached seats of s or calls load and caches its result.
// Redis failures fall back to load.
func (c *SeatCache) Get(ctx context.Context, s model.Screening, load func(context.Context) ([]string, error)) ([]string, error) {
	logger := log.FromContext(ctx).WithField("screening", s.Key())
	ver, err := c.version(ctx, s)
	if err != nil {
		logger.WithError(err).Warn("seat cache unavailable, reading ledger")
		return load(ctx)
	}
	key := c.entryKey(s, ver)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var seats []string
		if jerr := json.Unmarshal([]byte(raw), &seats); jerr == nil {
			return seats, nil
		}
		logger.Warn("seat cache entry corrupt, reloading")
	case !errors.Is(err, redis.Nil):
		logger.WithError(err).Debug("seat cache get failed")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		seats, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if b, merr := json.Marshal(seats); merr == nil {
			if serr := c.rdb.Set(ctx, key, string(b), c.ttl).Err(); serr != nil {
				logger.WithError(serr).Debug("seat cache set failed")
			}
		}
		return seats, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]string)
	out := make([]string, len(shared))
	copy(out, shared)
	return out, nil
}

// bumpVersion increments an existing counter.  A missing one is seeded
// from ARGV[1] (clock nanoseconds) instead of restarting at 1, which could
// land on a version an older entry is still stored under.
var bumpVersion = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('INCR', KEYS[1])
end
redis.call('SET', KEYS[1], ARGV[1])
return ARGV[1]
`)

// Invalidate bumps the screening's version.
func (c *SeatCache) Invalidate(ctx context.Context, s model.Screening) error {
	fresh := strconv.FormatInt(c.now().UnixNano(), 10)
	return bumpVersion.Run(ctx, c.rdb, []string{c.versionKey(s)}, fresh).Err()
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/screening-seat-booking/internal/model"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *repository.MemoryStore
	catalog *Catalog
	avail   *Availability
	engine  *Engine
	reports *Reports
	movie   model.Movie
	theatre model.Theatre
}

func (env *testEnv) screening(date model.Date) model.Screening {
	return model.Screening{MovieID: env.movie.ID, TheatreID: env.theatre.ID, Date: date}
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	return newTestEnvWithLedger(t, nil, nil, opts...)
}

// newTestEnvWithLedger lets a test wrap the memory ledger; wrap may be nil.
func newTestEnvWithLedger(t *testing.T, wrap func(Ledger) Ledger, cache SeatCache, opts ...Option) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	catalog := NewCatalog(store.Movies(), store.Theatres())
	var ledger Ledger = store.Bookings()
	if wrap != nil {
		ledger = wrap(ledger)
	}
	avail := NewAvailability(ledger, cache)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)

	ctx := context.Background()
	movie, err := catalog.AddMovie(ctx, "Inception", "Sci-Fi", 148, "PG-13")
	require.NoError(t, err)
	theatre, err := catalog.AddTheatre(ctx, "PVR Cinemas", "Mall Road", 80)
	require.NoError(t, err)

	return &testEnv{
		store:   store,
		catalog: catalog,
		avail:   avail,
		engine:  NewEngine(catalog, ledger, avail, opts...),
		reports: NewReports(ledger),
		movie:   movie,
		theatre: theatre,
	}
}

// blindLedger hides committed seats from the in-transaction read so only
// the storage uniqueness constraint can catch a double sale.
type blindLedger struct{ Ledger }

func (b blindLedger) WithinScreening(ctx context.Context, s model.Screening, fn func(tx repository.ScreeningTx) error) error {
	return b.Ledger.WithinScreening(ctx, s, func(tx repository.ScreeningTx) error {
		return fn(blindTx{tx})
	})
}

type blindTx struct{ repository.ScreeningTx }

func (blindTx) BookedSeats(context.Context) ([]string, error) { return []string{}, nil }

// failingLedger breaks the unit of work part way.  With failAppend the
// first requested seat is written and the rest fail as if the connection
// dropped mid insert; otherwise every row is appended and the commit fails.
type failingLedger struct {
	Ledger
	failAppend bool
}

var errStorageDown = errors.New("connection reset by peer")

func (f failingLedger) WithinScreening(ctx context.Context, s model.Screening, fn func(tx repository.ScreeningTx) error) error {
	return f.Ledger.WithinScreening(ctx, s, func(tx repository.ScreeningTx) error {
		if f.failAppend {
			return fn(halfTx{tx})
		}
		if err := fn(tx); err != nil {
			return err
		}
		return fmt.Errorf("commit: %w", errStorageDown)
	})
}

type halfTx struct{ repository.ScreeningTx }

func (h halfTx) Append(ctx context.Context, rows []model.Booking) error {
	if err := h.ScreeningTx.Append(ctx, rows[:1]); err != nil {
		return err
	}
	return errStorageDown
}

type recordingPublisher struct {
	mu       sync.Mutex
	receipts []Receipt
	err      error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, r Receipt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipts = append(p.receipts, r)
	return p.err
}

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) ObserveCommit(outcome string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// mapCache is an in-memory SeatCache counting invalidations.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]string
	invalidated []string
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]string{}} }

func (c *mapCache) Get(ctx context.Context, s model.Screening, load func(context.Context) ([]string, error)) ([]string, error) {
	c.mu.Lock()
	if v, ok := c.entries[s.Key()]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[s.Key()] = v
	c.mu.Unlock()
	return v, nil
}

func (c *mapCache) Invalidate(_ context.Context, s model.Screening) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, s.Key())
	c.invalidated = append(c.invalidated, s.Key())
	return nil
}

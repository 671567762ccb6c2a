package booking

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/model"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
)

// Ledger is the append-only booking store.  WithinScreening must run fn
// atomically and exclusively per screening.
type Ledger interface {
	BookedSeats(ctx context.Context, s model.Screening) ([]string, error)
	WithinScreening(ctx context.Context, s model.Screening, fn func(tx repository.ScreeningTx) error) error
	ListAll(ctx context.Context) ([]model.BookingView, error)
}

// SeatCache is a read-through cache of booked seats keyed by screening.
// Invalidate is called after every commit; a Get that starts after
// Invalidate returns must not serve pre-commit data.
type SeatCache interface {
	Get(ctx context.Context, s model.Screening, load func(context.Context) ([]string, error)) ([]string, error)
	Invalidate(ctx context.Context, s model.Screening) error
}

// Availability answers which seats of a screening are sold.  It is derived
// from the ledger and keeps no state of its own beyond the optional cache.
type Availability struct {
	ledger Ledger
	cache  SeatCache
}

// NewAvailability wires the index.  cache may be nil.
func NewAvailability(ledger Ledger, cache SeatCache) *Availability {
	return &Availability{ledger: ledger, cache: cache}
}

// SeatMap is the full picture of one screening's grid.
type SeatMap struct {
	Screening model.Screening `json:"screening"`
	Rows      int             `json:"rows"`
	Cols      int             `json:"cols"`
	Booked    []string        `json:"booked"`
	Available []string        `json:"available"`
}

// BookedSeats returns the committed seats of s in grid order.  A screening
// nobody has booked yields an empty slice, never an error.
func (a *Availability) BookedSeats(ctx context.Context, s model.Screening) ([]string, error) {
	if _, err := model.ParseDate(string(s.Date)); err != nil {
		return nil, invalidf("%v", err)
	}
	load := func(ctx context.Context) ([]string, error) {
		return a.ledger.BookedSeats(ctx, s)
	}
	var (
		seats []string
		err   error
	)
	if a.cache != nil {
		seats, err = a.cache.Get(ctx, s, load)
	} else {
		seats, err = load(ctx)
	}
	if err != nil {
		return nil, unavailable("read booked seats", err)
	}
	if seats == nil {
		seats = []string{}
	}
	return seats, nil
}

// SeatMap returns booked and available labels for rendering a screening.
func (a *Availability) SeatMap(ctx context.Context, s model.Screening) (SeatMap, error) {
	booked, err := a.BookedSeats(ctx, s)
	if err != nil {
		return SeatMap{}, err
	}
	return SeatMap{
		Screening: s,
		Rows:      model.SeatRows,
		Cols:      model.SeatCols,
		Booked:    booked,
		Available: lo.Without(model.AllSeats(), booked...),
	}, nil
}

// invalidate drops cached seats for s.  It runs after the ledger commit
// and must not be bound to the caller's deadline.
func (a *Availability) invalidate(ctx context.Context, s model.Screening) {
	if a.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := a.cache.Invalidate(ctx, s); err != nil {
		log.FromContext(ctx).WithError(err).WithField("screening", s.Key()).Warn("availability cache invalidate failed")
	}
}

package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/screening-seat-booking/internal/log"
	"github.com/iliyamo/screening-seat-booking/internal/model"
	"github.com/iliyamo/screening-seat-booking/internal/repository"
)

// Request asks for a set of seats of one screening.
type Request struct {
	Screening    model.Screening `json:"screening"`
	Seats        []string        `json:"seats"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
}

// Receipt describes a committed purchase.
type Receipt struct {
	Screening    model.Screening `json:"screening"`
	MovieName    string          `json:"movie"`
	TheatreName  string          `json:"theatre"`
	Seats        []string        `json:"seats"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	BookedAt     time.Time       `json:"booked_at"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
}

// Publisher announces committed purchases.  Failures are logged only.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, r Receipt) error
}

// Recorder receives one observation per CommitBooking call.
type Recorder interface {
	ObserveCommit(outcome string, seats int, elapsed time.Duration)
}

// Commit outcomes passed to Recorder.
const (
	OutcomeCommitted   = "committed"
	OutcomeSeatTaken   = "seat_taken"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
)

// Engine sells seats.  Commits for one screening are serialised by an in
// process semaphore and by the ledger's own per-screening lock, so the
// check for taken seats and the append happen as one unit.
type Engine struct {
	catalog *Catalog
	ledger  Ledger
	avail   *Availability
	locks   *screeningLocks

	now        func() time.Time
	timeout    time.Duration
	windowDays int
	price      decimal.Decimal
	publisher  Publisher
	recorder   Recorder
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithCommitTimeout bounds lock waits plus the transaction.
func WithCommitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBookingWindow limits dates to today..today+days-1.  Zero disables the
// check.
func WithBookingWindow(days int) Option { return func(e *Engine) { e.windowDays = days } }

// WithTicketPrice sets the flat per-seat price used for receipt totals.
func WithTicketPrice(p decimal.Decimal) Option { return func(e *Engine) { e.price = p } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// NewEngine builds an engine with a 5s commit timeout, a 7 day booking
// window and a price of 250.00.
func NewEngine(catalog *Catalog, ledger Ledger, avail *Availability, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		ledger:     ledger,
		avail:      avail,
		locks:      newScreeningLocks(),
		now:        time.Now,
		timeout:    5 * time.Second,
		windowDays: model.CandidateDays,
		price:      decimal.RequireFromString("250.00"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CommitBooking validates req, then under the screening's lock re-reads the
// sold seats and either appends every requested seat or none.  Any
// requested seat already sold fails the whole request with a
// *SeatTakenError naming the contested seats.
func (e *Engine) CommitBooking(ctx context.Context, req Request) (rcpt Receipt, err error) {
	start := time.Now()
	var seats []string
	defer func() {
		if e.recorder != nil {
			e.recorder.ObserveCommit(outcomeOf(err), len(seats), time.Since(start))
		}
	}()

	seats, err = normalizeSeats(req.Seats)
	if err != nil {
		return Receipt{}, err
	}
	customer := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.Phone)
	if customer == "" {
		return Receipt{}, invalidf("customer name is required")
	}
	if phone == "" {
		return Receipt{}, invalidf("phone is required")
	}
	if err := checkText("customer name", customer, model.MaxCustomerNameLen); err != nil {
		return Receipt{}, err
	}
	if err := checkText("phone", phone, model.MaxPhoneLen); err != nil {
		return Receipt{}, err
	}
	s := req.Screening
	if s.Date, err = e.checkDate(s.Date); err != nil {
		return Receipt{}, err
	}
	movie, err := e.catalog.MovieByID(ctx, s.MovieID)
	if err != nil {
		return Receipt{}, asInvalid(err)
	}
	theatre, err := e.catalog.TheatreByID(ctx, s.TheatreID)
	if err != nil {
		return Receipt{}, asInvalid(err)
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"screening": s.Key(),
		"seats":     strings.Join(seats, ","),
	})

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	release, err := e.locks.acquire(cctx, s.Key())
	if err != nil {
		return Receipt{}, unavailable("wait for screening", err)
	}
	defer release()

	bookedAt := e.now().UTC().Truncate(time.Millisecond)
	err = e.ledger.WithinScreening(cctx, s, func(tx repository.ScreeningTx) error {
		taken, err := tx.BookedSeats(cctx)
		if err != nil {
			return err
		}
		if clash := lo.Intersect(taken, seats); len(clash) > 0 {
			return &SeatTakenError{Seats: clash}
		}
		rows := lo.Map(seats, func(seat string, _ int) model.Booking {
			return model.Booking{
				MovieID:      s.MovieID,
				TheatreID:    s.TheatreID,
				Date:         s.Date,
				Seat:         seat,
				CustomerName: customer,
				Phone:        phone,
				BookedAt:     bookedAt,
			}
		})
		return tx.Append(cctx, rows)
	})
	if err != nil {
		var taken *SeatTakenError
		switch {
		case errors.As(err, &taken):
			logger.WithField("taken", strings.Join(taken.Seats, ",")).Info("booking rejected, seats taken")
			return Receipt{}, taken
		case errors.Is(err, repository.ErrDuplicateSeat):
			taken = e.contested(ctx, s, seats)
			logger.WithField("taken", strings.Join(taken.Seats, ",")).Warn("booking hit seat uniqueness constraint")
			return Receipt{}, taken
		case errors.Is(err, repository.ErrLockTimeout):
			return Receipt{}, unavailable("wait for screening", err)
		default:
			logger.WithError(err).Error("booking commit failed")
			return Receipt{}, unavailable("commit booking", err)
		}
	}
	release()

	rcpt = Receipt{
		Screening:    s,
		MovieName:    movie.Name,
		TheatreName:  theatre.Name,
		Seats:        seats,
		CustomerName: customer,
		Phone:        phone,
		BookedAt:     bookedAt,
		UnitPrice:    e.price,
		Total:        e.price.Mul(decimal.NewFromInt(int64(len(seats)))),
	}
	logger.WithField("customer", customer).Info("booking committed")

	e.avail.invalidate(ctx, s)
	if e.publisher != nil {
		pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		if perr := e.publisher.PublishBookingConfirmed(pctx, rcpt); perr != nil {
			logger.WithError(perr).Warn("publish booking.confirmed failed")
		}
		pcancel()
	}
	return rcpt, nil
}

// contested re-reads the ledger after a uniqueness violation to name the
// seats someone else got first.
func (e *Engine) contested(ctx context.Context, s model.Screening, seats []string) *SeatTakenError {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	taken, err := e.ledger.BookedSeats(rctx, s)
	if err == nil {
		if clash := lo.Intersect(taken, seats); len(clash) > 0 {
			return &SeatTakenError{Seats: clash}
		}
	}
	return &SeatTakenError{Seats: seats}
}

// checkDate parses d and applies the booking window.
func (e *Engine) checkDate(d model.Date) (model.Date, error) {
	d, err := model.ParseDate(string(d))
	if err != nil {
		return "", invalidf("%v", err)
	}
	if e.windowDays <= 0 {
		return d, nil
	}
	first := model.DateOf(e.now())
	last := first.AddDays(e.windowDays - 1)
	if d < first || d > last {
		return "", invalidf("date %s outside booking window %s..%s", d, first, last)
	}
	return d, nil
}

// normalizeSeats trims, upper-cases, validates and de-duplicates labels and
// returns them in grid order.
func normalizeSeats(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, invalidf("no seats selected")
	}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		seat, err := model.ParseSeat(raw)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		out = append(out, seat.Label())
	}
	out = lo.Uniq(out)
	model.SortSeats(out)
	return out, nil
}

// asInvalid turns a catalog miss into invalid input; a booking for an
// unknown movie or theatre is a bad request, not a missing resource.
func asInvalid(err error) error {
	if errors.Is(err, ErrNotFound) {
		return invalidf("%v", err)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, ErrSeatAlreadyTaken):
		return OutcomeSeatTaken
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeUnavailable
	}
}

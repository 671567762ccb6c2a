package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// ScreeningTx is the unit of work handed to WithinScreening callbacks.  All
// reads and writes through it belong to one screening and one database
// transaction, and no other WithinScreening call for the same screening
// runs until it finishes.
type ScreeningTx interface {
	// BookedSeats returns the committed seat labels of the screening.
	BookedSeats(ctx context.Context) ([]string, error)
	// Append inserts the rows.  Rows must belong to the screening.  A seat
	// that is already booked yields ErrDuplicateSeat and nothing is kept.
	Append(ctx context.Context, rows []model.Booking) error
}

// BookingRepo is the MySQL booking ledger.  Rows are only ever inserted;
// the table carries UNIQUE(movie_id, theatre_id, booking_date, seat_number)
// so a seat can never be sold twice even if a caller bypasses the lock.
type BookingRepo struct {
	db       *sqlx.DB
	lockWait time.Duration
}

// NewBookingRepo returns a ledger bound to db.  lockWait bounds how long
// WithinScreening waits for the screening's named lock.
func NewBookingRepo(db *sqlx.DB, lockWait time.Duration) *BookingRepo {
	return &BookingRepo{db: db, lockWait: lockWait}
}

// BookedSeats returns the seat labels committed for s.  It is a plain
// consistent read and never waits on writers.
func (r *BookingRepo) BookedSeats(ctx context.Context, s model.Screening) ([]string, error) {
	return selectSeats(ctx, r.db, s)
}

func selectSeats(ctx context.Context, q sqlx.QueryerContext, s model.Screening) ([]string, error) {
	const sel = `SELECT seat_number FROM bookings
	             WHERE movie_id = ? AND theatre_id = ? AND booking_date = ?`
	seats := make([]string, 0)
	if err := sqlx.SelectContext(ctx, q, &seats, sel, s.MovieID, s.TheatreID, s.Date); err != nil {
		return nil, err
	}
	model.SortSeats(seats)
	return seats, nil
}

// lockName is the MySQL named lock guarding one screening.  Names are
// limited to 64 characters; ids and a date fit comfortably.
func lockName(s model.Screening) string {
	return "seat-booking:" + s.Key()
}

// WithinScreening runs fn inside a transaction while holding the
// screening's named lock (GET_LOCK).  The lock is taken before the
// transaction starts, so the transaction's snapshot already contains every
// commit made by earlier lock holders.  fn's error rolls the transaction
// back and is returned unchanged.
func (r *BookingRepo) WithinScreening(ctx context.Context, s model.Screening, fn func(tx ScreeningTx) error) error {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	name := lockName(s)
	waitSecs := int(r.lockWait.Round(time.Second) / time.Second)
	if waitSecs < 1 {
		waitSecs = 1
	}
	var got *int64
	if err := conn.GetContext(ctx, &got, `SELECT GET_LOCK(?, ?)`, name, waitSecs); err != nil {
		return fmt.Errorf("get screening lock: %w", err)
	}
	if got == nil || *got != 1 {
		return ErrLockTimeout
	}
	defer func() {
		// ctx may already be done; the lock must still be released before
		// the connection goes back to the pool.
		if _, err := conn.ExecContext(context.Background(), `DO RELEASE_LOCK(?)`, name); err != nil {
			logrus.WithError(err).WithField("lock", name).Warn("release screening lock failed")
		}
	}()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&mysqlScreeningTx{tx: tx, screening: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type mysqlScreeningTx struct {
	tx        *sqlx.Tx
	screening model.Screening
}

func (t *mysqlScreeningTx) BookedSeats(ctx context.Context) ([]string, error) {
	return selectSeats(ctx, t.tx, t.screening)
}

// Append inserts all rows in a single multi-row statement.
func (t *mysqlScreeningTx) Append(ctx context.Context, rows []model.Booking) error {
	if len(rows) == 0 {
		return nil
	}
	var q strings.Builder
	q.WriteString(`INSERT INTO bookings (movie_id, theatre_id, booking_date, seat_number, customer_name, phone, booking_time) VALUES `)
	args := make([]interface{}, 0, len(rows)*7)
	for i, b := range rows {
		if b.Screening() != t.screening {
			return fmt.Errorf("booking for %s appended to screening %s", b.Screening().Key(), t.screening.Key())
		}
		if i > 0 {
			q.WriteString(",")
		}
		q.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.MovieID, b.TheatreID, b.Date, b.Seat, b.CustomerName, b.Phone, b.BookedAt.UTC())
	}
	if _, err := t.tx.ExecContext(ctx, q.String(), args...); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSeat
		}
		return err
	}
	return nil
}

// ListAll returns every booking joined with movie and theatre names, newest
// screening date first, then newest booking first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.BookingView, error) {
	const q = `SELECT b.id, b.movie_id, b.theatre_id,
	                  m.name AS movie_name, t.name AS theatre_name,
	                  b.booking_date, b.seat_number, b.customer_name, b.phone, b.booking_time
	           FROM bookings b
	           JOIN movies m ON m.id = b.movie_id
	           JOIN theatres t ON t.id = b.theatre_id
	           ORDER BY b.booking_date DESC, b.booking_time DESC, b.id DESC`
	out := make([]model.BookingView, 0)
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

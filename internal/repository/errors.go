// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the booking layer distinguish
// constraint violations from infrastructure failures without knowing
// which store produced them.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNameTaken is returned when a movie or theatre insert hits the UNIQUE
// constraint on name.
var ErrNameTaken = errors.New("name already exists")

// ErrDuplicateSeat is returned when a booking insert hits the UNIQUE
// constraint on (movie_id, theatre_id, booking_date, seat_number).
var ErrDuplicateSeat = errors.New("seat already booked for screening")

// ErrMovieNotFound is returned when a movie lookup finds no row.
var ErrMovieNotFound = errors.New("movie not found")

// ErrTheatreNotFound is returned when a theatre lookup finds no row.
var ErrTheatreNotFound = errors.New("theatre not found")

// ErrLockTimeout is returned when the per-screening lock could not be
// acquired before the wait limit.
var ErrLockTimeout = errors.New("screening lock wait timed out")

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

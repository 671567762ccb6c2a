package model

import "time"

// Booking is one sold seat of one screening.  A purchase of several seats
// is stored as several Booking rows that share the screening, customer,
// phone and BookedAt timestamp.
//
// Fields:
//
//	ID           – primary key identifier.
//	MovieID      – movie of the screening.
//	TheatreID    – theatre of the screening.
//	Date         – calendar date of the screening.
//	Seat         – seat label such as "C5".
//	CustomerName – name given at checkout.
//	Phone        – phone given at checkout.
//	BookedAt     – commit timestamp shared by the whole purchase.
type Booking struct {
	ID           uint64    // bookings.id
	MovieID      uint64    // bookings.movie_id
	TheatreID    uint64    // bookings.theatre_id
	Date         Date      // bookings.booking_date
	Seat         string    // bookings.seat_number
	CustomerName string    // bookings.customer_name
	Phone        string    // bookings.phone
	BookedAt     time.Time // bookings.booking_time
}

// Screening returns the screening this booking belongs to.
func (b Booking) Screening() Screening {
	return Screening{MovieID: b.MovieID, TheatreID: b.TheatreID, Date: b.Date}
}

// BookingView is a ledger row joined with catalog names, as shown in the
// bookings report.
type BookingView struct {
	ID           uint64    `json:"id" db:"id"`
	MovieID      uint64    `json:"movie_id" db:"movie_id"`
	TheatreID    uint64    `json:"theatre_id" db:"theatre_id"`
	MovieName    string    `json:"movie" db:"movie_name"`
	TheatreName  string    `json:"theatre" db:"theatre_name"`
	Date         Date      `json:"date" db:"booking_date"`
	Seat         string    `json:"seat" db:"seat_number"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	Phone        string    `json:"phone" db:"phone"`
	BookedAt     time.Time `json:"booked_at" db:"booking_time"`
}

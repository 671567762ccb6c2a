// Package queue carries booking events over RabbitMQ: a publisher used by
// the booking engine and a consumer that keeps an audit log of confirmed
// purchases.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/screening-seat-booking/internal/booking"
)

// BookingConfirmedQueue is the durable queue events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per committed purchase.  It holds
// enough for consumers to log or notify without reading the database.
// EventID is unique per event so consumers can drop redeliveries.
type BookingConfirmedEvent struct {
	EventID      string   `json:"event_id"`
	MovieID      uint64   `json:"movie_id"`
	TheatreID    uint64   `json:"theatre_id"`
	MovieName    string   `json:"movie"`
	TheatreName  string   `json:"theatre"`
	Date         string   `json:"date"`
	Seats        []string `json:"seats"`
	CustomerName string   `json:"customer_name"`
	Phone        string   `json:"phone"`
	Total        string   `json:"total"`
	BookedAt     string   `json:"booked_at"`
}

// NewBookingConfirmed builds the event for a receipt.
func NewBookingConfirmed(r booking.Receipt) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		EventID:      uuid.NewString(),
		MovieID:      r.Screening.MovieID,
		TheatreID:    r.Screening.TheatreID,
		MovieName:    r.MovieName,
		TheatreName:  r.TheatreName,
		Date:         r.Screening.Date.String(),
		Seats:        r.Seats,
		CustomerName: r.CustomerName,
		Phone:        r.Phone,
		Total:        r.Total.StringFixed(2),
		BookedAt:     r.BookedAt.UTC().Format(time.RFC3339Nano),
	}
}

package booking

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/screening-seat-booking/internal/model"
)

// DefaultPurchaseTolerance groups rows whose timestamps differ by at most
// this much.  Rows of one commit share a timestamp exactly, so the
// tolerance only matters for ledgers written by other tools.
const DefaultPurchaseTolerance = 2 * time.Second

// Reports reads the booking ledger for administrators.
type Reports struct {
	ledger Ledger
}

func NewReports(ledger Ledger) *Reports {
	return &Reports{ledger: ledger}
}

// ListAllBookings returns every booking joined with movie and theatre names,
// newest screening date first, then newest booking time, then highest id.
func (r *Reports) ListAllBookings(ctx context.Context) ([]model.BookingView, error) {
	rows, err := r.ledger.ListAll(ctx)
	if err != nil {
		return nil, unavailable("list bookings", err)
	}
	return rows, nil
}

// Purchase is a group of booking rows made by one customer for one
// screening at (nearly) the same instant.  It is synthesised on read and
// never stored.
type Purchase struct {
	MovieID      uint64     `json:"movie_id"`
	TheatreID    uint64     `json:"theatre_id"`
	MovieName    string     `json:"movie"`
	TheatreName  string     `json:"theatre"`
	Date         model.Date `json:"date"`
	CustomerName string     `json:"customer_name"`
	Phone        string     `json:"phone"`
	Seats        []string   `json:"seats"`
	BookingIDs   []uint64   `json:"booking_ids"`
	BookedAt     time.Time  `json:"booked_at"`
}

type purchaseKey struct {
	screening model.Screening
	customer  string
	phone     string
}

// GroupPurchases folds rows into purchases.  Rows join the most recent
// purchase with the same screening, customer and phone when their
// timestamps are within tolerance of it.  Output order follows the first
// row of each purchase in rows.
func GroupPurchases(rows []model.BookingView, tolerance time.Duration) []Purchase {
	out := make([]*Purchase, 0)
	open := make(map[purchaseKey]*Purchase)
	for _, row := range rows {
		key := purchaseKey{
			screening: model.Screening{MovieID: row.MovieID, TheatreID: row.TheatreID, Date: row.Date},
			customer:  row.CustomerName,
			phone:     row.Phone,
		}
		if p, ok := open[key]; ok && absDur(p.BookedAt.Sub(row.BookedAt)) <= tolerance {
			p.Seats = append(p.Seats, row.Seat)
			p.BookingIDs = append(p.BookingIDs, row.ID)
			continue
		}
		p := &Purchase{
			MovieID:      row.MovieID,
			TheatreID:    row.TheatreID,
			MovieName:    row.MovieName,
			TheatreName:  row.TheatreName,
			Date:         row.Date,
			CustomerName: row.CustomerName,
			Phone:        row.Phone,
			Seats:        []string{row.Seat},
			BookingIDs:   []uint64{row.ID},
			BookedAt:     row.BookedAt,
		}
		open[key] = p
		out = append(out, p)
	}
	return lo.Map(out, func(p *Purchase, _ int) Purchase {
		model.SortSeats(p.Seats)
		return *p
	})
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

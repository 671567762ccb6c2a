package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a screening date.
const DateLayout = "2006-01-02"

// CandidateDays is the number of bookable dates offered, starting today.
const CandidateDays = 7

// Date is a calendar date in DateLayout form.  The zero value is the empty
// string and is never a valid screening date.  Because of the fixed layout
// lexical order equals chronological order.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want %s", s, DateLayout)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns midnight UTC of the date.  An invalid date yields the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string { return string(d) }

// Value implements driver.Valuer so dates are stored as DATE literals.
func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner.  MySQL returns DATE columns as time.Time
// when parseTime=true and as []byte otherwise.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case []byte:
		*d = Date(string(v))
	case string:
		*d = Date(v)
	case nil:
		*d = ""
	default:
		return fmt.Errorf("cannot scan %T into model.Date", src)
	}
	return nil
}

// CandidateDates lists the bookable dates: today through today+6.
func CandidateDates(now time.Time) []Date {
	today := DateOf(now)
	out := make([]Date, 0, CandidateDays)
	for i := 0; i < CandidateDays; i++ {
		out = append(out, today.AddDays(i))
	}
	return out
}

// Screening identifies one showing of a movie in a theatre on a date.  It
// has no row of its own; seat occupancy is grouped by it.
type Screening struct {
	MovieID   uint64 `json:"movie_id"`
	TheatreID uint64 `json:"theatre_id"`
	Date      Date   `json:"date"`
}

// Key returns a stable string identity, used for locks and cache keys.
func (s Screening) Key() string {
	return fmt.Sprintf("%d:%d:%s", s.MovieID, s.TheatreID, s.Date)
}

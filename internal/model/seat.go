package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Every screening uses the same grid of SeatRows x SeatCols seats,
// independent of Theatre.TotalSeats.
const (
	SeatRows = 8
	SeatCols = 10
)

// Seat is a position on the grid.  Row is zero based ('A' == 0), Col is
// one based, matching the printed label.
type Seat struct {
	Row int
	Col int
}

// Label renders the seat as row letter plus column number, e.g. "C5".
func (s Seat) Label() string {
	return string(rune('A'+s.Row)) + strconv.Itoa(s.Col)
}

// ParseSeat parses a label such as "c5" or " C5 " and checks that it lies
// on the grid.
func ParseSeat(label string) (Seat, error) {
	l := strings.ToUpper(strings.TrimSpace(label))
	if len(l) < 2 {
		return Seat{}, fmt.Errorf("invalid seat %q", label)
	}
	row := int(l[0]) - 'A'
	col, err := strconv.Atoi(l[1:])
	if err != nil || row < 0 || row >= SeatRows || col < 1 || col > SeatCols || l[1] == '0' || l[1] == '+' {
		return Seat{}, fmt.Errorf("invalid seat %q", label)
	}
	return Seat{Row: row, Col: col}, nil
}

// AllSeats returns every seat label of the grid in row-major order.
func AllSeats() []string {
	out := make([]string, 0, SeatRows*SeatCols)
	for r := 0; r < SeatRows; r++ {
		for c := 1; c <= SeatCols; c++ {
			out = append(out, Seat{Row: r, Col: c}.Label())
		}
	}
	return out
}

// SortSeats orders labels row-major (A1, A2, ..., A10, B1, ...).  Labels
// that do not parse sort last, lexically.
func SortSeats(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := ParseSeat(labels[i])
		b, errB := ParseSeat(labels[j])
		switch {
		case errA != nil && errB != nil:
			return labels[i] < labels[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		case a.Row != b.Row:
			return a.Row < b.Row
		default:
			return a.Col < b.Col
		}
	})
}

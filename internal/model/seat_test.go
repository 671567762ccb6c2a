package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeat(t *testing.T) {
	s, err := ParseSeat(" c5 ")
	require.NoError(t, err)
	assert.Equal(t, Seat{Row: 2, Col: 5}, s)
	assert.Equal(t, "C5", s.Label())

	s, err = ParseSeat("H10")
	require.NoError(t, err)
	assert.Equal(t, "H10", s.Label())

	for _, bad := range []string{"", "A", "I1", "A0", "A11", "A05", "A+5", "5A", "AA"} {
		_, err := ParseSeat(bad)
		assert.Error(t, err, bad)
	}
}

func TestAllSeats(t *testing.T) {
	all := AllSeats()
	require.Len(t, all, SeatRows*SeatCols)
	assert.Equal(t, "A1", all[0])
	assert.Equal(t, "A10", all[9])
	assert.Equal(t, "B1", all[10])
	assert.Equal(t, "H10", all[len(all)-1])
}

func TestSortSeats(t *testing.T) {
	labels := []string{"B1", "A10", "A2", "zz", "A1"}
	SortSeats(labels)
	assert.Equal(t, []string{"A1", "A2", "A10", "B1", "zz"}, labels)
}

func TestCandidateDates(t *testing.T) {
	now := time.Date(2025, 12, 29, 22, 0, 0, 0, time.UTC)
	dates := CandidateDates(now)
	require.Len(t, dates, CandidateDays)
	assert.Equal(t, Date("2025-12-29"), dates[0])
	assert.Equal(t, Date("2026-01-04"), dates[6])
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-06-01"), d)

	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, d, scanned)
	require.NoError(t, scanned.Scan([]byte("2025-06-02")))
	assert.Equal(t, Date("2025-06-02"), scanned)
}

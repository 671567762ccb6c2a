package model

// Theatre is a venue where screenings take place.  TotalSeats is recorded
// for information only; every screening uses the fixed seat grid defined
// in seat.go.
type Theatre struct {
	ID         uint64 `json:"id" db:"id"`                   // theatres.id
	Name       string `json:"name" db:"name"`               // theatres.name
	Location   string `json:"location" db:"location"`       // theatres.location
	TotalSeats int    `json:"total_seats" db:"total_seats"` // theatres.total_seats
}

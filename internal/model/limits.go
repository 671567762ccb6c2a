package model

// Column widths of the text fields, in characters.  They match the VARCHAR
// sizes in internal/database/schema.go; longer values are rejected before
// they reach storage.
const (
	MaxNameLen         = 191 // movies.name, theatres.name
	MaxGenreLen        = 64  // movies.genre
	MaxRatingLen       = 16  // movies.rating
	MaxLocationLen     = 191 // theatres.location
	MaxCustomerNameLen = 191 // bookings.customer_name
	MaxPhoneLen        = 32  // bookings.phone
)
